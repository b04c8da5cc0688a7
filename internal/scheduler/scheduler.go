package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vytor/openingtiers/internal/logger"
	"github.com/vytor/openingtiers/internal/models"
)

var (
	// ErrRunInProgress is returned when a run is requested while another
	// one is still executing.
	ErrRunInProgress = errors.New("an update run is already in progress")
	// ErrStopped is returned once Stop has been called.
	ErrStopped = errors.New("scheduler is stopped")
)

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running   bool              `json:"running"`
	Scheduled bool              `json:"scheduled"`
	Interval  string            `json:"interval"`
	Mode      models.UpdateMode `json:"mode"`
	LastRun   *models.UpdateRun `json:"last_run"`
	NextRun   *time.Time        `json:"next_run"`
}

type Options struct {
	Interval time.Duration
	Mode     models.UpdateMode
	// RunOnStart starts a run as soon as Start is called instead of waiting
	// for the first tick.
	RunOnStart bool
}

// Scheduler owns the periodic refresh task. Runs never overlap: cron skips
// ticks while a job is still executing and every entry point shares one
// try-lock.
type Scheduler struct {
	runner Runner
	opts   Options
	log    *logger.Logger

	runMu   sync.Mutex
	running atomic.Bool

	mu       sync.Mutex
	cron     *cron.Cron
	entry    cron.EntryID
	lastRun  *models.UpdateRun
	stopped  bool
	stopLink func() bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(runner Runner, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 6 * time.Hour
	}
	if opts.Mode == "" {
		opts.Mode = models.ModeIncremental
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runner: runner,
		opts:   opts,
		log:    logger.Default().WithPrefix("scheduler"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start schedules a run every Interval. Cancelling ctx has the same effect
// on in-flight runs as Stop, but the cron loop keeps its goroutine until
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.cron != nil {
		return errors.New("scheduler already started")
	}

	s.log = logger.FromContext(ctx).WithPrefix("scheduler")
	s.stopLink = context.AfterFunc(ctx, s.cancel)

	cl := cronLogger{log: s.log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	id, err := c.AddFunc("@every "+s.opts.Interval.String(), func() {
		if _, err := s.run(s.ctx, s.opts.Mode, models.TriggerSchedule); err != nil {
			s.log.Warn("scheduled run: %v", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron = c
	s.entry = id
	c.Start()
	s.log.Info("scheduler started: every %s, %s mode", s.opts.Interval, s.opts.Mode)

	if s.opts.RunOnStart {
		if err := s.triggerLocked(s.opts.Mode, models.TriggerSchedule); err != nil {
			s.log.Warn("initial run: %v", err)
		}
	}
	return nil
}

// RunNow runs synchronously in the caller's goroutine. Stop cancels it.
func (s *Scheduler) RunNow(ctx context.Context, mode models.UpdateMode) (*models.UpdateRun, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, ErrStopped
	}
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	unlink := context.AfterFunc(s.ctx, cancel)
	defer unlink()

	return s.run(ctx, mode, models.TriggerManual)
}

// Trigger starts a manual run in the background.
func (s *Scheduler) Trigger(mode models.UpdateMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	return s.triggerLocked(mode, models.TriggerManual)
}

// triggerLocked must be called with s.mu held.
func (s *Scheduler) triggerLocked(mode models.UpdateMode, trigger string) error {
	if !s.runMu.TryLock() {
		return ErrRunInProgress
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.runMu.Unlock()
		if _, err := s.execute(s.ctx, mode, trigger); err != nil {
			s.log.Warn("%s run: %v", trigger, err)
		}
	}()
	return nil
}

func (s *Scheduler) run(ctx context.Context, mode models.UpdateMode, trigger string) (*models.UpdateRun, error) {
	if !s.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.runMu.Unlock()
	return s.execute(ctx, mode, trigger)
}

// execute must be called with runMu held.
func (s *Scheduler) execute(ctx context.Context, mode models.UpdateMode, trigger string) (*models.UpdateRun, error) {
	s.running.Store(true)
	defer s.running.Store(false)

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("update run panicked: %v", r)
		}
	}()

	run, err := s.runner.Run(ctx, mode, trigger)
	if run != nil {
		s.mu.Lock()
		s.lastRun = run
		s.mu.Unlock()
	}
	return run, err
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:   s.running.Load(),
		Scheduled: s.cron != nil && !s.stopped,
		Interval:  s.opts.Interval.String(),
		Mode:      s.opts.Mode,
		LastRun:   s.lastRun,
	}
	if st.Scheduled {
		if next := s.cron.Entry(s.entry).Next; !next.IsZero() {
			next = next.UTC()
			st.NextRun = &next
		}
	}
	return st
}

// Stop cancels any in-flight run, stops the cron loop and waits for both to
// drain or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	if s.stopLink != nil {
		s.stopLink()
	}
	s.cancel()

	done := make(chan struct{})
	cronDone := context.Background().Done()
	if s.cron != nil {
		cronDone = s.cron.Stop().Done()
	}
	s.mu.Unlock()

	go func() {
		if cronDone != nil {
			<-cronDone
		}
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn("scheduler did not drain before deadline")
		return ctx.Err()
	}
}
