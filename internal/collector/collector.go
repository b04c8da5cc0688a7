// Package collector fetches raw opening statistics from the explorer. It
// never writes to the store.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/vytor/openingtiers/internal/lichess"
	"github.com/vytor/openingtiers/internal/logger"
	"github.com/vytor/openingtiers/internal/metrics"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/moves"
	"github.com/vytor/openingtiers/internal/scope"
	"github.com/vytor/openingtiers/internal/worker"
)

// Record is the raw result for one target.
type Record struct {
	Line  moves.Line
	Scope models.Scope

	ECO  string
	Name string

	WhiteWins int
	BlackWins int
	Draws     int
	// ReportedTotal is a game count stated by the source, 0 when none. The
	// explorer only reports per-result counts; snapshot imports carry one.
	ReportedTotal int
	AverageRating int

	CollectedAt time.Time
}

// maxRetryAfter caps how long one Retry-After header may suspend a worker.
const maxRetryAfter = 2 * time.Minute

// Result is everything one Collect call produced.
type Result struct {
	Records  []Record
	Failures []models.FetchFailure
	Requests int
}

type Options struct {
	RequestsPerMinute int
	MaxRetries        int
	Workers           int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	Metrics           metrics.Metrics
	Now               func() time.Time
}

type Collector struct {
	fetcher lichess.Fetcher
	limiter *rate.Limiter
	opts    Options
}

func New(fetcher lichess.Fetcher, opts Options) *Collector {
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 60
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 30 * time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Collector{
		fetcher: fetcher,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1),
		opts:    opts,
	}
}

// Collect fetches every target. Targets that keep failing are reported in
// Result.Failures and the rest of the run continues. The returned error is
// non-nil only when ctx was cancelled.
func (c *Collector) Collect(ctx context.Context, targets []Target) (*Result, error) {
	log := logger.FromContext(ctx).WithPrefix("collector")
	log.Info("collecting %d targets with %d workers", len(targets), c.opts.Workers)

	var (
		mu       sync.Mutex
		res      = &Result{}
		requests atomic.Int64
	)

	pool := worker.NewPool(c.opts.Workers, len(targets))
	pool.Start(ctx)

	for _, t := range targets {
		t := t
		job := worker.Func{
			JobName: "fetch " + t.Line.String() + " " + t.Scope.String(),
			Fn: func(jobCtx context.Context) error {
				rec, err := c.fetch(jobCtx, t, &requests)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					res.Failures = append(res.Failures, models.FetchFailure{
						Line:        t.Line.String(),
						RatingRange: t.Scope.RatingRange,
						TimeControl: t.Scope.TimeControl,
						Error:       err.Error(),
					})
					return err
				}
				res.Records = append(res.Records, *rec)
				return nil
			},
		}
		if err := pool.Submit(ctx, job); err != nil {
			pool.Stop()
			res.Requests = int(requests.Load())
			return res, err
		}
	}
	pool.Close()

	res.Requests = int(requests.Load())
	if err := ctx.Err(); err != nil {
		return res, err
	}
	log.Info("collected %d records, %d failures, %d requests", len(res.Records), len(res.Failures), res.Requests)
	return res, nil
}

func (c *Collector) fetch(ctx context.Context, t Target, requests *atomic.Int64) (*Record, error) {
	req := lichess.Request{
		Play:    t.Line.UCI,
		Ratings: scope.Ratings(t.Scope.RatingRange),
		Speeds:  scope.Speeds(t.Scope.TimeControl),
	}
	out, err := c.explore(ctx, req, requests)
	if err != nil {
		return nil, fmt.Errorf("fetch %s (%s): %w", t.Line.String(), t.Scope, err)
	}

	rec := &Record{
		Line:          t.Line,
		Scope:         t.Scope,
		ECO:           t.Line.ECO,
		Name:          t.Line.Name,
		WhiteWins:     out.White,
		BlackWins:     out.Black,
		Draws:         out.Draws,
		AverageRating: out.AverageRating(),
		CollectedAt:   c.opts.Now().UTC(),
	}
	if out.Opening != nil && out.Opening.Name != "" {
		rec.ECO = out.Opening.ECO
		rec.Name = out.Opening.Name
	}
	return rec, nil
}

// explore runs one rate-limited explorer request, retrying transient
// failures with exponential backoff.
func (c *Collector) explore(ctx context.Context, req lichess.Request, requests *atomic.Int64) (*lichess.Explorer, error) {
	log := logger.FromContext(ctx)

	var out *lichess.Explorer
	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		requests.Add(1)
		res, err := c.fetcher.Explore(ctx, req)
		if err != nil {
			c.opts.Metrics.IncExplorerRequests(metrics.OutcomeError)
			if !lichess.IsTransient(err) {
				return backoff.Permanent(err)
			}
			if wait := retryAfter(err); wait > 0 {
				log.Warn("explorer asked to retry after %v", wait)
				if err := sleep(ctx, wait); err != nil {
					return backoff.Permanent(err)
				}
			}
			return err
		}
		c.opts.Metrics.IncExplorerRequests(metrics.OutcomeOK)
		out = res
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialBackoff
	b.MaxInterval = c.opts.MaxBackoff
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.opts.MaxRetries)), ctx)

	notify := func(err error, wait time.Duration) {
		c.opts.Metrics.IncExplorerRetries()
		log.Warn("transient explorer failure, retrying in %v: %v", wait, err)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return out, nil
}

// retryAfter is the wait the explorer asked for, capped at maxRetryAfter.
func retryAfter(err error) time.Duration {
	var serr *lichess.StatusError
	if !errors.As(err, &serr) || serr.RetryAfter <= 0 {
		return 0
	}
	return min(serr.RetryAfter, maxRetryAfter)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
