// Package scheduler drives the collect-then-store refresh pipeline, once or
// on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vytor/openingtiers/internal/collector"
	"github.com/vytor/openingtiers/internal/logger"
	"github.com/vytor/openingtiers/internal/metrics"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/notifier"
	"github.com/vytor/openingtiers/internal/processor"
	"github.com/vytor/openingtiers/internal/repository"
)

// Runner executes one refresh pass.
type Runner interface {
	Run(ctx context.Context, mode models.UpdateMode, trigger string) (*models.UpdateRun, error)
}

type PipelineConfig struct {
	Collector *collector.Collector
	Processor *processor.Processor
	Stats     repository.StatisticRepository
	Runs      repository.UpdateRunRepository
	Notifier  notifier.Notifier
	Metrics   metrics.Metrics

	Catalog []string
	// Discover, when set, replaces Catalog with lines found by walking the
	// explorer tree at the start of every run. Catalog is the fallback when
	// discovery fails.
	Discover *collector.DiscoverOptions
	// SnapshotDir, when set, receives a JSON snapshot of each run's
	// collected records.
	SnapshotDir string
	Scopes      []models.Scope
	// FreshFor is how old a stored statistic may be before an incremental
	// run fetches it again.
	FreshFor time.Duration
	Now      func() time.Time
}

// Pipeline wires the collector and processor to the run log.
type Pipeline struct {
	cfg PipelineConfig
}

var _ Runner = (*Pipeline)(nil)

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Catalog == nil {
		cfg.Catalog = collector.DefaultCatalog
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notifier.Noop{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Noop{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pipeline{cfg: cfg}
}

// Run performs one pass and records it as an UpdateRun. The returned run is
// always finalised when non-nil; err is set when the run row could not be
// written or ctx was cancelled.
func (p *Pipeline) Run(ctx context.Context, mode models.UpdateMode, trigger string) (*models.UpdateRun, error) {
	return p.record(ctx, mode, trigger, p.execute)
}

// Import stores the records of a snapshot and records it as a full run
// triggered by "import". Entries that do not parse count as failures.
func (p *Pipeline) Import(ctx context.Context, r io.Reader) (*models.UpdateRun, error) {
	return p.record(ctx, models.ModeFull, models.TriggerImport, func(ctx context.Context, run *models.UpdateRun) error {
		records, failures, err := collector.ReadSnapshot(r, p.cfg.Now())
		if err != nil {
			return err
		}
		run.Failures = append(run.Failures, failures...)
		run.Targets = len(records)
		if len(records) == 0 {
			return nil
		}
		return p.process(ctx, run, records)
	})
}

func (p *Pipeline) record(ctx context.Context, mode models.UpdateMode, trigger string, body func(context.Context, *models.UpdateRun) error) (*models.UpdateRun, error) {
	run := models.UpdateRun{
		ID:        uuid.NewString(),
		Mode:      mode,
		Trigger:   trigger,
		Status:    models.RunRunning,
		StartedAt: p.cfg.Now().UTC(),
		Failures:  []models.FetchFailure{},
	}

	log := logger.FromContext(ctx).WithPrefix("pipeline").WithFields(map[string]any{
		"run_id": run.ID,
		"mode":   string(mode),
	})
	ctx = logger.NewContext(ctx, log)

	if err := p.cfg.Runs.Create(ctx, run); err != nil {
		log.Error("failed to record run start: %v", err)
		return nil, fmt.Errorf("create update run: %w", err)
	}
	log.Info("update run started (trigger=%s)", trigger)

	runErr := body(ctx, &run)
	p.finish(ctx, &run, runErr)
	return &run, runErr
}

func (p *Pipeline) execute(ctx context.Context, run *models.UpdateRun) error {
	log := logger.FromContext(ctx)

	targets, failures := collector.BuildTargets(p.catalog(ctx, run), p.cfg.Scopes)
	run.Failures = append(run.Failures, failures...)

	if run.Mode == models.ModeIncremental {
		fresh, err := p.cfg.Stats.Freshness(ctx)
		if err != nil {
			return fmt.Errorf("load freshness: %w", err)
		}
		before := len(targets)
		targets = staleTargets(targets, fresh, p.cfg.Now().Add(-p.cfg.FreshFor))
		log.Info("incremental run: %d of %d targets are stale", len(targets), before)
	}
	run.Targets = len(targets)
	if len(targets) == 0 {
		return nil
	}

	collected, err := p.cfg.Collector.Collect(ctx, targets)
	if collected != nil {
		run.APIRequests += collected.Requests
		run.Failures = append(run.Failures, collected.Failures...)
	}
	if err != nil {
		return err
	}
	p.snapshot(ctx, collected.Records)

	return p.process(ctx, run, collected.Records)
}

func (p *Pipeline) process(ctx context.Context, run *models.UpdateRun, records []collector.Record) error {
	processed, err := p.cfg.Processor.Process(ctx, records, processor.Options{
		SkipPopularity: run.Mode == models.ModeIncremental,
	})
	if processed != nil {
		run.StatisticsUpdated = processed.Stored
		run.OpeningsProcessed = processed.Openings
		run.RecordsSkipped = processed.Skipped
		if len(processed.Errors) > 0 {
			run.ErrorMessage = fmt.Sprintf("%d storage errors: %s", len(processed.Errors), strings.Join(processed.Errors, "; "))
		}
	}
	return err
}

// catalog returns the lines this run collects. A failed discovery falls back
// to the fixed catalog and is recorded as a failure.
func (p *Pipeline) catalog(ctx context.Context, run *models.UpdateRun) []string {
	if p.cfg.Discover == nil {
		return p.cfg.Catalog
	}
	log := logger.FromContext(ctx)

	found, err := p.cfg.Collector.Discover(ctx, *p.cfg.Discover)
	if found != nil {
		run.APIRequests += found.Requests
	}
	if err != nil || len(found.Lines) == 0 {
		if err == nil {
			err = fmt.Errorf("discovery found no lines")
		}
		log.Warn("catalog discovery failed, using fixed catalog: %v", err)
		run.Failures = append(run.Failures, models.FetchFailure{
			Line:        "(discovery)",
			RatingRange: models.All,
			TimeControl: models.All,
			Error:       err.Error(),
		})
		return p.cfg.Catalog
	}
	return found.Lines
}

func (p *Pipeline) snapshot(ctx context.Context, records []collector.Record) {
	if p.cfg.SnapshotDir == "" || len(records) == 0 {
		return
	}
	log := logger.FromContext(ctx)
	path, err := collector.WriteSnapshot(p.cfg.SnapshotDir, records, p.cfg.Now())
	if err != nil {
		log.Warn("failed to write snapshot: %v", err)
		return
	}
	log.Info("wrote %d records to %s", len(records), path)
}

// staleTargets keeps targets never collected or collected before cutoff.
func staleTargets(targets []collector.Target, fresh map[models.StatKey]time.Time, cutoff time.Time) []collector.Target {
	out := make([]collector.Target, 0, len(targets))
	for _, t := range targets {
		at, ok := fresh[models.StatKey{
			Line:        t.Line.Key(),
			RatingRange: t.Scope.RatingRange,
			TimeControl: t.Scope.TimeControl,
		}]
		if ok && at.After(cutoff) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (p *Pipeline) finish(ctx context.Context, run *models.UpdateRun, runErr error) {
	log := logger.FromContext(ctx)

	completed := p.cfg.Now().UTC()
	run.CompletedAt = &completed
	run.DurationSeconds = completed.Sub(run.StartedAt).Seconds()
	run.Status = status(run, runErr)
	if runErr != nil && run.ErrorMessage == "" {
		run.ErrorMessage = runErr.Error()
	}

	// The run row is written even when ctx was cancelled.
	ctx = context.WithoutCancel(ctx)
	if err := p.cfg.Runs.Finish(ctx, *run); err != nil {
		log.Error("failed to record run result: %v", err)
	}

	p.cfg.Metrics.ObserveUpdateRun(run.Status, run.DurationSeconds)
	p.cfg.Metrics.AddStatisticsStored(run.StatisticsUpdated)
	p.cfg.Metrics.AddRecordsSkipped(run.RecordsSkipped)
	if run.Status != models.RunFailed {
		p.cfg.Metrics.SetLastSuccessfulUpdate(float64(completed.Unix()))
	}

	if err := p.cfg.Notifier.NotifyRun(ctx, *run); err != nil {
		log.Warn("notification failed: %v", err)
	}

	log.Info("update run finished: status=%s stored=%d skipped=%d failures=%d requests=%d duration=%.1fs",
		run.Status, run.StatisticsUpdated, run.RecordsSkipped, len(run.Failures), run.APIRequests, run.DurationSeconds)
}

func status(run *models.UpdateRun, runErr error) string {
	switch {
	case runErr != nil, run.ErrorMessage != "":
		return models.RunFailed
	case run.Targets > 0 && run.StatisticsUpdated == 0:
		return models.RunFailed
	case len(run.Failures) > 0, run.RecordsSkipped > 0:
		return models.RunPartial
	default:
		return models.RunSuccess
	}
}
