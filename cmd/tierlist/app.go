package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vytor/openingtiers/internal/collector"
	"github.com/vytor/openingtiers/internal/config"
	"github.com/vytor/openingtiers/internal/db"
	"github.com/vytor/openingtiers/internal/lichess"
	"github.com/vytor/openingtiers/internal/logger"
	"github.com/vytor/openingtiers/internal/metrics"
	"github.com/vytor/openingtiers/internal/notifier"
	"github.com/vytor/openingtiers/internal/notifier/slack"
	"github.com/vytor/openingtiers/internal/processor"
	"github.com/vytor/openingtiers/internal/repository"
	"github.com/vytor/openingtiers/internal/repository/sqlite"
	"github.com/vytor/openingtiers/internal/scheduler"
	"github.com/vytor/openingtiers/internal/scope"
)

const explorerTimeout = 30 * time.Second

// app holds the wired components shared by the commands.
type app struct {
	db       *db.DB
	metrics  *metrics.Service
	registry *prometheus.Registry

	openings repository.OpeningRepository
	stats    repository.StatisticRepository
	tiers    repository.TierListRepository
	runs     repository.UpdateRunRepository

	pipeline *scheduler.Pipeline
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	log := logger.Default()

	database, err := db.Open(ctx, cfg.DatabaseURL, cfg.DatabaseToken)
	if err != nil {
		return nil, err
	}

	scopes, err := scope.Expand(cfg.RatingRanges, cfg.TimeControls)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewService(registry)

	a := &app{
		db:       database,
		metrics:  m,
		registry: registry,
		openings: sqlite.NewOpeningRepository(database.DB),
		stats:    sqlite.NewStatisticRepository(database.DB),
		tiers:    sqlite.NewTierListRepository(database.DB),
		runs:     sqlite.NewUpdateRunRepository(database.DB),
	}

	if cfg.LichessToken == "" {
		log.Warn("LICHESS_API_TOKEN is not set; the explorer may reject requests")
	}
	client := lichess.New(cfg.ExplorerURL, cfg.LichessToken,
		lichess.WithHTTPClient(&http.Client{Timeout: explorerTimeout}))

	var n notifier.Notifier = notifier.Noop{}
	if cfg.SlackWebhookURL != "" {
		n = slack.NewNotifier(cfg.SlackWebhookURL, cfg.NotifyOnSuccess, m)
	}

	var discover *collector.DiscoverOptions
	if cfg.Catalog == "discover" {
		discover = &collector.DiscoverOptions{
			MaxFirstMoves: cfg.DiscoverMaxFirstMoves,
			MaxReplies:    cfg.DiscoverMaxReplies,
			MinGames:      cfg.DiscoverMinGames,
			MaxLines:      cfg.DiscoverMaxLines,
		}
	}

	a.pipeline = scheduler.NewPipeline(scheduler.PipelineConfig{
		Collector: collector.New(client, collector.Options{
			RequestsPerMinute: cfg.MaxRequestsPerMinute,
			MaxRetries:        cfg.FetchMaxRetries,
			Workers:           cfg.FetchWorkers,
			Metrics:           m,
		}),
		Processor:   processor.New(a.stats),
		Stats:       a.stats,
		Runs:        a.runs,
		Notifier:    n,
		Metrics:     m,
		Discover:    discover,
		SnapshotDir: cfg.SnapshotDir,
		Scopes:      scopes,
		FreshFor:    cfg.UpdateInterval(),
	})

	if discover != nil {
		log.Info("tracking %d scopes over up to %d discovered lines", len(scopes), discover.MaxLines)
	} else {
		log.Info("tracking %d scopes over %d catalog lines", len(scopes), len(collector.DefaultCatalog))
	}
	return a, nil
}

func (a *app) newScheduler(cfg config.Config, mode string, runOnStart bool) *scheduler.Scheduler {
	m, _ := parseMode(mode)
	return scheduler.New(a.pipeline, scheduler.Options{
		Interval:   cfg.UpdateInterval(),
		Mode:       m,
		RunOnStart: runOnStart,
	})
}

func (a *app) Close() error {
	return a.db.Close()
}
