package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vytor/openingtiers/internal/api"
	"github.com/vytor/openingtiers/internal/db"
	"github.com/vytor/openingtiers/internal/logger"
	"github.com/vytor/openingtiers/internal/metrics"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/services"
)

const shutdownTimeout = 30 * time.Second

var (
	updateMode string
	updateType string
	withSched  bool
)

func init() {
	updateCmd.Flags().StringVar(&updateMode, "mode", "once", "once or schedule")
	updateCmd.Flags().StringVar(&updateType, "type", "", "full or incremental (default UPDATE_TYPE)")
	serveCmd.Flags().BoolVar(&withSched, "schedule", false, "run the refresh scheduler inside the server (default SCHEDULE_ON_SERVE)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(importCmd)
}

func parseMode(s string) (models.UpdateMode, error) {
	m, ok := models.ParseUpdateMode(strings.ToLower(strings.TrimSpace(s)))
	if !ok {
		return "", fmt.Errorf("update type must be full or incremental, got %q", s)
	}
	return m, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST API and tier list UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Default()
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			log.Debug("closing database connection")
			_ = a.Close()
		}()

		srv := &api.Server{
			OpeningService:    services.NewOpeningService(a.openings, a.stats),
			TierListService:   services.NewTierListService(a.tiers),
			StatisticsService: services.NewStatisticsService(a.stats, a.runs),
			UpdateRunService:  services.NewUpdateRunService(a.runs),
			DB:                a.db,
			Metrics:           a.metrics,
			MetricsHandler:    metrics.NewMetricsHandler(a.registry),
			CORSOrigins:       cfg.CORSOrigins,
		}

		schedule := cfg.ScheduleOnServe
		if cmd.Flags().Changed("schedule") {
			schedule = withSched
		}
		var sched interface {
			Stop(context.Context) error
		}
		if schedule {
			s := a.newScheduler(cfg, cfg.UpdateType, false)
			if err := s.Start(ctx); err != nil {
				return err
			}
			srv.Scheduler = s
			sched = s
		}

		httpServer := &http.Server{
			Addr:         cfg.Addr(),
			Handler:      srv.Routes(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Info("HTTP server listening on %s", cfg.Addr())
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			log.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if sched != nil {
				if err := sched.Stop(shutdownCtx); err != nil {
					log.Error("scheduler shutdown error: %v", err)
				}
			}
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("http shutdown: %w", err)
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		log.Info("server stopped")
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh opening statistics once or on a schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Default()

		t := updateType
		if t == "" {
			t = cfg.UpdateType
		}
		mode, err := parseMode(t)
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		switch updateMode {
		case "once":
			run, err := a.pipeline.Run(ctx, mode, models.TriggerOnce)
			if err != nil {
				return err
			}
			if run.Status == models.RunFailed {
				return fmt.Errorf("update run %s failed: %s", run.ID, run.ErrorMessage)
			}
			log.Info("update run %s finished with status %s", run.ID, run.Status)
			return nil

		case "schedule":
			s := a.newScheduler(cfg, string(mode), true)
			if err := s.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return s.Stop(shutdownCtx)

		default:
			return fmt.Errorf("--mode must be once or schedule, got %q", updateMode)
		}
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		database, err := db.Open(ctx, cfg.DatabaseURL, cfg.DatabaseToken)
		if err != nil {
			return err
		}
		defer database.Close()

		version, err := database.Version(ctx)
		if err != nil {
			return err
		}
		logger.Default().Info("database schema at version %d", version)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load a JSON snapshot of opening statistics into the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Default()
		ctx, stop := signalContext()
		defer stop()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		defer f.Close()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		run, err := a.pipeline.Import(ctx, f)
		if err != nil {
			return err
		}
		if run.Status == models.RunFailed {
			return fmt.Errorf("import %s failed: %s", args[0], run.ErrorMessage)
		}
		log.Info("imported %s: stored=%d skipped=%d failures=%d status=%s",
			args[0], run.StatisticsUpdated, run.RecordsSkipped, len(run.Failures), run.Status)
		return nil
	},
}
