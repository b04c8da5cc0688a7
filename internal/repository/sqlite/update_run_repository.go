package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/Masterminds/squirrel"

	"github.com/vytor/openingtiers/internal/logger"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/repository"
)

type updateRunRepository struct {
	db *sql.DB
}

// NewUpdateRunRepository creates a new UpdateRunRepository implementation
func NewUpdateRunRepository(db *sql.DB) repository.UpdateRunRepository {
	return &updateRunRepository{db: db}
}

var runColumns = []string{
	"id", "mode", "triggered_by", "status", "targets", "openings_processed",
	"statistics_updated", "records_skipped", "api_requests", "failures",
	"error_message", "started_at", "completed_at", "duration_seconds",
}

func (r *updateRunRepository) Create(ctx context.Context, run models.UpdateRun) error {
	log := logger.FromContext(ctx).WithPrefix("update_run_repo")
	log.Debug("creating update run: id=%s, mode=%s", run.ID, run.Mode)

	_, err := r.db.ExecContext(ctx, `
INSERT INTO update_runs (id, mode, triggered_by, status, targets, started_at)
VALUES (?, ?, ?, ?, ?, ?)
`, run.ID, string(run.Mode), run.Trigger, run.Status, run.Targets, utc(run.StartedAt))
	if err != nil {
		log.Error("failed to create update run: %v", err)
	}
	return err
}

func (r *updateRunRepository) Finish(ctx context.Context, run models.UpdateRun) error {
	log := logger.FromContext(ctx).WithPrefix("update_run_repo")

	failures, err := json.Marshal(nonNilFailures(run.Failures))
	if err != nil {
		return err
	}
	var completed any
	if run.CompletedAt != nil {
		completed = run.CompletedAt.UTC()
	}

	query, args, err := sqlBuilder.Update("update_runs").
		SetMap(map[string]any{
			"status":             run.Status,
			"targets":            run.Targets,
			"openings_processed": run.OpeningsProcessed,
			"statistics_updated": run.StatisticsUpdated,
			"records_skipped":    run.RecordsSkipped,
			"api_requests":       run.APIRequests,
			"failures":           string(failures),
			"error_message":      run.ErrorMessage,
			"completed_at":       completed,
			"duration_seconds":   run.DurationSeconds,
		}).
		Where(squirrel.Eq{"id": run.ID}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to finish update run: %v", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	log.Debug("update run finished: id=%s, status=%s", run.ID, run.Status)
	return nil
}

func (r *updateRunRepository) Get(ctx context.Context, id string) (*models.UpdateRun, error) {
	query, args, err := sqlBuilder.Select(runColumns...).
		From("update_runs").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanRun(r.db.QueryRowContext(ctx, query, args...))
}

func (r *updateRunRepository) List(ctx context.Context, limit int) ([]models.UpdateRun, error) {
	log := logger.FromContext(ctx).WithPrefix("update_run_repo")
	if limit <= 0 {
		limit = 20
	}

	query, args, err := sqlBuilder.Select(runColumns...).
		From("update_runs").
		OrderBy("started_at DESC", "id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list update runs: %v", err)
		return nil, err
	}
	defer rows.Close()

	runs := []models.UpdateRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Latest returns the most recently started run, or nil when there is none.
func (r *updateRunRepository) Latest(ctx context.Context) (*models.UpdateRun, error) {
	runs, err := r.List(ctx, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

func scanRun(row rowScanner) (*models.UpdateRun, error) {
	var (
		run      models.UpdateRun
		mode     string
		failures string
	)
	err := row.Scan(&run.ID, &mode, &run.Trigger, &run.Status, &run.Targets, &run.OpeningsProcessed,
		&run.StatisticsUpdated, &run.RecordsSkipped, &run.APIRequests, &failures,
		&run.ErrorMessage, &run.StartedAt, &run.CompletedAt, &run.DurationSeconds)
	if err != nil {
		return nil, err
	}
	run.Mode = models.UpdateMode(mode)
	if err := json.Unmarshal([]byte(failures), &run.Failures); err != nil {
		return nil, errors.Join(errors.New("decode run failures"), err)
	}
	run.Failures = nonNilFailures(run.Failures)
	return &run, nil
}

func nonNilFailures(f []models.FetchFailure) []models.FetchFailure {
	if f == nil {
		return []models.FetchFailure{}
	}
	return f
}
