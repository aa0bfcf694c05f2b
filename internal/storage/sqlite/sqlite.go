package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/stagetrack/internal/log"
	"github.com/slok/stagetrack/internal/model"
	"github.com/slok/stagetrack/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.RunRepository.
//
// A run is stored in the runs table and its history, events and metrics in child
// tables that are removed in cascade with the run.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// CreateRun stores a run with all its history, events and metrics in a single transaction.
func (r *Repository) CreateRun(ctx context.Context, run model.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}

	stages, err := marshalStages(run.ExecutionStages)
	if err != nil {
		return fmt.Errorf("could not marshal execution stages: %w", err)
	}

	var currentStage *int
	if run.CurrentStage != nil {
		s := int(*run.CurrentStage)
		currentStage = &s
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // Rollback is safe to call after Commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, name, created_at, current_stage, execution_stages) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Name, unixNano(run.CreatedAt), currentStage, stages,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: runs.") {
			return fmt.Errorf("run already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert run: %w", err)
	}

	for i, tr := range run.History {
		metadata, err := marshalNullable(tr.Metadata, tr.Metadata == nil)
		if err != nil {
			return fmt.Errorf("could not marshal transition metadata: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_transitions (run_id, sequence, from_stage, to_stage, timestamp, triggered_by, metadata) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, int(tr.From), int(tr.To), unixNano(tr.Timestamp), tr.TriggeredBy, metadata,
		)
		if err != nil {
			return fmt.Errorf("could not insert transition: %w", err)
		}
	}

	for i, ev := range run.Events {
		data, err := marshalNullable(ev.Data, ev.Data == nil)
		if err != nil {
			return fmt.Errorf("could not marshal event data: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_events (run_id, sequence, stage, type, timestamp, progress, message, data) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, int(ev.Stage), string(ev.Type), unixNano(ev.Timestamp), ev.Progress, ev.Message, data,
		)
		if err != nil {
			return fmt.Errorf("could not insert event: %w", err)
		}
	}

	for _, m := range run.Metrics {
		var endTime, duration *int64
		if m.EndTime != nil {
			e := unixNano(*m.EndTime)
			endTime = &e
		}
		if m.Duration != nil {
			d := int64(*m.Duration)
			duration = &d
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_metrics (run_id, stage, start_time, end_time, duration_ns, error_count) VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, int(m.Stage), unixNano(m.StartTime), endTime, duration, m.ErrorCount,
		)
		if err != nil {
			return fmt.Errorf("could not insert stage metrics: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Created run in repository: %s", run.ID)
	return nil
}

const selectRun = `SELECT id, name, created_at, current_stage, execution_stages FROM runs`

// GetRun retrieves a run by ID.
func (r *Repository) GetRun(ctx context.Context, id string) (*model.Run, error) {
	run, err := r.getOne(ctx, selectRun+` WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query run: %w", err)
	}

	return run, nil
}

// GetRunByName retrieves a run by name.
func (r *Repository) GetRunByName(ctx context.Context, name string) (*model.Run, error) {
	run, err := r.getOne(ctx, selectRun+` WHERE name = ?`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run with name %s: %w", name, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query run: %w", err)
	}

	return run, nil
}

// ListRuns returns all runs, newest first.
func (r *Repository) ListRuns(ctx context.Context) ([]model.Run, error) {
	rows, err := r.db.QueryContext(ctx, selectRun+` ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("could not query runs: %w", err)
	}

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	rows.Close()

	for i := range runs {
		if err := r.loadChildren(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}

	return runs, nil
}

// DeleteRun deletes a run and everything recorded for it.
func (r *Repository) DeleteRun(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run %s: %w", id, model.ErrNotFound)
	}

	r.logger.Debugf("Deleted run from repository: %s", id)
	return nil
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (*model.Run, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *Repository) loadChildren(ctx context.Context, run *model.Run) error {
	var err error
	if run.History, err = r.listTransitions(ctx, run.ID); err != nil {
		return err
	}
	if run.Events, err = r.listEvents(ctx, run.ID); err != nil {
		return err
	}
	if run.Metrics, err = r.listMetrics(ctx, run.ID); err != nil {
		return err
	}
	return nil
}

func (r *Repository) listTransitions(ctx context.Context, runID string) ([]model.StageTransition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT from_stage, to_stage, timestamp, triggered_by, metadata
		FROM run_transitions
		WHERE run_id = ?
		ORDER BY sequence ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("could not query transitions: %w", err)
	}
	defer rows.Close()

	var trs []model.StageTransition
	for rows.Next() {
		var tr model.StageTransition
		var from, to int
		var ts int64
		var metadata sql.NullString
		if err := rows.Scan(&from, &to, &ts, &tr.TriggeredBy, &metadata); err != nil {
			return nil, fmt.Errorf("could not scan transition: %w", err)
		}
		tr.From, tr.To, tr.Timestamp = model.Stage(from), model.Stage(to), timeFromUnixNano(ts)
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &tr.Metadata); err != nil {
				return nil, fmt.Errorf("could not unmarshal transition metadata: %w", err)
			}
		}
		trs = append(trs, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transitions: %w", err)
	}

	return trs, nil
}

func (r *Repository) listEvents(ctx context.Context, runID string) ([]model.StageEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT stage, type, timestamp, progress, message, data
		FROM run_events
		WHERE run_id = ?
		ORDER BY sequence ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("could not query events: %w", err)
	}
	defer rows.Close()

	var evs []model.StageEvent
	for rows.Next() {
		var ev model.StageEvent
		var stage int
		var ts int64
		var progress sql.NullInt64
		var data sql.NullString
		if err := rows.Scan(&stage, &ev.Type, &ts, &progress, &ev.Message, &data); err != nil {
			return nil, fmt.Errorf("could not scan event: %w", err)
		}
		ev.Stage, ev.Timestamp = model.Stage(stage), timeFromUnixNano(ts)
		if progress.Valid {
			p := int(progress.Int64)
			ev.Progress = &p
		}
		if data.Valid {
			if err := json.Unmarshal([]byte(data.String), &ev.Data); err != nil {
				return nil, fmt.Errorf("could not unmarshal event data: %w", err)
			}
		}
		evs = append(evs, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return evs, nil
}

func (r *Repository) listMetrics(ctx context.Context, runID string) ([]model.StageMetrics, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT stage, start_time, end_time, duration_ns, error_count
		FROM run_metrics
		WHERE run_id = ?
		ORDER BY stage ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("could not query stage metrics: %w", err)
	}
	defer rows.Close()

	var ms []model.StageMetrics
	for rows.Next() {
		var m model.StageMetrics
		var stage int
		var start int64
		var end, duration sql.NullInt64
		if err := rows.Scan(&stage, &start, &end, &duration, &m.ErrorCount); err != nil {
			return nil, fmt.Errorf("could not scan stage metrics: %w", err)
		}
		m.Stage, m.StartTime = model.Stage(stage), timeFromUnixNano(start)
		if end.Valid {
			e := timeFromUnixNano(end.Int64)
			m.EndTime = &e
		}
		if duration.Valid {
			d := time.Duration(duration.Int64)
			m.Duration = &d
		}
		ms = append(ms, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stage metrics: %w", err)
	}

	return ms, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (model.Run, error) {
	var run model.Run
	var createdAt int64
	var currentStage sql.NullInt64
	var stages string

	if err := s.Scan(&run.ID, &run.Name, &createdAt, &currentStage, &stages); err != nil {
		return model.Run{}, err
	}

	run.CreatedAt = timeFromUnixNano(createdAt)
	if currentStage.Valid {
		st := model.Stage(currentStage.Int64)
		run.CurrentStage = &st
	}

	es, err := unmarshalStages(stages)
	if err != nil {
		return model.Run{}, fmt.Errorf("could not unmarshal execution stages: %w", err)
	}
	run.ExecutionStages = es

	return run, nil
}

// executionStageRow is the stored representation of a panel stage.
type executionStageRow struct {
	Status   model.StageStatus `json:"status"`
	Progress int               `json:"progress"`
	Data     any               `json:"data,omitempty"`
}

func marshalStages(s model.ExecutionStagesState) (string, error) {
	rows := make(map[model.ExecutionStageKey]executionStageRow, len(s))
	for k, v := range s {
		rows[k] = executionStageRow{Status: v.Status, Progress: v.Progress, Data: v.Data}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalStages(raw string) (model.ExecutionStagesState, error) {
	var rows map[model.ExecutionStageKey]executionStageRow
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	s := make(model.ExecutionStagesState, len(rows))
	for k, v := range rows {
		s[k] = model.ExecutionStageState{Status: v.Status, Progress: v.Progress, Data: v.Data}
	}
	return s, nil
}

func marshalNullable(v any, isNil bool) (*string, error) {
	if isNil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func unixNano(t time.Time) int64 { return t.UnixNano() }

func timeFromUnixNano(n int64) time.Time { return time.Unix(0, n).UTC() }
