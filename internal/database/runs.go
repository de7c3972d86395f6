package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrRunNotFound = errors.New("run not found")

// Run statuses move pending -> running -> completed | failed.
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run is one recorded extraction run over a worksheet.
type Run struct {
	ID           uuid.UUID  `json:"id"`
	Worksheet    string     `json:"worksheet"`
	MarginColumn int        `json:"margin_column"`
	Status       string     `json:"status"`
	TotalASINs   int        `json:"total_asins"`
	Succeeded    int        `json:"succeeded"`
	NoMargin     int        `json:"no_margin"`
	Failed       int        `json:"failed"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// RunOutcome is the persisted terminal state of one identifier within a
// run.
type RunOutcome struct {
	RunID      uuid.UUID `json:"run_id"`
	RowIndex   int       `json:"row_index"`
	ASIN       string    `json:"asin"`
	Result     string    `json:"result"`
	Margin     string    `json:"margin,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

type RunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Create(ctx context.Context, worksheet string, marginColumn int) (*Run, error) {
	run := &Run{
		ID:           uuid.New(),
		Worksheet:    worksheet,
		MarginColumn: marginColumn,
		Status:       RunStatusPending,
		CreatedAt:    time.Now().UTC(),
	}

	query := `
		INSERT INTO extraction_runs (id, worksheet, margin_column, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		run.ID, run.Worksheet, run.MarginColumn, run.Status, run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

func (r *RunRepository) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	query := `
		SELECT id, worksheet, margin_column, status,
		       total_asins, succeeded, no_margin, failed, error,
		       created_at, started_at, completed_at
		FROM extraction_runs
		WHERE id = $1
	`

	run := &Run{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Worksheet, &run.MarginColumn, &run.Status,
		&run.TotalASINs, &run.Succeeded, &run.NoMargin, &run.Failed, &run.Error,
		&run.CreatedAt, &run.StartedAt, &run.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

func (r *RunRepository) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, worksheet, margin_column, status,
		       total_asins, succeeded, no_margin, failed, error,
		       created_at, started_at, completed_at
		FROM extraction_runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		if err := rows.Scan(
			&run.ID, &run.Worksheet, &run.MarginColumn, &run.Status,
			&run.TotalASINs, &run.Succeeded, &run.NoMargin, &run.Failed, &run.Error,
			&run.CreatedAt, &run.StartedAt, &run.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (r *RunRepository) MarkRunning(ctx context.Context, id uuid.UUID, totalASINs int) error {
	query := `
		UPDATE extraction_runs
		SET status = $2, total_asins = $3, started_at = $4
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, RunStatusRunning, totalASINs, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark run running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}

	return nil
}

func (r *RunRepository) MarkCompleted(ctx context.Context, id uuid.UUID, succeeded, noMargin, failed int) error {
	query := `
		UPDATE extraction_runs
		SET status = $2, succeeded = $3, no_margin = $4, failed = $5, completed_at = $6
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id,
		RunStatusCompleted, succeeded, noMargin, failed, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark run completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}

	return nil
}

func (r *RunRepository) MarkFailed(ctx context.Context, id uuid.UUID, runErr error) error {
	query := `
		UPDATE extraction_runs
		SET status = $2, error = $3, completed_at = $4
		WHERE id = $1
	`

	message := ""
	if runErr != nil {
		message = runErr.Error()
	}

	tag, err := r.db.Exec(ctx, query, id, RunStatusFailed, message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}

	return nil
}

func (r *RunRepository) RecordOutcome(ctx context.Context, outcome *RunOutcome) error {
	query := `
		INSERT INTO run_outcomes (run_id, row_index, asin, result, margin, reason, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id, row_index) DO UPDATE
		SET result = EXCLUDED.result, margin = EXCLUDED.margin,
		    reason = EXCLUDED.reason, recorded_at = EXCLUDED.recorded_at
	`

	_, err := r.db.Exec(ctx, query,
		outcome.RunID, outcome.RowIndex, outcome.ASIN,
		outcome.Result, outcome.Margin, outcome.Reason, outcome.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}

	return nil
}

func (r *RunRepository) ListOutcomes(ctx context.Context, runID uuid.UUID) ([]*RunOutcome, error) {
	query := `
		SELECT run_id, row_index, asin, result, margin, reason, recorded_at
		FROM run_outcomes
		WHERE run_id = $1
		ORDER BY row_index
	`

	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*RunOutcome
	for rows.Next() {
		outcome := &RunOutcome{}
		if err := rows.Scan(
			&outcome.RunID, &outcome.RowIndex, &outcome.ASIN,
			&outcome.Result, &outcome.Margin, &outcome.Reason, &outcome.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, rows.Err()
}
