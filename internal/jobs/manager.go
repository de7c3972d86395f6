package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fbatools/margin-scraper/internal/calculator"
	"github.com/fbatools/margin-scraper/internal/database"
	"github.com/fbatools/margin-scraper/internal/metrics"
	"github.com/fbatools/margin-scraper/internal/queue"
)

// RunStore is the persisted run ledger consumed by the manager. It is
// satisfied by database.RunRepository.
type RunStore interface {
	Create(ctx context.Context, worksheet string, marginColumn int) (*database.Run, error)
	Get(ctx context.Context, id uuid.UUID) (*database.Run, error)
	List(ctx context.Context, limit int) ([]*database.Run, error)
	MarkRunning(ctx context.Context, id uuid.UUID, totalASINs int) error
	MarkCompleted(ctx context.Context, id uuid.UUID, succeeded, noMargin, failed int) error
	MarkFailed(ctx context.Context, id uuid.UUID, runErr error) error
	RecordOutcome(ctx context.Context, outcome *database.RunOutcome) error
	ListOutcomes(ctx context.Context, runID uuid.UUID) ([]*database.RunOutcome, error)
}

// Summary tallies the terminal outcomes of one run.
type Summary struct {
	Total     int
	Succeeded int
	NoMargin  int
	Failed    int
}

// Hooks lets the manager observe a run while the executor owns the
// browser.
type Hooks struct {
	OnStart   func(total int)
	OnOutcome func(item calculator.Item, outcome calculator.Outcome)
}

func (h Hooks) start(total int) {
	if h.OnStart != nil {
		h.OnStart(total)
	}
}

func (h Hooks) outcome(item calculator.Item, out calculator.Outcome) {
	if h.OnOutcome != nil {
		h.OnOutcome(item, out)
	}
}

// Executor performs the browser work of one run.
type Executor interface {
	Execute(ctx context.Context, worksheet string, marginColumn int, hooks Hooks) (Summary, error)
}

// Manager owns the run ledger and the work queue. Runs execute strictly
// one at a time: the underlying page session cannot be shared.
type Manager struct {
	repo     RunStore
	queue    queue.Queue
	executor Executor
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewManager(repo RunStore, q queue.Queue, executor Executor, logger *slog.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		repo:     repo,
		queue:    q,
		executor: executor,
		logger:   logger.With("component", "job_manager"),
		metrics:  m,
	}
}

// Enqueue records a pending run and queues it for the worker.
func (m *Manager) Enqueue(ctx context.Context, worksheet string, marginColumn int) (*database.Run, error) {
	run, err := m.repo.Create(ctx, worksheet, marginColumn)
	if err != nil {
		return nil, err
	}

	req := &queue.RunRequest{
		ID:           run.ID.String(),
		Worksheet:    run.Worksheet,
		MarginColumn: run.MarginColumn,
		EnqueuedAt:   time.Now().UTC(),
	}
	if err := m.queue.Push(ctx, req); err != nil {
		if markErr := m.repo.MarkFailed(ctx, run.ID, err); markErr != nil {
			m.logger.Error("failed to mark unqueued run", "run_id", run.ID, "error", markErr)
		}
		return nil, fmt.Errorf("failed to enqueue run: %w", err)
	}

	m.logger.Info("run enqueued", "run_id", run.ID, "worksheet", run.Worksheet)
	return run, nil
}

func (m *Manager) GetRun(ctx context.Context, id uuid.UUID) (*database.Run, []*database.RunOutcome, error) {
	run, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	outcomes, err := m.repo.ListOutcomes(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return run, outcomes, nil
}

func (m *Manager) ListRuns(ctx context.Context, limit int) ([]*database.Run, error) {
	return m.repo.List(ctx, limit)
}

// Work drains the queue until the context is cancelled or the queue is
// closed.
func (m *Manager) Work(ctx context.Context) error {
	m.logger.Info("worker started")

	for {
		req, err := m.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, queue.ErrQueueClosed) {
				m.logger.Info("worker stopped")
				return nil
			}
			return err
		}

		m.execute(ctx, req)
	}
}

func (m *Manager) execute(ctx context.Context, req *queue.RunRequest) {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		m.logger.Error("dropping run request with invalid id", "id", req.ID, "error", err)
		return
	}

	m.logger.Info("run started", "run_id", id, "worksheet", req.Worksheet)

	hooks := Hooks{
		OnStart: func(total int) {
			if err := m.repo.MarkRunning(ctx, id, total); err != nil {
				m.logger.Error("failed to mark run running", "run_id", id, "error", err)
			}
		},
		OnOutcome: func(item calculator.Item, out calculator.Outcome) {
			record := &database.RunOutcome{
				RunID:      id,
				RowIndex:   item.Row,
				ASIN:       item.ASIN,
				Result:     out.Kind.String(),
				Margin:     out.Margin,
				RecordedAt: time.Now().UTC(),
			}
			if out.Err != nil {
				record.Reason = out.Err.Error()
			}
			if err := m.repo.RecordOutcome(ctx, record); err != nil {
				m.logger.Error("failed to record outcome", "run_id", id, "row", item.Row, "error", err)
			}
		},
	}

	summary, runErr := m.executor.Execute(ctx, req.Worksheet, req.MarginColumn, hooks)
	if runErr != nil {
		m.logger.Error("run failed", "run_id", id, "error", runErr)
		if err := m.repo.MarkFailed(ctx, id, runErr); err != nil {
			m.logger.Error("failed to mark run failed", "run_id", id, "error", err)
		}
		m.metrics.IncRun(database.RunStatusFailed)
		return
	}

	if err := m.repo.MarkCompleted(ctx, id, summary.Succeeded, summary.NoMargin, summary.Failed); err != nil {
		m.logger.Error("failed to mark run completed", "run_id", id, "error", err)
	}
	m.metrics.IncRun(database.RunStatusCompleted)

	m.logger.Info("run completed",
		"run_id", id,
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"no_margin", summary.NoMargin,
		"failed", summary.Failed)
}
