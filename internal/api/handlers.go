package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fbatools/margin-scraper/internal/database"
)

// RunService is the slice of the jobs manager the handlers need.
type RunService interface {
	Enqueue(ctx context.Context, worksheet string, marginColumn int) (*database.Run, error)
	GetRun(ctx context.Context, id uuid.UUID) (*database.Run, []*database.RunOutcome, error)
	ListRuns(ctx context.Context, limit int) ([]*database.Run, error)
}

type Handlers struct {
	runs   RunService
	logger *slog.Logger
}

func NewHandlers(runs RunService, logger *slog.Logger) *Handlers {
	return &Handlers{
		runs:   runs,
		logger: logger,
	}
}

// CreateRunRequest asks for a margin extraction run over a worksheet.
// Empty fields fall back to the configured defaults.
type CreateRunRequest struct {
	Worksheet    string `json:"worksheet"`
	MarginColumn int    `json:"margin_column"`
}

// CreateRun enqueues a new extraction run.
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.MarginColumn < 0 {
		h.respondError(w, http.StatusBadRequest, "margin_column must be positive")
		return
	}

	run, err := h.runs.Enqueue(r.Context(), req.Worksheet, req.MarginColumn)
	if err != nil {
		h.logger.Error("failed to enqueue run", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to enqueue run")
		return
	}

	h.respondJSON(w, http.StatusCreated, run)
}

// RunResponse is a run with its recorded per-identifier outcomes.
type RunResponse struct {
	*database.Run
	Outcomes []*database.RunOutcome `json:"outcomes"`
}

// GetRun returns one run and its outcomes.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid run ID")
		return
	}

	run, outcomes, err := h.runs.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			h.respondError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("failed to get run", "run_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	if outcomes == nil {
		outcomes = []*database.RunOutcome{}
	}

	h.respondJSON(w, http.StatusOK, RunResponse{Run: run, Outcomes: outcomes})
}

// ListRuns returns recent runs, newest first.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	if runs == nil {
		runs = []*database.Run{}
	}

	h.respondJSON(w, http.StatusOK, runs)
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
