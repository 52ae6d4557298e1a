package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"cleanarch/internal/cleanarch"
	"cleanarch/internal/report"
	"cleanarch/internal/store"
)

// CheckFunc runs one check of the workspace.
type CheckFunc func(ctx context.Context) (*cleanarch.Report, error)

// History is the run history the server reads and appends to.
type History interface {
	SaveReport(ctx context.Context, rep *cleanarch.Report) error
	ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error)
	GetRun(ctx context.Context, id string) (*cleanarch.Report, error)
}

// Handler serves the report API.
type Handler struct {
	check   CheckFunc
	history History
	logger  *zap.Logger

	// checks are serialized; each one loads the whole module.
	checkMu sync.Mutex
}

// NewHandler creates a handler. history may be nil.
func NewHandler(check CheckFunc, history History, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{check: check, history: history, logger: logger}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Report runs a check and returns the report. A failed check answers 422.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	format := report.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		parsed, err := report.ParseFormat(f)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		format = parsed
	}

	h.checkMu.Lock()
	rep, err := h.check(r.Context())
	h.checkMu.Unlock()
	if err != nil && !errors.Is(err, cleanarch.ErrViolations) {
		h.logger.Error("check failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	if h.history != nil {
		if err := h.history.SaveReport(r.Context(), rep); err != nil {
			h.logger.Warn("failed to save run", zap.String("run_id", rep.RunID), zap.Error(err))
		}
	}

	status := http.StatusOK
	if rep.Failed() {
		status = http.StatusUnprocessableEntity
	}
	if format == report.FormatJSON {
		writeJSON(w, status, rep)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(status)
	if err := report.Render(w, rep, report.Options{Format: format}); err != nil {
		h.logger.Error("failed to render report", zap.Error(err))
	}
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "run history is disabled"})
		return
	}
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	runs, err := h.history.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list runs"})
		return
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request, runID string) {
	if h.history == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "run history is disabled"})
		return
	}
	rep, err := h.history.GetRun(r.Context(), runID)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "run not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to get run", zap.String("run_id", runID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to get run"})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
