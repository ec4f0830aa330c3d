package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nidhogg/reviewflow/internal/orchestrator"
	"github.com/nidhogg/reviewflow/internal/review"
	"github.com/nidhogg/reviewflow/internal/workflow"
	"go.uber.org/zap"
)

// Runner drives one review workflow to a terminal status.
type Runner interface {
	Run(ctx context.Context, task review.Task) (orchestrator.Outcome, error)
}

// WorkflowReader reads durable workflow records.
type WorkflowReader interface {
	Get(ctx context.Context, id string) (*workflow.Record, error)
}

// StepReader reads persisted step results.
type StepReader interface {
	ListStepResults(ctx context.Context, workflowID string) ([]review.StepResult, error)
}

// Handler serves the review API.
type Handler struct {
	runner    Runner
	workflows WorkflowReader
	steps     StepReader
	logger    *zap.Logger
}

// NewHandler creates an API handler.
func NewHandler(runner Runner, workflows WorkflowReader, steps StepReader, logger *zap.Logger) *Handler {
	return &Handler{runner: runner, workflows: workflows, steps: steps, logger: logger}
}

// Router builds the chi router for the API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/api/health", h.handleHealth)
	r.Post("/api/reviews", h.handleCreateReview)
	r.Get("/api/reviews/{id}", h.handleGetReview)
	r.Get("/api/reviews/{id}/steps", h.handleGetSteps)
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCreateReview runs a review workflow synchronously and responds
// with its terminal outcome. The caller's token arrives as a bearer
// credential, never in the JSON body.
func (h *Handler) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var task review.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	task.Token = bearerToken(r)
	if err := task.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.runner.Run(r.Context(), task)
	if err != nil {
		h.logger.Error("review run rejected",
			zap.String("workflow_id", task.WorkflowID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) handleGetReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.workflows.Get(r.Context(), id)
	if errors.Is(err, workflow.ErrNotFound) {
		writeError(w, http.StatusNotFound, "workflow not found")
		return
	}
	if err != nil {
		h.logger.Error("workflow lookup failed", zap.String("workflow_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleGetSteps(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.workflows.Get(r.Context(), id); errors.Is(err, workflow.ErrNotFound) {
		writeError(w, http.StatusNotFound, "workflow not found")
		return
	} else if err != nil {
		h.logger.Error("workflow lookup failed", zap.String("workflow_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	results, err := h.steps.ListStepResults(r.Context(), id)
	if err != nil {
		h.logger.Error("step lookup failed", zap.String("workflow_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if results == nil {
		results = []review.StepResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"workflow_id": id,
		"steps":       results,
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
