package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	middleware "github.com/inkwelldocs/inkwell/internal/api/middlewares"
	"github.com/inkwelldocs/inkwell/internal/jobs"
)

type JobsHandler struct {
	jobStore *jobs.Store
	log      *zap.Logger
}

func NewJobsHandler(jobStore *jobs.Store, log *zap.Logger) *JobsHandler {
	return &JobsHandler{jobStore: jobStore, log: log}
}

// Get returns the current state of one job. Jobs are scoped to their
// owner: unknown ids and another user's jobs both answer 404.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	jobID := chi.URLParam(r, "job_id")
	record, found := h.jobStore.Get(jobID)
	if !found || record.OwnerID != userID {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, record)
}
