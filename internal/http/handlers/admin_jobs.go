package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/neumaticos-whatsapp/internal/conversation"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

type jobReader interface {
	GetJob(ctx context.Context, jobID string) (*conversation.JobRecord, error)
}

// AdminJobsHandler exposes turn job status.
type AdminJobsHandler struct {
	jobs   jobReader
	logger *logging.Logger
}

// NewAdminJobsHandler creates the handler. jobs may be nil when tracking is off.
func NewAdminJobsHandler(jobs jobReader, logger *logging.Logger) *AdminJobsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminJobsHandler{jobs: jobs, logger: logger}
}

// GetJob handles GET /admin/jobs/{id}.
func (h *AdminJobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		jsonError(w, "job tracking disabled", http.StatusNotFound)
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, "missing job id", http.StatusBadRequest)
		return
	}
	job, err := h.jobs.GetJob(r.Context(), id)
	if errors.Is(err, conversation.ErrJobNotFound) {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load job", "error", err, "job_id", id)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
