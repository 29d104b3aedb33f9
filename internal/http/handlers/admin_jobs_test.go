package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/neumaticos-whatsapp/internal/conversation"
)

type stubJobs struct {
	job *conversation.JobRecord
	err error
}

func (s *stubJobs) GetJob(ctx context.Context, jobID string) (*conversation.JobRecord, error) {
	return s.job, s.err
}

func serveJob(h *AdminJobsHandler, id string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/admin/jobs/{id}", h.GetJob)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/jobs/"+id, nil))
	return rec
}

func TestGetJob(t *testing.T) {
	jobs := &stubJobs{job: &conversation.JobRecord{
		JobID:  "job-1",
		Status: conversation.JobStatusCompleted,
		Result: &conversation.TurnResult{ConversationID: "conv-1", Reply: "¡Hola!"},
	}}
	rec := serveJob(NewAdminJobsHandler(jobs, nil), "job-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var got conversation.JobRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, "¡Hola!", got.Result.Reply)
}

func TestGetJobErrors(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, serveJob(NewAdminJobsHandler(&stubJobs{err: conversation.ErrJobNotFound}, nil), "x").Code)
	assert.Equal(t, http.StatusInternalServerError, serveJob(NewAdminJobsHandler(&stubJobs{err: errors.New("boom")}, nil), "x").Code)
	assert.Equal(t, http.StatusNotFound, serveJob(NewAdminJobsHandler(nil, nil), "x").Code)
}
