package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGJobStorePutPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	store := NewPGJobStore(mock)
	store.now = func() time.Time { return now }

	mock.ExpectExec("INSERT INTO conversation_jobs").
		WithArgs("job-1", JobStatusPending, jobTypeTurn, nil, pgxmock.AnyArg(), "", now, now, now.Add(jobTTL)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	job := &JobRecord{JobID: "job-1", RequestType: jobTypeTurn, Inbound: &InboundMessage{From: "+549381", Body: "hola"}}
	require.NoError(t, store.PutPending(context.Background(), job))
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, now.Add(jobTTL).Unix(), job.ExpiresAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGJobStoreMarkCompletedNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE conversation_jobs").
		WithArgs("missing", JobStatusCompleted, pgxmock.AnyArg(), "conv-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = NewPGJobStore(mock).MarkCompleted(context.Background(), "missing", &TurnResult{ConversationID: "conv-1"})
	assert.True(t, errors.Is(err, ErrJobNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGJobStoreMarkFailed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE conversation_jobs").
		WithArgs("job-1", JobStatusFailed, "boom", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, NewPGJobStore(mock).MarkFailed(context.Background(), "job-1", "boom"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGJobStoreGetJob(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	columns := []string{"job_id", "status", "request_type", "conversation_id", "inbound", "result", "error_message", "created_at", "updated_at", "expires_at"}
	mock.ExpectQuery("SELECT (.+) FROM conversation_jobs WHERE job_id = \\$1").
		WithArgs("job-1").
		WillReturnRows(pgxmock.NewRows(columns).AddRow(
			"job-1", "completed", "turn", "conv-1",
			[]byte(`{"message_sid":"SM1","from":"+549381","body":"hola","received_at":"2026-03-02T11:00:00Z"}`),
			[]byte(`{"conversation_id":"conv-1","reply":"¡Hola!","intent":"help","paused":false,"timestamp":"2026-03-02T11:00:01Z"}`),
			"", created, created, created.Add(jobTTL),
		))

	job, err := NewPGJobStore(mock).GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, "conv-1", job.ConversationID)
	require.NotNil(t, job.Inbound)
	assert.Equal(t, "SM1", job.Inbound.MessageSID)
	require.NotNil(t, job.Result)
	assert.Equal(t, "help", job.Result.Intent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGJobStoreGetJobNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM conversation_jobs").
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPGJobStore(mock).GetJob(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrJobNotFound))
}
