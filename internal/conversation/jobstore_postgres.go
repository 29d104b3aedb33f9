package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// Querier is the subset of pgxpool.Pool used by PGJobStore.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGJobStore persists job records to PostgreSQL for deployments without DynamoDB.
type PGJobStore struct {
	db  Querier
	now func() time.Time
}

// NewPGJobStore builds a Postgres-backed job store.
func NewPGJobStore(db Querier) *PGJobStore {
	if db == nil {
		panic("conversation: postgres querier cannot be nil")
	}
	return &PGJobStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

var _ JobRecorder = (*PGJobStore)(nil)
var _ JobUpdater = (*PGJobStore)(nil)

// PutPending inserts a pending job record.
func (s *PGJobStore) PutPending(ctx context.Context, job *JobRecord) error {
	if job == nil {
		return errors.New("conversation: job cannot be nil")
	}

	now := s.now()
	job.Status = JobStatusPending
	job.CreatedAt = now.Format(time.RFC3339Nano)
	job.UpdatedAt = job.CreatedAt
	if job.ExpiresAt == 0 {
		job.ExpiresAt = now.Add(jobTTL).Unix()
	}

	var inboundJSON []byte
	if job.Inbound != nil {
		data, err := marshalJSON(job.Inbound)
		if err != nil {
			return err
		}
		inboundJSON = data
	}

	expiresAt := time.Unix(job.ExpiresAt, 0).UTC()
	if _, execErr := s.db.Exec(ctx, `
		INSERT INTO conversation_jobs (
			job_id, status, request_type, conversation_id,
			inbound, error_message, created_at, updated_at, expires_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, job.JobID, job.Status, job.RequestType, nullString(job.ConversationID), inboundJSON, job.ErrorMessage, now, now, expiresAt); execErr != nil {
		return fmt.Errorf("conversation: failed to persist job: %w", execErr)
	}
	return nil
}

// MarkCompleted updates the job as completed with the turn result.
func (s *PGJobStore) MarkCompleted(ctx context.Context, jobID string, res *TurnResult) error {
	if jobID == "" {
		return errors.New("conversation: jobID required")
	}
	if res == nil {
		res = &TurnResult{}
	}
	resultJSON, err := marshalJSON(res)
	if err != nil {
		return err
	}

	result, execErr := s.db.Exec(ctx, `
		UPDATE conversation_jobs
		SET status = $2,
		    result = $3,
		    conversation_id = $4,
		    error_message = '',
		    updated_at = $5
		WHERE job_id = $1
	`, jobID, JobStatusCompleted, resultJSON, nullString(res.ConversationID), s.now())
	if execErr != nil {
		return fmt.Errorf("conversation: failed to update job: %w", execErr)
	}
	if result.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// MarkFailed marks the job as failed with an error message.
func (s *PGJobStore) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
	if jobID == "" {
		return errors.New("conversation: jobID required")
	}

	result, execErr := s.db.Exec(ctx, `
		UPDATE conversation_jobs
		SET status = $2,
		    result = NULL,
		    error_message = $3,
		    updated_at = $4
		WHERE job_id = $1
	`, jobID, JobStatusFailed, errMsg, s.now())
	if execErr != nil {
		return fmt.Errorf("conversation: failed to update job: %w", execErr)
	}
	if result.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// GetJob loads a job by ID.
func (s *PGJobStore) GetJob(ctx context.Context, jobID string) (*JobRecord, error) {
	if jobID == "" {
		return nil, errors.New("conversation: jobID required")
	}

	var (
		inboundJSON []byte
		resultJSON  []byte
		convoID     pgtype.Text
		createdAt   time.Time
		updatedAt   time.Time
		expiresAt   pgtype.Timestamptz
		status      string
		reqType     string
		errMsg      string
	)

	row := s.db.QueryRow(ctx, `
		SELECT job_id, status, request_type, conversation_id,
		       inbound, result, error_message,
		       created_at, updated_at, expires_at
		FROM conversation_jobs
		WHERE job_id = $1
	`, jobID)

	if err := row.Scan(&jobID, &status, &reqType, &convoID,
		&inboundJSON, &resultJSON, &errMsg,
		&createdAt, &updatedAt, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("conversation: failed to fetch job: %w", err)
	}

	job := &JobRecord{
		JobID:        jobID,
		Status:       JobStatus(status),
		RequestType:  jobType(reqType),
		ErrorMessage: errMsg,
		CreatedAt:    createdAt.Format(time.RFC3339Nano),
		UpdatedAt:    updatedAt.Format(time.RFC3339Nano),
	}
	if convoID.Valid {
		job.ConversationID = convoID.String
	}
	if expiresAt.Valid {
		job.ExpiresAt = expiresAt.Time.Unix()
	}

	if len(inboundJSON) > 0 {
		var in InboundMessage
		if err := json.Unmarshal(inboundJSON, &in); err != nil {
			return nil, fmt.Errorf("conversation: failed to decode inbound: %w", err)
		}
		job.Inbound = &in
	}
	if len(resultJSON) > 0 {
		var res TurnResult
		if err := json.Unmarshal(resultJSON, &res); err != nil {
			return nil, fmt.Errorf("conversation: failed to decode result: %w", err)
		}
		job.Result = &res
	}

	return job, nil
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to encode json: %w", err)
	}
	return data, nil
}

func nullString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
