package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

func TestPublisher_EnqueueTurn(t *testing.T) {
	queue := &stubQueue{}
	jobs := &stubJobRecorder{}
	publisher := NewPublisher(queue, jobs, logging.Default())

	msg := InboundMessage{MessageSID: "SM123", From: "+5493815551234", Body: "tenés 205/55R16?"}
	jobID, err := publisher.EnqueueTurn(context.Background(), msg)
	if err != nil {
		t.Fatalf("enqueue returned error: %v", err)
	}
	if jobID == "" {
		t.Fatal("expected a generated job id")
	}
	if len(queue.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(queue.sent))
	}
	if queue.groups[0] != msg.From {
		t.Fatalf("expected message group %s, got %s", msg.From, queue.groups[0])
	}

	var payload queuePayload
	if err := json.Unmarshal([]byte(queue.sent[0]), &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.Kind != jobTypeTurn {
		t.Fatalf("expected jobType turn, got %s", payload.Kind)
	}
	if payload.ID != jobID {
		t.Fatalf("expected job ID %s, got %s", jobID, payload.ID)
	}
	if payload.Turn.MessageSID != "SM123" || payload.Turn.Body != msg.Body {
		t.Fatalf("unexpected turn payload: %#v", payload.Turn)
	}
	if !payload.TrackStatus {
		t.Fatal("expected job tracking when a recorder is configured")
	}

	if len(jobs.pending) != 1 || jobs.pending[0].JobID != jobID {
		t.Fatalf("expected pending job %s to be recorded, got %#v", jobID, jobs.pending)
	}
}

func TestPublisher_WithoutJobTracking(t *testing.T) {
	queue := &stubQueue{}
	jobs := &stubJobRecorder{}
	publisher := NewPublisher(queue, jobs, nil)

	if _, err := publisher.EnqueueTurn(context.Background(), InboundMessage{From: "+549381"}, WithoutJobTracking()); err != nil {
		t.Fatalf("enqueue returned error: %v", err)
	}
	if len(jobs.pending) != 0 {
		t.Fatalf("expected no job record, got %d", len(jobs.pending))
	}
}

func TestPublisher_RecorderFailureSkipsQueue(t *testing.T) {
	queue := &stubQueue{}
	jobs := &stubJobRecorder{err: errors.New("dynamo down")}
	publisher := NewPublisher(queue, jobs, nil)

	if _, err := publisher.EnqueueTurn(context.Background(), InboundMessage{From: "+549381"}); err == nil {
		t.Fatal("expected recorder error")
	}
	if len(queue.sent) != 0 {
		t.Fatalf("expected nothing enqueued, got %d", len(queue.sent))
	}
}

func TestDecodePayloadRejectsUnknownKind(t *testing.T) {
	if _, err := decodePayload(`{"id":"x","kind":"start"}`); err == nil {
		t.Fatal("expected unknown kind to be rejected")
	}
	if _, err := decodePayload("{"); err == nil {
		t.Fatal("expected malformed body to be rejected")
	}
}

type stubQueue struct {
	sent   []string
	groups []string
}

func (s *stubQueue) Send(ctx context.Context, body, groupID string) error {
	s.sent = append(s.sent, body)
	s.groups = append(s.groups, groupID)
	return nil
}

func (s *stubQueue) Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error) {
	return nil, context.Canceled
}

func (s *stubQueue) Delete(ctx context.Context, receiptHandle string) error {
	return nil
}

type stubJobRecorder struct {
	pending []*JobRecord
	err     error
}

func (s *stubJobRecorder) PutPending(ctx context.Context, job *JobRecord) error {
	if s.err != nil {
		return s.err
	}
	s.pending = append(s.pending, job)
	return nil
}

func (s *stubJobRecorder) GetJob(ctx context.Context, jobID string) (*JobRecord, error) {
	for _, job := range s.pending {
		if job.JobID == jobID {
			return job, nil
		}
	}
	return nil, ErrJobNotFound
}
