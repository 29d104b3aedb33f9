package conversation

import (
	"context"
	"fmt"

	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

// Publisher enqueues conversation turns for asynchronous processing.
type Publisher struct {
	queue  Queue
	jobs   JobRecorder
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher. jobs may be nil, in which case
// no job status is recorded.
func NewPublisher(queue Queue, jobs JobRecorder, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:  queue,
		jobs:   jobs,
		logger: logger,
	}
}

// EnqueueTurn publishes one inbound message and returns its job ID.
func (p *Publisher) EnqueueTurn(ctx context.Context, msg InboundMessage, opts ...PublishOption) (string, error) {
	payload := queuePayload{Kind: jobTypeTurn, Turn: msg, TrackStatus: p.jobs != nil}
	for _, opt := range opts {
		opt(&payload)
	}
	payload, body, err := encodePayload(payload)
	if err != nil {
		return "", err
	}

	if payload.TrackStatus && p.jobs != nil {
		inbound := msg
		if err := p.jobs.PutPending(ctx, &JobRecord{JobID: payload.ID, RequestType: jobTypeTurn, Inbound: &inbound}); err != nil {
			return "", err
		}
	}

	if err := p.queue.Send(ctx, body, msg.From); err != nil {
		return "", fmt.Errorf("conversation: failed to enqueue job: %w", err)
	}

	p.logger.Debug("conversation turn enqueued", "job_id", payload.ID, "message_sid", msg.MessageSID, "phone", logging.MaskPhone(msg.From))
	return payload.ID, nil
}
