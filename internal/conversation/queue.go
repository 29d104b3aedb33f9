package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Queue carries encoded turn jobs between the publisher and the workers.
type Queue interface {
	Send(ctx context.Context, body, groupID string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

type jobType string

const jobTypeTurn jobType = "turn"

// InboundMessage is one WhatsApp message accepted by the webhook.
type InboundMessage struct {
	MessageSID  string    `json:"message_sid" dynamodbav:"messageSid"`
	From        string    `json:"from" dynamodbav:"from"`
	To          string    `json:"to,omitempty" dynamodbav:"to,omitempty"`
	ProfileName string    `json:"profile_name,omitempty" dynamodbav:"profileName,omitempty"`
	Body        string    `json:"body" dynamodbav:"body"`
	ReceivedAt  time.Time `json:"received_at" dynamodbav:"receivedAt"`
}

type queuePayload struct {
	ID          string         `json:"id"`
	Kind        jobType        `json:"kind"`
	Turn        InboundMessage `json:"turn"`
	TrackStatus bool           `json:"track_status"`
}

// PublishOption adjusts a payload before it is enqueued.
type PublishOption func(*queuePayload)

// WithoutJobTracking disables job status persistence for fire-and-forget work.
func WithoutJobTracking() PublishOption {
	return func(p *queuePayload) {
		p.TrackStatus = false
	}
}

func encodePayload(payload queuePayload) (queuePayload, string, error) {
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return queuePayload{}, "", fmt.Errorf("conversation: failed to encode payload: %w", err)
	}

	return payload, string(body), nil
}

func decodePayload(body string) (queuePayload, error) {
	var payload queuePayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return queuePayload{}, fmt.Errorf("conversation: failed to decode payload: %w", err)
	}
	if payload.Kind != jobTypeTurn {
		return queuePayload{}, fmt.Errorf("conversation: unknown job type %q", payload.Kind)
	}
	return payload, nil
}
