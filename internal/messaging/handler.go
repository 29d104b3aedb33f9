package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/neumaticos-whatsapp/internal/conversation"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

var twilioTracer = otel.Tracer("neumaticos.messaging.twilio")

const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// Webhook outcomes reported to the InboundObserver.
const (
	StatusQueued           = "queued"
	StatusDuplicate        = "duplicate"
	StatusIgnored          = "ignored"
	StatusInvalidSignature = "invalid_signature"
	StatusBadRequest       = "bad_request"
	StatusEnqueueFailed    = "enqueue_failed"
)

type turnPublisher interface {
	EnqueueTurn(ctx context.Context, msg conversation.InboundMessage, opts ...conversation.PublishOption) (string, error)
}

// InboundObserver records webhook metrics.
type InboundObserver interface {
	ObserveInbound(status string)
	ObserveWebhookLatency(status string, seconds float64)
}

// HandlerConfig configures the WhatsApp webhook.
type HandlerConfig struct {
	// AuthToken validates X-Twilio-Signature. Empty disables validation.
	AuthToken string
	// WebhookURL is the public URL Twilio signs. Empty derives it from the request.
	WebhookURL string
}

// Handler handles the Twilio WhatsApp webhook.
type Handler struct {
	cfg       HandlerConfig
	publisher turnPublisher
	deduper   conversation.Deduper
	metrics   InboundObserver
	logger    *logging.Logger
	now       func() time.Time
}

// NewHandler creates a webhook handler. deduper and metrics are optional.
func NewHandler(cfg HandlerConfig, publisher turnPublisher, deduper conversation.Deduper, metrics InboundObserver, logger *logging.Logger) *Handler {
	if publisher == nil {
		panic("messaging: publisher cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		cfg:       cfg,
		publisher: publisher,
		deduper:   deduper,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// WhatsAppWebhook handles POST /webhooks/twilio/whatsapp. The reply is sent later
// by the worker, so the webhook answers with empty TwiML.
func (h *Handler) WhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := twilioTracer.Start(r.Context(), "messaging.twilio.whatsapp_webhook")
	defer span.End()
	start := h.now()

	status := h.accept(ctx, r)
	span.SetAttributes(attribute.String("neumaticos.webhook.status", status))
	h.observe(status, start)

	switch status {
	case StatusInvalidSignature:
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case StatusBadRequest:
		http.Error(w, "Bad Request", http.StatusBadRequest)
	case StatusEnqueueFailed:
		http.Error(w, "Failed to schedule reply", http.StatusInternalServerError)
	default:
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(emptyTwiML))
	}
}

func (h *Handler) accept(ctx context.Context, r *http.Request) string {
	span := trace.SpanFromContext(ctx)
	if h.cfg.AuthToken != "" {
		url := h.cfg.WebhookURL
		if url == "" {
			url = buildAbsoluteURL(r)
		}
		if !ValidateTwilioSignature(r, h.cfg.AuthToken, url) {
			h.logger.Warn("invalid twilio signature")
			span.RecordError(errors.New("invalid twilio signature"))
			return StatusInvalidSignature
		}
	}

	webhook, err := ParseWhatsAppWebhook(r)
	if err != nil {
		h.logger.Error("failed to parse twilio webhook", "error", err)
		span.RecordError(err)
		return StatusBadRequest
	}
	from := NormalizeE164(webhook.From)
	if webhook.MessageSid == "" || from == "" {
		h.logger.Error("invalid twilio payload", "message_sid", webhook.MessageSid)
		return StatusBadRequest
	}
	span.SetAttributes(attribute.String("neumaticos.twilio.message_sid", webhook.MessageSid))

	if webhook.Body == "" {
		// Media-only messages and reactions carry no text to answer.
		h.logger.Info("twilio webhook without text ignored", "message_sid", webhook.MessageSid, "num_media", webhook.NumMedia)
		return StatusIgnored
	}

	if h.deduper != nil {
		fresh, err := h.deduper.Claim(ctx, webhook.MessageSid)
		if err != nil {
			h.logger.Warn("inbound dedupe unavailable, accepting message", "error", err, "message_sid", webhook.MessageSid)
		} else if !fresh {
			h.logger.Info("duplicate twilio webhook", "message_sid", webhook.MessageSid)
			return StatusDuplicate
		}
	}

	msg := conversation.InboundMessage{
		MessageSID:  webhook.MessageSid,
		From:        from,
		To:          NormalizeE164(webhook.To),
		ProfileName: webhook.ProfileName,
		Body:        webhook.Body,
		ReceivedAt:  h.now().UTC(),
	}

	publishCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	jobID, err := h.publisher.EnqueueTurn(publishCtx, msg)
	if err != nil {
		h.logger.Error("failed to enqueue conversation turn", "error", err, "message_sid", webhook.MessageSid)
		span.RecordError(err)
		if h.deduper != nil {
			if ferr := h.deduper.Forget(context.WithoutCancel(ctx), webhook.MessageSid); ferr != nil {
				h.logger.Warn("failed to release inbound claim", "error", ferr, "message_sid", webhook.MessageSid)
			}
		}
		return StatusEnqueueFailed
	}

	h.logger.Info("twilio webhook accepted", "job_id", jobID, "message_sid", webhook.MessageSid, "phone", logging.MaskPhone(from))
	return StatusQueued
}

func (h *Handler) observe(status string, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.ObserveInbound(status)
	h.metrics.ObserveWebhookLatency(status, h.now().Sub(start).Seconds())
}

// HealthCheck returns a simple health check response.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func buildAbsoluteURL(r *http.Request) string {
	if r.URL == nil {
		return ""
	}
	if r.URL.Scheme != "" {
		return r.URL.String()
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
		if r.TLS == nil {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, r.URL.RequestURI())
}
