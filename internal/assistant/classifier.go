package assistant

import (
	"context"
	"errors"
	"strings"

	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
	"go.opentelemetry.io/otel"
)

var assistantTracer = otel.Tracer("neumaticos.assistant")

const (
	defaultMaxTokens   = 500
	defaultTemperature = 0.3
)

// Request is one classification call.
type Request struct {
	System string
	// History is oldest first and must not include Message.
	History []whatsapp.Message
	Message string
	Tools   []Tool
}

// Classifier maps a user message to exactly one Intent. Plain-text answers come
// back as Reply.
type Classifier interface {
	Classify(ctx context.Context, req Request) (Intent, error)
}

// FallbackClassifier tries primary and falls back to a secondary provider on error.
type FallbackClassifier struct {
	primary  Classifier
	fallback Classifier
	logger   *logging.Logger
}

// NewFallbackClassifier wraps primary with a fallback.
func NewFallbackClassifier(primary, fallback Classifier, logger *logging.Logger) *FallbackClassifier {
	if primary == nil {
		panic("assistant: primary classifier cannot be nil")
	}
	if fallback == nil {
		panic("assistant: fallback classifier cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackClassifier{primary: primary, fallback: fallback, logger: logger}
}

// Classify implements Classifier. Unknown tools are not retried on the fallback.
func (c *FallbackClassifier) Classify(ctx context.Context, req Request) (Intent, error) {
	intent, err := c.primary.Classify(ctx, req)
	if err == nil || errors.Is(err, ErrUnknownTool) {
		return intent, err
	}
	if ctx.Err() != nil {
		return nil, err
	}
	c.logger.Warn("primary classifier failed, attempting fallback", "error", err)
	return c.fallback.Classify(ctx, req)
}

// historyRole maps a stored message to the chat role a provider expects.
func historyRole(m whatsapp.Message) string {
	if m.Role == whatsapp.RoleAssistant {
		return "assistant"
	}
	return "user"
}

func usableHistory(history []whatsapp.Message) []whatsapp.Message {
	out := make([]whatsapp.Message, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}
