package messaging

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

// LogSender logs replies instead of sending them. Used when Twilio is not
// configured outside production.
type LogSender struct {
	logger *logging.Logger
}

func NewLogSender(logger *logging.Logger) *LogSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendWhatsApp(ctx context.Context, to, body string) (string, error) {
	if NormalizeE164(to) == "" {
		return "", errors.New("messaging: to required")
	}
	sid := "LOG" + uuid.NewString()
	s.logger.Info("whatsapp reply not sent, twilio not configured", "to", logging.MaskPhone(to), "message_sid", sid, "body_len", len([]rune(body)))
	return sid, nil
}
