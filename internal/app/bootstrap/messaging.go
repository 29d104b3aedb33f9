package bootstrap

import (
	"fmt"
	"strings"

	appconfig "github.com/wolfman30/neumaticos-whatsapp/internal/config"
	"github.com/wolfman30/neumaticos-whatsapp/internal/conversation"
	"github.com/wolfman30/neumaticos-whatsapp/internal/messaging"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

// BuildReplySender returns the Twilio sender. Without credentials it returns the
// log-only sender, except in production where that is an error.
func BuildReplySender(cfg *appconfig.Config, logger *logging.Logger) (conversation.ReplySender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	missing := strings.TrimSpace(cfg.TwilioAccountSID) == "" ||
		strings.TrimSpace(cfg.TwilioAuthToken) == "" ||
		strings.TrimSpace(cfg.TwilioWhatsAppFrom) == ""
	if missing {
		if strings.EqualFold(cfg.Env, "production") {
			return nil, fmt.Errorf("bootstrap: twilio credentials are required in production")
		}
		logger.Warn("twilio not configured; replies are only logged")
		return messaging.NewLogSender(logger), nil
	}
	return messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom, logger), nil
}

// BuildWebhookConfig derives the webhook signature settings. Skipping signature
// validation is refused in production.
func BuildWebhookConfig(cfg *appconfig.Config, logger *logging.Logger) (messaging.HandlerConfig, error) {
	if cfg == nil {
		return messaging.HandlerConfig{}, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.TwilioSkipSignature {
		if strings.EqualFold(cfg.Env, "production") {
			return messaging.HandlerConfig{}, fmt.Errorf("bootstrap: TWILIO_SKIP_SIGNATURE is not allowed in production")
		}
		logger.Warn("twilio signature validation disabled")
		return messaging.HandlerConfig{}, nil
	}
	if strings.TrimSpace(cfg.TwilioAuthToken) == "" {
		logger.Warn("TWILIO_AUTH_TOKEN is empty; webhook signatures are not validated")
	}
	return messaging.HandlerConfig{AuthToken: cfg.TwilioAuthToken, WebhookURL: cfg.TwilioWebhookURL}, nil
}
