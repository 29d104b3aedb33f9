package bootstrap

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/wolfman30/neumaticos-whatsapp/internal/archive"
	appconfig "github.com/wolfman30/neumaticos-whatsapp/internal/config"
	"github.com/wolfman30/neumaticos-whatsapp/internal/notify"
	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

// Supported EMAIL_PROVIDER values.
const (
	EmailProviderSES      = "ses"
	EmailProviderSendGrid = "sendgrid"
	EmailProviderStub     = "stub"
)

// BuildEmailSender returns the sender named by EMAIL_PROVIDER. A provider missing
// its credentials falls back to the stub sender, which only logs.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (notify.EmailSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	from := notify.Sender{Email: cfg.EmailFrom, Name: cfg.EmailFromName}

	switch provider := strings.ToLower(strings.TrimSpace(cfg.EmailProvider)); provider {
	case EmailProviderSES:
		if strings.TrimSpace(cfg.EmailFrom) == "" {
			logger.Warn("ses selected but EMAIL_FROM is empty; using stub sender")
			return notify.NewStubEmailSender(logger), nil
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), from, logger), nil
	case EmailProviderSendGrid:
		if sender := notify.NewSendGridSender(cfg.SendGridAPIKey, from, logger); sender != nil {
			return sender, nil
		}
		logger.Warn("sendgrid selected but SENDGRID_API_KEY is empty; using stub sender")
		return notify.NewStubEmailSender(logger), nil
	case EmailProviderStub, "":
		return notify.NewStubEmailSender(logger), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown email provider %q", provider)
	}
}

// BuildNotifier wires handoff and web-order alerts to HANDOFF_EMAIL_TO.
func BuildNotifier(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (*notify.Service, error) {
	sender, err := BuildEmailSender(cfg, awsCfg, logger)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.HandoffEmailTo) == "" && logger != nil {
		logger.Warn("HANDOFF_EMAIL_TO is empty; operator alerts are only logged")
	}
	return notify.NewService(sender, cfg.HandoffEmailTo, cfg.Location(), logger), nil
}

// BuildArchiver returns the S3 transcript archiver, or nil without ARCHIVE_BUCKET.
func BuildArchiver(cfg *appconfig.Config, awsCfg aws.Config, repo whatsapp.Repository, logger *logging.Logger) *archive.Archiver {
	if cfg == nil || repo == nil || strings.TrimSpace(cfg.ArchiveBucket) == "" {
		return nil
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// LocalStack serves buckets by path, not by virtual host.
		if cfg.AWSEndpointOverride != "" {
			o.UsePathStyle = true
		}
	})
	return archive.NewArchiver(repo, archive.NewStore(client, cfg.ArchiveBucket, logger), logger)
}
