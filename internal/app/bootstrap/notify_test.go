package bootstrap

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/neumaticos-whatsapp/internal/config"
	"github.com/wolfman30/neumaticos-whatsapp/internal/messaging"
	"github.com/wolfman30/neumaticos-whatsapp/internal/notify"
	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

func TestBuildEmailSender(t *testing.T) {
	logger := logging.New("error")
	awsCfg := aws.Config{Region: "us-east-1"}

	tests := []struct {
		name string
		cfg  *appconfig.Config
		want any
	}{
		{name: "stub by default", cfg: &appconfig.Config{}, want: &notify.StubEmailSender{}},
		{name: "ses", cfg: &appconfig.Config{EmailProvider: "ses", EmailFrom: "turnos@neumaticosdelvalle.com.ar"}, want: &notify.SESSender{}},
		{name: "ses without from", cfg: &appconfig.Config{EmailProvider: "ses"}, want: &notify.StubEmailSender{}},
		{name: "sendgrid", cfg: &appconfig.Config{EmailProvider: "sendgrid", SendGridAPIKey: "SG.test"}, want: &notify.SendGridSender{}},
		{name: "sendgrid without key", cfg: &appconfig.Config{EmailProvider: "sendgrid"}, want: &notify.StubEmailSender{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := BuildEmailSender(tt.cfg, awsCfg, logger)
			require.NoError(t, err)
			assert.IsType(t, tt.want, sender)
		})
	}

	_, err := BuildEmailSender(&appconfig.Config{EmailProvider: "mailgun"}, awsCfg, logger)
	require.Error(t, err)
}

func TestBuildNotifier(t *testing.T) {
	svc, err := BuildNotifier(&appconfig.Config{HandoffEmailTo: "ventas@neumaticosdelvalle.com.ar"}, aws.Config{}, logging.New("error"))
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestBuildArchiverDisabledWithoutBucket(t *testing.T) {
	assert.Nil(t, BuildArchiver(&appconfig.Config{}, aws.Config{}, whatsapp.NewMemoryRepository(), nil))

	archiver := BuildArchiver(&appconfig.Config{ArchiveBucket: "transcripts", AWSEndpointOverride: "http://localhost:4566"}, aws.Config{Region: "us-east-1"}, whatsapp.NewMemoryRepository(), nil)
	assert.NotNil(t, archiver)
}

func TestBuildReplySender(t *testing.T) {
	sender, err := BuildReplySender(&appconfig.Config{Env: "development"}, logging.New("error"))
	require.NoError(t, err)
	assert.IsType(t, &messaging.LogSender{}, sender)

	_, err = BuildReplySender(&appconfig.Config{Env: "production"}, logging.New("error"))
	require.Error(t, err)

	sender, err = BuildReplySender(&appconfig.Config{
		TwilioAccountSID:   "AC1",
		TwilioAuthToken:    "token",
		TwilioWhatsAppFrom: "+5493814000000",
	}, logging.New("error"))
	require.NoError(t, err)
	assert.IsType(t, &messaging.TwilioSender{}, sender)
}

func TestBuildWebhookConfig(t *testing.T) {
	hc, err := BuildWebhookConfig(&appconfig.Config{TwilioAuthToken: "token", TwilioWebhookURL: "https://bot.example.com/webhooks/twilio/whatsapp"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "token", hc.AuthToken)

	hc, err = BuildWebhookConfig(&appconfig.Config{TwilioAuthToken: "token", TwilioSkipSignature: true}, nil)
	require.NoError(t, err)
	assert.Empty(t, hc.AuthToken)

	_, err = BuildWebhookConfig(&appconfig.Config{Env: "production", TwilioSkipSignature: true}, nil)
	require.Error(t, err)
}
