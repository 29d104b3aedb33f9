package bootstrap

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/neumaticos-whatsapp/internal/assistant"
	appconfig "github.com/wolfman30/neumaticos-whatsapp/internal/config"
	"github.com/wolfman30/neumaticos-whatsapp/internal/observability/metrics"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

func TestBuildClassifierRequiresConfig(t *testing.T) {
	_, err := BuildClassifier(context.Background(), nil, aws.Config{}, nil, nil)
	require.Error(t, err)
}

func TestBuildClassifierNoneConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  *appconfig.Config
	}{
		{name: "none", cfg: &appconfig.Config{LLMProvider: "none"}},
		{name: "empty", cfg: &appconfig.Config{}},
		{name: "bedrock without model", cfg: &appconfig.Config{LLMProvider: "bedrock"}},
		{name: "gemini without key", cfg: &appconfig.Config{LLMProvider: "gemini"}},
		{name: "openai without key", cfg: &appconfig.Config{LLMProvider: "openai", LLMFallbackProvider: "gemini"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := BuildClassifier(context.Background(), tt.cfg, aws.Config{}, nil, logging.New("error"))
			require.NoError(t, err)
			assert.Nil(t, c)
		})
	}
}

func TestBuildClassifierUnknownProvider(t *testing.T) {
	_, err := BuildClassifier(context.Background(), &appconfig.Config{LLMProvider: "llama"}, aws.Config{}, nil, logging.New("error"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llama")
}

func TestBuildClassifierOpenAI(t *testing.T) {
	cfg := &appconfig.Config{LLMProvider: "openai", OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-4o-mini"}

	c, err := BuildClassifier(context.Background(), cfg, aws.Config{}, nil, logging.New("error"))
	require.NoError(t, err)
	_, ok := c.(*assistant.OpenAIClassifier)
	assert.True(t, ok, "expected bare openai classifier without metrics, got %T", c)
}

func TestBuildClassifierWithFallback(t *testing.T) {
	cfg := &appconfig.Config{
		LLMProvider:         "bedrock",
		BedrockModelID:      "anthropic.claude-3-haiku",
		LLMFallbackProvider: "openai",
		OpenAIAPIKey:        "sk-test",
	}
	turnMetrics := metrics.NewTurnMetrics(prometheus.NewRegistry())

	c, err := BuildClassifier(context.Background(), cfg, aws.Config{Region: "us-east-1"}, turnMetrics, logging.New("error"))
	require.NoError(t, err)
	_, ok := c.(*assistant.FallbackClassifier)
	assert.True(t, ok, "expected fallback classifier, got %T", c)
}

func TestBuildClassifierFallbackOnly(t *testing.T) {
	cfg := &appconfig.Config{LLMProvider: "bedrock", LLMFallbackProvider: "openai", OpenAIAPIKey: "sk-test"}

	c, err := BuildClassifier(context.Background(), cfg, aws.Config{}, nil, logging.New("error"))
	require.NoError(t, err)
	_, ok := c.(*assistant.OpenAIClassifier)
	assert.True(t, ok, "expected the fallback provider alone, got %T", c)
}
