package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/wolfman30/neumaticos-whatsapp/internal/assistant"
	appconfig "github.com/wolfman30/neumaticos-whatsapp/internal/config"
	"github.com/wolfman30/neumaticos-whatsapp/internal/observability/metrics"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

// Supported LLM_PROVIDER values.
const (
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"
	ProviderNone    = "none"
)

// BuildClassifier wires the intent classifier named by LLM_PROVIDER, wrapped with
// LLM_FALLBACK_PROVIDER when set. A provider without credentials is skipped; when
// nothing is usable it returns nil and the engine runs on keywords only.
func BuildClassifier(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, turnMetrics *metrics.TurnMetrics, logger *logging.Logger) (assistant.Classifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	primaryName := normalizeProvider(cfg.LLMProvider)
	primary, err := buildProvider(ctx, primaryName, cfg, awsCfg, logger)
	if err != nil {
		return nil, err
	}

	fallbackName := normalizeProvider(cfg.LLMFallbackProvider)
	var fallback assistant.Classifier
	if fallbackName != ProviderNone && fallbackName != primaryName {
		fallback, err = buildProvider(ctx, fallbackName, cfg, awsCfg, logger)
		if err != nil {
			return nil, err
		}
	}

	if primary != nil {
		primary = metrics.InstrumentClassifier(primaryName, primary, turnMetrics)
	}
	if fallback != nil {
		fallback = metrics.InstrumentClassifier(fallbackName, fallback, turnMetrics)
	}

	switch {
	case primary != nil && fallback != nil:
		logger.Info("intent classifier enabled", "provider", primaryName, "fallback", fallbackName)
		return assistant.NewFallbackClassifier(primary, fallback, logger), nil
	case primary != nil:
		logger.Info("intent classifier enabled", "provider", primaryName)
		return primary, nil
	case fallback != nil:
		logger.Warn("primary classifier unavailable; using fallback only", "provider", fallbackName)
		return fallback, nil
	default:
		logger.Warn("no intent classifier configured; keyword detection only")
		return nil, nil
	}
}

func normalizeProvider(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ProviderNone
	}
	return name
}

func buildProvider(ctx context.Context, name string, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (assistant.Classifier, error) {
	switch name {
	case ProviderNone:
		return nil, nil
	case ProviderBedrock:
		model := strings.TrimSpace(cfg.BedrockModelID)
		if model == "" {
			logger.Warn("bedrock selected but BEDROCK_MODEL_ID is empty; skipping")
			return nil, nil
		}
		return assistant.NewBedrockClassifier(bedrockruntime.NewFromConfig(awsCfg), model), nil
	case ProviderGemini:
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			logger.Warn("gemini selected but GEMINI_API_KEY is empty; skipping")
			return nil, nil
		}
		c, err := assistant.NewGeminiClassifier(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: gemini classifier: %w", err)
		}
		return c, nil
	case ProviderOpenAI:
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			logger.Warn("openai selected but OPENAI_API_KEY is empty; skipping")
			return nil, nil
		}
		c, err := assistant.NewOpenAIClassifier(assistant.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: openai classifier: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown llm provider %q", name)
	}
}
