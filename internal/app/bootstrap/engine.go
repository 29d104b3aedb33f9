package bootstrap

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/neumaticos-whatsapp/internal/appointments"
	"github.com/wolfman30/neumaticos-whatsapp/internal/assistant"
	appconfig "github.com/wolfman30/neumaticos-whatsapp/internal/config"
	"github.com/wolfman30/neumaticos-whatsapp/internal/equivalence"
	"github.com/wolfman30/neumaticos-whatsapp/internal/flow"
	"github.com/wolfman30/neumaticos-whatsapp/internal/location"
	"github.com/wolfman30/neumaticos-whatsapp/internal/stock"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

// BuildToolset loads the assistant tool definitions from ASSISTANT_CONFIG_PATH,
// or the built-in set when the path is empty.
func BuildToolset(cfg *appconfig.Config, logger *logging.Logger) (assistant.Toolset, error) {
	if cfg == nil || strings.TrimSpace(cfg.AssistantConfigPath) == "" {
		return assistant.DefaultToolset(), nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	toolset, err := assistant.LoadToolset(cfg.AssistantConfigPath)
	if err != nil {
		return assistant.Toolset{}, fmt.Errorf("bootstrap: load assistant config: %w", err)
	}
	logger.Info("assistant config loaded", "path", cfg.AssistantConfigPath)
	return toolset, nil
}

// BuildEngine wires the flow engine on the Postgres catalog. classifier may be nil.
func BuildEngine(pool *pgxpool.Pool, classifier assistant.Classifier, cfg *appconfig.Config, logger *logging.Logger) (*flow.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if pool == nil {
		return nil, fmt.Errorf("bootstrap: database is required for the flow engine")
	}
	if logger == nil {
		logger = logging.Default()
	}

	toolset, err := BuildToolset(cfg, logger)
	if err != nil {
		return nil, err
	}

	stockStore := stock.NewPostgresStore(pool)
	loc := cfg.Location()

	return flow.NewEngine(flow.Deps{
		Appointments:    appointments.NewService(appointments.NewPostgresStore(pool), loc, logger),
		Stock:           stock.NewService(stockStore, logger),
		Equivalence:     equivalence.NewService(stockStore, logger),
		Location:        location.NewService(location.NewPostgresStore(pool), logger),
		Classifier:      classifier,
		Toolset:         toolset,
		Logger:          logger,
		TimeZone:        loc,
		ClassifyTimeout: cfg.LLMTimeout,
	}), nil
}
