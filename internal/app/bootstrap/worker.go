package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/neumaticos-whatsapp/internal/config"
	"github.com/wolfman30/neumaticos-whatsapp/internal/conversation"
	"github.com/wolfman30/neumaticos-whatsapp/internal/observability/metrics"
	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

// WorkerDeps are the shared runtime pieces a turn worker is built from.
type WorkerDeps struct {
	Pool     *pgxpool.Pool
	Repo     whatsapp.Repository
	Redis    *redis.Client
	Queue    conversation.Queue
	Jobs     JobStore
	Sender   conversation.ReplySender
	Feed     conversation.Broadcaster
	Turns    *metrics.TurnMetrics
	Outbound conversation.OutboundObserver
}

// BuildWorker wires classifier, engine, notifier and processor into a queue worker.
func BuildWorker(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, deps WorkerDeps, logger *logging.Logger, opts ...conversation.WorkerOption) (*conversation.Worker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if deps.Queue == nil || deps.Sender == nil {
		return nil, fmt.Errorf("bootstrap: queue and reply sender are required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	classifier, err := BuildClassifier(ctx, cfg, awsCfg, deps.Turns, logger)
	if err != nil {
		return nil, err
	}
	engine, err := BuildEngine(deps.Pool, classifier, cfg, logger)
	if err != nil {
		return nil, err
	}
	notifier, err := BuildNotifier(cfg, awsCfg, logger)
	if err != nil {
		return nil, err
	}

	procDeps := ProcessorDeps{
		Repo:     deps.Repo,
		Engine:   engine,
		Redis:    deps.Redis,
		Notifier: notifier,
		Feed:     deps.Feed,
	}
	if deps.Turns != nil {
		procDeps.Metrics = deps.Turns
	}
	processor, err := BuildProcessor(cfg, procDeps, logger)
	if err != nil {
		return nil, err
	}

	var updater conversation.JobUpdater
	if deps.Jobs != nil {
		updater = deps.Jobs
	}
	workerOpts := []conversation.WorkerOption{conversation.WithWorkerCount(cfg.WorkerCount)}
	if deps.Outbound != nil {
		workerOpts = append(workerOpts, conversation.WithOutboundObserver(deps.Outbound))
	}
	workerOpts = append(workerOpts, opts...)
	return conversation.NewWorker(processor, deps.Queue, updater, deps.Sender, logger, workerOpts...), nil
}
