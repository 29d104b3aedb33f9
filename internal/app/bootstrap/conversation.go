package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/neumaticos-whatsapp/internal/config"
	"github.com/wolfman30/neumaticos-whatsapp/internal/conversation"
	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

const memoryQueueBuffer = 256

// JobStore is the job status persistence used by the publisher, the workers and
// the admin API.
type JobStore interface {
	conversation.JobRecorder
	conversation.JobUpdater
}

// BuildQueue returns the in-process queue when USE_MEMORY_QUEUE is set, otherwise
// the SQS queue at CONVERSATION_QUEUE_URL.
func BuildQueue(cfg *appconfig.Config, awsCfg aws.Config) (conversation.Queue, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if cfg.UseMemoryQueue {
		return conversation.NewMemoryQueue(memoryQueueBuffer), nil
	}
	if strings.TrimSpace(cfg.ConversationQueueURL) == "" {
		return nil, fmt.Errorf("bootstrap: CONVERSATION_QUEUE_URL is required unless USE_MEMORY_QUEUE is set")
	}
	return conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ConversationQueueURL), nil
}

// BuildJobStore prefers DynamoDB when CONVERSATION_JOBS_TABLE is set and falls
// back to the Postgres table. It returns nil when neither is available.
func BuildJobStore(cfg *appconfig.Config, awsCfg aws.Config, pool *pgxpool.Pool, logger *logging.Logger) JobStore {
	if cfg == nil {
		return nil
	}
	if table := strings.TrimSpace(cfg.ConversationJobsTable); table != "" {
		return conversation.NewJobStore(dynamodb.NewFromConfig(awsCfg), table, logger)
	}
	if pool != nil {
		return conversation.NewPGJobStore(pool)
	}
	return nil
}

// ProcessorDeps are the optional collaborators of the turn processor.
type ProcessorDeps struct {
	Repo     whatsapp.Repository
	Engine   conversation.Engine
	Redis    *redis.Client
	Notifier conversation.AlertNotifier
	Feed     conversation.Broadcaster
	Metrics  conversation.TurnObserver
}

// BuildProcessor wires the turn processor with locking and side channels.
func BuildProcessor(cfg *appconfig.Config, deps ProcessorDeps, logger *logging.Logger) (*conversation.Processor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if deps.Repo == nil || deps.Engine == nil {
		return nil, fmt.Errorf("bootstrap: repository and engine are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if deps.Redis == nil && cfg.WorkerCount > 1 {
		logger.Warn("no redis configured; turns are not locked across workers", "workers", cfg.WorkerCount)
	}

	opts := []conversation.ProcessorOption{
		conversation.WithLocker(BuildLocker(deps.Redis, cfg)),
		conversation.WithHistoryLimit(cfg.LLMMaxHistory),
	}
	if deps.Notifier != nil {
		opts = append(opts, conversation.WithNotifier(deps.Notifier))
	}
	if deps.Feed != nil {
		opts = append(opts, conversation.WithBroadcaster(deps.Feed))
	}
	if deps.Metrics != nil {
		opts = append(opts, conversation.WithTurnObserver(deps.Metrics))
	}
	return conversation.NewProcessor(deps.Repo, deps.Engine, logger, opts...), nil
}

// RunWorker starts the queue consumers and blocks until ctx is cancelled and all
// of them have returned.
func RunWorker(ctx context.Context, worker *conversation.Worker, logger *logging.Logger) {
	if logger == nil {
		logger = logging.Default()
	}
	worker.Start(ctx)
	logger.Info("conversation workers started")
	<-ctx.Done()
	worker.Wait()
	logger.Info("conversation workers stopped")
}
