package main

import (
	"context"
	"errors"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/wolfman30/neumaticos-whatsapp/cmd/mainconfig"
	"github.com/wolfman30/neumaticos-whatsapp/internal/app/bootstrap"
	appconfig "github.com/wolfman30/neumaticos-whatsapp/internal/config"
	"github.com/wolfman30/neumaticos-whatsapp/internal/conversation"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

type bodyHandler interface {
	HandleBody(ctx context.Context, body string) error
}

func main() {
	cfg := appconfig.Load()
	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	worker, err := buildWorker(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build conversation worker", "error", err)
		panic(err)
	}

	lambda.Start(func(ctx context.Context, evt events.SQSEvent) (events.SQSEventResponse, error) {
		return handle(ctx, worker, evt, logger), nil
	})
}

func buildWorker(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*conversation.Worker, error) {
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	queue, err := bootstrap.BuildQueue(cfg, awsCfg)
	if err != nil {
		return nil, err
	}
	sender, err := bootstrap.BuildReplySender(cfg, logger)
	if err != nil {
		return nil, err
	}
	return bootstrap.BuildWorker(ctx, cfg, awsCfg, bootstrap.WorkerDeps{
		Pool:   pool,
		Repo:   bootstrap.BuildRepository(pool, logger),
		Redis:  bootstrap.BuildRedisClient(ctx, cfg, logger, true),
		Queue:  queue,
		Jobs:   bootstrap.BuildJobStore(cfg, awsCfg, pool, logger),
		Sender: sender,
	}, logger)
}

// handle processes each record. Records whose conversation is busy are reported
// back as batch item failures so SQS redelivers only those; every other outcome,
// including a malformed body, is consumed.
func handle(ctx context.Context, worker bodyHandler, evt events.SQSEvent, logger *logging.Logger) events.SQSEventResponse {
	var resp events.SQSEventResponse
	for _, record := range evt.Records {
		err := worker.HandleBody(ctx, record.Body)
		switch {
		case err == nil:
		case errors.Is(err, conversation.ErrLockHeld), errors.Is(err, context.DeadlineExceeded):
			logger.Warn("conversation busy, record returned to queue", "message_id", record.MessageId)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		default:
			logger.Error("dropping unprocessable record", "message_id", record.MessageId, "error", err)
		}
	}
	return resp
}
