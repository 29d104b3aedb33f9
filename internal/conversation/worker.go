package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/neumaticos-whatsapp/internal/templates"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

// TurnProcessor runs one inbound message.
type TurnProcessor interface {
	Process(ctx context.Context, msg InboundMessage) (*TurnResult, error)
}

// ReplySender delivers a WhatsApp message and returns the provider message id.
type ReplySender interface {
	SendWhatsApp(ctx context.Context, to, body string) (string, error)
}

// OutboundObserver counts outbound sends.
type OutboundObserver interface {
	ObserveOutbound(status string, human bool)
}

// Worker consumes turn jobs from the queue and invokes the processor.
type Worker struct {
	processor TurnProcessor
	queue     Queue
	jobs      JobUpdater
	sender    ReplySender
	logger    *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	sendTimeout      time.Duration
	outbound         OutboundObserver
}

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
	defaultSendTimeout   = 15 * time.Second
)

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the SQS long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize sets how many messages to fetch per poll.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

// WithOutboundObserver records every reply send.
func WithOutboundObserver(o OutboundObserver) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.outbound = o
	}
}

// NewWorker constructs a queue consumer around the provided processor. jobs may be
// nil when job status is not tracked.
func NewWorker(processor TurnProcessor, queue Queue, jobs JobUpdater, sender ReplySender, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if processor == nil {
		panic("conversation: processor cannot be nil")
	}
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if sender == nil {
		panic("conversation: reply sender cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
		sendTimeout:      defaultSendTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Worker{
		processor: processor,
		queue:     queue,
		jobs:      jobs,
		sender:    sender,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start launches worker goroutines until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("conversation worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("conversation worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive conversation jobs", "error", err, "worker_id", workerID)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	err := w.HandleBody(ctx, msg.Body)
	if errors.Is(err, ErrLockHeld) {
		// Left on the queue; it becomes visible again after the visibility timeout.
		w.logger.Warn("conversation busy, job left for redelivery", "msg_id", msg.ID)
		return
	}
	w.deleteMessage(context.Background(), msg.ReceiptHandle)
}

// HandleBody processes one queued job body. Turn failures are answered with a
// fallback reply and return nil. ErrLockHeld is returned so the caller can leave
// the job for redelivery; a malformed body returns its decode error.
func (w *Worker) HandleBody(ctx context.Context, body string) error {
	payload, err := decodePayload(body)
	if err != nil {
		w.logger.Error("failed to decode conversation job", "error", err)
		return err
	}

	in := payload.Turn
	w.logger.Info("worker processing turn", "job_id", payload.ID, "message_sid", in.MessageSID, "phone", logging.MaskPhone(in.From))

	res, err := w.processor.Process(ctx, in)
	if errors.Is(err, ErrLockHeld) {
		return err
	}
	if err != nil {
		w.logger.Error("conversation turn failed", "error", err, "job_id", payload.ID)
		w.markFailed(ctx, payload, err.Error())
		w.send(ctx, in.From, templates.TechnicalError())
		return nil
	}

	if res != nil && res.Reply != "" {
		w.send(ctx, in.From, res.Reply)
	}
	if payload.TrackStatus && w.jobs != nil {
		if storeErr := w.jobs.MarkCompleted(ctx, payload.ID, res); storeErr != nil {
			w.logger.Error("failed to update job status", "error", storeErr, "job_id", payload.ID)
		}
	}
	return nil
}

func (w *Worker) markFailed(ctx context.Context, payload queuePayload, reason string) {
	if !payload.TrackStatus || w.jobs == nil {
		return
	}
	if storeErr := w.jobs.MarkFailed(ctx, payload.ID, reason); storeErr != nil {
		w.logger.Error("failed to update job status", "error", storeErr, "job_id", payload.ID)
	}
}

func (w *Worker) send(ctx context.Context, to, body string) {
	sendCtx, cancel := context.WithTimeout(ctx, w.cfg.sendTimeout)
	defer cancel()

	status := "sent"
	sid, err := w.sender.SendWhatsApp(sendCtx, to, body)
	if err != nil {
		status = "failed"
		w.logger.Error("failed to send whatsapp reply", "error", err, "phone", logging.MaskPhone(to))
	} else {
		w.logger.Debug("whatsapp reply sent", "message_sid", sid, "phone", logging.MaskPhone(to))
	}
	if w.cfg.outbound != nil {
		w.cfg.outbound.ObserveOutbound(status, false)
	}
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}

	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeoutSeconds*time.Second)
	defer cancel()

	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete conversation job", "error", err)
	}
}
