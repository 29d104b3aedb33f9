package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wolfman30/neumaticos-whatsapp/internal/flow"
	"github.com/wolfman30/neumaticos-whatsapp/internal/templates"
	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

func turnBody(t *testing.T, id string, track bool, msg InboundMessage) string {
	t.Helper()
	body, err := json.Marshal(queuePayload{ID: id, Kind: jobTypeTurn, TrackStatus: track, Turn: msg})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return string(body)
}

func TestWorkerProcessesMessages(t *testing.T) {
	queue := newScriptedQueue()
	processor := &recordingProcessor{reply: "¡Hola! ¿En qué te ayudo?"}
	store := &stubJobUpdater{}
	sender := &stubSender{}
	worker := NewWorker(processor, queue, store, sender, logging.Default(), WithWorkerCount(1), WithReceiveBatchSize(1), WithReceiveWaitSeconds(0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	queue.enqueue(queueMessage{
		ID:            "msg-1",
		Body:          turnBody(t, "job-1", true, InboundMessage{MessageSID: "SM1", From: testPhone, Body: "hola"}),
		ReceiptHandle: "rh-1",
	})

	waitFor(func() bool {
		return queue.deletedCount() == 1
	}, time.Second, t)

	cancel()
	worker.Wait()

	if processor.count() != 1 {
		t.Fatalf("expected 1 process call, got %d", processor.count())
	}
	if jobs := store.completedJobs(); len(jobs) != 1 || jobs[0] != "job-1" {
		t.Fatalf("expected job completion to be recorded, got %#v", jobs)
	}
	sent := sender.messages()
	if len(sent) != 1 || sent[0].to != testPhone || sent[0].body != "¡Hola! ¿En qué te ayudo?" {
		t.Fatalf("unexpected sends: %#v", sent)
	}
}

func TestWorkerSendsFallbackOnFailure(t *testing.T) {
	processor := &recordingProcessor{err: errors.New("db down")}
	store := &stubJobUpdater{}
	sender := &stubSender{}
	worker := NewWorker(processor, newScriptedQueue(), store, sender, logging.Default())

	err := worker.HandleBody(context.Background(), turnBody(t, "job-fail", true, InboundMessage{From: testPhone, Body: "hola"}))
	if err != nil {
		t.Fatalf("expected turn failure to be absorbed, got %v", err)
	}
	if store.failureCount() != 1 {
		t.Fatalf("expected failure to be recorded")
	}
	sent := sender.messages()
	if len(sent) != 1 || sent[0].body != templates.TechnicalError() {
		t.Fatalf("expected technical error fallback, got %#v", sent)
	}
}

func TestWorkerLeavesLockedJobOnQueue(t *testing.T) {
	queue := newScriptedQueue()
	processor := &recordingProcessor{err: ErrLockHeld}
	store := &stubJobUpdater{}
	sender := &stubSender{}
	worker := NewWorker(processor, queue, store, sender, logging.Default())

	worker.handleMessage(context.Background(), queueMessage{
		ID:            "msg-busy",
		Body:          turnBody(t, "job-busy", true, InboundMessage{From: testPhone, Body: "hola"}),
		ReceiptHandle: "rh-busy",
	})

	if queue.deletedCount() != 0 {
		t.Fatalf("expected job to stay on the queue")
	}
	if len(sender.messages()) != 0 || store.failureCount() != 0 {
		t.Fatalf("expected no reply and no job update while the conversation is busy")
	}
}

func TestWorkerSkippedTurnSendsNothing(t *testing.T) {
	processor := &recordingProcessor{}
	store := &stubJobUpdater{}
	sender := &stubSender{}
	worker := NewWorker(processor, newScriptedQueue(), store, sender, logging.Default())

	if err := worker.HandleBody(context.Background(), turnBody(t, "job-paused", true, InboundMessage{From: testPhone, Body: "hola"})); err != nil {
		t.Fatalf("HandleBody returned error: %v", err)
	}
	if len(sender.messages()) != 0 {
		t.Fatalf("expected no reply for a paused conversation")
	}
	if len(store.completedJobs()) != 1 {
		t.Fatalf("expected job to be completed")
	}
}

func TestWorkerSkipsMalformedPayload(t *testing.T) {
	queue := newScriptedQueue()
	processor := &recordingProcessor{}
	store := &stubJobUpdater{}
	worker := NewWorker(processor, queue, store, &stubSender{}, logging.Default())

	worker.handleMessage(context.Background(), queueMessage{ID: "bad", Body: "{", ReceiptHandle: "rh-bad"})

	if processor.count() != 0 {
		t.Fatalf("expected no processor calls for malformed body")
	}
	if len(store.completedJobs()) != 0 || store.failureCount() != 0 {
		t.Fatalf("expected no job updates for malformed payload")
	}
	if queue.deletedCount() != 1 {
		t.Fatalf("expected malformed job to be deleted")
	}
}

func TestWorkerUntrackedJobWithoutStore(t *testing.T) {
	worker := NewWorker(&recordingProcessor{reply: "ok"}, newScriptedQueue(), nil, &stubSender{}, nil)
	if err := worker.HandleBody(context.Background(), turnBody(t, "job-x", true, InboundMessage{From: testPhone})); err != nil {
		t.Fatalf("HandleBody returned error: %v", err)
	}
}

func TestWorkerConfigOptions(t *testing.T) {
	worker := NewWorker(
		&recordingProcessor{},
		newScriptedQueue(),
		&stubJobUpdater{},
		&stubSender{},
		logging.Default(),
		WithWorkerCount(3),
		WithReceiveBatchSize(20),
		WithReceiveWaitSeconds(30),
	)

	if worker.cfg.workers != 3 {
		t.Fatalf("expected worker count override, got %d", worker.cfg.workers)
	}
	if worker.cfg.receiveBatchSize != maxReceiveBatchSize {
		t.Fatalf("expected batch size capped at %d, got %d", maxReceiveBatchSize, worker.cfg.receiveBatchSize)
	}
	if worker.cfg.receiveWaitSecs != maxWaitSeconds {
		t.Fatalf("expected wait seconds capped at %d, got %d", maxWaitSeconds, worker.cfg.receiveWaitSecs)
	}
}

func TestWorkerEndToEndOverMemoryQueue(t *testing.T) {
	repo := whatsapp.NewMemoryRepository()
	engine := &scriptedEngine{result: flow.Result{Reply: "¿En qué ciudad estás?", Intent: flow.IntentStock}}
	processor := NewProcessor(repo, engine, nil)
	queue := NewMemoryQueue(4)
	sender := &stubSender{}
	outbound := &stubOutbound{}
	worker := NewWorker(processor, queue, nil, sender, nil, WithWorkerCount(1), WithReceiveWaitSeconds(0), WithOutboundObserver(outbound))
	publisher := NewPublisher(queue, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	if _, err := publisher.EnqueueTurn(ctx, InboundMessage{MessageSID: "SM9", From: testPhone, Body: "205/55R16"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(func() bool { return len(sender.messages()) == 1 }, time.Second, t)
	cancel()
	worker.Wait()

	conv, err := repo.FindByPhone(context.Background(), testPhone)
	if err != nil {
		t.Fatalf("conversation not created: %v", err)
	}
	if conv.MessageCount != 2 {
		t.Fatalf("expected 2 recorded messages, got %d", conv.MessageCount)
	}
	if outbound.count() != 1 {
		t.Fatalf("expected outbound send to be observed")
	}
}

type recordingProcessor struct {
	reply string
	err   error
	calls int
	mu    sync.Mutex
}

func (r *recordingProcessor) Process(ctx context.Context, msg InboundMessage) (*TurnResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &TurnResult{ConversationID: "conv-1", Reply: r.reply, Skipped: r.reply == ""}, nil
}

func (r *recordingProcessor) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type sentMessage struct {
	to   string
	body string
}

type stubSender struct {
	sent []sentMessage
	mu   sync.Mutex
}

func (s *stubSender) SendWhatsApp(ctx context.Context, to, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{to: to, body: body})
	return "SMout", nil
}

func (s *stubSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

type stubOutbound struct {
	n  int
	mu sync.Mutex
}

func (o *stubOutbound) ObserveOutbound(status string, human bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.n++
}

func (o *stubOutbound) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.n
}

type scriptedQueue struct {
	ch       chan queueMessage
	deleted  int
	delMutex sync.Mutex
}

func newScriptedQueue() *scriptedQueue {
	return &scriptedQueue{ch: make(chan queueMessage, 10)}
}

func (s *scriptedQueue) enqueue(msg queueMessage) {
	s.ch <- msg
}

func (s *scriptedQueue) Send(ctx context.Context, body, groupID string) error {
	return nil
}

func (s *scriptedQueue) Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg := <-s.ch:
		return []queueMessage{msg}, nil
	}
}

func (s *scriptedQueue) Delete(ctx context.Context, receiptHandle string) error {
	s.delMutex.Lock()
	defer s.delMutex.Unlock()
	s.deleted++
	return nil
}

func (s *scriptedQueue) deletedCount() int {
	s.delMutex.Lock()
	defer s.delMutex.Unlock()
	return s.deleted
}

func waitFor(cond func() bool, timeout time.Duration, t *testing.T) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

type stubJobUpdater struct {
	completed []string
	failed    []string
	mu        sync.Mutex
}

func (s *stubJobUpdater) MarkCompleted(ctx context.Context, jobID string, res *TurnResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, jobID)
	return nil
}

func (s *stubJobUpdater) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, jobID)
	return nil
}

func (s *stubJobUpdater) completedJobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.completed...)
}

func (s *stubJobUpdater) failureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.failed)
}
