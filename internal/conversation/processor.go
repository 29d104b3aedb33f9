package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/neumaticos-whatsapp/internal/flow"
	"github.com/wolfman30/neumaticos-whatsapp/internal/livefeed"
	"github.com/wolfman30/neumaticos-whatsapp/internal/notify"
	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

var conversationTracer = otel.Tracer("neumaticos.conversation")

// Turn outcomes reported to the TurnObserver.
const (
	OutcomeReplied = "replied"
	OutcomeHandoff = "handoff"
	OutcomePaused  = "paused"
	OutcomeFailed  = "failed"
)

// Engine runs one conversation turn in memory.
type Engine interface {
	Handle(ctx context.Context, conv *whatsapp.Conversation, in flow.Inbound) (flow.Result, error)
}

// AlertNotifier tells an operator about handoffs and web orders.
type AlertNotifier interface {
	Notify(ctx context.Context, a notify.Alert) error
}

// Broadcaster pushes events to admin viewers.
type Broadcaster interface {
	Broadcast(evt livefeed.Event)
}

// TurnObserver records turn metrics.
type TurnObserver interface {
	ObserveTurn(outcome, intent string, d time.Duration)
}

// TurnResult is what one processed inbound message produced.
type TurnResult struct {
	ConversationID string    `json:"conversation_id" dynamodbav:"conversationId"`
	Reply          string    `json:"reply,omitempty" dynamodbav:"reply,omitempty"`
	Intent         string    `json:"intent,omitempty" dynamodbav:"intent,omitempty"`
	State          string    `json:"state,omitempty" dynamodbav:"state,omitempty"`
	Paused         bool      `json:"paused" dynamodbav:"paused"`
	Skipped        bool      `json:"skipped,omitempty" dynamodbav:"skipped,omitempty"`
	Timestamp      time.Time `json:"timestamp" dynamodbav:"timestamp"`
}

// Processor loads a conversation, runs the engine and persists the outcome.
type Processor struct {
	repo     whatsapp.Repository
	engine   Engine
	locker   Locker
	notifier AlertNotifier
	feed     Broadcaster
	metrics  TurnObserver
	logger   *logging.Logger
	now      func() time.Time
	history  int
}

// ProcessorOption customizes a Processor.
type ProcessorOption func(*Processor)

// WithLocker serializes turns per conversation. Without it a NoopLocker is used.
func WithLocker(l Locker) ProcessorOption {
	return func(p *Processor) {
		if l != nil {
			p.locker = l
		}
	}
}

// WithHistoryLimit sets how many recent messages are handed to the engine.
func WithHistoryLimit(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.history = n
		}
	}
}

func WithNotifier(n AlertNotifier) ProcessorOption {
	return func(p *Processor) { p.notifier = n }
}

func WithBroadcaster(b Broadcaster) ProcessorOption {
	return func(p *Processor) { p.feed = b }
}

func WithTurnObserver(o TurnObserver) ProcessorOption {
	return func(p *Processor) { p.metrics = o }
}

// WithProcessorClock overrides the clock used for response times.
func WithProcessorClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProcessor wires a turn processor.
func NewProcessor(repo whatsapp.Repository, engine Engine, logger *logging.Logger, opts ...ProcessorOption) *Processor {
	if repo == nil {
		panic("conversation: repository cannot be nil")
	}
	if engine == nil {
		panic("conversation: engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	p := &Processor{
		repo:    repo,
		engine:  engine,
		locker:  NoopLocker{},
		logger:  logger,
		now:     time.Now,
		history: whatsapp.HistoryLimit,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one inbound message through the conversation.
func (p *Processor) Process(ctx context.Context, msg InboundMessage) (res *TurnResult, err error) {
	ctx, span := conversationTracer.Start(ctx, "conversation.process")
	defer span.End()
	start := p.now()

	outcome, intent := OutcomeFailed, ""
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if p.metrics != nil {
			p.metrics.ObserveTurn(outcome, intent, p.now().Sub(start))
		}
	}()

	if strings.TrimSpace(msg.From) == "" {
		return nil, errors.New("conversation: inbound sender is required")
	}

	conv, err := p.repo.GetOrCreate(ctx, msg.From, msg.ProfileName)
	if err != nil {
		return nil, fmt.Errorf("conversation: load conversation: %w", err)
	}
	span.SetAttributes(attribute.String("conversation_id", conv.ID))

	release, err := p.locker.Acquire(ctx, "turn:"+conv.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Reload under the lock to see the previous turn's write.
	conv, err = p.repo.FindByID(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("conversation: reload conversation: %w", err)
	}

	history, err := p.repo.RecentMessages(ctx, conv.ID, p.history)
	if err != nil {
		p.logger.Warn("conversation: history unavailable", "error", err, "conversation_id", conv.ID)
		history = nil
	}

	if _, err := p.repo.AppendMessage(ctx, whatsapp.NewMessage{
		ConversationID: conv.ID,
		Role:           whatsapp.RoleUser,
		Content:        msg.Body,
	}); err != nil {
		return nil, fmt.Errorf("conversation: record inbound: %w", err)
	}
	p.broadcast(livefeed.Event{
		Type:           livefeed.EventMessage,
		ConversationID: conv.ID,
		Phone:          conv.Phone,
		Role:           string(whatsapp.RoleUser),
		Content:        msg.Body,
	})

	if conv.Paused {
		outcome = OutcomePaused
		p.logger.Info("conversation: paused, bot not replying", "conversation_id", conv.ID, "phone", logging.MaskPhone(conv.Phone))
		return p.skipped(conv), nil
	}

	in := flow.Inbound{Text: msg.Body, History: history}
	conv, result, err := p.runTurn(ctx, conv, in)
	if err != nil {
		return nil, err
	}
	if result.Reply == "" {
		// Paused by an admin while the turn ran.
		outcome = OutcomePaused
		return p.skipped(conv), nil
	}

	if _, err := p.repo.AppendMessage(ctx, whatsapp.NewMessage{
		ConversationID: conv.ID,
		Role:           whatsapp.RoleAssistant,
		Content:        result.Reply,
		Intent:         result.Intent,
		ResponseTime:   p.now().Sub(start),
	}); err != nil {
		p.logger.Error("conversation: record reply failed", "error", err, "conversation_id", conv.ID)
	}
	p.broadcast(livefeed.Event{
		Type:           livefeed.EventMessage,
		ConversationID: conv.ID,
		Phone:          conv.Phone,
		Role:           string(whatsapp.RoleAssistant),
		Content:        result.Reply,
		Intent:         result.Intent,
	})

	outcome, intent = OutcomeReplied, result.Intent
	switch {
	case result.Paused:
		outcome = OutcomeHandoff
		p.broadcast(livefeed.Event{
			Type:           livefeed.EventPaused,
			ConversationID: conv.ID,
			Phone:          conv.Phone,
			Reason:         conv.PauseReason,
		})
		p.alert(ctx, conv, msg.Body, conv.PauseReason, true)
	case result.Alert != "":
		p.alert(ctx, conv, msg.Body, result.Alert, false)
	}

	state := whatsapp.StateIdle
	if conv.State != nil {
		state = conv.State.Name()
	}
	p.logger.Info("conversation: turn processed",
		"conversation_id", conv.ID,
		"state", state,
		"intent", result.Intent,
		"steps", result.Steps,
		"duration_ms", p.now().Sub(start).Milliseconds(),
	)

	return &TurnResult{
		ConversationID: conv.ID,
		Reply:          result.Reply,
		Intent:         result.Intent,
		State:          state,
		Paused:         conv.Paused,
		Timestamp:      p.now().UTC(),
	}, nil
}

// runTurn handles and saves the turn. A version conflict reloads the conversation
// and runs the turn once more on the fresh copy.
func (p *Processor) runTurn(ctx context.Context, conv *whatsapp.Conversation, in flow.Inbound) (*whatsapp.Conversation, flow.Result, error) {
	result, err := p.engine.Handle(ctx, conv, in)
	if err != nil {
		return conv, flow.Result{}, fmt.Errorf("conversation: handle turn: %w", err)
	}
	err = p.repo.Save(ctx, conv)
	if err == nil {
		return conv, result, nil
	}
	if !errors.Is(err, whatsapp.ErrVersionConflict) {
		return conv, flow.Result{}, fmt.Errorf("conversation: save: %w", err)
	}

	p.logger.Warn("conversation: version conflict, retrying turn", "conversation_id", conv.ID)
	fresh, err := p.repo.FindByID(ctx, conv.ID)
	if err != nil {
		return conv, flow.Result{}, fmt.Errorf("conversation: reload after conflict: %w", err)
	}
	if fresh.Paused {
		return fresh, flow.Result{}, nil
	}
	result, err = p.engine.Handle(ctx, fresh, in)
	if err != nil {
		return fresh, flow.Result{}, fmt.Errorf("conversation: handle turn: %w", err)
	}
	if err := p.repo.Save(ctx, fresh); err != nil {
		return fresh, flow.Result{}, fmt.Errorf("conversation: save after conflict: %w", err)
	}
	return fresh, result, nil
}

func (p *Processor) skipped(conv *whatsapp.Conversation) *TurnResult {
	state := whatsapp.StateIdle
	if conv.State != nil {
		state = conv.State.Name()
	}
	return &TurnResult{
		ConversationID: conv.ID,
		State:          state,
		Paused:         conv.Paused,
		Skipped:        true,
		Timestamp:      p.now().UTC(),
	}
}

func (p *Processor) alert(ctx context.Context, conv *whatsapp.Conversation, last, reason string, handoff bool) {
	if p.notifier == nil {
		return
	}
	err := p.notifier.Notify(ctx, notify.Alert{
		ConversationID: conv.ID,
		Phone:          conv.Phone,
		ContactName:    conv.ContactName,
		Reason:         reason,
		LastMessage:    last,
		Handoff:        handoff,
		At:             p.now(),
	})
	if err != nil {
		p.logger.Error("conversation: alert failed", "error", err, "conversation_id", conv.ID)
	}
}

func (p *Processor) broadcast(evt livefeed.Event) {
	if p.feed != nil {
		p.feed.Broadcast(evt)
	}
}
