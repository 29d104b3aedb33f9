// Package flow is the conversation state machine. Engine.Handle runs one inbound
// message against an in-memory conversation, advancing the appointment or stock
// flow and producing the reply. Persistence is the caller's job.
package flow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/neumaticos-whatsapp/internal/appointments"
	"github.com/wolfman30/neumaticos-whatsapp/internal/assistant"
	"github.com/wolfman30/neumaticos-whatsapp/internal/equivalence"
	"github.com/wolfman30/neumaticos-whatsapp/internal/location"
	"github.com/wolfman30/neumaticos-whatsapp/internal/stock"
	"github.com/wolfman30/neumaticos-whatsapp/internal/templates"
	"github.com/wolfman30/neumaticos-whatsapp/internal/weborder"
	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var flowTracer = otel.Tracer("neumaticos.flow")

// Intent tags recorded on assistant messages.
const (
	IntentAppointment = "appointment"
	IntentStock       = "stock"
	IntentTransfer    = "transfer"
	IntentWebOrder    = "web_order"
	IntentHelp        = "help"
	IntentHandoff     = "handoff"
	IntentCancel      = "cancel"
	IntentChat        = "chat"
	IntentFallback    = "fallback"
)

// HandoffReason is recorded when the user asks for a person.
const HandoffReason = "Usuario solicitó hablar con un humano"

// AppointmentService is the booking side of the domain.
type AppointmentService interface {
	BranchesForProvince(ctx context.Context, provinceID string) ([]appointments.Branch, error)
	AvailableDates(ctx context.Context, branchID string, serviceIDs []string) []appointments.AvailableDate
	AvailableSlots(ctx context.Context, branchID, date string, serviceIDs []string) []string
	CreateAppointment(ctx context.Context, draft whatsapp.PendingAppointment) (appointments.BookingResult, error)
}

// StockService answers tire availability.
type StockService interface {
	SearchByTireSize(ctx context.Context, size stock.TireSize, branchCode string) ([]stock.ProductWithStock, error)
	BranchesWithStock(ctx context.Context, productIDs []int64, minQuantity int) ([]stock.BranchStock, error)
	OtherBranchesWithStock(ctx context.Context, productIDs []int64, exclude string) ([]stock.BranchStock, error)
}

// EquivalenceFinder finds alternative sizes on the same rim.
type EquivalenceFinder interface {
	FindEquivalents(ctx context.Context, size stock.TireSize, branchCode string, tolerancePercent float64) ([]equivalence.Equivalent, error)
}

// LocationService maps user text to branches.
type LocationService interface {
	Resolve(ctx context.Context, text string) (location.Resolution, bool, error)
	BranchNames() []string
}

// Deps are the collaborators of an Engine. Classifier is optional; without it the
// engine runs on keyword detection only.
type Deps struct {
	Appointments AppointmentService
	Stock        StockService
	Equivalence  EquivalenceFinder
	Location     LocationService
	Classifier   assistant.Classifier
	Toolset      assistant.Toolset
	Logger       *logging.Logger
	// TimeZone is the business time zone used for natural dates.
	TimeZone *time.Location
	// ClassifyTimeout bounds one classifier call. Zero means no extra bound.
	ClassifyTimeout time.Duration
}

// Inbound is one user message with the recent history, oldest first.
type Inbound struct {
	Text    string
	History []whatsapp.Message
}

// Result is the outcome of one turn.
type Result struct {
	Reply  string
	Intent string
	// Steps lists the state names entered during the turn, in order.
	Steps []string
	// Paused is set when the turn handed the conversation to a human.
	Paused bool
	// Alert, when set, is a short description an operator should be told about.
	Alert string
}

// Engine runs conversation turns.
type Engine struct {
	appointments    AppointmentService
	stock           StockService
	equivalence     EquivalenceFinder
	location        LocationService
	classifier      assistant.Classifier
	toolset         assistant.Toolset
	logger          *logging.Logger
	tz              *time.Location
	classifyTimeout time.Duration
	now             func() time.Time
}

// NewEngine wires an engine.
func NewEngine(deps Deps) *Engine {
	if deps.Appointments == nil {
		panic("flow: appointment service cannot be nil")
	}
	if deps.Stock == nil {
		panic("flow: stock service cannot be nil")
	}
	if deps.Equivalence == nil {
		panic("flow: equivalence finder cannot be nil")
	}
	if deps.Location == nil {
		panic("flow: location service cannot be nil")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.TimeZone == nil {
		deps.TimeZone = time.UTC
	}
	if len(deps.Toolset.Tools) == 0 && deps.Toolset.SystemPrompt == "" {
		deps.Toolset = assistant.DefaultToolset()
	}
	return &Engine{
		appointments:    deps.Appointments,
		stock:           deps.Stock,
		equivalence:     deps.Equivalence,
		location:        deps.Location,
		classifier:      deps.Classifier,
		toolset:         deps.Toolset,
		logger:          deps.Logger,
		tz:              deps.TimeZone,
		classifyTimeout: deps.ClassifyTimeout,
		now:             time.Now,
	}
}

// WithClock overrides the clock used for natural dates.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	if now != nil {
		e.now = now
	}
	return e
}

func (e *Engine) localNow() time.Time {
	return e.now().In(e.tz)
}

// turn is the mutable working copy of one Handle call.
type turn struct {
	conv   *whatsapp.Conversation
	in     Inbound
	state  whatsapp.ConversationState
	city   string
	branch string
	result Result
}

func (t *turn) enter(s whatsapp.ConversationState) {
	t.state = s
	t.result.Steps = append(t.result.Steps, s.Name())
}

func (t *turn) reply(intent, text string) {
	t.result.Intent = intent
	t.result.Reply = text
}

// Handle runs one turn. On success the new state, location memory and pause flags
// are written to conv. A paused conversation is left untouched with an empty reply.
func (e *Engine) Handle(ctx context.Context, conv *whatsapp.Conversation, in Inbound) (Result, error) {
	if conv == nil {
		return Result{}, errors.New("flow: conversation is required")
	}
	if conv.Paused {
		return Result{}, nil
	}
	ctx, span := flowTracer.Start(ctx, "flow.handle")
	defer span.End()

	state := conv.State
	if state == nil {
		state = whatsapp.Idle{}
	}
	span.SetAttributes(attribute.String("state", state.Name()))

	t := &turn{
		conv:   conv,
		in:     Inbound{Text: strings.TrimSpace(in.Text), History: in.History},
		state:  state,
		city:   conv.UserCity,
		branch: conv.PreferredBranchID,
	}

	switch st := state.(type) {
	case whatsapp.AppointmentFlow:
		e.handleAppointmentStep(ctx, t, st)
	case whatsapp.StockFlow:
		switch st.Step {
		case whatsapp.StockAwaitingLocation:
			e.handleAwaitingLocation(ctx, t, st.Search)
		case whatsapp.StockAwaitingTransferConfirm:
			e.handleTransferConfirm(t, st.Search)
		default:
			t.state = whatsapp.Idle{}
			e.handleIdle(ctx, t)
		}
	default:
		e.handleIdle(ctx, t)
	}

	if t.result.Reply == "" {
		t.result.Reply = templates.TechnicalError()
	}
	conv.State = t.state
	conv.UserCity = t.city
	conv.PreferredBranchID = t.branch
	if t.result.Paused {
		conv.Pause(whatsapp.PauseRequest{PausedBy: "system", Reason: HandoffReason}, e.now())
	}
	span.SetAttributes(attribute.String("next_state", t.state.Name()), attribute.String("intent", t.result.Intent))
	return t.result, nil
}

// handleIdle answers a message outside any flow: web orders first, then the
// classifier, then keyword detection.
func (e *Engine) handleIdle(ctx context.Context, t *turn) {
	if order, ok := weborder.Parse(t.in.Text); ok {
		e.handleWebOrder(t, order)
		return
	}
	if e.classifier != nil {
		intent, err := e.classify(ctx, t)
		switch {
		case err == nil:
			e.dispatch(ctx, t, intent)
			return
		case errors.Is(err, assistant.ErrUnknownTool):
			t.reply(IntentFallback, templates.NotUnderstood())
			return
		default:
			e.logger.Warn("flow: classifier failed, using keywords", "error", err)
		}
	}
	e.handleKeywords(ctx, t)
}

func (e *Engine) handleKeywords(ctx context.Context, t *turn) {
	if size, ok := stock.ParseTireSize(t.in.Text); ok {
		e.startStockSearch(ctx, t, size, t.in.Text)
		return
	}
	if appointments.DetectIntent(t.in.Text) {
		e.startBooking(t)
		return
	}
	t.reply(IntentHelp, templates.Help(templates.TopicGeneral))
}

func (e *Engine) classify(ctx context.Context, t *turn) (assistant.Intent, error) {
	if e.classifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.classifyTimeout)
		defer cancel()
	}
	view := *t.conv
	view.State = t.state
	view.UserCity = t.city
	return e.classifier.Classify(ctx, assistant.Request{
		System:  assistant.BuildSystemPrompt(e.toolset.SystemPrompt, &view),
		History: t.in.History,
		Message: t.in.Text,
		Tools:   e.toolset.Tools,
	})
}

func (e *Engine) handleWebOrder(t *turn, order weborder.Order) {
	t.result.Alert = "Pedido web recibido"
	switch {
	case order.BranchName != "":
		t.enter(whatsapp.Idle{})
		t.reply(IntentWebOrder, templates.WebOrderForBranch(order))
	case t.city != "" && t.branch != "":
		code, _ := location.BranchCodeFromCity(t.city)
		t.enter(whatsapp.Idle{})
		t.reply(IntentWebOrder, templates.WebOrderKnownCity(order, location.DisplayName(code)))
	default:
		// No size to search once the city is known; the location answer only confirms the branch.
		t.enter(whatsapp.StockFlow{Step: whatsapp.StockAwaitingLocation, Search: whatsapp.PendingTireSearch{OriginalMessage: t.in.Text}})
		t.reply(IntentWebOrder, templates.WebOrderAskCity(order))
	}
}
