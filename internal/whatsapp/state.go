package whatsapp

import (
	"errors"
	"fmt"
)

// ErrInvalidState is returned when a persisted state name and its payload disagree.
var ErrInvalidState = errors.New("whatsapp: invalid conversation state")

// StockStep is a position in the stock lookup flow.
type StockStep string

const (
	StockAwaitingLocation        StockStep = "awaiting_location"
	StockShowingResults          StockStep = "showing_results"
	StockAwaitingTransferConfirm StockStep = "awaiting_transfer_confirm"
)

// AppointmentStep is a position in the appointment booking flow.
type AppointmentStep string

const (
	AptProvince AppointmentStep = "apt_province"
	AptBranch   AppointmentStep = "apt_branch"
	AptService  AppointmentStep = "apt_service"
	AptDate     AppointmentStep = "apt_date"
	AptTime     AppointmentStep = "apt_time"
	AptContact  AppointmentStep = "apt_contact"
	AptConfirm  AppointmentStep = "apt_confirm"
)

// StateIdle is the persisted name of the resting state.
const StateIdle = "idle"

// AppointmentSteps lists the booking steps in their required order.
var AppointmentSteps = []AppointmentStep{AptProvince, AptBranch, AptService, AptDate, AptTime, AptContact, AptConfirm}

func (s AppointmentStep) index() int {
	for i, step := range AppointmentSteps {
		if step == s {
			return i
		}
	}
	return -1
}

// Next returns the step after s. ok is false at apt_confirm.
func (s AppointmentStep) Next() (AppointmentStep, bool) {
	i := s.index()
	if i < 0 || i == len(AppointmentSteps)-1 {
		return "", false
	}
	return AppointmentSteps[i+1], true
}

// Prev returns the step before s. ok is false at apt_province, meaning "back to idle".
func (s AppointmentStep) Prev() (AppointmentStep, bool) {
	i := s.index()
	if i <= 0 {
		return "", false
	}
	return AppointmentSteps[i-1], true
}

// ConversationState is a closed sum: Idle, StockFlow or AppointmentFlow.
// Each flow variant carries its own draft so only one payload can be live.
type ConversationState interface {
	// Name is the persisted state value.
	Name() string
	isConversationState()
}

// Idle is the resting state with no draft.
type Idle struct{}

// StockFlow is an in-progress stock lookup.
type StockFlow struct {
	Step   StockStep
	Search PendingTireSearch
}

// AppointmentFlow is an in-progress booking.
type AppointmentFlow struct {
	Step  AppointmentStep
	Draft PendingAppointment
}

func (Idle) Name() string              { return StateIdle }
func (s StockFlow) Name() string       { return string(s.Step) }
func (s AppointmentFlow) Name() string { return string(s.Step) }

func (Idle) isConversationState()            {}
func (StockFlow) isConversationState()       {}
func (AppointmentFlow) isConversationState() {}

// IsIdle reports whether s is nil or Idle.
func IsIdle(s ConversationState) bool {
	if s == nil {
		return true
	}
	_, ok := s.(Idle)
	return ok
}

// IsAppointmentStep reports whether name is one of the booking steps.
func IsAppointmentStep(name string) bool {
	return AppointmentStep(name).index() >= 0
}

func isStockStep(name string) bool {
	switch StockStep(name) {
	case StockAwaitingLocation, StockShowingResults, StockAwaitingTransferConfirm:
		return true
	}
	return false
}

// EncodeState splits a state into its persisted columns.
func EncodeState(s ConversationState) (name string, search *PendingTireSearch, draft *PendingAppointment) {
	switch st := s.(type) {
	case StockFlow:
		search := st.Search
		return st.Name(), &search, nil
	case AppointmentFlow:
		draft := st.Draft.Clone()
		return st.Name(), nil, &draft
	default:
		return StateIdle, nil, nil
	}
}

// DecodeState rebuilds a state from its persisted columns.
func DecodeState(name string, search *PendingTireSearch, draft *PendingAppointment) (ConversationState, error) {
	switch {
	case name == "" || name == StateIdle:
		return Idle{}, nil
	case isStockStep(name):
		if search == nil {
			return Idle{}, fmt.Errorf("%w: %s without pending tire search", ErrInvalidState, name)
		}
		return StockFlow{Step: StockStep(name), Search: *search}, nil
	case IsAppointmentStep(name):
		if draft == nil {
			return Idle{}, fmt.Errorf("%w: %s without pending appointment", ErrInvalidState, name)
		}
		d := draft.Clone()
		return AppointmentFlow{Step: AppointmentStep(name), Draft: d}, nil
	default:
		return Idle{}, fmt.Errorf("%w: unknown state %q", ErrInvalidState, name)
	}
}
