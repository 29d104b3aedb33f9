package flow

import (
	"context"
	"sort"
	"strings"

	"github.com/wolfman30/neumaticos-whatsapp/internal/appointments"
	"github.com/wolfman30/neumaticos-whatsapp/internal/assistant"
	"github.com/wolfman30/neumaticos-whatsapp/internal/templates"
	"github.com/wolfman30/neumaticos-whatsapp/internal/textnorm"
	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
)

const minNameLength = 2

var helpWords = []string{"ayuda", "help", "comandos", "?"}

// startBooking opens the appointment flow with an empty draft.
func (e *Engine) startBooking(t *turn) {
	draft := whatsapp.NewPendingAppointment(t.conv.Phone, e.now())
	t.enter(whatsapp.AppointmentFlow{Step: whatsapp.AptProvince, Draft: draft})
	t.reply(IntentAppointment, templates.WelcomeAndProvinces(appointments.Provinces))
}

// handleAppointmentStep applies the universal commands, then the parser of the
// current step. Unparsed input falls back to the classifier when one is wired.
func (e *Engine) handleAppointmentStep(ctx context.Context, t *turn, flow whatsapp.AppointmentFlow) {
	text := t.in.Text
	switch {
	case appointments.IsCancel(text):
		t.enter(whatsapp.Idle{})
		t.reply(IntentCancel, templates.BookingCancelled())
		return
	case appointments.IsGoBack(text):
		e.stepBack(ctx, t, flow)
		return
	case matchesAnyFolded(text, helpWords):
		t.reply(IntentAppointment, templates.BookingHelp())
		return
	}

	if e.advance(ctx, t, flow) {
		return
	}
	if e.classifier != nil && e.assistStep(ctx, t) {
		return
	}
	e.reprompt(ctx, t, flow)
}

// advance parses text for the current step. It reports false when the input
// did not resolve, leaving the turn untouched.
func (e *Engine) advance(ctx context.Context, t *turn, flow whatsapp.AppointmentFlow) bool {
	draft := flow.Draft.Clone()
	text := t.in.Text

	switch flow.Step {
	case whatsapp.AptProvince:
		province, ok := appointments.ParseProvince(text)
		if !ok {
			return false
		}
		draft.Province = province.ID
		e.moveTo(ctx, t, whatsapp.AptBranch, draft)
		return true

	case whatsapp.AptBranch:
		branches, err := e.appointments.BranchesForProvince(ctx, draft.Province)
		if err != nil {
			e.serviceFailure(t, err)
			return true
		}
		branch, ok := appointments.ParseBranch(text, branches)
		if !ok {
			return false
		}
		draft.BranchID, draft.BranchName = branch.ID, branch.Name
		e.moveTo(ctx, t, whatsapp.AptService, draft)
		return true

	case whatsapp.AptService:
		sel := appointments.ParseServices(text, draft.SelectedServices)
		if sel.Complete {
			if len(draft.SelectedServices) == 0 {
				t.reply(IntentAppointment, templates.NoServicesSelected())
				return true
			}
			e.moveTo(ctx, t, whatsapp.AptDate, draft)
			return true
		}
		if len(sel.Added) == 0 {
			return false
		}
		draft.SelectedServices = sel.Services
		t.enter(whatsapp.AppointmentFlow{Step: whatsapp.AptService, Draft: draft})
		t.reply(IntentAppointment, templates.ServiceAdded(sel.Added, sel.Services))
		return true

	case whatsapp.AptDate:
		dates := e.appointments.AvailableDates(ctx, draft.BranchID, draft.SelectedServices)
		date, ok := appointments.ParseDate(text, dates)
		if !ok {
			return false
		}
		draft.PreferredDate = date.Date
		e.moveTo(ctx, t, whatsapp.AptTime, draft)
		return true

	case whatsapp.AptTime:
		slots := e.appointments.AvailableSlots(ctx, draft.BranchID, draft.PreferredDate, draft.SelectedServices)
		slot, ok := appointments.ParseTime(text, slots)
		if !ok {
			if taken, isSlot := appointments.ParseTime(text, appointments.TimeSlots); isSlot && len(slots) > 0 {
				t.reply(IntentAppointment, templates.SlotUnavailable(taken, nearestSlots(taken, slots)))
				return true
			}
			return false
		}
		draft.PreferredTime = slot
		e.moveTo(ctx, t, whatsapp.AptContact, draft)
		return true

	case whatsapp.AptContact:
		name := strings.TrimSpace(text)
		if len([]rune(name)) < minNameLength {
			t.reply(IntentAppointment, templates.NameTooShort())
			return true
		}
		draft.CustomerName = name
		e.moveTo(ctx, t, whatsapp.AptConfirm, draft)
		return true

	case whatsapp.AptConfirm:
		if !appointments.IsConfirm(text) {
			return false
		}
		e.book(ctx, t, draft)
		return true
	}
	return false
}

// moveTo enters step with draft and renders its prompt.
func (e *Engine) moveTo(ctx context.Context, t *turn, step whatsapp.AppointmentStep, draft whatsapp.PendingAppointment) {
	prompt, err := e.promptFor(ctx, step, draft)
	if err != nil {
		e.serviceFailure(t, err)
		return
	}
	t.enter(whatsapp.AppointmentFlow{Step: step, Draft: draft})
	t.reply(IntentAppointment, prompt)
}

// promptFor renders the question asked on entering step. Dates and slots are
// read fresh on every call.
func (e *Engine) promptFor(ctx context.Context, step whatsapp.AppointmentStep, draft whatsapp.PendingAppointment) (string, error) {
	switch step {
	case whatsapp.AptProvince:
		return templates.WelcomeAndProvinces(appointments.Provinces), nil
	case whatsapp.AptBranch:
		branches, err := e.appointments.BranchesForProvince(ctx, draft.Province)
		if err != nil {
			return "", err
		}
		return templates.BranchSelection(provinceName(draft.Province), branches), nil
	case whatsapp.AptService:
		return templates.ServiceSelection(appointments.Catalog), nil
	case whatsapp.AptDate:
		return templates.DateSelection(e.appointments.AvailableDates(ctx, draft.BranchID, draft.SelectedServices)), nil
	case whatsapp.AptTime:
		slots := e.appointments.AvailableSlots(ctx, draft.BranchID, draft.PreferredDate, draft.SelectedServices)
		return templates.TimeSelection(appointments.DayLabel(draft.PreferredDate), slots), nil
	case whatsapp.AptContact:
		return templates.ContactPrompt(), nil
	default:
		return templates.ConfirmationSummary(draft), nil
	}
}

// reprompt answers input the current step could not parse.
func (e *Engine) reprompt(ctx context.Context, t *turn, flow whatsapp.AppointmentFlow) {
	draft := flow.Draft
	switch flow.Step {
	case whatsapp.AptProvince:
		t.reply(IntentAppointment, templates.ProvinceNotRecognized(appointments.Provinces))
	case whatsapp.AptBranch:
		branches, err := e.appointments.BranchesForProvince(ctx, draft.Province)
		if err != nil {
			e.serviceFailure(t, err)
			return
		}
		t.reply(IntentAppointment, templates.BranchNotRecognized(branches))
	case whatsapp.AptService:
		t.reply(IntentAppointment, templates.ServiceNotRecognized(appointments.Catalog))
	case whatsapp.AptDate:
		t.reply(IntentAppointment, templates.DateNotRecognized(e.appointments.AvailableDates(ctx, draft.BranchID, draft.SelectedServices)))
	case whatsapp.AptTime:
		t.reply(IntentAppointment, templates.TimeNotRecognized(e.appointments.AvailableSlots(ctx, draft.BranchID, draft.PreferredDate, draft.SelectedServices)))
	case whatsapp.AptContact:
		t.reply(IntentAppointment, templates.NameTooShort())
	default:
		t.reply(IntentAppointment, templates.ConfirmationSummary(draft))
	}
}

// stepBack returns to the previous step and clears only what that step re-asks.
// Going back from the first step leaves the flow.
func (e *Engine) stepBack(ctx context.Context, t *turn, flow whatsapp.AppointmentFlow) {
	prev, ok := flow.Step.Prev()
	if !ok {
		t.enter(whatsapp.Idle{})
		t.reply(IntentCancel, templates.BookingCancelled())
		return
	}
	e.moveTo(ctx, t, prev, reopen(flow.Draft.Clone(), prev))
}

// reopen clears the draft for a return to step. The province step starts over;
// the service step keeps the picked services and the contact step keeps the name.
func reopen(d whatsapp.PendingAppointment, step whatsapp.AppointmentStep) whatsapp.PendingAppointment {
	switch step {
	case whatsapp.AptProvince:
		return whatsapp.PendingAppointment{
			SelectedServices: []string{},
			CustomerPhone:    d.CustomerPhone,
			StartedAt:        d.StartedAt,
		}
	case whatsapp.AptBranch:
		d.BranchID, d.BranchName = "", ""
		d.SelectedServices = []string{}
	case whatsapp.AptService:
		d.PreferredDate = ""
	case whatsapp.AptDate:
		d.PreferredTime = ""
	case whatsapp.AptTime:
		d.CustomerName = ""
	}
	return d
}

// clearFrom drops the answers of step and every later step.
func clearFrom(d whatsapp.PendingAppointment, step whatsapp.AppointmentStep) whatsapp.PendingAppointment {
	switch step {
	case whatsapp.AptProvince:
		d.Province = ""
		fallthrough
	case whatsapp.AptBranch:
		d.BranchID, d.BranchName = "", ""
		fallthrough
	case whatsapp.AptService:
		d.SelectedServices = []string{}
		fallthrough
	case whatsapp.AptDate:
		d.PreferredDate = ""
		fallthrough
	case whatsapp.AptTime:
		d.PreferredTime = ""
		fallthrough
	case whatsapp.AptContact:
		d.CustomerName = ""
	}
	return d
}

// book writes the durable appointment. On failure the draft stays at apt_confirm.
func (e *Engine) book(ctx context.Context, t *turn, draft whatsapp.PendingAppointment) {
	res, err := e.appointments.CreateAppointment(ctx, draft)
	if err != nil {
		e.logger.Error("flow: create appointment failed", "branch_id", draft.BranchID, "date", draft.PreferredDate, "error", err)
		t.enter(whatsapp.AppointmentFlow{Step: whatsapp.AptConfirm, Draft: draft})
		t.reply(IntentAppointment, templates.AppointmentError(appointments.BookingErrorMessage(err)))
		return
	}
	t.enter(whatsapp.Idle{})
	t.result.Alert = "Turno reservado " + res.AppointmentID
	t.reply(IntentAppointment, templates.AppointmentSuccess(draft.BranchName, draft.PreferredDate, draft.PreferredTime))
}

// assistStep asks the classifier about input a booking step could not parse.
// Only booking-related intents are taken; anything else falls back to the re-prompt.
func (e *Engine) assistStep(ctx context.Context, t *turn) bool {
	intent, err := e.classify(ctx, t)
	if err != nil {
		e.logger.Warn("flow: classifier failed during booking", "error", err)
		return false
	}
	switch intent.(type) {
	case assistant.BookAppointment, assistant.ConfirmAppointment, assistant.GoBack,
		assistant.CancelOperation, assistant.RequestHuman, assistant.ShowHelp:
		e.dispatch(ctx, t, intent)
		return true
	}
	return false
}

func (e *Engine) serviceFailure(t *turn, err error) {
	e.logger.Error("flow: appointment service failed", "state", t.state.Name(), "error", err)
	t.reply(IntentAppointment, templates.TechnicalError())
}

func provinceName(id string) string {
	if p, ok := appointments.ProvinceByID(id); ok {
		return p.Name
	}
	return id
}

// nearestSlots orders free slots by distance to the requested one.
func nearestSlots(requested string, slots []string) []string {
	want := minutesOf(requested)
	out := append([]string{}, slots...)
	sort.SliceStable(out, func(i, j int) bool {
		return abs(minutesOf(out[i])-want) < abs(minutesOf(out[j])-want)
	})
	return out
}

func minutesOf(hhmm string) int {
	if len(hhmm) != 5 {
		return 0
	}
	h, _ := textnorm.LeadingInt(hhmm[:2])
	m, _ := textnorm.LeadingInt(hhmm[3:])
	return h*60 + m
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func matchesAnyFolded(text string, words []string) bool {
	folded := textnorm.Fold(text)
	for _, w := range words {
		if folded == w {
			return true
		}
	}
	return false
}
