package flow

import (
	"context"
	"strings"

	"github.com/wolfman30/neumaticos-whatsapp/internal/appointments"
	"github.com/wolfman30/neumaticos-whatsapp/internal/assistant"
	"github.com/wolfman30/neumaticos-whatsapp/internal/stock"
	"github.com/wolfman30/neumaticos-whatsapp/internal/templates"
	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
)

// dispatch executes a classified intent.
func (e *Engine) dispatch(ctx context.Context, t *turn, intent assistant.Intent) {
	switch in := intent.(type) {
	case assistant.BookAppointment:
		e.mergeBooking(ctx, t, in)
	case assistant.ConfirmAppointment:
		e.confirmBooking(ctx, t, in)
	case assistant.CheckStock:
		e.checkStock(ctx, t, in)
	case assistant.CancelOperation:
		if _, booking := t.state.(whatsapp.AppointmentFlow); booking {
			t.enter(whatsapp.Idle{})
			t.reply(IntentCancel, templates.BookingCancelled())
			return
		}
		t.enter(whatsapp.Idle{})
		t.reply(IntentCancel, templates.OperationCancelled())
	case assistant.GoBack:
		e.undoLastField(ctx, t)
	case assistant.ShowHelp:
		t.reply(IntentHelp, templates.Help(in.Topic))
	case assistant.RequestHuman:
		t.result.Paused = true
		t.result.Alert = HandoffReason
		if reason := strings.TrimSpace(in.Reason); reason != "" {
			t.result.Alert += ": " + reason
		}
		t.reply(IntentHandoff, templates.Handoff())
	case assistant.Reply:
		text := assistant.CleanWhatsAppText(in.Text)
		if text == "" {
			text = templates.EmptyReply()
		}
		t.reply(IntentChat, text)
	default:
		t.reply(IntentFallback, templates.NotUnderstood())
	}
}

func (t *turn) currentDraft(e *Engine) (whatsapp.PendingAppointment, bool) {
	if flow, ok := t.state.(whatsapp.AppointmentFlow); ok {
		return flow.Draft.Clone(), true
	}
	return whatsapp.NewPendingAppointment(t.conv.Phone, e.now()), false
}

// mergeBooking folds the extracted details into the draft, keeping only values
// that resolve against the catalog and current availability, then asks for the
// first missing field.
func (e *Engine) mergeBooking(ctx context.Context, t *turn, args assistant.BookAppointment) {
	draft, _ := t.currentDraft(e)

	if args.Province != "" {
		if p, ok := provinceFromArg(args.Province); ok && p.ID != draft.Province {
			draft = clearFrom(draft, whatsapp.AptBranch)
			draft.Province = p.ID
		}
	}
	if args.BranchName != "" && draft.Province != "" {
		branches, err := e.appointments.BranchesForProvince(ctx, draft.Province)
		if err != nil {
			e.serviceFailure(t, err)
			return
		}
		if b, ok := appointments.ParseBranch(args.BranchName, branches); ok {
			draft.BranchID, draft.BranchName = b.ID, b.Name
		}
	}
	for _, id := range args.Services {
		if _, ok := appointments.CatalogByID(id); ok {
			draft.AddService(id)
		}
	}
	if args.PreferredDate != "" && draft.BranchID != "" && len(draft.SelectedServices) > 0 {
		if date, ok := appointments.ParseNaturalDate(args.PreferredDate, e.localNow()); ok {
			for _, d := range e.appointments.AvailableDates(ctx, draft.BranchID, draft.SelectedServices) {
				if d.Date == date {
					draft.PreferredDate = date
					break
				}
			}
		}
	}
	if args.PreferredTime != "" && draft.PreferredDate != "" {
		slots := e.appointments.AvailableSlots(ctx, draft.BranchID, draft.PreferredDate, draft.SelectedServices)
		if slot, ok := appointments.ParseTime(args.PreferredTime, slots); ok {
			draft.PreferredTime = slot
		}
	}
	if name := strings.TrimSpace(args.CustomerName); len([]rune(name)) >= minNameLength {
		draft.CustomerName = name
	}

	e.moveTo(ctx, t, firstMissingStep(draft), draft)
}

func provinceFromArg(v string) (appointments.Province, bool) {
	if p, ok := appointments.ProvinceByID(strings.ToLower(strings.TrimSpace(v))); ok {
		return p, true
	}
	return appointments.ParseProvince(v)
}

// firstMissingStep is the step that asks for the first empty draft field.
func firstMissingStep(d whatsapp.PendingAppointment) whatsapp.AppointmentStep {
	switch {
	case d.Province == "":
		return whatsapp.AptProvince
	case d.BranchID == "":
		return whatsapp.AptBranch
	case len(d.SelectedServices) == 0:
		return whatsapp.AptService
	case d.PreferredDate == "":
		return whatsapp.AptDate
	case d.PreferredTime == "":
		return whatsapp.AptTime
	case d.CustomerName == "":
		return whatsapp.AptContact
	default:
		return whatsapp.AptConfirm
	}
}

func (e *Engine) confirmBooking(ctx context.Context, t *turn, args assistant.ConfirmAppointment) {
	if !args.Confirmed {
		t.enter(whatsapp.Idle{})
		t.reply(IntentCancel, templates.AppointmentCancelled())
		return
	}
	draft, ok := t.currentDraft(e)
	if !ok {
		t.reply(IntentAppointment, templates.NoPendingAppointment())
		return
	}
	if step := firstMissingStep(draft); step != whatsapp.AptConfirm {
		e.moveTo(ctx, t, step, draft)
		return
	}
	e.book(ctx, t, draft)
}

// undoLastField clears the most recently filled field, in the order name, time,
// date, services, branch, province, and asks for it again.
func (e *Engine) undoLastField(ctx context.Context, t *turn) {
	draft, ok := t.currentDraft(e)
	if !ok {
		t.reply(IntentAppointment, templates.NothingToGoBack())
		return
	}
	switch {
	case draft.CustomerName != "":
		draft.CustomerName = ""
	case draft.PreferredTime != "":
		draft.PreferredTime = ""
	case draft.PreferredDate != "":
		draft.PreferredDate = ""
	case len(draft.SelectedServices) > 0:
		draft.SelectedServices = []string{}
	case draft.BranchID != "":
		draft.BranchID, draft.BranchName = "", ""
	case draft.Province != "":
		draft.Province = ""
	default:
		t.enter(whatsapp.Idle{})
		t.reply(IntentCancel, templates.BookingCancelled())
		return
	}
	e.moveTo(ctx, t, firstMissingStep(draft), draft)
}

// checkStock runs a classified stock question. A city in the arguments is
// resolved first so the search can skip the location question.
func (e *Engine) checkStock(ctx context.Context, t *turn, args assistant.CheckStock) {
	if !args.HasSize() {
		t.reply(IntentStock, templates.IncompleteSize())
		return
	}
	size, ok := stock.NormalizeSize(args.Width, args.Profile, args.Diameter)
	if !ok {
		t.reply(IntentStock, templates.IncompleteSize())
		return
	}
	if args.City != "" && (t.city == "" || t.branch == "") {
		res, found, err := e.location.Resolve(ctx, args.City)
		if err != nil {
			e.logger.Warn("flow: resolve city from classifier failed", "error", err)
		} else if found {
			t.city, t.branch = res.City, res.Branch.ID
		}
	}
	e.startStockSearch(ctx, t, size, t.in.Text)
}
