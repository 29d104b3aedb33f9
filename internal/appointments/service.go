package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var appointmentsTracer = otel.Tracer("neumaticos.appointments")

var (
	// ErrIncompleteDraft means a required draft field is missing.
	ErrIncompleteDraft = errors.New("appointments: incomplete draft")
	// ErrNoServices means the draft has no selected services.
	ErrNoServices = errors.New("appointments: no services selected")
	// ErrSlotTaken means the slot filled up between listing and booking.
	ErrSlotTaken = errors.New("appointments: slot no longer available")
)

// Appointment is the durable booking written at confirmation.
type Appointment struct {
	BranchID      string
	BranchName    string
	CustomerName  string
	CustomerPhone string
	ServiceIDs    []string
	Date          string
	Time          string
	TotalPrice    int
	Notes         string
}

// Store is the persistence the appointment service needs.
type Store interface {
	ActiveBranches(ctx context.Context) ([]Branch, error)
	// BookedCounts returns the number of non-cancelled bookings per start time.
	BookedCounts(ctx context.Context, branchID, date string) (map[string]int, error)
	// Insert writes the appointment unless its slot already holds maxPerSlot bookings,
	// in which case it returns ErrSlotTaken.
	Insert(ctx context.Context, appt Appointment, maxPerSlot int) (string, error)
}

// BookingResult describes a confirmed appointment.
type BookingResult struct {
	AppointmentID string
	TotalPrice    int
}

// Service answers the appointment questions of the booking flow.
type Service struct {
	store  Store
	logger *logging.Logger
	loc    *time.Location
	now    func() time.Time
}

// NewService wires the appointment service.
func NewService(store Store, loc *time.Location, logger *logging.Logger) *Service {
	if store == nil {
		panic("appointments: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, logger: logger, loc: loc, now: time.Now}
}

// WithClock overrides the clock used for dates and slots.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Service) localNow() time.Time {
	return s.now().In(s.loc)
}

// ListProvinces returns the provinces in menu order.
func (s *Service) ListProvinces() []Province {
	return append([]Province{}, Provinces...)
}

// BranchesForProvince returns active branches whose province matches provinceID.
func (s *Service) BranchesForProvince(ctx context.Context, provinceID string) ([]Branch, error) {
	branches, err := s.store.ActiveBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: list branches: %w", err)
	}
	out := make([]Branch, 0, len(branches))
	for _, b := range branches {
		if b.InProvince(provinceID) {
			out = append(out, b)
		}
	}
	return out, nil
}

// ListServices returns the catalog in menu order.
func (s *Service) ListServices() []ServiceOption {
	return append([]ServiceOption{}, Catalog...)
}

// ServiceByID looks up a catalog entry.
func (s *Service) ServiceByID(id string) (ServiceOption, bool) {
	return CatalogByID(id)
}

// AvailableDates returns the next open days that still have at least one slot long
// enough for the selected services. A day whose bookings cannot be read is kept.
func (s *Service) AvailableDates(ctx context.Context, branchID string, serviceIDs []string) []AvailableDate {
	now := s.localNow()
	candidates := OpenDates(now)
	if branchID == "" {
		return candidates
	}
	duration := TotalDuration(serviceIDs)
	out := make([]AvailableDate, 0, len(candidates))
	for _, d := range candidates {
		booked, err := s.store.BookedCounts(ctx, branchID, d.Date)
		if err != nil {
			s.logger.Warn("appointments: booked counts failed, keeping date",
				"branch_id", branchID, "date", d.Date, "error", err)
			out = append(out, d)
			continue
		}
		if len(FilterSlots(d.Date, booked, duration, now)) > 0 {
			out = append(out, d)
		}
	}
	return out
}

// AvailableSlots lists the start times still open for the branch and date. It is
// read fresh on every call. When bookings cannot be read the unfiltered day is
// returned and the final check happens at booking time.
func (s *Service) AvailableSlots(ctx context.Context, branchID, date string, serviceIDs []string) []string {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.available_slots")
	defer span.End()
	span.SetAttributes(attribute.String("branch_id", branchID), attribute.String("date", date))

	now := s.localNow()
	booked, err := s.store.BookedCounts(ctx, branchID, date)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("appointments: booked counts failed", "branch_id", branchID, "date", date, "error", err)
		booked = nil
	}
	return FilterSlots(date, booked, TotalDuration(serviceIDs), now)
}

// CreateAppointment books the draft. The slot capacity is checked again inside the
// insert so a slot taken since it was offered yields ErrSlotTaken.
func (s *Service) CreateAppointment(ctx context.Context, draft whatsapp.PendingAppointment) (BookingResult, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.create")
	defer span.End()

	if draft.BranchID == "" || draft.PreferredDate == "" || draft.PreferredTime == "" || draft.CustomerName == "" {
		return BookingResult{}, ErrIncompleteDraft
	}
	if len(draft.SelectedServices) == 0 {
		return BookingResult{}, ErrNoServices
	}

	appt := Appointment{
		BranchID:      draft.BranchID,
		BranchName:    draft.BranchName,
		CustomerName:  strings.TrimSpace(draft.CustomerName),
		CustomerPhone: draft.CustomerPhone,
		ServiceIDs:    append([]string{}, draft.SelectedServices...),
		Date:          draft.PreferredDate,
		Time:          draft.PreferredTime,
		TotalPrice:    TotalPrice(draft.SelectedServices),
		Notes:         "Reservado via WhatsApp",
	}
	id, err := s.store.Insert(ctx, appt, MaxPerSlot)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrSlotTaken) {
			return BookingResult{}, err
		}
		return BookingResult{}, fmt.Errorf("appointments: insert: %w", err)
	}
	s.logger.Info("appointment booked",
		"appointment_id", id,
		"branch_id", appt.BranchID,
		"date", appt.Date,
		"time", appt.Time,
		"phone", logging.MaskPhone(appt.CustomerPhone),
	)
	return BookingResult{AppointmentID: id, TotalPrice: appt.TotalPrice}, nil
}

// BookingErrorMessage maps a CreateAppointment error to the text shown to the user.
func BookingErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrIncompleteDraft):
		return "Datos incompletos"
	case errors.Is(err, ErrNoServices):
		return "No se seleccionaron servicios"
	case errors.Is(err, ErrSlotTaken):
		return "El horario ya no está disponible"
	default:
		return "Error interno al crear el turno"
	}
}
