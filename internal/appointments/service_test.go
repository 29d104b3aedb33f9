package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
)

func testBranches() []Branch {
	return []Branch{
		{ID: "b-cat", Name: "Catamarca Centro", Address: "Av. Belgrano 120", Province: "Catamarca"},
		{ID: "b-sgo", Name: "Santiago Centro", Address: "Libertad 300", Province: "Santiago del Estero"},
		{ID: "b-tuc", Name: "Tucumán Centro", Address: "Mate de Luna 900", Province: "Tucumán"},
	}
}

func newTestService(store Store) *Service {
	monday := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	return NewService(store, time.UTC, nil).WithClock(func() time.Time { return monday })
}

func TestBranchesForProvince(t *testing.T) {
	svc := newTestService(NewMemoryStore(testBranches()...))

	branches, err := svc.BranchesForProvince(context.Background(), "tucuman")
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, "b-tuc", branches[0].ID)

	branches, err = svc.BranchesForProvince(context.Background(), "santiago")
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, "b-sgo", branches[0].ID)
}

func TestBranchesForProvinceStoreError(t *testing.T) {
	store := NewMemoryStore(testBranches()...)
	store.FailReads = true
	svc := newTestService(store)

	_, err := svc.BranchesForProvince(context.Background(), "catamarca")
	require.Error(t, err)
}

func TestAvailableSlotsExcludesFullSlots(t *testing.T) {
	store := NewMemoryStore(testBranches()...)
	ctx := context.Background()
	for i := 0; i < MaxPerSlot; i++ {
		_, err := store.Insert(ctx, Appointment{BranchID: "b-cat", Date: "2026-03-03", Time: "09:00"}, MaxPerSlot)
		require.NoError(t, err)
	}
	svc := newTestService(store)

	slots := svc.AvailableSlots(ctx, "b-cat", "2026-03-03", []string{"alignment"})
	assert.NotContains(t, slots, "09:00")
	assert.Equal(t, "09:30", slots[0])
}

func TestAvailableSlotsFallsBackWhenStoreFails(t *testing.T) {
	store := NewMemoryStore(testBranches()...)
	store.FailReads = true
	svc := newTestService(store)

	slots := svc.AvailableSlots(context.Background(), "b-cat", "2026-03-03", nil)
	assert.Equal(t, TimeSlots, slots)
}

func TestAvailableDatesDropsFullyBookedDays(t *testing.T) {
	store := NewMemoryStore(testBranches()...)
	ctx := context.Background()
	for _, slot := range TimeSlots {
		for i := 0; i < MaxPerSlot; i++ {
			_, err := store.Insert(ctx, Appointment{BranchID: "b-cat", Date: "2026-03-03", Time: slot}, MaxPerSlot)
			require.NoError(t, err)
		}
	}
	svc := newTestService(store)

	dates := svc.AvailableDates(ctx, "b-cat", []string{"inspection"})
	for _, d := range dates {
		assert.NotEqual(t, "2026-03-03", d.Date)
	}
	assert.Equal(t, "2026-03-02", dates[0].Date)
}

func completeDraft() whatsapp.PendingAppointment {
	d := whatsapp.NewPendingAppointment("5493834000000", time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))
	d.Province = "catamarca"
	d.BranchID = "b-cat"
	d.BranchName = "Catamarca Centro"
	d.AddService("alignment")
	d.AddService("balancing")
	d.PreferredDate = "2026-03-03"
	d.PreferredTime = "10:00"
	d.CustomerName = "Juan Pérez"
	return d
}

func TestCreateAppointment(t *testing.T) {
	store := NewMemoryStore(testBranches()...)
	svc := newTestService(store)

	res, err := svc.CreateAppointment(context.Background(), completeDraft())
	require.NoError(t, err)
	assert.NotEmpty(t, res.AppointmentID)
	assert.Equal(t, 60000, res.TotalPrice)

	saved := store.Appointments()
	require.Len(t, saved, 1)
	assert.Equal(t, "Reservado via WhatsApp", saved[0].Notes)
	assert.Equal(t, []string{"alignment", "balancing"}, saved[0].ServiceIDs)
}

func TestCreateAppointmentValidation(t *testing.T) {
	svc := newTestService(NewMemoryStore())

	draft := completeDraft()
	draft.CustomerName = ""
	_, err := svc.CreateAppointment(context.Background(), draft)
	assert.ErrorIs(t, err, ErrIncompleteDraft)

	draft = completeDraft()
	draft.SelectedServices = nil
	_, err = svc.CreateAppointment(context.Background(), draft)
	assert.ErrorIs(t, err, ErrNoServices)
}

func TestCreateAppointmentSlotTaken(t *testing.T) {
	store := NewMemoryStore(testBranches()...)
	svc := newTestService(store)
	ctx := context.Background()

	for i := 0; i < MaxPerSlot; i++ {
		_, err := svc.CreateAppointment(ctx, completeDraft())
		require.NoError(t, err)
	}
	_, err := svc.CreateAppointment(ctx, completeDraft())
	require.True(t, errors.Is(err, ErrSlotTaken))
	assert.Equal(t, "El horario ya no está disponible", BookingErrorMessage(err))
}
