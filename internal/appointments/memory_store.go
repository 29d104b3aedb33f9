package appointments

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var errMemoryRead = errors.New("appointments: memory store read failure")

// MemoryStore keeps branches and appointments in memory for local runs and tests.
type MemoryStore struct {
	mu           sync.Mutex
	branches     []Branch
	appointments []Appointment
	// FailReads makes every read return an error.
	FailReads bool
}

// NewMemoryStore seeds the store with branches.
func NewMemoryStore(branches ...Branch) *MemoryStore {
	return &MemoryStore{branches: append([]Branch{}, branches...)}
}

func (m *MemoryStore) ActiveBranches(ctx context.Context) ([]Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads {
		return nil, errMemoryRead
	}
	return append([]Branch{}, m.branches...), nil
}

func (m *MemoryStore) BookedCounts(ctx context.Context, branchID, date string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads {
		return nil, errMemoryRead
	}
	counts := make(map[string]int)
	for _, a := range m.appointments {
		if a.BranchID == branchID && a.Date == date {
			counts[a.Time]++
		}
	}
	return counts, nil
}

func (m *MemoryStore) Insert(ctx context.Context, appt Appointment, maxPerSlot int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	taken := 0
	for _, a := range m.appointments {
		if a.BranchID == appt.BranchID && a.Date == appt.Date && a.Time == appt.Time {
			taken++
		}
	}
	if taken >= maxPerSlot {
		return "", ErrSlotTaken
	}
	m.appointments = append(m.appointments, appt)
	return fmt.Sprintf("apt-%d", len(m.appointments)), nil
}

// Appointments returns a copy of the stored appointments.
func (m *MemoryStore) Appointments() []Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Appointment{}, m.appointments...)
}
