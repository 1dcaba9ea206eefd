// Package store provides an in-memory booking Store implementation.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/thebb/points-engine/booking"
	"github.com/thebb/points-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	events       map[booking.EventID]booking.Event
	reservations map[string]booking.Reservation
	order        []string // reservation ids in insertion order
}

func NewMemory() *Memory {
	return &Memory{
		events:       make(map[booking.EventID]booking.Event),
		reservations: make(map[string]booking.Reservation),
	}
}

var _ booking.Store = (*Memory)(nil)

func (m *Memory) SaveEvent(_ context.Context, ev booking.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.ID] = ev
	return nil
}

func (m *Memory) GetEvent(_ context.Context, id booking.EventID) (*booking.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, nil
	}
	cp := ev
	return &cp, nil
}

func (m *Memory) ListEvents(_ context.Context) ([]booking.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]booking.Event, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) EventsByClinic(_ context.Context, clinic ledger.AccountRef) ([]booking.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []booking.Event
	for _, ev := range m.events {
		if ev.Clinic == clinic {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) SaveReservation(_ context.Context, r booking.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.reservations[r.ID]; !exists {
		m.order = append(m.order, r.ID)
	}
	m.reservations[r.ID] = r
	return nil
}

func (m *Memory) GetReservation(_ context.Context, id string) (*booking.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, nil
	}
	cp := r
	return &cp, nil
}

func (m *Memory) ReservationsByClinic(_ context.Context, clinic ledger.AccountRef) ([]booking.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []booking.Reservation
	for i := len(m.order) - 1; i >= 0; i-- {
		r := m.reservations[m.order[i]]
		if r.Clinic == clinic {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) ListReservations(_ context.Context) ([]booking.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]booking.Reservation, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.reservations[id])
	}
	return out, nil
}

func (m *Memory) ReservationsInMonth(_ context.Context, year int, month time.Month) ([]booking.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []booking.Reservation
	for _, id := range m.order {
		r := m.reservations[id]
		if r.SubmittedAt.Year() == year && r.SubmittedAt.Month() == month {
			out = append(out, r)
		}
	}
	return out, nil
}
