/*
store.go - Persistence interface for events and reservations

Get methods return (nil, nil) when the record is absent. Reservations are
immutable once written except for the status transition to cancelled,
which goes through SaveReservation.
*/
package booking

import (
	"context"
	"time"

	"github.com/thebb/points-engine/ledger"
)

type Store interface {
	// SaveEvent inserts or updates an event record.
	SaveEvent(ctx context.Context, ev Event) error

	// GetEvent returns the event or (nil, nil) if absent.
	GetEvent(ctx context.Context, id EventID) (*Event, error)

	// ListEvents returns all events, oldest first.
	ListEvents(ctx context.Context) ([]Event, error)

	// EventsByClinic returns a clinic's events, oldest first.
	EventsByClinic(ctx context.Context, clinic ledger.AccountRef) ([]Event, error)

	// SaveReservation inserts a reservation or updates its status.
	SaveReservation(ctx context.Context, r Reservation) error

	// GetReservation returns the reservation or (nil, nil) if absent.
	GetReservation(ctx context.Context, id string) (*Reservation, error)

	// ReservationsByClinic returns a clinic's reservations, newest first.
	ReservationsByClinic(ctx context.Context, clinic ledger.AccountRef) ([]Reservation, error)

	// ListReservations returns every reservation, oldest first.
	ListReservations(ctx context.Context) ([]Reservation, error)

	// ReservationsInMonth returns reservations submitted in the calendar
	// month, any status, in submission order.
	ReservationsInMonth(ctx context.Context, year int, month time.Month) ([]Reservation, error)
}
