/*
Package booking provides the reservation engine built on the points ledger.

PURPOSE:
  Orchestrates the booking flow of the platform: a customer applies for a
  promoted clinic event, the engine collects commission from the clinic's
  prepaid point balance, and the reservation exists only if the commission
  was collected. The package also derives monthly settlement figures from
  the reservation history and carries the clinic lifecycle operations
  (application, approval, promotion toggling).

KEY CONCEPTS IN THIS FILE (types.go):
  - Event: a bookable clinic promotion with a price
  - Reservation: the confirmed outcome of a booking attempt, carrying a
    back-reference to exactly one commission transaction
  - SettlementSummary: derived monthly sales/commission/count per clinic

STATE MACHINE:
  Requested -> {Confirmed, Rejected}. There is no Pending state: the
  platform is prepaid, so a booking is accepted only if commission can be
  collected immediately. A confirmed reservation is immutable except for
  the transition to Cancelled, which triggers a compensating refund.

SEE ALSO:
  - engine.go: the booking saga (debit, persist, compensate)
  - commission.go: fee policy
  - settlement.go: monthly aggregation
*/
package booking

import (
	"time"

	"github.com/thebb/points-engine/ledger"
)

// =============================================================================
// EVENTS - Bookable clinic promotions
// =============================================================================

type EventID string

type Event struct {
	ID       EventID
	Clinic   ledger.AccountRef
	Title    string
	Price    int64
	Promoted bool

	CreatedAt time.Time
}

// =============================================================================
// RESERVATIONS
// =============================================================================

type ReservationStatus string

const (
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
)

// Reservation is created only as the successful outcome of a booking
// attempt. TransactionID references the commission deduction written in
// the same logical operation: a confirmed reservation without that
// transaction (or vice versa) is an invariant violation.
type Reservation struct {
	ID            string
	CustomerName  string
	Contact       string
	CustomerRef   ledger.AccountRef // empty for guest bookings
	EventID       EventID
	Clinic        ledger.AccountRef
	Options       []string
	TotalPrice    int64
	Commission    int64
	TransactionID string
	Status        ReservationStatus
	SubmittedAt   time.Time
}

// =============================================================================
// SETTLEMENT - Derived, never stored
// =============================================================================

// SettlementSummary aggregates a clinic's month. Recomputed on demand from
// the reservation history; there is no mutable aggregate state to drift.
type SettlementSummary struct {
	Clinic           ledger.AccountRef
	Period           string // YYYY-MM
	TotalSales       int64
	TotalCommission  int64
	ReservationCount int
}

// =============================================================================
// CLINIC APPLICATION
// =============================================================================

// Application is a clinic's request to join the platform. Approval is an
// administrative decision; until then the account exists with status
// pending and cannot participate in bookings.
type Application struct {
	HospitalName   string
	Representative string
	Contact        string
	Email          string
	Username       string // optional; generated when empty
}
