/*
Package ledger provides the core points engine.

PURPOSE:
  This package contains the types and services for managing prepaid point
  balances. Clinics charge (top up) points through a simulated payment
  gateway and the platform deducts commission from those points whenever a
  booking is made. Balances are never assigned directly: every change goes
  through the balance Service, which records an immutable PointTransaction
  for each mutation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: a user or clinic identified by a stable username
  - PointTransaction: an immutable ledger entry recording a balance change
  - Notification: an outbox record describing a side effect (never delivered
    by this package; delivery is an external consumer's job)
  - AuditEntry: append-only record of who did what

DESIGN PRINCIPLES:
  1. Immutability: transactions are never modified, only compensated
  2. Single writer: only the balance Service touches Account.Points
  3. Auditability: balance == sum of transaction amounts, always
  4. Collision-free IDs: UUIDs, never timestamp-derived keys

SEE ALSO:
  - balance.go: credit/debit primitives and the balance invariant
  - store.go: persistence interfaces
  - outbox.go: notification and audit sinks
*/
package ledger

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ACCOUNTS - Users and clinics share the balance contract
// =============================================================================

// AccountRef is the stable, immutable username key of an account.
type AccountRef string

// AdminRef is the broadcast sentinel for administrator notifications.
const AdminRef AccountRef = "admin"

// BroadcastRef marks a notification readable by every admin-role reader.
const BroadcastRef AccountRef = "all"

type AccountKind string

const (
	KindUser   AccountKind = "user"
	KindClinic AccountKind = "clinic"
)

// ClinicStatus gates participation: only active clinics may be debited
// or credited through bookings.
type ClinicStatus string

const (
	ClinicPending  ClinicStatus = "pending"
	ClinicActive   ClinicStatus = "active"
	ClinicRejected ClinicStatus = "rejected"
)

// DefaultCommissionRate is applied to new clinics until an admin changes it.
const DefaultCommissionRate = 10

// Account holds a point balance. Points is maintained exclusively by the
// balance Service and must always equal the sum of the account's
// transaction amounts.
type Account struct {
	Ref     AccountRef
	Kind    AccountKind
	Name    string
	Contact string
	Email   string

	// Points is the non-negative prepaid balance. Never write directly.
	Points int64

	// Clinic-only fields. Zero values for users.
	CommissionRate int
	Status         ClinicStatus

	CreatedAt time.Time
}

// IsActiveClinic reports whether the account may participate in bookings.
func (a Account) IsActiveClinic() bool {
	return a.Kind == KindClinic && a.Status == ClinicActive
}

// =============================================================================
// POINT TRANSACTIONS - Immutable, append-only
// =============================================================================

type TxKind string

const (
	TxCharge     TxKind = "charge"               // top-up via (simulated) payment gateway
	TxCommission TxKind = "commission_deduction" // fee taken when a booking is confirmed
	TxRefund     TxKind = "refund"               // compensating credit (cancellation, failed write)
	TxAdjustment TxKind = "adjustment"           // manual admin correction
)

// PointTransaction is a single row in the append-only points ledger.
// Amount is signed: positive for credits, negative for debits.
type PointTransaction struct {
	ID          string
	Account     AccountRef
	Kind        TxKind
	Amount      int64
	Description string

	// Method records the charge channel for TxCharge entries (card, bank).
	Method string

	// ReferenceID links the transaction to the operation that caused it,
	// e.g. the reservation whose commission was deducted.
	ReferenceID string

	CreatedAt time.Time
}

// =============================================================================
// NOTIFICATION OUTBOX
// =============================================================================

// Channel identifies the delivery mechanism a downstream consumer would use.
// This package only records the intent; nothing is transmitted.
type Channel string

const (
	ChannelKakao  Channel = "kakao"
	ChannelSMS    Channel = "sms"
	ChannelPush   Channel = "push"
	ChannelSystem Channel = "system"
)

type Notification struct {
	ID        string
	Recipient AccountRef
	Channel   Channel
	Message   string
	IsRead    bool
	CreatedAt time.Time
}

// =============================================================================
// AUDIT LOG - Separate from the points ledger, tracks who did what when
// =============================================================================

type AuditEntry struct {
	ID        string
	Actor     string
	Action    string
	Target    string
	Details   string
	CreatedAt time.Time
}

// Audit actions recorded by the engine.
const (
	AuditSignup        = "SIGNUP"
	AuditClinicApplied = "CLINIC_APPLIED"
	AuditApproveClinic = "APPROVE_CLINIC"
	AuditCharge        = "CHARGE"
	AuditCommission    = "COMMISSION_DEDUCTED"
	AuditRefund        = "REFUND"
	AuditTogglePromo   = "TOGGLE_PROMOTION"
	AuditCancel        = "RESERVATION_CANCELLED"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// NewID returns a collision-free identifier. Timestamp-derived keys collide
// under concurrent writes, so every generated record ID is a UUID.
func NewID() string {
	return uuid.NewString()
}
