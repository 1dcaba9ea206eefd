/*
engine.go - The reservation engine: booking state machine and saga

PURPOSE:
  Orchestrates booking creation. A booking attempt resolves the event and
  its owning clinic, computes the commission, debits the clinic's points
  atomically, and persists the reservation only on success. There is no
  Pending state: prepaid model, accept only if the fee is collected now.

THE SAGA:
  Debit and reservation write are one logical transaction. If persisting
  the reservation fails after a successful debit, the engine compensates
  by refunding the commission before surfacing the error. Money is never
  taken without a reservation existing, and vice versa.

FAILURE MODES:
  - unknown event / clinic: typed not-found errors, nothing written
  - clinic not active: rejected before any ledger access
  - insufficient points: rejection plus a kakao alert so the clinic can
    recharge; the balance is untouched

SIDE EFFECTS:
  Every committed operation appends its notifications and audit entry
  before reporting success. An outbox append failure fails the operation:
  a committed financial event must never lose its trail.

SEE ALSO:
  - ledger/balance.go: the atomic debit primitive
  - admin.go: clinic lifecycle operations
  - settlement.go: monthly aggregation
*/
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/thebb/points-engine/ledger"
)

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Store  Store
	Points *ledger.Service
	Outbox *ledger.Outbox

	// Policy overrides the per-clinic percentage fee when configured.
	Policy Policy

	// resLocks serializes the cancel check-then-act per reservation, the
	// same way ledger.Service serializes debits per account. Without it
	// two concurrent cancels both observe confirmed and both refund.
	mu       sync.Mutex
	resLocks map[string]*sync.Mutex

	now func() time.Time
}

func NewEngine(store Store, points *ledger.Service, outbox *ledger.Outbox) *Engine {
	return &Engine{
		Store:    store,
		Points:   points,
		Outbox:   outbox,
		resLocks: make(map[string]*sync.Mutex),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) lockReservation(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.resLocks[id]
	if !ok {
		l = &sync.Mutex{}
		e.resLocks[id] = l
	}
	return l
}

// =============================================================================
// BOOKING
// =============================================================================

// BookingRequest carries a parsed, validated booking attempt from the web
// layer. CustomerRef is empty for guest bookings.
type BookingRequest struct {
	CustomerName string
	Contact      string
	CustomerRef  ledger.AccountRef
	EventID      EventID
	TotalPrice   int64
	Options      []string
}

func (r BookingRequest) validate() error {
	if r.CustomerName == "" {
		return &ValidationError{Field: "customer_name", Reason: "required"}
	}
	if r.EventID == "" {
		return &ValidationError{Field: "event_id", Reason: "required"}
	}
	if r.TotalPrice < 0 {
		return &ValidationError{Field: "total_price", Reason: "must not be negative"}
	}
	return nil
}

// Book attempts a reservation. On success the returned reservation is
// confirmed and references the commission transaction created with it.
func (e *Engine) Book(ctx context.Context, req BookingRequest) (*Reservation, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	ev, err := e.Store.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrEventNotFound
	}

	clinic, err := e.Points.Account(ctx, ev.Clinic)
	if err != nil {
		return nil, err
	}
	if clinic == nil {
		return nil, ErrClinicNotFound
	}
	if !clinic.IsActiveClinic() {
		return nil, ErrClinicNotActive
	}

	// Rate is read at call time: admin rate changes apply to future
	// bookings only, never retroactively.
	fee := e.Policy.Fee(req.TotalPrice, clinic.CommissionRate)

	resID := ledger.NewID()

	// A zero fee (rate 0, or a free event) still confirms. There is
	// nothing to collect, so no ledger entry is written and the
	// reservation carries an empty TransactionID.
	var txID string
	if fee > 0 {
		desc := fmt.Sprintf("commission - reservation by %s (%s)", req.CustomerName, ev.Title)
		tx, _, err := e.Points.Debit(ctx, ev.Clinic, fee, ledger.TxCommission, desc, resID)
		if err != nil {
			var short *ledger.InsufficientPointsError
			if errors.As(err, &short) {
				msg := fmt.Sprintf("[balance alert] not enough points to accept the reservation from %s: %d P short. Please recharge.",
					req.CustomerName, short.Shortfall)
				if nerr := e.Outbox.Notify(ctx, ev.Clinic, ledger.ChannelKakao, msg); nerr != nil {
					return nil, fmt.Errorf("record balance alert: %w", nerr)
				}
			}
			return nil, err
		}
		txID = tx.ID
	}

	res := Reservation{
		ID:            resID,
		CustomerName:  req.CustomerName,
		Contact:       req.Contact,
		CustomerRef:   req.CustomerRef,
		EventID:       ev.ID,
		Clinic:        ev.Clinic,
		Options:       req.Options,
		TotalPrice:    req.TotalPrice,
		Commission:    fee,
		TransactionID: txID,
		Status:        StatusConfirmed,
		SubmittedAt:   e.now(),
	}

	if err := e.Store.SaveReservation(ctx, res); err != nil {
		// Compensate: the debit must not stand without the reservation.
		if fee > 0 {
			if _, _, rerr := e.Points.Credit(ctx, ev.Clinic, fee, ledger.TxRefund,
				fmt.Sprintf("refund - reservation %s could not be persisted", resID), "", resID); rerr != nil {
				return nil, fmt.Errorf("persist reservation: %v (refund also failed: %w)", err, rerr)
			}
		}
		return nil, fmt.Errorf("persist reservation: %w", err)
	}

	// The booking is committed at this point. An outbox failure surfaces
	// as an error but the debit and reservation stand; the caller sees a
	// failure for a booking that exists.
	if err := e.recordBookingEffects(ctx, &res, clinic); err != nil {
		return nil, err
	}
	return &res, nil
}

func (e *Engine) recordBookingEffects(ctx context.Context, res *Reservation, clinic *ledger.Account) error {
	if err := e.Outbox.Notify(ctx, res.Clinic, ledger.ChannelPush,
		fmt.Sprintf("New reservation: %s (%s)", res.CustomerName, res.EventID)); err != nil {
		return err
	}
	if err := e.Outbox.Notify(ctx, ledger.AdminRef, ledger.ChannelSystem,
		fmt.Sprintf("Commission realized: %d P (clinic: %s)", res.Commission, clinic.Name)); err != nil {
		return err
	}
	return e.Outbox.Audit(ctx, string(res.Clinic), ledger.AuditCommission, res.ID,
		fmt.Sprintf("commission %d P on price %d", res.Commission, res.TotalPrice))
}

// =============================================================================
// CANCELLATION
// =============================================================================

// Cancel transitions a confirmed reservation to cancelled and refunds the
// full commission to the clinic in the same logical operation. The refund
// amount is the full commission: the platform collected the fee for a
// booking that no longer stands.
func (e *Engine) Cancel(ctx context.Context, reservationID string) (*Reservation, error) {
	l := e.lockReservation(reservationID)
	l.Lock()
	defer l.Unlock()

	res, err := e.Store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrReservationNotFound
	}
	if res.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	res.Status = StatusCancelled
	if err := e.Store.SaveReservation(ctx, *res); err != nil {
		return nil, err
	}

	if res.Commission > 0 {
		if _, _, err := e.Points.Credit(ctx, res.Clinic, res.Commission, ledger.TxRefund,
			fmt.Sprintf("refund - reservation %s cancelled", res.ID), "", res.ID); err != nil {
			// Roll the status back so a retry can refund; the reservation
			// must not read as cancelled while the commission is kept.
			res.Status = StatusConfirmed
			if serr := e.Store.SaveReservation(ctx, *res); serr != nil {
				return nil, fmt.Errorf("refund failed: %v (status rollback also failed: %w)", err, serr)
			}
			return nil, fmt.Errorf("refund cancelled reservation: %w", err)
		}
	}

	if err := e.Outbox.Audit(ctx, string(res.Clinic), ledger.AuditCancel, res.ID,
		fmt.Sprintf("commission %d P refunded", res.Commission)); err != nil {
		return nil, err
	}
	return res, nil
}

// =============================================================================
// CHARGING - Simulated payment-gateway top-up
// =============================================================================

// Charge credits purchased points onto an account. The payment itself is
// simulated; only the ledger effect and its notification are real.
func (e *Engine) Charge(ctx context.Context, ref ledger.AccountRef, amount int64, method string) (int64, error) {
	if method == "" {
		method = "card"
	}

	_, balance, err := e.Points.Credit(ctx, ref, amount, ledger.TxCharge,
		"point charge (payment gateway simulation)", method, "")
	if err != nil {
		return 0, err
	}

	if err := e.Outbox.Notify(ctx, ref, ledger.ChannelSMS,
		fmt.Sprintf("%d P charge completed.", amount)); err != nil {
		return 0, err
	}
	if err := e.Outbox.Audit(ctx, string(ref), ledger.AuditCharge, "points",
		fmt.Sprintf("%d P charged via %s", amount, method)); err != nil {
		return 0, err
	}
	return balance, nil
}
