/*
admin.go - Clinic lifecycle and promotion operations

PURPOSE:
  Administrative flows around the booking engine: clinic applications,
  approval decisions, event promotion toggling. Every state change lands
  in the audit log, and the affected party gets an outbox notification.

LIFECYCLE:
  apply -> pending -> {active, rejected}. Only active clinics participate
  in bookings; the engine enforces this in Book, not at login time.
*/
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/thebb/points-engine/ledger"
)

// =============================================================================
// CLINIC APPLICATIONS
// =============================================================================

// ApplyClinic registers a pending clinic account with zero points and the
// default commission rate, and alerts the administrator.
func (e *Engine) ApplyClinic(ctx context.Context, app Application) (*ledger.Account, error) {
	if app.HospitalName == "" {
		return nil, &ValidationError{Field: "hospital_name", Reason: "required"}
	}

	username := app.Username
	if username == "" {
		username = "clinic_" + ledger.NewID()[:8]
	}

	acct, err := e.Points.CreateAccount(ctx, ledger.Account{
		Ref:            ledger.AccountRef(username),
		Kind:           ledger.KindClinic,
		Name:           app.HospitalName,
		Contact:        app.Contact,
		Email:          app.Email,
		CommissionRate: ledger.DefaultCommissionRate,
		Status:         ledger.ClinicPending,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if err := e.Outbox.Notify(ctx, ledger.AdminRef, ledger.ChannelSystem,
		fmt.Sprintf("New clinic application: %s", app.HospitalName)); err != nil {
		return nil, err
	}
	if err := e.Outbox.Audit(ctx, username, ledger.AuditClinicApplied, "clinic",
		fmt.Sprintf("representative: %s", app.Representative)); err != nil {
		return nil, err
	}
	return acct, nil
}

// =============================================================================
// APPROVAL
// =============================================================================

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Approve applies an admin decision to a pending clinic and notifies it.
func (e *Engine) Approve(ctx context.Context, clinic ledger.AccountRef, decision Decision) (ledger.ClinicStatus, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return "", &ValidationError{Field: "decision", Reason: "must be approve or reject"}
	}

	acct, err := e.Points.Account(ctx, clinic)
	if err != nil {
		return "", err
	}
	if acct == nil {
		return "", ledger.ErrAccountNotFound
	}

	status := ledger.ClinicRejected
	msg := "Your application was declined. Please contact support."
	if decision == DecisionApprove {
		status = ledger.ClinicActive
		msg = "Your application was approved. You can now receive bookings."
	}

	acct.Status = status
	if err := e.Points.UpdateAccount(ctx, *acct); err != nil {
		return "", err
	}

	if err := e.Outbox.Notify(ctx, clinic, ledger.ChannelSMS, msg); err != nil {
		return "", err
	}
	if err := e.Outbox.Audit(ctx, string(ledger.AdminRef), ledger.AuditApproveClinic,
		string(clinic), fmt.Sprintf("decision: %s", decision)); err != nil {
		return "", err
	}
	return status, nil
}

// PendingClinics lists clinics awaiting an approval decision.
func (e *Engine) PendingClinics(ctx context.Context) ([]ledger.Account, error) {
	clinics, err := e.Points.ListClinics(ctx)
	if err != nil {
		return nil, err
	}
	var pending []ledger.Account
	for _, c := range clinics {
		if c.Status == ledger.ClinicPending {
			pending = append(pending, c)
		}
	}
	return pending, nil
}

// SetCommissionRate changes a clinic's rate. Applies to future bookings
// only; existing reservations keep the commission they were charged.
func (e *Engine) SetCommissionRate(ctx context.Context, clinic ledger.AccountRef, rate int) error {
	if rate < 0 || rate > 100 {
		return &ValidationError{Field: "commission_rate", Reason: "must be between 0 and 100"}
	}
	acct, err := e.Points.Account(ctx, clinic)
	if err != nil {
		return err
	}
	if acct == nil {
		return ledger.ErrAccountNotFound
	}
	acct.CommissionRate = rate
	if err := e.Points.UpdateAccount(ctx, *acct); err != nil {
		return err
	}
	return e.Outbox.Audit(ctx, string(ledger.AdminRef), "SET_COMMISSION_RATE",
		string(clinic), fmt.Sprintf("rate: %d%%", rate))
}

// =============================================================================
// PROMOTIONS
// =============================================================================

// TogglePromotion flips an event's promoted flag and returns the new value.
func (e *Engine) TogglePromotion(ctx context.Context, id EventID) (bool, error) {
	ev, err := e.Store.GetEvent(ctx, id)
	if err != nil {
		return false, err
	}
	if ev == nil {
		return false, ErrEventNotFound
	}

	ev.Promoted = !ev.Promoted
	if err := e.Store.SaveEvent(ctx, *ev); err != nil {
		return false, err
	}
	if err := e.Outbox.Audit(ctx, string(ledger.AdminRef), ledger.AuditTogglePromo,
		string(id), fmt.Sprintf("promoted: %t", ev.Promoted)); err != nil {
		return false, err
	}
	return ev.Promoted, nil
}
