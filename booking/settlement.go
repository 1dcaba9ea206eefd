/*
settlement.go - Monthly settlement aggregation

PURPOSE:
  Derives per-clinic monthly sales, commission, and reservation counts by
  folding the reservation history. Read-only and deterministic: calling it
  twice with no intervening writes yields identical results, and it never
  mutates stored state. Safe to run concurrently with bookings; it reads
  whatever consistent snapshot the store provides.
*/
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/thebb/points-engine/ledger"
)

// PeriodKey formats a year-month settlement period.
func PeriodKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// ParsePeriod parses a "YYYY-MM" period key.
func ParsePeriod(key string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return 0, 0, &ValidationError{Field: "period", Reason: "must be YYYY-MM"}
	}
	return t.Year(), t.Month(), nil
}

// Settle computes per-clinic settlement summaries for the period.
// Cancelled reservations are excluded; their commission was refunded.
// An empty period defaults to the current month.
func (e *Engine) Settle(ctx context.Context, period string) (map[ledger.AccountRef]SettlementSummary, error) {
	if period == "" {
		now := e.now()
		period = PeriodKey(now.Year(), now.Month())
	}
	year, month, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}

	reservations, err := e.Store.ReservationsInMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}

	out := make(map[ledger.AccountRef]SettlementSummary)
	for _, r := range reservations {
		if r.Status == StatusCancelled {
			continue
		}
		s := out[r.Clinic]
		s.Clinic = r.Clinic
		s.Period = period
		s.TotalSales += r.TotalPrice
		s.TotalCommission += r.Commission
		s.ReservationCount++
		out[r.Clinic] = s
	}
	return out, nil
}

// Financials returns a clinic's lifetime totals plus its current verified
// point balance. Used by the clinic dashboard.
type Financials struct {
	Clinic          ledger.AccountRef
	TotalSales      int64
	TotalCommission int64
	TotalCount      int
	CurrentPoints   int64
}

func (e *Engine) Financials(ctx context.Context, clinic ledger.AccountRef) (*Financials, error) {
	acct, err := e.Points.Account(ctx, clinic)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrClinicNotFound
	}

	balance, err := e.Points.BalanceOf(ctx, clinic)
	if err != nil {
		return nil, err
	}

	reservations, err := e.Store.ReservationsByClinic(ctx, clinic)
	if err != nil {
		return nil, err
	}

	f := &Financials{Clinic: clinic, CurrentPoints: balance}
	for _, r := range reservations {
		if r.Status == StatusCancelled {
			continue
		}
		f.TotalSales += r.TotalPrice
		f.TotalCommission += r.Commission
		f.TotalCount++
	}
	return f, nil
}

// PlatformFinancials aggregates sales and realized commission across every
// clinic, plus the registered clinic count. Used by the admin dashboard.
type PlatformFinancials struct {
	TotalSales        int64
	TotalCommission   int64
	TotalCount        int
	RegisteredClinics int
}

func (e *Engine) Platform(ctx context.Context) (*PlatformFinancials, error) {
	reservations, err := e.Store.ListReservations(ctx)
	if err != nil {
		return nil, err
	}
	clinics, err := e.Points.ListClinics(ctx)
	if err != nil {
		return nil, err
	}

	p := &PlatformFinancials{RegisteredClinics: len(clinics)}
	for _, r := range reservations {
		if r.Status == StatusCancelled {
			continue
		}
		p.TotalSales += r.TotalPrice
		p.TotalCommission += r.Commission
		p.TotalCount++
	}
	return p, nil
}
