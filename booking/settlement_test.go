package booking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thebb/points-engine/booking"
)

func TestSettle_AggregatesPerClinicAndExcludesCancelled(t *testing.T) {
	// GIVEN: Two clinics with bookings in one month, one booking cancelled
	// WHEN: The month is settled
	// THEN: Totals cover only non-cancelled reservations, per clinic

	f := newFixture()
	f.seedClinic(t, "clinic_a", 100_000, "evt-a", 300_000)
	f.seedClinic(t, "clinic_b", 50_000, "evt-b", 150_000)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.engine.Book(ctx, bookingReq("evt-a", 300_000)); err != nil {
			t.Fatalf("book clinic_a: %v", err)
		}
	}
	if _, err := f.engine.Book(ctx, bookingReq("evt-b", 150_000)); err != nil {
		t.Fatalf("book clinic_b: %v", err)
	}
	doomed, err := f.engine.Book(ctx, bookingReq("evt-b", 150_000))
	if err != nil {
		t.Fatalf("book clinic_b: %v", err)
	}
	if _, err := f.engine.Cancel(ctx, doomed.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	now := time.Now().UTC()
	period := booking.PeriodKey(now.Year(), now.Month())

	summaries, err := f.engine.Settle(ctx, period)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	a := summaries["clinic_a"]
	if a.TotalSales != 600_000 || a.TotalCommission != 60_000 || a.ReservationCount != 2 {
		t.Errorf("clinic_a summary = %+v", a)
	}
	b := summaries["clinic_b"]
	if b.TotalSales != 150_000 || b.TotalCommission != 15_000 || b.ReservationCount != 1 {
		t.Errorf("clinic_b summary = %+v, cancelled reservation must be excluded", b)
	}
	if a.Period != period || b.Period != period {
		t.Errorf("expected period %s on all summaries", period)
	}
}

func TestSettle_Idempotent(t *testing.T) {
	// Settlement is a derived read: two runs with no intervening writes
	// yield identical results.

	f := newFixture()
	f.seedClinic(t, "clinic_a", 100_000, "evt-a", 200_000)
	ctx := context.Background()

	if _, err := f.engine.Book(ctx, bookingReq("evt-a", 200_000)); err != nil {
		t.Fatalf("book: %v", err)
	}

	first, err := f.engine.Settle(ctx, "")
	if err != nil {
		t.Fatalf("first settle: %v", err)
	}
	second, err := f.engine.Settle(ctx, "")
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("settlement changed between runs: %d vs %d clinics", len(first), len(second))
	}
	for clinic, s1 := range first {
		if second[clinic] != s1 {
			t.Errorf("clinic %s: %+v != %+v", clinic, s1, second[clinic])
		}
	}
}

func TestSettle_EmptyPeriodDefaultsToCurrentMonth(t *testing.T) {
	f := newFixture()
	f.seedClinic(t, "clinic_a", 100_000, "evt-a", 200_000)
	ctx := context.Background()

	if _, err := f.engine.Book(ctx, bookingReq("evt-a", 200_000)); err != nil {
		t.Fatalf("book: %v", err)
	}

	summaries, err := f.engine.Settle(ctx, "")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(summaries) != 1 {
		t.Errorf("expected current-month booking in default settlement, got %d clinics", len(summaries))
	}
}

func TestSettle_BadPeriod_ValidationError(t *testing.T) {
	f := newFixture()

	_, err := f.engine.Settle(context.Background(), "2026/08")
	var verr *booking.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}

func TestSettle_OtherMonthsExcluded(t *testing.T) {
	f := newFixture()
	f.seedClinic(t, "clinic_a", 100_000, "evt-a", 200_000)
	ctx := context.Background()

	if _, err := f.engine.Book(ctx, bookingReq("evt-a", 200_000)); err != nil {
		t.Fatalf("book: %v", err)
	}

	summaries, err := f.engine.Settle(ctx, "1999-01")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("expected empty settlement for a month with no bookings, got %d", len(summaries))
	}
}

func TestFinancials_LifetimeTotalsWithVerifiedBalance(t *testing.T) {
	f := newFixture()
	f.seedClinic(t, "clinic_a", 100_000, "evt-a", 200_000)
	ctx := context.Background()

	if _, err := f.engine.Book(ctx, bookingReq("evt-a", 200_000)); err != nil {
		t.Fatalf("book: %v", err)
	}
	doomed, err := f.engine.Book(ctx, bookingReq("evt-a", 200_000))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := f.engine.Cancel(ctx, doomed.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	fin, err := f.engine.Financials(ctx, "clinic_a")
	if err != nil {
		t.Fatalf("financials: %v", err)
	}
	if fin.TotalSales != 200_000 || fin.TotalCommission != 20_000 || fin.TotalCount != 1 {
		t.Errorf("financials = %+v, cancelled booking must be excluded", fin)
	}
	// 100,000 - 20,000 (kept) - 20,000 (cancelled) + 20,000 (refund)
	if fin.CurrentPoints != 80_000 {
		t.Errorf("expected current points 80000, got %d", fin.CurrentPoints)
	}
}

func TestFinancials_UnknownClinic_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.engine.Financials(context.Background(), "ghost")
	if !errors.Is(err, booking.ErrClinicNotFound) {
		t.Errorf("expected ErrClinicNotFound, got %v", err)
	}
}

func TestParsePeriod_RoundTrip(t *testing.T) {
	year, month, err := booking.ParsePeriod("2026-08")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if year != 2026 || month != time.August {
		t.Errorf("got %d-%d", year, month)
	}
	if key := booking.PeriodKey(year, month); key != "2026-08" {
		t.Errorf("round trip gave %s", key)
	}
}
