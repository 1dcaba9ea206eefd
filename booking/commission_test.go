package booking_test

import (
	"testing"

	"github.com/thebb/points-engine/booking"
)

// =============================================================================
// COMMISSION ARITHMETIC TESTS
// =============================================================================

func TestCommission_FloorsNotRounds(t *testing.T) {
	cases := []struct {
		name  string
		price int64
		rate  int
		want  int64
	}{
		{"even division", 200_000, 10, 20_000},
		{"specimen from production data", 100_000, 10, 10_000},
		{"floors the fractional part", 99_999, 10, 9_999},
		{"small price floors to zero", 9, 10, 0},
		{"odd rate", 33_333, 7, 2_333},
		{"full rate", 50_000, 100, 50_000},
		{"one won price", 1, 10, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := booking.Commission(tc.price, tc.rate)
			if got != tc.want {
				t.Errorf("Commission(%d, %d) = %d, want %d", tc.price, tc.rate, got, tc.want)
			}
		})
	}
}

func TestCommission_NonPositiveInputs_Zero(t *testing.T) {
	if got := booking.Commission(0, 10); got != 0 {
		t.Errorf("zero price: got %d", got)
	}
	if got := booking.Commission(-100, 10); got != 0 {
		t.Errorf("negative price: got %d", got)
	}
	if got := booking.Commission(100_000, 0); got != 0 {
		t.Errorf("zero rate: got %d", got)
	}
}

// =============================================================================
// POLICY TESTS
// =============================================================================

func TestPolicy_ZeroValue_UsesClinicRate(t *testing.T) {
	var p booking.Policy
	if got := p.Fee(200_000, 10); got != 20_000 {
		t.Errorf("expected clinic rate to apply, got %d", got)
	}
}

func TestPolicy_RateOverride_WinsOverClinicRate(t *testing.T) {
	p := booking.Policy{RatePercent: 20}
	if got := p.Fee(100_000, 10); got != 20_000 {
		t.Errorf("expected override rate 20%%, got %d", got)
	}
}

func TestPolicy_FlatFee_CappedAtPrice(t *testing.T) {
	p := booking.Policy{UseFlatFee: true, FlatFee: 5_000}

	if got := p.Fee(100_000, 10); got != 5_000 {
		t.Errorf("expected flat fee 5000, got %d", got)
	}
	// Fee never exceeds what the booking is worth
	if got := p.Fee(3_000, 10); got != 3_000 {
		t.Errorf("expected fee capped at price 3000, got %d", got)
	}
}

func TestParsePolicy_RangeValidation(t *testing.T) {
	if _, err := booking.ParsePolicy([]byte(`{"rate_percent": 15}`)); err != nil {
		t.Errorf("valid policy rejected: %v", err)
	}
	if _, err := booking.ParsePolicy([]byte(`{"rate_percent": 101}`)); err == nil {
		t.Error("rate above 100 accepted")
	}
	if _, err := booking.ParsePolicy([]byte(`{"flat_fee": -1, "use_flat_fee": true}`)); err == nil {
		t.Error("negative flat fee accepted")
	}
	if _, err := booking.ParsePolicy([]byte(`not json`)); err == nil {
		t.Error("malformed JSON accepted")
	}
}
