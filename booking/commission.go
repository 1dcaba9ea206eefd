/*
commission.go - Commission fee calculation

PURPOSE:
  Pure fee arithmetic. The rate is read from the clinic account at call
  time, never cached, so administrative rate changes apply to future
  bookings only and never retroactively.

POLICY:
  commission = floor(totalPrice * rate / 100)

  Floor, not round: commission(99999, 10) == 9999. Arithmetic goes through
  decimal to keep the intermediate product exact; the result is an integer
  point amount.

  A deployment may swap the percentage for a flat fee per booking via
  Policy (UseFlatFee), which some partner contracts use instead of a
  revenue share.
*/
package booking

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Commission computes the platform fee for a booking price at an integer
// percent rate, floored to the integer currency unit.
func Commission(totalPrice int64, ratePercent int) int64 {
	if totalPrice <= 0 || ratePercent <= 0 {
		return 0
	}
	price := decimal.NewFromInt(totalPrice)
	rate := decimal.NewFromInt(int64(ratePercent))
	return price.Mul(rate).Div(hundred).Floor().IntPart()
}

// =============================================================================
// POLICY - Per-deployment fee configuration
// =============================================================================

// Policy selects how the platform fee is computed. The zero value means
// "percentage from the clinic's commission rate", which is the default.
type Policy struct {
	RatePercent int   `json:"rate_percent"`
	FlatFee     int64 `json:"flat_fee"`
	UseFlatFee  bool  `json:"use_flat_fee"`
}

// Fee computes the commission for a booking. clinicRate is the rate stored
// on the clinic account; a non-zero policy RatePercent overrides it.
func (p Policy) Fee(totalPrice int64, clinicRate int) int64 {
	if p.UseFlatFee {
		if p.FlatFee > totalPrice {
			return totalPrice // fee never exceeds the booking price
		}
		return p.FlatFee
	}
	rate := clinicRate
	if p.RatePercent > 0 {
		rate = p.RatePercent
	}
	return Commission(totalPrice, rate)
}

// ParsePolicy reads a policy from its JSON configuration.
func ParsePolicy(data []byte) (Policy, error) {
	var p Policy
	if err := json.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parse commission policy: %w", err)
	}
	if p.RatePercent < 0 || p.RatePercent > 100 {
		return Policy{}, fmt.Errorf("parse commission policy: rate %d out of range", p.RatePercent)
	}
	if p.FlatFee < 0 {
		return Policy{}, fmt.Errorf("parse commission policy: negative flat fee")
	}
	return p, nil
}
