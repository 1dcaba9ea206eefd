/*
metrics.go - Prometheus counters for the booking engine

Exposed at /metrics via promhttp. Counters only; balances and settlement
figures are derived from the ledger, not from metrics.
*/
package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	BookingsConfirmed   prometheus.Counter
	BookingsRejected    *prometheus.CounterVec
	PointsCharged       prometheus.Counter
	CommissionCollected prometheus.Counter
}

// NewMetrics registers the engine counters on the given registerer.
// Pass prometheus.DefaultRegisterer in production.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BookingsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookings_confirmed_total",
			Help: "Reservations confirmed with commission collected.",
		}),
		BookingsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookings_rejected_total",
			Help: "Booking attempts rejected, by reason.",
		}, []string{"reason"}),
		PointsCharged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "points_charged_total",
			Help: "Points credited through the simulated payment gateway.",
		}),
		CommissionCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "commission_collected_total",
			Help: "Commission points collected from clinics.",
		}),
	}
	reg.MustRegister(m.BookingsConfirmed, m.BookingsRejected, m.PointsCharged, m.CommissionCollected)
	return m
}
