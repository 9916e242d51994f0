package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics counts reservation and finalize activity.
type CheckoutMetrics struct {
	holds     *prometheus.CounterVec
	conflicts prometheus.Counter
	releases  *prometheus.CounterVec
	finalized prometheus.Counter
	timeouts  prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	holds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_holds_total",
		Help: "Hold attempts by outcome.",
	}, []string{"outcome"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_hold_conflicts_total",
		Help: "Hold attempts lost to another shopper.",
	})
	releases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_releases_total",
		Help: "Released holds by trigger.",
	}, []string{"trigger"})
	finalized := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_finalized_total",
		Help: "Units finalized to sold.",
	})
	timeouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_inactivity_timeouts_total",
		Help: "Sessions evicted by the inactivity timer.",
	})
	reg.MustRegister(holds, conflicts, releases, finalized, timeouts)
	return &CheckoutMetrics{
		holds:     holds,
		conflicts: conflicts,
		releases:  releases,
		finalized: finalized,
		timeouts:  timeouts,
	}
}

// IncHold records one hold attempt with the given outcome.
func (c *CheckoutMetrics) IncHold(outcome string) {
	if c == nil || c.holds == nil {
		return
	}
	c.holds.WithLabelValues(outcome).Inc()
}

// IncConflict records a lost optimistic race.
func (c *CheckoutMetrics) IncConflict() {
	if c == nil || c.conflicts == nil {
		return
	}
	c.conflicts.Inc()
}

// IncReleases records released holds for the named trigger.
func (c *CheckoutMetrics) IncReleases(trigger string, n int) {
	if c == nil || c.releases == nil || n <= 0 {
		return
	}
	c.releases.WithLabelValues(trigger).Add(float64(n))
}

// AddFinalized records units marked sold.
func (c *CheckoutMetrics) AddFinalized(n int) {
	if c == nil || c.finalized == nil || n <= 0 {
		return
	}
	c.finalized.Add(float64(n))
}

// IncTimeout records an inactivity eviction.
func (c *CheckoutMetrics) IncTimeout() {
	if c == nil || c.timeouts == nil {
		return
	}
	c.timeouts.Inc()
}
