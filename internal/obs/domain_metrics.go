package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CouponCreateTotal counts coupon creation attempts by outcome.
	CouponCreateTotal *prometheus.CounterVec
	// CouponSelectionTotal counts best-coupon evaluations by outcome
	// (selected or none).
	CouponSelectionTotal *prometheus.CounterVec
	// SelectionDiscount records effective discounts granted to winners, in
	// minor currency units.
	SelectionDiscount prometheus.Histogram
	// CouponsStored tracks the number of coupons currently held in memory.
	CouponsStored prometheus.Gauge
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CouponCreateTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_create_total",
			Help:      "Count of coupon creation attempts by outcome.",
		}, []string{"result"})
		CouponSelectionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_selection_total",
			Help:      "Count of best-coupon evaluations by outcome.",
		}, []string{"result"})
		SelectionDiscount = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "coupon_selection_discount",
			Help:      "Effective discount granted to winning coupons, in minor units.",
			Buckets:   []float64{100, 500, 1000, 2500, 5000, 10000, 25000, 50000, 100000},
		})
		CouponsStored = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coupons_stored",
			Help:      "Number of coupons currently held in the in-memory store.",
		})

		registerDomainCollector(reg, CouponCreateTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponCreateTotal = v
			}
		})
		registerDomainCollector(reg, CouponSelectionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponSelectionTotal = v
			}
		})
		registerDomainCollector(reg, SelectionDiscount, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				SelectionDiscount = v
			}
		})
		registerDomainCollector(reg, CouponsStored, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				CouponsStored = v
			}
		})
	})
}

func registerDomainCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
