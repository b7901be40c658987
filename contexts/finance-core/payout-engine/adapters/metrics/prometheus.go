package metrics

import (
	"errors"
	"sync"
	"time"

	domainerrors "clipay/contexts/finance-core/payout-engine/domain/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// PayoutMetrics implements ports.PayoutMetrics. No series carries a campaign id.
type PayoutMetrics struct {
	payouts       *prometheus.CounterVec
	distributed   prometheus.Counter
	commitLatency prometheus.Histogram
	commitErrors  *prometheus.CounterVec
	lastBulkRun   *prometheus.GaugeVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *PayoutMetrics
)

// Default registers the payout series on the global registry once.
func Default() *PayoutMetrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

func New(registerer prometheus.Registerer) *PayoutMetrics {
	m := &PayoutMetrics{
		payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_cycles_total",
			Help: "Payout cycles by outcome.",
		}, []string{"outcome"}),
		distributed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payout_distributed_amount_total",
			Help: "Sum of amounts credited by committed payouts.",
		}),
		commitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "payout_commit_duration_seconds",
			Help:    "Latency of atomic payout batch commits.",
			Buckets: prometheus.DefBuckets,
		}),
		commitErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_commit_errors_total",
			Help: "Failed payout commits by kind.",
		}, []string{"kind"}),
		lastBulkRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "payout_last_bulk_run_campaigns",
			Help: "Campaign counts of the most recent bulk payout run by outcome.",
		}, []string{"outcome"}),
	}
	registerer.MustRegister(m.payouts, m.distributed, m.commitLatency, m.commitErrors, m.lastBulkRun)
	return m
}

func (m *PayoutMetrics) ObservePayout(outcome string, distributed decimal.Decimal) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.payouts.WithLabelValues(outcome).Inc()
	if distributed.IsPositive() {
		m.distributed.Add(distributed.InexactFloat64())
	}
}

func (m *PayoutMetrics) ObserveCommit(duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.commitLatency.Observe(duration.Seconds())
	if err == nil {
		return
	}
	kind := "error"
	switch {
	case errors.Is(err, domainerrors.ErrConcurrentPayoutConflict):
		kind = "conflict"
	case errors.Is(err, domainerrors.ErrBudgetOverdraw):
		kind = "overdraw"
	}
	m.commitErrors.WithLabelValues(kind).Inc()
}

func (m *PayoutMetrics) ObserveBulkRun(paid int, skipped int, failed int) {
	if m == nil {
		return
	}
	m.lastBulkRun.WithLabelValues("paid").Set(float64(paid))
	m.lastBulkRun.WithLabelValues("skipped").Set(float64(skipped))
	m.lastBulkRun.WithLabelValues("failed").Set(float64(failed))
}
