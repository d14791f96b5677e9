package web

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK          = "ok"
	outcomeBadRequest  = "bad_request"
	outcomeNoItems     = "no_items"
	outcomeRateLimited = "rate_limited"
	outcomeServerError = "error"
)

type metrics struct {
	conversions *prometheus.CounterVec
	duration    prometheus.Histogram
	items       prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plano",
			Name:      "conversions_total",
			Help:      "Uploaded documents by conversion outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "plano",
			Name:      "conversion_duration_seconds",
			Help:      "Time spent handling a conversion request.",
			Buckets:   prometheus.DefBuckets,
		}),
		items: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "plano",
			Name:      "document_items",
			Help:      "Line items found per converted document.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}

	for _, c := range []prometheus.Collector{m.conversions, m.duration, m.items} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *metrics) observe(outcome string, start time.Time) {
	m.conversions.WithLabelValues(outcome).Inc()
	m.duration.Observe(time.Since(start).Seconds())
}
