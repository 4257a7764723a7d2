package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exports API client metrics via prometheus.
type PrometheusRecorder struct {
	counters  *prometheus.CounterVec
	histogram *prometheus.HistogramVec
}

// NewPrometheusRecorder registers and returns a prometheus-backed recorder.
func NewPrometheusRecorder() Recorder {
	counters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payments",
			Name:      "events_total",
			Help:      "payments API event counters",
		},
		[]string{"type", "endpoint"},
	)

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "payments",
			Name:      "latency_seconds",
			Help:      "payments API operation latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "endpoint"},
	)

	prometheus.MustRegister(counters, histogram)

	return &PrometheusRecorder{
		counters:  counters,
		histogram: histogram,
	}
}

func (p *PrometheusRecorder) IncCounter(name string, labels map[string]string) {
	p.counters.With(prometheus.Labels{
		"type":     name,
		"endpoint": labels["endpoint"],
	}).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	p.histogram.With(prometheus.Labels{
		"operation": name,
		"endpoint":  labels["endpoint"],
	}).Observe(d.Seconds())
}
