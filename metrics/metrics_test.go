package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder(t *testing.T) {
	rec := NewPrometheusRecorder().(*PrometheusRecorder)

	rec.IncCounter("request", map[string]string{"endpoint": "/payments/quotes"})
	rec.IncCounter("request", map[string]string{"endpoint": "/payments/quotes"})
	rec.ObserveLatency("request", 50*time.Millisecond, map[string]string{"endpoint": "/payments/quotes"})

	if got := testutil.ToFloat64(rec.counters.WithLabelValues("request", "/payments/quotes")); got != 2 {
		t.Errorf("counter = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(rec.histogram); got != 1 {
		t.Errorf("histogram series = %d, want 1", got)
	}
}
