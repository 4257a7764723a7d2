package metrics

import "time"

// Recorder receives operational metrics from the API client.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, d time.Duration, labels map[string]string)
}

// NoopRecorder drops all metrics. It is the default when none is wired.
type NoopRecorder struct{}

func (NoopRecorder) IncCounter(string, map[string]string)                     {}
func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}
