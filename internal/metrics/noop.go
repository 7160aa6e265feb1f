package metrics

import "time"

// NoopSink is a no-op implementation of Sink, used when metrics are disabled.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) SweepCompleted(duration time.Duration, err error)                          {}
func (n *NoopSink) SchedulesObserved(active, overdue, upcoming int)                           {}
func (n *NoopSink) RequestCompleted(method, route string, status int, duration time.Duration) {}
