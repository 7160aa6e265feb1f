package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations must not block or propagate errors.
type Sink interface {
	// Sweeper metrics
	SweepCompleted(duration time.Duration, err error)
	SchedulesObserved(active, overdue, upcoming int)

	// HTTP metrics
	RequestCompleted(method, route string, status int, duration time.Duration)
}

// StatusClass constants for RequestCompleted.
const (
	StatusClass2xx   = "2xx"
	StatusClass3xx   = "3xx"
	StatusClass4xx   = "4xx"
	StatusClass5xx   = "5xx"
	StatusClassOther = "other"
)

// ClassifyStatus maps an HTTP status code to a status class label.
func ClassifyStatus(status int) string {
	switch {
	case status >= 200 && status < 300:
		return StatusClass2xx
	case status >= 300 && status < 400:
		return StatusClass3xx
	case status >= 400 && status < 500:
		return StatusClass4xx
	case status >= 500 && status < 600:
		return StatusClass5xx
	default:
		return StatusClassOther
	}
}
