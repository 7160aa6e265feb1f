package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	logger *slog.Logger

	// Sweeper metrics
	sweepsTotal      prometheus.Counter
	sweepErrorsTotal prometheus.Counter
	sweepDuration    prometheus.Histogram
	activeSchedules  prometheus.Gauge
	overdueServices  prometheus.Gauge
	upcomingServices prometheus.Gauge

	// HTTP metrics
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewPrometheusSink creates a sink registered with reg. A nil logger uses slog.Default.
func NewPrometheusSink(reg prometheus.Registerer, logger *slog.Logger) *PrometheusSink {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PrometheusSink{logger: logger}
	s.initSweeperMetrics(reg)
	s.initHTTPMetrics(reg)
	return s
}

func (s *PrometheusSink) initSweeperMetrics(reg prometheus.Registerer) {
	s.sweepsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "maintenance_scheduler_sweeps_total",
		Help: "Total number of overdue sweeps run.",
	})
	s.sweepErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "maintenance_scheduler_sweep_errors_total",
		Help: "Total number of overdue sweeps that failed.",
	})
	s.sweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "maintenance_scheduler_sweep_duration_seconds",
		Help:    "Duration of each overdue sweep in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
	s.activeSchedules = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "maintenance_scheduler_active_schedules",
		Help: "Number of active schedules at the last sweep.",
	})
	s.overdueServices = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "maintenance_scheduler_overdue_services",
		Help: "Number of active schedules past their next service date at the last sweep.",
	})
	s.upcomingServices = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "maintenance_scheduler_upcoming_services",
		Help: "Number of active schedules due within the next seven days at the last sweep.",
	})

	s.register(reg, s.sweepsTotal, "maintenance_scheduler_sweeps_total")
	s.register(reg, s.sweepErrorsTotal, "maintenance_scheduler_sweep_errors_total")
	s.register(reg, s.sweepDuration, "maintenance_scheduler_sweep_duration_seconds")
	s.register(reg, s.activeSchedules, "maintenance_scheduler_active_schedules")
	s.register(reg, s.overdueServices, "maintenance_scheduler_overdue_services")
	s.register(reg, s.upcomingServices, "maintenance_scheduler_upcoming_services")
}

func (s *PrometheusSink) initHTTPMetrics(reg prometheus.Registerer) {
	s.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_scheduler_http_requests_total",
		Help: "Total number of HTTP requests served.",
	}, []string{"method", "route", "status_class"})
	s.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maintenance_scheduler_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "route"})

	s.register(reg, s.requestsTotal, "maintenance_scheduler_http_requests_total")
	s.register(reg, s.requestDuration, "maintenance_scheduler_http_request_duration_seconds")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		s.logger.Warn("failed to register metric", "metric", name, "error", err)
	}
}

func (s *PrometheusSink) SweepCompleted(duration time.Duration, err error) {
	s.sweepsTotal.Inc()
	s.sweepDuration.Observe(duration.Seconds())
	if err != nil {
		s.sweepErrorsTotal.Inc()
	}
}

func (s *PrometheusSink) SchedulesObserved(active, overdue, upcoming int) {
	s.activeSchedules.Set(float64(active))
	s.overdueServices.Set(float64(overdue))
	s.upcomingServices.Set(float64(upcoming))
}

func (s *PrometheusSink) RequestCompleted(method, route string, status int, duration time.Duration) {
	s.requestsTotal.WithLabelValues(method, route, ClassifyStatus(status)).Inc()
	s.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
