// Package sweeper periodically reports schedules whose next service date has passed.
// It only observes the registry: schedules are never modified and nobody is notified.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/maintenance-scheduler/internal/application"
	"github.com/example/maintenance-scheduler/internal/metrics"
)

// StatisticsSource provides the aggregate view the sweep reads.
type StatisticsSource interface {
	Statistics(ctx context.Context) application.ScheduleStatistics
}

// Result summarises one sweep.
type Result struct {
	Active     int
	Overdue    int
	Upcoming   int
	OverdueIDs []string
	SweptAt    time.Time
}

// Sweeper runs the overdue sweep on a cron schedule.
type Sweeper struct {
	source StatisticsSource
	sink   metrics.Sink
	logger *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
	last Result
}

// New builds a sweeper. A nil sink disables metrics and a nil logger uses slog.Default.
func New(source StatisticsSource, sink metrics.Sink, logger *slog.Logger) *Sweeper {
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{source: source, sink: sink, logger: logger.With("component", "sweeper")}
}

// Sweep reads the current statistics once, publishes the gauges and logs overdue ids.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		s.sink.SweepCompleted(time.Since(start), err)
		return Result{}, err
	}

	stats := s.source.Statistics(ctx)
	result := Result{
		Active:     stats.ActiveSchedules,
		Overdue:    stats.OverdueServices,
		Upcoming:   stats.UpcomingServices,
		OverdueIDs: append([]string(nil), stats.OverdueScheduleIDs...),
		SweptAt:    stats.GeneratedAt,
	}

	s.sink.SchedulesObserved(result.Active, result.Overdue, result.Upcoming)
	s.sink.SweepCompleted(time.Since(start), nil)

	if result.Overdue > 0 {
		s.logger.WarnContext(ctx, "overdue schedules found", "count", result.Overdue, "schedule_ids", result.OverdueIDs)
	} else {
		s.logger.DebugContext(ctx, "no overdue schedules", "active", result.Active, "upcoming", result.Upcoming)
	}

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()
	return result, nil
}

// Last returns the result of the most recent successful sweep.
func (s *Sweeper) Last() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Start schedules the sweep with a standard five field cron expression evaluated in
// loc. The sweep stops when ctx is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context, spec string, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("sweeper already started")
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{s.logger}), cron.SkipIfStillRunning(cronLogger{s.logger})),
		cron.WithLogger(cronLogger{s.logger}),
	)
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.ErrorContext(ctx, "sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("parse sweep schedule %q: %w", spec, err)
	}
	c.Start()
	s.cron = c

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.InfoContext(ctx, "sweeper started", "schedule", spec, "timezone", loc.String())
	return nil
}

// Stop halts the cron runner and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info("sweeper stopped")
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
