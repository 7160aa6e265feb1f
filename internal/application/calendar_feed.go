package application

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/example/maintenance-scheduler/internal/scheduler"
)

// CalendarView is a materialized calendar window together with the conflicts found in it.
type CalendarView struct {
	Version   uint64
	Events    []scheduler.Event
	Conflicts []scheduler.Conflict
}

// CalendarFeed keeps the projection input of the latest registry snapshot and
// materializes calendar windows from it on demand. Each applied snapshot replaces the
// previous one wholesale. Materialized windows are cached per snapshot version.
type CalendarFeed struct {
	now    func() time.Time
	logger *slog.Logger
	views  *viewCache

	mu        sync.RWMutex
	version   uint64
	schedules []scheduler.Schedule
}

// NewCalendarFeed constructs an empty feed.
func NewCalendarFeed(now func() time.Time, logger *slog.Logger) *CalendarFeed {
	if now == nil {
		now = time.Now
	}
	return &CalendarFeed{now: now, logger: defaultLogger(logger), views: newViewCache(30*time.Second, 128, now)}
}

// Run applies snapshots from the channel until it is closed or ctx is cancelled.
func (f *CalendarFeed) Run(ctx context.Context, snapshots <-chan Snapshot) error {
	logger := serviceLogger(ctx, f.logger, "CalendarFeed", "Run")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snapshot, ok := <-snapshots:
			if !ok {
				logger.InfoContext(ctx, "snapshot stream closed")
				return nil
			}
			f.Apply(snapshot)
			logger.DebugContext(ctx, "snapshot applied", "version", snapshot.Version, "schedules", len(snapshot.Schedules))
		}
	}
}

// Apply replaces the feed state with snapshot. Snapshots older than the applied one are
// ignored.
func (f *CalendarFeed) Apply(snapshot Snapshot) {
	schedules := make([]scheduler.Schedule, 0, len(snapshot.Schedules))
	for _, schedule := range snapshot.Schedules {
		schedules = append(schedules, toSchedulerSchedule(schedule))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if snapshot.Version != 0 && snapshot.Version < f.version {
		return
	}
	f.version = snapshot.Version
	f.schedules = schedules
	f.views.Invalidate()
}

// Version reports the snapshot version currently held.
func (f *CalendarFeed) Version() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.version
}

// Events materializes the window [from, to] and reports employee conflicts among the
// resulting events. Zero bounds leave the window open on that side.
func (f *CalendarFeed) Events(from, to time.Time, filter scheduler.Filter) CalendarView {
	f.mu.RLock()
	schedules := f.schedules
	version := f.version
	f.mu.RUnlock()

	key := buildViewCacheKey(version, from, to, filter)
	if view, ok := f.views.Get(key); ok {
		return view
	}

	events := scheduler.Materialize(schedules, from, to, f.now(), filter)
	view := CalendarView{
		Version:   version,
		Events:    events,
		Conflicts: scheduler.DetectConflicts(events),
	}
	f.views.Store(key, view)
	return view
}

// WriteICS encodes the window as an iCalendar document.
func (f *CalendarFeed) WriteICS(w io.Writer, from, to time.Time, filter scheduler.Filter) error {
	view := f.Events(from, to, filter)
	return scheduler.EncodeICS(w, view.Events, f.now())
}

func toSchedulerSchedule(schedule ServiceSchedule) scheduler.Schedule {
	return scheduler.Schedule{
		ID:                   schedule.ID,
		Title:                schedule.Title,
		Description:          schedule.Description,
		Category:             string(schedule.Category),
		Priority:             string(schedule.Priority),
		PropertyID:           schedule.PropertyID,
		PropertyName:         schedule.PropertyName,
		AssignedEmployeeID:   schedule.AssignedEmployeeID,
		AssignedEmployeeName: schedule.AssignedEmployeeName,
		NextServiceDate:      schedule.NextServiceDate,
		EstimatedDuration:    schedule.EstimatedDuration,
		Active:               schedule.IsActive,
	}
}
