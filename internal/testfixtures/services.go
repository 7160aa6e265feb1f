package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/maintenance-scheduler/internal/application"
	"github.com/example/maintenance-scheduler/internal/calendar"
	"github.com/example/maintenance-scheduler/internal/recurrence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Holidays    []calendar.Holiday
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator(""),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithHolidays configures the holidays known to the projection engine.
func WithHolidays(holidays ...calendar.Holiday) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Holidays = append([]calendar.Holiday(nil), holidays...)
	}
}

// ScheduleServiceDeps captures dependencies for constructing a schedule service.
type ScheduleServiceDeps struct {
	Schedules   application.ScheduleRepository
	Directory   application.Directory
	Projector   application.Projector
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewScheduleService builds a schedule service using the supplied dependencies
// combined with the factory defaults. Without a projector, a UTC engine over the
// factory holidays is used.
func (f *ServiceFactory) NewScheduleService(deps ScheduleServiceDeps) *application.ScheduleService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	projector := deps.Projector
	if projector == nil {
		projector = recurrence.NewEngine(time.UTC, f.Holidays)
	}
	return application.NewScheduleServiceWithLogger(
		deps.Schedules,
		deps.Directory,
		projector,
		idGen,
		now,
		deps.Logger,
	)
}

// NewCalendarFeed builds a calendar feed that reads the factory clock.
func (f *ServiceFactory) NewCalendarFeed(logger *slog.Logger) *application.CalendarFeed {
	return application.NewCalendarFeed(f.Clock.NowFunc(), logger)
}
