package recurrence

import (
	"math"
	"time"

	"github.com/example/maintenance-scheduler/internal/calendar"
)

// DefaultMaxHolidaySkip bounds how many consecutive days the holiday skip may advance.
const DefaultMaxHolidaySkip = 14

// Engine projects recurrence rules onto concrete service dates.
type Engine struct {
	location       *time.Location
	holidays       []calendar.Holiday
	maxHolidaySkip int
}

// NewEngine constructs an Engine that normalizes dates to loc and consults holidays
// for rules with SkipHolidays. If loc is nil, UTC is used.
func NewEngine(loc *time.Location, holidays []calendar.Holiday) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		location:       loc,
		holidays:       append([]calendar.Holiday(nil), holidays...),
		maxHolidaySkip: DefaultMaxHolidaySkip,
	}
}

// Location returns the timezone the engine evaluates calendar dates in.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return time.UTC
	}
	return e.location
}

// Holidays returns a copy of the configured holiday list.
func (e *Engine) Holidays() []calendar.Holiday {
	if e == nil {
		return nil
	}
	return append([]calendar.Holiday(nil), e.holidays...)
}

// Project computes the next occurrence after from.
//
// The steps run in a fixed order:
//   - base projection by rule type (once returns from unchanged and stops here);
//   - a shift of round(30*(1/m-1)) days when active has a frequency multiplier m != 1;
//   - weekend skip, Saturday +2 and Sunday +1;
//   - holiday skip, one day at a time, failing with ErrUnresolvableHoliday after
//     maxHolidaySkip days.
//
// Project does not apply end date or occurrence limits; see Next.
func (e *Engine) Project(rule Rule, from time.Time, active *SeasonalAdjustment) (time.Time, error) {
	if err := rule.Validate(); err != nil {
		return time.Time{}, err
	}
	from = from.In(e.Location())
	if rule.Type == TypeOnce {
		return from, nil
	}

	next := baseProjection(rule, from)

	if active != nil && active.FrequencyMultiplier != 1 {
		next = calendar.AddDays(next, seasonalShift(active.FrequencyMultiplier))
	}

	if rule.SkipWeekends {
		next = skipWeekend(next)
	}

	if rule.SkipHolidays {
		var err error
		next, err = e.skipHolidays(next)
		if err != nil {
			return time.Time{}, err
		}
	}

	return next, nil
}

// Projection is the outcome of advancing a schedule by one occurrence.
type Projection struct {
	// Date is the next service date; zero when Exhausted.
	Date time.Time
	// Exhausted reports that the rule produces no further occurrences.
	Exhausted bool
	// Adjustment is the seasonal adjustment that shaped Date, if any.
	Adjustment *SeasonalAdjustment
}

// Next advances from by one occurrence, resolving the seasonal adjustment against the
// base-projected date and applying the rule's end date and occurrence cap. completed
// is the number of services already performed, including the one at from.
func (e *Engine) Next(rule Rule, from time.Time, adjustments []SeasonalAdjustment, completed int) (Projection, error) {
	if err := rule.Validate(); err != nil {
		return Projection{}, err
	}
	if rule.Type == TypeOnce {
		return Projection{Exhausted: true}, nil
	}
	if rule.MaxOccurrences > 0 && completed >= rule.MaxOccurrences {
		return Projection{Exhausted: true}, nil
	}

	active := ResolveActiveAdjustment(baseProjection(rule, from.In(e.Location())), adjustments)
	next, err := e.Project(rule, from, active)
	if err != nil {
		return Projection{}, err
	}

	if rule.EndDate != nil && pastEnd(next, rule.EndDate.In(e.Location())) {
		return Projection{Exhausted: true}, nil
	}

	return Projection{Date: next, Adjustment: active}, nil
}

// Preview lists up to n successive service dates starting after from. completed counts
// occurrences already performed before from, so an occurrence cap ends the preview early.
func (e *Engine) Preview(rule Rule, from time.Time, adjustments []SeasonalAdjustment, completed, n int) ([]time.Time, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	dates := make([]time.Time, 0, max(n, 0))
	current := from
	for i := 0; i < n; i++ {
		projection, err := e.Next(rule, current, adjustments, completed+i+1)
		if err != nil {
			return nil, err
		}
		if projection.Exhausted {
			break
		}
		dates = append(dates, projection.Date)
		current = projection.Date
	}
	return dates, nil
}

func baseProjection(rule Rule, from time.Time) time.Time {
	switch rule.Type {
	case TypeDaily, TypeCustom:
		return calendar.AddDays(from, rule.Interval)
	case TypeWeekly:
		return calendar.AddDays(from, rule.Interval*7)
	case TypeMonthly:
		return calendar.AddMonths(from, rule.Interval)
	case TypeQuarterly:
		return calendar.AddMonths(from, rule.Interval*3)
	case TypeAnnually:
		return calendar.AddYears(from, rule.Interval)
	}
	return from
}

// seasonalShift rounds half toward positive infinity.
func seasonalShift(multiplier float64) int {
	return int(math.Floor(30*(1/multiplier-1) + 0.5))
}

func skipWeekend(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return calendar.AddDays(t, 2)
	case time.Sunday:
		return calendar.AddDays(t, 1)
	}
	return t
}

func (e *Engine) skipHolidays(t time.Time) (time.Time, error) {
	for skipped := 0; calendar.IsHoliday(t, e.holidays); skipped++ {
		if skipped >= e.maxHolidaySkip {
			return time.Time{}, ErrUnresolvableHoliday
		}
		t = calendar.AddDays(t, 1)
	}
	return t, nil
}

func pastEnd(next, end time.Time) bool {
	return calendar.StartOfDay(next).After(calendar.StartOfDay(end))
}
