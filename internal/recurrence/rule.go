package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// Type enumerates the supported recurrence kinds.
type Type string

const (
	TypeOnce      Type = "once"
	TypeDaily     Type = "daily"
	TypeWeekly    Type = "weekly"
	TypeMonthly   Type = "monthly"
	TypeQuarterly Type = "quarterly"
	TypeAnnually  Type = "annually"
	// TypeCustom currently projects like TypeDaily.
	TypeCustom Type = "custom"
)

// Types lists every recurrence kind in display order.
func Types() []Type {
	return []Type{TypeOnce, TypeDaily, TypeWeekly, TypeMonthly, TypeQuarterly, TypeAnnually, TypeCustom}
}

// Valid reports whether t is a known recurrence kind.
func (t Type) Valid() bool {
	switch t {
	case TypeOnce, TypeDaily, TypeWeekly, TypeMonthly, TypeQuarterly, TypeAnnually, TypeCustom:
		return true
	}
	return false
}

// Label returns the human readable name of the recurrence kind.
func (t Type) Label() string {
	switch t {
	case TypeOnce:
		return "One Time"
	case TypeDaily:
		return "Daily"
	case TypeWeekly:
		return "Weekly"
	case TypeMonthly:
		return "Monthly"
	case TypeQuarterly:
		return "Quarterly"
	case TypeAnnually:
		return "Annually"
	case TypeCustom:
		return "Custom"
	}
	return string(t)
}

// Rule describes how often a service repeats and which calendar constraints apply.
//
// DaysOfWeek and DayOfMonth are carried for display; the projection itself advances by
// whole weeks or months from the base date.
type Rule struct {
	Type           Type
	Interval       int
	DaysOfWeek     []time.Weekday
	DayOfMonth     int
	EndDate        *time.Time
	MaxOccurrences int
	SkipWeekends   bool
	SkipHolidays   bool
}

var (
	// ErrInvalidRule is the root of every rule rejection.
	ErrInvalidRule = errors.New("recurrence: invalid rule")
	// ErrInvalidType indicates an unknown recurrence kind.
	ErrInvalidType = fmt.Errorf("%w: unknown recurrence type", ErrInvalidRule)
	// ErrInvalidInterval indicates an interval below one.
	ErrInvalidInterval = fmt.Errorf("%w: interval must be at least 1", ErrInvalidRule)
	// ErrInvalidDayOfMonth indicates a day of month outside 1-31.
	ErrInvalidDayOfMonth = fmt.Errorf("%w: day of month must be between 1 and 31", ErrInvalidRule)
	// ErrInvalidWeekday indicates a weekday index outside Sunday-Saturday.
	ErrInvalidWeekday = fmt.Errorf("%w: weekday must be between 0 and 6", ErrInvalidRule)
	// ErrInvalidMaxOccurrences indicates a negative occurrence cap.
	ErrInvalidMaxOccurrences = fmt.Errorf("%w: max occurrences must not be negative", ErrInvalidRule)
	// ErrUnresolvableHoliday indicates the holiday skip could not find a working day.
	ErrUnresolvableHoliday = fmt.Errorf("%w: cannot resolve a non-holiday date", ErrInvalidRule)
)

// Validate checks the structural invariants of the rule.
func (r Rule) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, r.Type)
	}
	if r.Interval < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidInterval, r.Interval)
	}
	if r.DayOfMonth != 0 && (r.DayOfMonth < 1 || r.DayOfMonth > 31) {
		return fmt.Errorf("%w: got %d", ErrInvalidDayOfMonth, r.DayOfMonth)
	}
	for _, day := range r.DaysOfWeek {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("%w: got %d", ErrInvalidWeekday, day)
		}
	}
	if r.MaxOccurrences < 0 {
		return ErrInvalidMaxOccurrences
	}
	return nil
}

// Clone returns a deep copy of the rule.
func (r Rule) Clone() Rule {
	out := r
	if r.DaysOfWeek != nil {
		out.DaysOfWeek = append([]time.Weekday(nil), r.DaysOfWeek...)
	}
	if r.EndDate != nil {
		end := *r.EndDate
		out.EndDate = &end
	}
	return out
}
