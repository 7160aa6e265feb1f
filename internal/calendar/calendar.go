// Package calendar provides the date arithmetic used by recurrence projection.
//
// All functions are pure and operate on the calendar date of the supplied time in
// its own location; the wall clock portion is carried through unchanged.
package calendar

import "time"

// AddDays returns t shifted by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// AddMonths returns t shifted by n months. When the source day does not exist in the
// target month the result is clamped to that month's last day (Jan 31 + 1 month is
// Feb 28 or Feb 29), unlike time.Time.AddDate which overflows into the next month.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + n
	year := y + floorDiv(total, 12)
	month := time.Month(floorMod(total, 12) + 1)
	if last := DaysIn(year, month); d > last {
		d = last
	}
	hour, min, sec := t.Clock()
	return time.Date(year, month, d, hour, min, sec, t.Nanosecond(), t.Location())
}

// AddYears returns t shifted by n years, clamping Feb 29 to Feb 28 in common years.
func AddYears(t time.Time, n int) time.Time {
	return AddMonths(t, n*12)
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return false
}

// SameDate reports whether a and b share the same calendar date, each evaluated in
// its own location.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// StartOfDay truncates t to midnight in its location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfMonth returns midnight on the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
