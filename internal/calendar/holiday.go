package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Holiday is a date on which services should not be scheduled. Recurring holidays
// match the same month and day every year; the others match one exact date.
type Holiday struct {
	Name      string
	Date      time.Time
	Recurring bool
}

// Matches reports whether t falls on the holiday.
func (h Holiday) Matches(t time.Time) bool {
	if h.Recurring {
		_, hm, hd := h.Date.Date()
		_, m, d := t.Date()
		return hm == m && hd == d
	}
	return SameDate(h.Date, t)
}

// IsHoliday reports whether t matches any entry of holidays.
func IsHoliday(t time.Time, holidays []Holiday) bool {
	for _, h := range holidays {
		if h.Matches(t) {
			return true
		}
	}
	return false
}

// ParseHoliday accepts "MM-DD" for a recurring holiday or "YYYY-MM-DD" for a single
// date. An optional name may prefix the date as "name=date".
func ParseHoliday(value string) (Holiday, error) {
	name := ""
	raw := strings.TrimSpace(value)
	if idx := strings.Index(raw, "="); idx >= 0 {
		name = strings.TrimSpace(raw[:idx])
		raw = strings.TrimSpace(raw[idx+1:])
	}

	if strings.Count(raw, "-") == 1 {
		md, err := ParseMonthDay(raw)
		if err != nil {
			return Holiday{}, err
		}
		return Holiday{
			Name:      name,
			Date:      time.Date(2000, md.Month, md.Day, 0, 0, 0, 0, time.UTC),
			Recurring: true,
		}, nil
	}

	date, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return Holiday{}, fmt.Errorf("calendar: invalid holiday %q: %w", value, err)
	}
	return Holiday{Name: name, Date: date}, nil
}

// ParseHolidays parses a comma separated holiday list, skipping blank entries.
func ParseHolidays(value string) ([]Holiday, error) {
	var holidays []Holiday
	for _, part := range strings.Split(value, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		h, err := ParseHoliday(part)
		if err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, nil
}
