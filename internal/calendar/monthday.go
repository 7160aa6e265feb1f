package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidMonthDay indicates a malformed MM-DD value.
var ErrInvalidMonthDay = errors.New("calendar: invalid month-day")

// MonthDay is a year-less calendar position such as "03-20".
type MonthDay struct {
	Month time.Month
	Day   int
}

// ParseMonthDay parses the MM-DD form. Feb 29 is accepted.
func ParseMonthDay(value string) (MonthDay, error) {
	parts := strings.Split(strings.TrimSpace(value), "-")
	if len(parts) != 2 {
		return MonthDay{}, fmt.Errorf("%w: %q", ErrInvalidMonthDay, value)
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return MonthDay{}, fmt.Errorf("%w: %q", ErrInvalidMonthDay, value)
	}
	day, err := strconv.Atoi(parts[1])
	// 2000 is a leap year, so Feb 29 passes.
	if err != nil || day < 1 || day > DaysIn(2000, time.Month(month)) {
		return MonthDay{}, fmt.Errorf("%w: %q", ErrInvalidMonthDay, value)
	}
	return MonthDay{Month: time.Month(month), Day: day}, nil
}

// MustParseMonthDay is ParseMonthDay for literals; it panics on malformed input.
func MustParseMonthDay(value string) MonthDay {
	md, err := ParseMonthDay(value)
	if err != nil {
		panic(err)
	}
	return md
}

// MonthDayOf returns the month-day position of t in its location.
func MonthDayOf(t time.Time) MonthDay {
	_, m, d := t.Date()
	return MonthDay{Month: m, Day: d}
}

// IsZero reports whether md is unset.
func (md MonthDay) IsZero() bool {
	return md.Month == 0 && md.Day == 0
}

// Compare returns -1, 0 or +1 ordering md against other within a year.
func (md MonthDay) Compare(other MonthDay) int {
	switch {
	case md.Month < other.Month:
		return -1
	case md.Month > other.Month:
		return 1
	case md.Day < other.Day:
		return -1
	case md.Day > other.Day:
		return 1
	}
	return 0
}

// InWindow reports whether md lies in the inclusive window [start, end]. A window whose
// start is after its end wraps across the year boundary.
func (md MonthDay) InWindow(start, end MonthDay) bool {
	if start.Compare(end) <= 0 {
		return md.Compare(start) >= 0 && md.Compare(end) <= 0
	}
	return md.Compare(start) >= 0 || md.Compare(end) <= 0
}

// String renders the MM-DD form.
func (md MonthDay) String() string {
	return fmt.Sprintf("%02d-%02d", int(md.Month), md.Day)
}

// MarshalText implements encoding.TextMarshaler.
func (md MonthDay) MarshalText() ([]byte, error) {
	return []byte(md.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (md *MonthDay) UnmarshalText(text []byte) error {
	parsed, err := ParseMonthDay(string(text))
	if err != nil {
		return err
	}
	*md = parsed
	return nil
}
