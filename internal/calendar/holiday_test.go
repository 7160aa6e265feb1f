package calendar

import (
	"errors"
	"testing"
	"time"
)

func TestParseMonthDay(t *testing.T) {
	t.Parallel()

	md, err := ParseMonthDay("02-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if md.Month != time.February || md.Day != 29 {
		t.Fatalf("unexpected month-day %+v", md)
	}
	if md.String() != "02-29" {
		t.Fatalf("expected round trip string, got %q", md.String())
	}

	for _, bad := range []string{"", "13-01", "00-10", "04-31", "2025-01-01", "ab-cd"} {
		if _, err := ParseMonthDay(bad); !errors.Is(err, ErrInvalidMonthDay) {
			t.Fatalf("%q: expected ErrInvalidMonthDay, got %v", bad, err)
		}
	}
}

func TestMonthDayInWindow(t *testing.T) {
	t.Parallel()

	winterStart := MustParseMonthDay("12-01")
	winterEnd := MustParseMonthDay("02-28")

	inside := []time.Time{
		date(2025, time.December, 15),
		date(2026, time.January, 10),
		date(2026, time.February, 20),
		date(2025, time.December, 1),
		date(2026, time.February, 28),
	}
	for _, d := range inside {
		if !MonthDayOf(d).InWindow(winterStart, winterEnd) {
			t.Fatalf("expected %s inside wrapping window", d.Format(time.DateOnly))
		}
	}
	if MonthDayOf(date(2026, time.June, 1)).InWindow(winterStart, winterEnd) {
		t.Fatal("expected 2026-06-01 outside wrapping window")
	}

	summerStart := MustParseMonthDay("06-01")
	summerEnd := MustParseMonthDay("08-31")
	if !MonthDayOf(date(2025, time.August, 31)).InWindow(summerStart, summerEnd) {
		t.Fatal("expected inclusive end bound")
	}
	if MonthDayOf(date(2025, time.September, 1)).InWindow(summerStart, summerEnd) {
		t.Fatal("expected date after window to be excluded")
	}
}

func TestIsHoliday(t *testing.T) {
	t.Parallel()

	holidays, err := ParseHolidays("new-year=01-01, 2025-11-27 ,12-25")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(holidays) != 3 {
		t.Fatalf("expected 3 holidays, got %d", len(holidays))
	}
	if holidays[0].Name != "new-year" || !holidays[0].Recurring {
		t.Fatalf("unexpected first holiday %+v", holidays[0])
	}

	cases := []struct {
		day  time.Time
		want bool
	}{
		{day: date(2031, time.January, 1), want: true},
		{day: date(2025, time.December, 25), want: true},
		{day: date(2025, time.November, 27), want: true},
		{day: date(2026, time.November, 27), want: false},
		{day: date(2025, time.July, 4), want: false},
	}
	for _, tc := range cases {
		if got := IsHoliday(tc.day, holidays); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.day.Format(time.DateOnly), tc.want, got)
		}
	}

	if IsHoliday(date(2025, time.January, 1), nil) {
		t.Fatal("expected empty holiday list to match nothing")
	}
}

func TestParseHolidaysRejectsMalformed(t *testing.T) {
	t.Parallel()

	if _, err := ParseHolidays("01-01,not-a-date-at-all"); err == nil {
		t.Fatal("expected error for malformed holiday")
	}
}
