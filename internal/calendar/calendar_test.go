package calendar

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		from time.Time
		n    int
		want time.Time
	}{
		{name: "jan 31 to feb in common year", from: date(2025, time.January, 31), n: 1, want: date(2025, time.February, 28)},
		{name: "jan 31 to feb in leap year", from: date(2024, time.January, 31), n: 1, want: date(2024, time.February, 29)},
		{name: "mar 31 to apr", from: date(2025, time.March, 31), n: 1, want: date(2025, time.April, 30)},
		{name: "crosses year boundary", from: date(2025, time.November, 30), n: 3, want: date(2026, time.February, 28)},
		{name: "negative months", from: date(2025, time.March, 31), n: -1, want: date(2025, time.February, 28)},
		{name: "negative across year", from: date(2025, time.January, 15), n: -2, want: date(2024, time.November, 15)},
		{name: "no clamping needed", from: date(2025, time.January, 15), n: 1, want: date(2025, time.February, 15)},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := AddMonths(tc.from, tc.n)
			if !got.Equal(tc.want) {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestAddMonthsPreservesClockAndLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("EST", -5*60*60)
	from := time.Date(2025, time.January, 31, 17, 45, 12, 0, loc)
	got := AddMonths(from, 1)

	if got.Location() != loc {
		t.Fatalf("expected location %v, got %v", loc, got.Location())
	}
	if h, m, s := got.Clock(); h != 17 || m != 45 || s != 12 {
		t.Fatalf("expected clock 17:45:12, got %02d:%02d:%02d", h, m, s)
	}
}

func TestAddYearsLeapDay(t *testing.T) {
	t.Parallel()

	if got := AddYears(date(2024, time.February, 29), 1); !got.Equal(date(2025, time.February, 28)) {
		t.Fatalf("expected clamp to feb 28, got %s", got)
	}
	if got := AddYears(date(2024, time.February, 29), 4); !got.Equal(date(2028, time.February, 29)) {
		t.Fatalf("expected feb 29 in 2028, got %s", got)
	}
}

func TestAddDays(t *testing.T) {
	t.Parallel()

	if got := AddDays(date(2025, time.December, 30), 3); !got.Equal(date(2026, time.January, 2)) {
		t.Fatalf("expected 2026-01-02, got %s", got)
	}
	if got := AddDays(date(2025, time.March, 1), -1); !got.Equal(date(2025, time.February, 28)) {
		t.Fatalf("expected 2025-02-28, got %s", got)
	}
}

func TestIsWeekend(t *testing.T) {
	t.Parallel()

	// 2025-02-15 is a Saturday.
	saturday := date(2025, time.February, 15)
	for i, want := range []bool{true, true, false, false, false, false, false} {
		day := AddDays(saturday, i)
		if got := IsWeekend(day); got != want {
			t.Fatalf("%s: expected weekend=%v, got %v", day.Weekday(), want, got)
		}
	}
}

func TestStartOfDayAndMonth(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, time.May, 17, 23, 59, 0, 0, time.UTC)
	if got := StartOfDay(ts); !got.Equal(time.Date(2025, time.May, 17, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start of day %s", got)
	}
	if got := StartOfMonth(ts); !got.Equal(time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start of month %s", got)
	}
}
