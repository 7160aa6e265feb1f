package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/maintenance-scheduler/internal/calendar"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 8, 0, 0, 0, time.UTC)
}

func winter(multiplier float64) SeasonalAdjustment {
	return SeasonalAdjustment{
		Season:              SeasonWinter,
		FrequencyMultiplier: multiplier,
		CostMultiplier:      decimal.RequireFromString("0.8"),
		Description:         "Reduced frequency during winter months",
		Start:               calendar.MustParseMonthDay("12-01"),
		End:                 calendar.MustParseMonthDay("02-28"),
	}
}

func mustHolidays(t *testing.T, value string) []calendar.Holiday {
	t.Helper()
	holidays, err := calendar.ParseHolidays(value)
	if err != nil {
		t.Fatalf("parse holidays: %v", err)
	}
	return holidays
}

func TestEngine_ProjectBaseTypes(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC, nil)
	from := day(2025, time.January, 31)

	cases := []struct {
		rule Rule
		want time.Time
	}{
		{rule: Rule{Type: TypeOnce, Interval: 1}, want: from},
		{rule: Rule{Type: TypeDaily, Interval: 3}, want: day(2025, time.February, 3)},
		{rule: Rule{Type: TypeCustom, Interval: 10}, want: day(2025, time.February, 10)},
		{rule: Rule{Type: TypeWeekly, Interval: 2, DaysOfWeek: []time.Weekday{time.Tuesday}}, want: day(2025, time.February, 14)},
		{rule: Rule{Type: TypeMonthly, Interval: 1}, want: day(2025, time.February, 28)},
		{rule: Rule{Type: TypeQuarterly, Interval: 1}, want: day(2025, time.April, 30)},
		{rule: Rule{Type: TypeAnnually, Interval: 2}, want: day(2027, time.January, 31)},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(string(tc.rule.Type), func(t *testing.T) {
			t.Parallel()
			got, err := engine.Project(tc.rule, from, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestEngine_ProjectMonthlyWeekendSkip(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC, nil)
	rule := Rule{Type: TypeMonthly, Interval: 1, DayOfMonth: 15, SkipWeekends: true}

	got, err := engine.Project(rule, day(2025, time.January, 15), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := day(2025, time.February, 17); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestEngine_WeekendSkip(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC, nil)
	rule := Rule{Type: TypeDaily, Interval: 1, SkipWeekends: true}

	// 2025-02-14 is a Friday.
	saturday, err := engine.Project(rule, day(2025, time.February, 14), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saturday.Weekday() != time.Monday || !saturday.Equal(day(2025, time.February, 17)) {
		t.Fatalf("expected Saturday landing to move to Monday, got %s", saturday)
	}

	sunday, err := engine.Project(rule, day(2025, time.February, 15), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sunday.Equal(day(2025, time.February, 17)) {
		t.Fatalf("expected Sunday landing to move to Monday, got %s", sunday)
	}

	weekday, err := engine.Project(rule, day(2025, time.February, 17), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !weekday.Equal(day(2025, time.February, 18)) {
		t.Fatalf("expected weekday landing untouched, got %s", weekday)
	}
}

func TestEngine_SeasonalShift(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC, nil)
	rule := Rule{Type: TypeWeekly, Interval: 1}

	lengthen := winter(0.5)
	got, err := engine.Project(rule, day(2025, time.January, 6), &lengthen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := day(2025, time.February, 12); !got.Equal(want) {
		t.Fatalf("expected +30 day shift to %s, got %s", want, got)
	}

	shorten := winter(2)
	got, err = engine.Project(rule, day(2025, time.January, 6), &shorten)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := day(2024, time.December, 29); !got.Equal(want) {
		t.Fatalf("expected -15 day shift to %s, got %s", want, got)
	}

	neutral := winter(1)
	got, err = engine.Project(rule, day(2025, time.January, 6), &neutral)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := day(2025, time.January, 13); !got.Equal(want) {
		t.Fatalf("expected no shift for multiplier 1, got %s", got)
	}
}

func TestEngine_HolidaySkip(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC, mustHolidays(t, "12-25,12-26"))
	rule := Rule{Type: TypeDaily, Interval: 1, SkipHolidays: true}

	got, err := engine.Project(rule, day(2025, time.December, 24), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := day(2025, time.December, 27); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}

	noSkip := Rule{Type: TypeDaily, Interval: 1}
	got, err = engine.Project(noSkip, day(2025, time.December, 24), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := day(2025, time.December, 25); !got.Equal(want) {
		t.Fatalf("expected holiday kept when skip disabled, got %s", got)
	}
}

func TestEngine_HolidaySkipRunsAfterWeekendSkip(t *testing.T) {
	t.Parallel()

	// 2025-12-27 is a Saturday; weekend skip lands on Monday 12-29, a holiday here.
	engine := NewEngine(time.UTC, mustHolidays(t, "2025-12-29"))
	rule := Rule{Type: TypeDaily, Interval: 1, SkipWeekends: true, SkipHolidays: true}

	got, err := engine.Project(rule, day(2025, time.December, 26), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := day(2025, time.December, 30); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestEngine_HolidaySkipBounded(t *testing.T) {
	t.Parallel()

	var list []calendar.Holiday
	for d := 1; d <= 15; d++ {
		list = append(list, calendar.Holiday{Date: time.Date(2025, time.July, d, 0, 0, 0, 0, time.UTC)})
	}
	engine := NewEngine(time.UTC, list)
	rule := Rule{Type: TypeDaily, Interval: 1, SkipHolidays: true}

	_, err := engine.Project(rule, day(2025, time.June, 30), nil)
	if !errors.Is(err, ErrUnresolvableHoliday) {
		t.Fatalf("expected ErrUnresolvableHoliday, got %v", err)
	}
	if !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected unresolvable holiday to be an invalid rule, got %v", err)
	}

	fourteen := NewEngine(time.UTC, list[:14])
	got, err := fourteen.Project(rule, day(2025, time.June, 30), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := day(2025, time.July, 15); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestEngine_ProjectRejectsInvalidRules(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC, nil)
	cases := map[string]struct {
		rule Rule
		want error
	}{
		"zero interval":    {rule: Rule{Type: TypeDaily}, want: ErrInvalidInterval},
		"unknown type":     {rule: Rule{Type: "fortnightly", Interval: 1}, want: ErrInvalidType},
		"day of month":     {rule: Rule{Type: TypeMonthly, Interval: 1, DayOfMonth: 32}, want: ErrInvalidDayOfMonth},
		"weekday":          {rule: Rule{Type: TypeWeekly, Interval: 1, DaysOfWeek: []time.Weekday{7}}, want: ErrInvalidWeekday},
		"negative max":     {rule: Rule{Type: TypeDaily, Interval: 1, MaxOccurrences: -1}, want: ErrInvalidMaxOccurrences},
		"once zero interv": {rule: Rule{Type: TypeOnce}, want: ErrInvalidInterval},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := engine.Project(tc.rule, day(2025, time.January, 1), nil)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, ErrInvalidRule) {
				t.Fatalf("expected ErrInvalidRule root, got %v", err)
			}
		})
	}
}

func TestEngine_ProjectIsIdempotentAndMonotonic(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC, nil)
	types := []Type{TypeDaily, TypeWeekly, TypeMonthly, TypeQuarterly, TypeAnnually}
	start := day(2024, time.January, 1)

	for _, typ := range types {
		for interval := 1; interval <= 3; interval++ {
			rule := Rule{Type: typ, Interval: interval}
			for offset := 0; offset < 400; offset += 13 {
				from := calendar.AddDays(start, offset)
				first, err := engine.Project(rule, from, nil)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				second, err := engine.Project(rule, from, nil)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !first.Equal(second) {
					t.Fatalf("%s/%d from %s: projection not idempotent", typ, interval, from)
				}
				if !first.After(from) {
					t.Fatalf("%s/%d from %s: expected result after base, got %s", typ, interval, from, first)
				}
			}
		}
	}
}

func TestEngine_ProjectNormalizesLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("EST", -5*60*60)
	engine := NewEngine(loc, nil)
	// 2025-02-15 02:00 UTC is still Friday 2025-02-14 in EST.
	from := time.Date(2025, time.February, 15, 2, 0, 0, 0, time.UTC)

	got, err := engine.Project(Rule{Type: TypeDaily, Interval: 1, SkipWeekends: true}, from, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Location() != loc {
		t.Fatalf("expected engine location, got %v", got.Location())
	}
	y, m, d := got.Date()
	if y != 2025 || m != time.February || d != 17 {
		t.Fatalf("expected Monday 2025-02-17 in EST, got %s", got)
	}
}

func TestEngine_NextResolvesSeasonAgainstProjectedDate(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC, mustHolidays(t, "01-01"))
	rule := Rule{Type: TypeWeekly, Interval: 1, SkipHolidays: true}
	adjustments := []SeasonalAdjustment{winter(0.5)}

	// Base projection 2025-12-02 lies in the winter window although the base date does not.
	projection, err := engine.Next(rule, day(2025, time.November, 25), adjustments, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if projection.Exhausted {
		t.Fatal("expected projection to continue")
	}
	if projection.Adjustment == nil || projection.Adjustment.Season != SeasonWinter {
		t.Fatalf("expected winter adjustment, got %+v", projection.Adjustment)
	}
	if want := day(2026, time.January, 2); !projection.Date.Equal(want) {
		t.Fatalf("expected %s, got %s", want, projection.Date)
	}
}

func TestEngine_NextExhaustion(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC, nil)

	t.Run("once", func(t *testing.T) {
		t.Parallel()
		projection, err := engine.Next(Rule{Type: TypeOnce, Interval: 1}, day(2025, time.March, 1), nil, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !projection.Exhausted || !projection.Date.IsZero() {
			t.Fatalf("expected exhausted once rule, got %+v", projection)
		}
	})

	t.Run("end date", func(t *testing.T) {
		t.Parallel()
		end := day(2025, time.February, 10)
		rule := Rule{Type: TypeMonthly, Interval: 1, EndDate: &end}
		projection, err := engine.Next(rule, day(2025, time.January, 15), nil, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !projection.Exhausted || !projection.Date.IsZero() {
			t.Fatalf("expected exhaustion without a date past the bound, got %+v", projection)
		}
	})

	t.Run("end date on projected day", func(t *testing.T) {
		t.Parallel()
		end := time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC)
		rule := Rule{Type: TypeMonthly, Interval: 1, EndDate: &end}
		projection, err := engine.Next(rule, day(2025, time.January, 15), nil, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if projection.Exhausted {
			t.Fatal("expected projection on the end date itself to be allowed")
		}
	})

	t.Run("max occurrences", func(t *testing.T) {
		t.Parallel()
		rule := Rule{Type: TypeDaily, Interval: 1, MaxOccurrences: 3}
		projection, err := engine.Next(rule, day(2025, time.January, 1), nil, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !projection.Exhausted {
			t.Fatal("expected exhaustion at max occurrences")
		}
		projection, err = engine.Next(rule, day(2025, time.January, 1), nil, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if projection.Exhausted {
			t.Fatal("expected projection below max occurrences")
		}
	})
}

func TestEngine_Preview(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC, nil)

	dates, err := engine.Preview(Rule{Type: TypeMonthly, Interval: 1}, day(2025, time.January, 31), nil, 0, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Time{day(2025, time.February, 28), day(2025, time.March, 28), day(2025, time.April, 28)}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %d", len(want), len(dates))
	}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Fatalf("date %d: expected %s, got %s", i, want[i], dates[i])
		}
	}

	capped, err := engine.Preview(Rule{Type: TypeDaily, Interval: 1, MaxOccurrences: 3}, day(2025, time.January, 1), nil, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(capped) != 2 {
		t.Fatalf("expected 2 further dates under a cap of 3, got %d", len(capped))
	}

	once, err := engine.Preview(Rule{Type: TypeOnce, Interval: 1}, day(2025, time.January, 1), nil, 0, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(once) != 0 {
		t.Fatalf("expected no further dates for once, got %v", once)
	}
}
