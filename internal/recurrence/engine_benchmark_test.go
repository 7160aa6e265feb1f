package recurrence

import (
	"testing"
	"time"

	"github.com/example/maintenance-scheduler/internal/calendar"
)

func BenchmarkEnginePreview(b *testing.B) {
	holidays, err := calendar.ParseHolidays("01-01,07-04,12-25")
	if err != nil {
		b.Fatalf("unexpected error: %v", err)
	}
	engine := NewEngine(time.UTC, holidays)
	from := time.Date(2025, time.January, 15, 9, 0, 0, 0, time.UTC)
	rule := Rule{
		Type:         TypeWeekly,
		Interval:     1,
		SkipWeekends: true,
		SkipHolidays: true,
	}
	adjustments := []SeasonalAdjustment{winter(0.5)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dates, err := engine.Preview(rule, from, adjustments, 0, 52)
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		if len(dates) != 52 {
			b.Fatalf("expected 52 dates, got %d", len(dates))
		}
	}
}
