package recurrence

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/maintenance-scheduler/internal/calendar"
)

// Season names the quarter of the year an adjustment belongs to.
type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonFall   Season = "fall"
	SeasonWinter Season = "winter"
)

// Valid reports whether s is a known season.
func (s Season) Valid() bool {
	switch s {
	case SeasonSpring, SeasonSummer, SeasonFall, SeasonWinter:
		return true
	}
	return false
}

// SeasonalAdjustment alters service frequency and cost while its window is active.
// FrequencyMultiplier below one spaces services further apart, above one brings them
// closer together. CostMultiplier only affects cost display.
type SeasonalAdjustment struct {
	Season              Season
	FrequencyMultiplier float64
	CostMultiplier      decimal.Decimal
	Description         string
	Start               calendar.MonthDay
	End                 calendar.MonthDay
}

// ErrInvalidAdjustment indicates a malformed seasonal adjustment.
var ErrInvalidAdjustment = fmt.Errorf("%w: invalid seasonal adjustment", ErrInvalidRule)

// Validate checks the adjustment's multipliers and window.
func (a SeasonalAdjustment) Validate() error {
	if !a.Season.Valid() {
		return fmt.Errorf("%w: unknown season %q", ErrInvalidAdjustment, a.Season)
	}
	if a.FrequencyMultiplier <= 0 {
		return fmt.Errorf("%w: frequency multiplier must be positive", ErrInvalidAdjustment)
	}
	if !a.CostMultiplier.IsPositive() {
		return fmt.Errorf("%w: cost multiplier must be positive", ErrInvalidAdjustment)
	}
	if a.Start.IsZero() || a.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidAdjustment)
	}
	return nil
}

// Contains reports whether date falls inside the adjustment's inclusive window.
func (a SeasonalAdjustment) Contains(date time.Time) bool {
	return calendar.MonthDayOf(date).InWindow(a.Start, a.End)
}

// ValidateAdjustments validates every adjustment in order. Overlapping windows are
// accepted; resolution picks the first match.
func ValidateAdjustments(adjustments []SeasonalAdjustment) error {
	for i, adj := range adjustments {
		if err := adj.Validate(); err != nil {
			return fmt.Errorf("adjustment %d: %w", i, err)
		}
	}
	return nil
}

// ResolveActiveAdjustment returns the first adjustment whose window contains date, or
// nil when none applies.
func ResolveActiveAdjustment(date time.Time, adjustments []SeasonalAdjustment) *SeasonalAdjustment {
	for i := range adjustments {
		if adjustments[i].Contains(date) {
			adj := adjustments[i]
			return &adj
		}
	}
	return nil
}

// AdjustedCost applies the cost multiplier active on date to cost.
func AdjustedCost(cost decimal.Decimal, date time.Time, adjustments []SeasonalAdjustment) decimal.Decimal {
	active := ResolveActiveAdjustment(date, adjustments)
	if active == nil {
		return cost
	}
	return cost.Mul(active.CostMultiplier).Round(2)
}
