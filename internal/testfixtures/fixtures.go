package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/maintenance-scheduler/internal/application"
	"github.com/example/maintenance-scheduler/internal/calendar"
	"github.com/example/maintenance-scheduler/internal/persistence"
	"github.com/example/maintenance-scheduler/internal/recurrence"
)

var scheduleCounter uint64

var referenceTime = time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ScheduleFixture is a deterministic schedule that can be materialised for
// application, persistence or HTTP tests.
type ScheduleFixture struct {
	ID                   string
	PropertyID           string
	PropertyName         string
	AssignedEmployeeID   string
	AssignedEmployeeName string
	Title                string
	Description          string
	Category             application.Category
	Priority             application.Priority
	Recurrence           recurrence.Rule
	SeasonalAdjustments  []recurrence.SeasonalAdjustment
	NextServiceDate      time.Time
	LastServiceDate      *time.Time
	EstimatedDuration    int
	EstimatedCost        *decimal.Decimal
	IsActive             bool
	OccurrenceCount      int
	SpecialInstructions  string
	RequiredMaterials    []string
	Tags                 []string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	CreatedBy            string
}

// ScheduleOption configures the generated schedule fixture.
type ScheduleOption func(*ScheduleFixture)

// NewScheduleFixture returns a monthly, active schedule due a few days after
// ReferenceTime, with optional overrides.
func NewScheduleFixture(opts ...ScheduleOption) ScheduleFixture {
	idx := atomic.AddUint64(&scheduleCounter, 1)
	created := referenceTime.Add(-time.Duration(idx) * time.Hour)
	cost := decimal.RequireFromString("125.5")
	fixture := ScheduleFixture{
		ID:                fmt.Sprintf("fixture-%03d", idx),
		PropertyID:        "prop-1",
		PropertyName:      "Sunset Apartments",
		Title:             fmt.Sprintf("Service %03d", idx),
		Description:       "Routine maintenance",
		Category:          application.CategoryHVAC,
		Priority:          application.PriorityMedium,
		Recurrence:        recurrence.Rule{Type: recurrence.TypeMonthly, Interval: 1},
		NextServiceDate:   referenceTime.AddDate(0, 0, 5),
		EstimatedDuration: 90,
		EstimatedCost:     &cost,
		IsActive:          true,
		CreatedAt:         created,
		UpdatedAt:         created,
		CreatedBy:         "manager-1",
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithScheduleID overrides the generated id.
func WithScheduleID(id string) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.ID = id
	}
}

// WithScheduleProperty sets the property reference and its display name.
func WithScheduleProperty(id, name string) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.PropertyID = id
		f.PropertyName = name
	}
}

// WithScheduleEmployee assigns the schedule to an employee.
func WithScheduleEmployee(id, name string) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.AssignedEmployeeID = id
		f.AssignedEmployeeName = name
	}
}

// WithScheduleTitle overrides the title.
func WithScheduleTitle(title string) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.Title = title
	}
}

// WithScheduleCategory overrides the category.
func WithScheduleCategory(category application.Category) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.Category = category
	}
}

// WithSchedulePriority overrides the priority.
func WithSchedulePriority(priority application.Priority) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.Priority = priority
	}
}

// WithScheduleRule overrides the recurrence rule.
func WithScheduleRule(rule recurrence.Rule) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.Recurrence = rule
	}
}

// WithScheduleNextServiceDate overrides the next due date.
func WithScheduleNextServiceDate(t time.Time) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.NextServiceDate = t
	}
}

// WithScheduleCost sets the estimated cost from a decimal string.
func WithScheduleCost(cost string) ScheduleOption {
	return func(f *ScheduleFixture) {
		d := decimal.RequireFromString(cost)
		f.EstimatedCost = &d
	}
}

// WithoutScheduleCost removes the estimated cost.
func WithoutScheduleCost() ScheduleOption {
	return func(f *ScheduleFixture) {
		f.EstimatedCost = nil
	}
}

// WithScheduleTags sets the tags.
func WithScheduleTags(tags ...string) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.Tags = tags
	}
}

// WithScheduleInactive marks the schedule inactive.
func WithScheduleInactive() ScheduleOption {
	return func(f *ScheduleFixture) {
		f.IsActive = false
	}
}

// WithWinterAdjustment appends a December to February adjustment.
func WithWinterAdjustment(frequency float64, cost string) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.SeasonalAdjustments = append(f.SeasonalAdjustments, recurrence.SeasonalAdjustment{
			Season:              recurrence.SeasonWinter,
			FrequencyMultiplier: frequency,
			CostMultiplier:      decimal.RequireFromString(cost),
			Description:         "Winter schedule",
			Start:               calendar.MustParseMonthDay("12-01"),
			End:                 calendar.MustParseMonthDay("02-28"),
		})
	}
}

// WithScheduleHistory records completed services.
func WithScheduleHistory(last time.Time, count int) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.LastServiceDate = &last
		f.OccurrenceCount = count
	}
}

// WithScheduleDetails fills the optional descriptive fields.
func WithScheduleDetails(instructions string, materials ...string) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.SpecialInstructions = instructions
		f.RequiredMaterials = materials
	}
}

// Application returns the fixture as an application.ServiceSchedule.
func (f ScheduleFixture) Application() application.ServiceSchedule {
	schedule := application.ServiceSchedule{
		ID:                   f.ID,
		PropertyID:           f.PropertyID,
		PropertyName:         f.PropertyName,
		AssignedEmployeeID:   f.AssignedEmployeeID,
		AssignedEmployeeName: f.AssignedEmployeeName,
		Title:                f.Title,
		Description:          f.Description,
		Category:             f.Category,
		Priority:             f.Priority,
		Recurrence:           f.Recurrence,
		SeasonalAdjustments:  f.SeasonalAdjustments,
		NextServiceDate:      f.NextServiceDate,
		LastServiceDate:      f.LastServiceDate,
		EstimatedDuration:    f.EstimatedDuration,
		EstimatedCost:        f.EstimatedCost,
		IsActive:             f.IsActive,
		OccurrenceCount:      f.OccurrenceCount,
		SpecialInstructions:  f.SpecialInstructions,
		RequiredMaterials:    f.RequiredMaterials,
		Tags:                 f.Tags,
		CreatedAt:            f.CreatedAt,
		UpdatedAt:            f.UpdatedAt,
		CreatedBy:            f.CreatedBy,
		LastModifiedBy:       f.CreatedBy,
	}
	return schedule.Clone()
}

// Input returns the fixture as an application.ScheduleInput.
func (f ScheduleFixture) Input() application.ScheduleInput {
	schedule := f.Application()
	return application.ScheduleInput{
		PropertyID:          schedule.PropertyID,
		AssignedEmployeeID:  schedule.AssignedEmployeeID,
		Title:               schedule.Title,
		Description:         schedule.Description,
		Category:            schedule.Category,
		Priority:            schedule.Priority,
		Recurrence:          schedule.Recurrence,
		SeasonalAdjustments: schedule.SeasonalAdjustments,
		NextServiceDate:     schedule.NextServiceDate,
		EstimatedDuration:   schedule.EstimatedDuration,
		EstimatedCost:       schedule.EstimatedCost,
		SpecialInstructions: schedule.SpecialInstructions,
		RequiredMaterials:   schedule.RequiredMaterials,
		Tags:                schedule.Tags,
	}
}

// Persistence returns the fixture as a persistence.ServiceSchedule.
func (f ScheduleFixture) Persistence() persistence.ServiceSchedule {
	schedule := f.Application()
	record := persistence.ServiceSchedule{
		ID:                   schedule.ID,
		PropertyID:           schedule.PropertyID,
		PropertyName:         schedule.PropertyName,
		AssignedEmployeeID:   optionalString(schedule.AssignedEmployeeID),
		AssignedEmployeeName: optionalString(schedule.AssignedEmployeeName),
		Title:                schedule.Title,
		Description:          schedule.Description,
		Category:             string(schedule.Category),
		Priority:             string(schedule.Priority),
		NextServiceDate:      schedule.NextServiceDate,
		LastServiceDate:      schedule.LastServiceDate,
		EstimatedDuration:    schedule.EstimatedDuration,
		EstimatedCost:        schedule.EstimatedCost,
		IsActive:             schedule.IsActive,
		OccurrenceCount:      schedule.OccurrenceCount,
		SpecialInstructions:  optionalString(schedule.SpecialInstructions),
		RequiredMaterials:    schedule.RequiredMaterials,
		Tags:                 schedule.Tags,
		CreatedAt:            schedule.CreatedAt,
		UpdatedAt:            schedule.UpdatedAt,
		CreatedBy:            schedule.CreatedBy,
		LastModifiedBy:       schedule.LastModifiedBy,
		RecurrencePattern: persistence.RecurrencePattern{
			Type:         string(schedule.Recurrence.Type),
			Interval:     schedule.Recurrence.Interval,
			EndDate:      schedule.Recurrence.EndDate,
			SkipWeekends: schedule.Recurrence.SkipWeekends,
			SkipHolidays: schedule.Recurrence.SkipHolidays,
		},
	}
	for _, day := range schedule.Recurrence.DaysOfWeek {
		record.RecurrencePattern.DaysOfWeek = append(record.RecurrencePattern.DaysOfWeek, int(day))
	}
	if schedule.Recurrence.DayOfMonth > 0 {
		dom := schedule.Recurrence.DayOfMonth
		record.RecurrencePattern.DayOfMonth = &dom
	}
	if schedule.Recurrence.MaxOccurrences > 0 {
		maxOcc := schedule.Recurrence.MaxOccurrences
		record.RecurrencePattern.MaxOccurrences = &maxOcc
	}
	for _, adj := range schedule.SeasonalAdjustments {
		record.SeasonalAdjustments = append(record.SeasonalAdjustments, persistence.SeasonalAdjustment{
			Season:              string(adj.Season),
			FrequencyMultiplier: adj.FrequencyMultiplier,
			CostMultiplier:      adj.CostMultiplier,
			Description:         optionalString(adj.Description),
			StartDate:           adj.Start.String(),
			EndDate:             adj.End.String(),
		})
	}
	return record
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
