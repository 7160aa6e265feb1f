package persistence

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceSchedule is the stored form of a recurring maintenance obligation. Optional
// values are pointers so that absent fields are dropped from written documents.
type ServiceSchedule struct {
	ID                   string               `json:"id"`
	PropertyID           string               `json:"propertyId"`
	PropertyName         string               `json:"propertyName"`
	ServiceItemID        *string              `json:"serviceItemId"`
	ServiceItemName      *string              `json:"serviceItemName"`
	Title                string               `json:"title"`
	Description          string               `json:"description"`
	Category             string               `json:"category"`
	Priority             string               `json:"priority"`
	RecurrencePattern    RecurrencePattern    `json:"recurrencePattern"`
	NextServiceDate      time.Time            `json:"nextServiceDate"`
	LastServiceDate      *time.Time           `json:"lastServiceDate"`
	AssignedEmployeeID   *string              `json:"assignedEmployeeId"`
	AssignedEmployeeName *string              `json:"assignedEmployeeName"`
	EstimatedDuration    int                  `json:"estimatedDuration"`
	EstimatedCost        *decimal.Decimal     `json:"estimatedCost"`
	ActualCost           *decimal.Decimal     `json:"actualCost"`
	IsActive             bool                 `json:"isActive"`
	SeasonalAdjustments  []SeasonalAdjustment `json:"seasonalAdjustments"`
	SpecialInstructions  *string              `json:"specialInstructions"`
	RequiredMaterials    []string             `json:"requiredMaterials"`
	Tags                 []string             `json:"tags"`
	OccurrenceCount      int                  `json:"occurrenceCount"`
	CreatedAt            time.Time            `json:"createdAt"`
	UpdatedAt            time.Time            `json:"updatedAt"`
	CreatedBy            string               `json:"createdBy"`
	LastModifiedBy       string               `json:"lastModifiedBy"`
}

// RecurrencePattern is the stored form of a recurrence rule.
type RecurrencePattern struct {
	Type           string     `json:"type"`
	Interval       int        `json:"interval"`
	DaysOfWeek     []int      `json:"daysOfWeek"`
	DayOfMonth     *int       `json:"dayOfMonth"`
	EndDate        *time.Time `json:"endDate"`
	MaxOccurrences *int       `json:"maxOccurrences"`
	SkipWeekends   bool       `json:"skipWeekends"`
	SkipHolidays   bool       `json:"skipHolidays"`
}

// SeasonalAdjustment is the stored form of a seasonal multiplier window.
type SeasonalAdjustment struct {
	Season              string          `json:"season"`
	FrequencyMultiplier float64         `json:"frequencyMultiplier"`
	CostMultiplier      decimal.Decimal `json:"costMultiplier"`
	Description         *string         `json:"description"`
	StartDate           string          `json:"startDate"`
	EndDate             string          `json:"endDate"`
}
