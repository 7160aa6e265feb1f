package application

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/maintenance-scheduler/internal/recurrence"
)

// Principal represents the caller invoking a service method. It only stamps audit fields.
type Principal struct {
	UserID string
}

// Category classifies the kind of maintenance work.
type Category string

const (
	CategoryPlumbing           Category = "plumbing"
	CategoryElectrical         Category = "electrical"
	CategoryHVAC               Category = "hvac"
	CategoryCleaning           Category = "cleaning"
	CategoryLandscaping        Category = "landscaping"
	CategoryPainting           Category = "painting"
	CategoryCarpentry          Category = "carpentry"
	CategoryApplianceRepair    Category = "appliance-repair"
	CategoryPestControl        Category = "pest-control"
	CategorySecurity           Category = "security"
	CategoryGeneralMaintenance Category = "general-maintenance"
	CategoryEmergency          Category = "emergency"
	CategoryOther              Category = "other"
)

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{
		CategoryPlumbing,
		CategoryElectrical,
		CategoryHVAC,
		CategoryCleaning,
		CategoryLandscaping,
		CategoryPainting,
		CategoryCarpentry,
		CategoryApplianceRepair,
		CategoryPestControl,
		CategorySecurity,
		CategoryGeneralMaintenance,
		CategoryEmergency,
		CategoryOther,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Priority ranks how urgently a service should be performed.
type Priority string

const (
	PriorityLow       Priority = "low"
	PriorityMedium    Priority = "medium"
	PriorityHigh      Priority = "high"
	PriorityEmergency Priority = "emergency"
)

// Priorities lists every priority from lowest to highest.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityEmergency}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityEmergency:
		return true
	}
	return false
}

// ServiceSchedule is a recurring maintenance obligation tied to a property.
//
// PropertyName, ServiceItemName and AssignedEmployeeName are denormalized at write time
// and may lag behind the directory they were resolved from.
type ServiceSchedule struct {
	ID                   string
	PropertyID           string
	PropertyName         string
	ServiceItemID        string
	ServiceItemName      string
	AssignedEmployeeID   string
	AssignedEmployeeName string
	Title                string
	Description          string
	Category             Category
	Priority             Priority
	Recurrence           recurrence.Rule
	SeasonalAdjustments  []recurrence.SeasonalAdjustment
	NextServiceDate      time.Time
	LastServiceDate      *time.Time
	EstimatedDuration    int
	EstimatedCost        *decimal.Decimal
	ActualCost           *decimal.Decimal
	IsActive             bool
	OccurrenceCount      int
	SpecialInstructions  string
	RequiredMaterials    []string
	Tags                 []string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	CreatedBy            string
	LastModifiedBy       string
}

// Clone returns a deep copy of the schedule.
func (s ServiceSchedule) Clone() ServiceSchedule {
	out := s
	out.Recurrence = s.Recurrence.Clone()
	if s.SeasonalAdjustments != nil {
		out.SeasonalAdjustments = append([]recurrence.SeasonalAdjustment(nil), s.SeasonalAdjustments...)
	}
	if s.LastServiceDate != nil {
		last := *s.LastServiceDate
		out.LastServiceDate = &last
	}
	out.EstimatedCost = cloneDecimal(s.EstimatedCost)
	out.ActualCost = cloneDecimal(s.ActualCost)
	if s.RequiredMaterials != nil {
		out.RequiredMaterials = append([]string(nil), s.RequiredMaterials...)
	}
	if s.Tags != nil {
		out.Tags = append([]string(nil), s.Tags...)
	}
	return out
}

func cloneDecimal(value *decimal.Decimal) *decimal.Decimal {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

// ScheduleInput captures caller provided fields for a new schedule. NextServiceDate is
// taken as given; nothing is projected at creation.
type ScheduleInput struct {
	PropertyID          string
	ServiceItemID       string
	AssignedEmployeeID  string
	Title               string
	Description         string
	Category            Category
	Priority            Priority
	Recurrence          recurrence.Rule
	SeasonalAdjustments []recurrence.SeasonalAdjustment
	NextServiceDate     time.Time
	EstimatedDuration   int
	EstimatedCost       *decimal.Decimal
	SpecialInstructions string
	RequiredMaterials   []string
	Tags                []string
}

// SchedulePatch carries a partial update. Nil fields are left untouched; an empty string
// clears ServiceItemID, AssignedEmployeeID and SpecialInstructions.
type SchedulePatch struct {
	PropertyID          *string
	ServiceItemID       *string
	AssignedEmployeeID  *string
	Title               *string
	Description         *string
	Category            *Category
	Priority            *Priority
	Recurrence          *recurrence.Rule
	SeasonalAdjustments *[]recurrence.SeasonalAdjustment
	NextServiceDate     *time.Time
	EstimatedDuration   *int
	EstimatedCost       *decimal.Decimal
	ClearEstimatedCost  bool
	IsActive            *bool
	SpecialInstructions *string
	RequiredMaterials   *[]string
	Tags                *[]string
}

// CreateScheduleParams wraps the data required to create a schedule.
type CreateScheduleParams struct {
	Principal Principal
	Input     ScheduleInput
}

// UpdateScheduleParams wraps the data required to update an existing schedule.
type UpdateScheduleParams struct {
	Principal  Principal
	ScheduleID string
	Patch      SchedulePatch
}

// CompleteServiceParams records a performed service.
type CompleteServiceParams struct {
	Principal  Principal
	ScheduleID string
	ActualCost *decimal.Decimal
}

// QueryCriteria narrows a schedule query. Zero-valued fields are ignored and the rest
// are combined with AND. SearchTerm is matched case-insensitively against title,
// description, property name and assigned employee name. Tags matches schedules
// carrying at least one of the listed tags.
type QueryCriteria struct {
	SearchTerm         string
	PropertyID         string
	Category           Category
	Priority           Priority
	AssignedEmployeeID string
	IsActive           *bool
	DueFrom            *time.Time
	DueTo              *time.Time
	Tags               []string
	RecurrenceType     recurrence.Type
}

// EmployeeWorkload summarises the schedules assigned to one employee.
type EmployeeWorkload struct {
	EmployeeID             string          `json:"employeeId"`
	EmployeeName           string          `json:"employeeName"`
	TotalSchedules         int             `json:"totalSchedules"`
	UpcomingServices       int             `json:"upcomingServices"`
	OverdueServices        int             `json:"overdueServices"`
	AverageServiceDuration int             `json:"averageServiceDuration"`
	TotalEstimatedCost     decimal.Decimal `json:"totalEstimatedCost"`
}

// PropertyServiceCount summarises the schedules attached to one property.
type PropertyServiceCount struct {
	PropertyID         string          `json:"propertyId"`
	PropertyName       string          `json:"propertyName"`
	TotalSchedules     int             `json:"totalSchedules"`
	ActiveSchedules    int             `json:"activeSchedules"`
	NextServiceDate    *time.Time      `json:"nextServiceDate,omitempty"`
	TotalEstimatedCost decimal.Decimal `json:"totalEstimatedCost"`
	MostCommonCategory Category        `json:"mostCommonCategory,omitempty"`
}

// ScheduleStatistics aggregates the published snapshot.
type ScheduleStatistics struct {
	TotalSchedules        int                     `json:"totalSchedules"`
	ActiveSchedules       int                     `json:"activeSchedules"`
	InactiveSchedules     int                     `json:"inactiveSchedules"`
	UpcomingServices      int                     `json:"upcomingServices"`
	OverdueServices       int                     `json:"overdueServices"`
	SchedulesThisMonth    int                     `json:"schedulesThisMonth"`
	AverageServiceCost    decimal.Decimal         `json:"averageServiceCost"`
	MostCommonCategory    Category                `json:"mostCommonCategory,omitempty"`
	ByCategory            map[Category]int        `json:"schedulesByCategory"`
	ByPriority            map[Priority]int        `json:"schedulesByPriority"`
	ByRecurrence          map[recurrence.Type]int `json:"schedulesByRecurrence"`
	EmployeeWorkload      []EmployeeWorkload      `json:"employeeWorkload"`
	PropertyServiceCounts []PropertyServiceCount  `json:"propertyServiceCounts"`
	OverdueScheduleIDs    []string                `json:"overdueScheduleIds"`
	GeneratedAt           time.Time               `json:"generatedAt"`
}

// Snapshot is the complete schedule collection published after every mutation.
// Schedules are ordered by next service date, then id. Every receiver gets its
// own copy.
type Snapshot struct {
	Version     uint64
	Schedules   []ServiceSchedule
	PublishedAt time.Time
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Schedules != nil {
		out.Schedules = make([]ServiceSchedule, len(s.Schedules))
		for i, schedule := range s.Schedules {
			out.Schedules[i] = schedule.Clone()
		}
	}
	return out
}
