package http

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/maintenance-scheduler/internal/application"
	"github.com/example/maintenance-scheduler/internal/calendar"
	"github.com/example/maintenance-scheduler/internal/recurrence"
	"github.com/example/maintenance-scheduler/internal/scheduler"
)

// dateParser turns request dates into times. Date-only values are midnight in loc.
type dateParser struct {
	loc *time.Location
}

func (p dateParser) parse(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	if ts, err := time.ParseInLocation(time.DateOnly, value, p.loc); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("expected RFC 3339 timestamp or YYYY-MM-DD date, got %q", value)
}

// parseUpper parses an inclusive upper bound. A date-only value covers the whole day.
func (p dateParser) parseUpper(value string) (time.Time, error) {
	ts, err := p.parse(value)
	if err != nil {
		return time.Time{}, err
	}
	if len(strings.TrimSpace(value)) == len(time.DateOnly) {
		ts = ts.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return ts, nil
}

type recurrencePatternDTO struct {
	Type           string  `json:"type"`
	Interval       *int    `json:"interval,omitempty"`
	DaysOfWeek     []int   `json:"daysOfWeek,omitempty"`
	DayOfMonth     *int    `json:"dayOfMonth,omitempty"`
	EndDate        *string `json:"endDate,omitempty"`
	MaxOccurrences *int    `json:"maxOccurrences,omitempty"`
	SkipWeekends   bool    `json:"skipWeekends"`
	SkipHolidays   bool    `json:"skipHolidays"`
}

func (d recurrencePatternDTO) toRule(dates dateParser, vErr *application.ValidationError) recurrence.Rule {
	rule := recurrence.Rule{
		Type:         recurrence.Type(strings.TrimSpace(d.Type)),
		Interval:     1,
		SkipWeekends: d.SkipWeekends,
		SkipHolidays: d.SkipHolidays,
	}
	if d.Interval != nil {
		rule.Interval = *d.Interval
	}
	for _, day := range d.DaysOfWeek {
		rule.DaysOfWeek = append(rule.DaysOfWeek, time.Weekday(day))
	}
	if d.DayOfMonth != nil {
		rule.DayOfMonth = *d.DayOfMonth
	}
	if d.MaxOccurrences != nil {
		rule.MaxOccurrences = *d.MaxOccurrences
	}
	if d.EndDate != nil && strings.TrimSpace(*d.EndDate) != "" {
		end, err := dates.parse(*d.EndDate)
		if err != nil {
			addFieldError(vErr, "recurrencePattern.endDate", err.Error())
		} else {
			rule.EndDate = &end
		}
	}
	return rule
}

func toRecurrenceDTO(rule recurrence.Rule) recurrencePatternDTO {
	interval := rule.Interval
	dto := recurrencePatternDTO{
		Type:         string(rule.Type),
		Interval:     &interval,
		SkipWeekends: rule.SkipWeekends,
		SkipHolidays: rule.SkipHolidays,
	}
	for _, day := range rule.DaysOfWeek {
		dto.DaysOfWeek = append(dto.DaysOfWeek, int(day))
	}
	if rule.DayOfMonth > 0 {
		dom := rule.DayOfMonth
		dto.DayOfMonth = &dom
	}
	if rule.MaxOccurrences > 0 {
		maxOcc := rule.MaxOccurrences
		dto.MaxOccurrences = &maxOcc
	}
	if rule.EndDate != nil {
		end := formatTime(*rule.EndDate)
		dto.EndDate = &end
	}
	return dto
}

type seasonalAdjustmentDTO struct {
	Season              string            `json:"season"`
	FrequencyMultiplier float64           `json:"frequencyMultiplier"`
	CostMultiplier      decimal.Decimal   `json:"costMultiplier"`
	Description         string            `json:"description,omitempty"`
	StartDate           calendar.MonthDay `json:"startDate"`
	EndDate             calendar.MonthDay `json:"endDate"`
}

func toAdjustments(dtos []seasonalAdjustmentDTO) []recurrence.SeasonalAdjustment {
	if dtos == nil {
		return nil
	}
	out := make([]recurrence.SeasonalAdjustment, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, recurrence.SeasonalAdjustment{
			Season:              recurrence.Season(strings.TrimSpace(dto.Season)),
			FrequencyMultiplier: dto.FrequencyMultiplier,
			CostMultiplier:      dto.CostMultiplier,
			Description:         dto.Description,
			Start:               dto.StartDate,
			End:                 dto.EndDate,
		})
	}
	return out
}

func toAdjustmentDTOs(adjustments []recurrence.SeasonalAdjustment) []seasonalAdjustmentDTO {
	if len(adjustments) == 0 {
		return nil
	}
	out := make([]seasonalAdjustmentDTO, 0, len(adjustments))
	for _, adj := range adjustments {
		out = append(out, seasonalAdjustmentDTO{
			Season:              string(adj.Season),
			FrequencyMultiplier: adj.FrequencyMultiplier,
			CostMultiplier:      adj.CostMultiplier,
			Description:         adj.Description,
			StartDate:           adj.Start,
			EndDate:             adj.End,
		})
	}
	return out
}

type createScheduleRequest struct {
	PropertyID          string                  `json:"propertyId"`
	ServiceItemID       string                  `json:"serviceItemId"`
	AssignedEmployeeID  string                  `json:"assignedEmployeeId"`
	Title               string                  `json:"title"`
	Description         string                  `json:"description"`
	Category            string                  `json:"category"`
	Priority            string                  `json:"priority"`
	RecurrencePattern   recurrencePatternDTO    `json:"recurrencePattern"`
	SeasonalAdjustments []seasonalAdjustmentDTO `json:"seasonalAdjustments"`
	NextServiceDate     string                  `json:"nextServiceDate"`
	EstimatedDuration   int                     `json:"estimatedDuration"`
	EstimatedCost       *decimal.Decimal        `json:"estimatedCost"`
	SpecialInstructions string                  `json:"specialInstructions"`
	RequiredMaterials   []string                `json:"requiredMaterials"`
	Tags                []string                `json:"tags"`
}

func (r createScheduleRequest) toInput(dates dateParser) (application.ScheduleInput, error) {
	vErr := &application.ValidationError{}
	input := application.ScheduleInput{
		PropertyID:          strings.TrimSpace(r.PropertyID),
		ServiceItemID:       strings.TrimSpace(r.ServiceItemID),
		AssignedEmployeeID:  strings.TrimSpace(r.AssignedEmployeeID),
		Title:               strings.TrimSpace(r.Title),
		Description:         r.Description,
		Category:            application.Category(strings.TrimSpace(r.Category)),
		Priority:            application.Priority(strings.TrimSpace(r.Priority)),
		Recurrence:          r.RecurrencePattern.toRule(dates, vErr),
		SeasonalAdjustments: toAdjustments(r.SeasonalAdjustments),
		EstimatedDuration:   r.EstimatedDuration,
		EstimatedCost:       r.EstimatedCost,
		SpecialInstructions: r.SpecialInstructions,
		RequiredMaterials:   r.RequiredMaterials,
		Tags:                r.Tags,
	}
	if strings.TrimSpace(r.NextServiceDate) != "" {
		next, err := dates.parse(r.NextServiceDate)
		if err != nil {
			addFieldError(vErr, "nextServiceDate", err.Error())
		} else {
			input.NextServiceDate = next
		}
	}
	if vErr.HasErrors() {
		return application.ScheduleInput{}, vErr
	}
	return input, nil
}

// optionalDecimal distinguishes an absent field from an explicit null.
type optionalDecimal struct {
	Set   bool
	Value *decimal.Decimal
}

func (o *optionalDecimal) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var d decimal.Decimal
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	o.Value = &d
	return nil
}

type updateScheduleRequest struct {
	PropertyID          *string                  `json:"propertyId"`
	ServiceItemID       *string                  `json:"serviceItemId"`
	AssignedEmployeeID  *string                  `json:"assignedEmployeeId"`
	Title               *string                  `json:"title"`
	Description         *string                  `json:"description"`
	Category            *string                  `json:"category"`
	Priority            *string                  `json:"priority"`
	RecurrencePattern   *recurrencePatternDTO    `json:"recurrencePattern"`
	SeasonalAdjustments *[]seasonalAdjustmentDTO `json:"seasonalAdjustments"`
	NextServiceDate     *string                  `json:"nextServiceDate"`
	EstimatedDuration   *int                     `json:"estimatedDuration"`
	EstimatedCost       optionalDecimal          `json:"estimatedCost"`
	IsActive            *bool                    `json:"isActive"`
	SpecialInstructions *string                  `json:"specialInstructions"`
	RequiredMaterials   *[]string                `json:"requiredMaterials"`
	Tags                *[]string                `json:"tags"`
}

func (r updateScheduleRequest) toPatch(dates dateParser) (application.SchedulePatch, error) {
	vErr := &application.ValidationError{}
	patch := application.SchedulePatch{
		PropertyID:          r.PropertyID,
		ServiceItemID:       r.ServiceItemID,
		AssignedEmployeeID:  r.AssignedEmployeeID,
		Title:               r.Title,
		Description:         r.Description,
		EstimatedDuration:   r.EstimatedDuration,
		IsActive:            r.IsActive,
		SpecialInstructions: r.SpecialInstructions,
		RequiredMaterials:   r.RequiredMaterials,
		Tags:                r.Tags,
	}
	if r.Category != nil {
		category := application.Category(strings.TrimSpace(*r.Category))
		patch.Category = &category
	}
	if r.Priority != nil {
		priority := application.Priority(strings.TrimSpace(*r.Priority))
		patch.Priority = &priority
	}
	if r.RecurrencePattern != nil {
		rule := r.RecurrencePattern.toRule(dates, vErr)
		patch.Recurrence = &rule
	}
	if r.SeasonalAdjustments != nil {
		adjustments := toAdjustments(*r.SeasonalAdjustments)
		if adjustments == nil {
			adjustments = []recurrence.SeasonalAdjustment{}
		}
		patch.SeasonalAdjustments = &adjustments
	}
	if r.NextServiceDate != nil {
		next, err := dates.parse(*r.NextServiceDate)
		if err != nil {
			addFieldError(vErr, "nextServiceDate", err.Error())
		} else {
			patch.NextServiceDate = &next
		}
	}
	if r.EstimatedCost.Set {
		if r.EstimatedCost.Value == nil {
			patch.ClearEstimatedCost = true
		} else {
			patch.EstimatedCost = r.EstimatedCost.Value
		}
	}
	if vErr.HasErrors() {
		return application.SchedulePatch{}, vErr
	}
	return patch, nil
}

type completeServiceRequest struct {
	ActualCost *decimal.Decimal `json:"actualCost"`
}

type scheduleDTO struct {
	ID                   string                  `json:"id"`
	PropertyID           string                  `json:"propertyId"`
	PropertyName         string                  `json:"propertyName,omitempty"`
	ServiceItemID        string                  `json:"serviceItemId,omitempty"`
	ServiceItemName      string                  `json:"serviceItemName,omitempty"`
	AssignedEmployeeID   string                  `json:"assignedEmployeeId,omitempty"`
	AssignedEmployeeName string                  `json:"assignedEmployeeName,omitempty"`
	Title                string                  `json:"title"`
	Description          string                  `json:"description"`
	Category             string                  `json:"category"`
	Priority             string                  `json:"priority"`
	RecurrencePattern    recurrencePatternDTO    `json:"recurrencePattern"`
	SeasonalAdjustments  []seasonalAdjustmentDTO `json:"seasonalAdjustments,omitempty"`
	NextServiceDate      string                  `json:"nextServiceDate"`
	LastServiceDate      *string                 `json:"lastServiceDate,omitempty"`
	EstimatedDuration    int                     `json:"estimatedDuration"`
	EstimatedCost        *decimal.Decimal        `json:"estimatedCost,omitempty"`
	AdjustedCost         *decimal.Decimal        `json:"adjustedCost,omitempty"`
	ActualCost           *decimal.Decimal        `json:"actualCost,omitempty"`
	IsActive             bool                    `json:"isActive"`
	OccurrenceCount      int                     `json:"occurrenceCount"`
	SpecialInstructions  string                  `json:"specialInstructions,omitempty"`
	RequiredMaterials    []string                `json:"requiredMaterials,omitempty"`
	Tags                 []string                `json:"tags,omitempty"`
	CreatedAt            string                  `json:"createdAt"`
	UpdatedAt            string                  `json:"updatedAt"`
	CreatedBy            string                  `json:"createdBy,omitempty"`
	LastModifiedBy       string                  `json:"lastModifiedBy,omitempty"`
}

func toScheduleDTO(schedule application.ServiceSchedule) scheduleDTO {
	dto := scheduleDTO{
		ID:                   schedule.ID,
		PropertyID:           schedule.PropertyID,
		PropertyName:         schedule.PropertyName,
		ServiceItemID:        schedule.ServiceItemID,
		ServiceItemName:      schedule.ServiceItemName,
		AssignedEmployeeID:   schedule.AssignedEmployeeID,
		AssignedEmployeeName: schedule.AssignedEmployeeName,
		Title:                schedule.Title,
		Description:          schedule.Description,
		Category:             string(schedule.Category),
		Priority:             string(schedule.Priority),
		RecurrencePattern:    toRecurrenceDTO(schedule.Recurrence),
		SeasonalAdjustments:  toAdjustmentDTOs(schedule.SeasonalAdjustments),
		NextServiceDate:      formatTime(schedule.NextServiceDate),
		EstimatedDuration:    schedule.EstimatedDuration,
		EstimatedCost:        schedule.EstimatedCost,
		ActualCost:           schedule.ActualCost,
		IsActive:             schedule.IsActive,
		OccurrenceCount:      schedule.OccurrenceCount,
		SpecialInstructions:  schedule.SpecialInstructions,
		RequiredMaterials:    schedule.RequiredMaterials,
		Tags:                 schedule.Tags,
		CreatedAt:            formatTime(schedule.CreatedAt),
		UpdatedAt:            formatTime(schedule.UpdatedAt),
		CreatedBy:            schedule.CreatedBy,
		LastModifiedBy:       schedule.LastModifiedBy,
	}
	if schedule.LastServiceDate != nil {
		last := formatTime(*schedule.LastServiceDate)
		dto.LastServiceDate = &last
	}
	return dto
}

func toScheduleDTOs(schedules []application.ServiceSchedule) []scheduleDTO {
	out := make([]scheduleDTO, 0, len(schedules))
	for _, schedule := range schedules {
		out = append(out, toScheduleDTO(schedule))
	}
	return out
}

type scheduleResponse struct {
	Schedule scheduleDTO `json:"schedule"`
}

type listSchedulesResponse struct {
	Schedules []scheduleDTO `json:"schedules"`
	Total     int           `json:"total"`
}

type previewResponse struct {
	ScheduleID string   `json:"scheduleId"`
	Dates      []string `json:"dates"`
}

type eventDTO struct {
	ID                   string `json:"id"`
	ScheduleID           string `json:"scheduleId"`
	Title                string `json:"title"`
	Start                string `json:"start"`
	End                  string `json:"end"`
	Status               string `json:"status"`
	Category             string `json:"category"`
	Priority             string `json:"priority"`
	PropertyID           string `json:"propertyId"`
	PropertyName         string `json:"propertyName,omitempty"`
	AssignedEmployeeID   string `json:"assignedEmployeeId,omitempty"`
	AssignedEmployeeName string `json:"assignedEmployeeName,omitempty"`
	EstimatedDuration    int    `json:"estimatedDuration"`
	BackgroundColor      string `json:"backgroundColor"`
	TextColor            string `json:"textColor"`
}

type conflictDTO struct {
	ScheduleID     string `json:"scheduleId"`
	WithScheduleID string `json:"withScheduleId"`
	Type           string `json:"type"`
	EmployeeID     string `json:"employeeId"`
}

type calendarResponse struct {
	Version   uint64        `json:"version"`
	Events    []eventDTO    `json:"events"`
	Conflicts []conflictDTO `json:"conflicts,omitempty"`
}

func toCalendarResponse(view application.CalendarView) calendarResponse {
	resp := calendarResponse{Version: view.Version, Events: make([]eventDTO, 0, len(view.Events))}
	for _, event := range view.Events {
		resp.Events = append(resp.Events, toEventDTO(event))
	}
	for _, conflict := range view.Conflicts {
		resp.Conflicts = append(resp.Conflicts, conflictDTO{
			ScheduleID:     conflict.ScheduleID,
			WithScheduleID: conflict.WithScheduleID,
			Type:           string(conflict.Type),
			EmployeeID:     conflict.EmployeeID,
		})
	}
	return resp
}

func toEventDTO(event scheduler.Event) eventDTO {
	return eventDTO{
		ID:                   event.ID,
		ScheduleID:           event.ScheduleID,
		Title:                event.Title,
		Start:                formatTime(event.Start),
		End:                  formatTime(event.End),
		Status:               string(event.Status),
		Category:             event.Category,
		Priority:             event.Priority,
		PropertyID:           event.PropertyID,
		PropertyName:         event.PropertyName,
		AssignedEmployeeID:   event.AssignedEmployeeID,
		AssignedEmployeeName: event.AssignedEmployeeName,
		EstimatedDuration:    event.EstimatedDuration,
		BackgroundColor:      event.BackgroundColor,
		TextColor:            event.TextColor,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func addFieldError(vErr *application.ValidationError, field, message string) {
	if vErr.FieldErrors == nil {
		vErr.FieldErrors = make(map[string]string)
	}
	vErr.FieldErrors[field] = message
}
