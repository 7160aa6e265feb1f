package main

import (
	"context"
	"fmt"
	"time"

	"github.com/example/maintenance-scheduler/internal/application"
	"github.com/example/maintenance-scheduler/internal/calendar"
	"github.com/example/maintenance-scheduler/internal/persistence"
	"github.com/example/maintenance-scheduler/internal/recurrence"
)

type scheduleRepositoryAdapter struct {
	repo persistence.ScheduleRepository
}

func newScheduleRepositoryAdapter(repo persistence.ScheduleRepository) *scheduleRepositoryAdapter {
	return &scheduleRepositoryAdapter{repo: repo}
}

func (a *scheduleRepositoryAdapter) CreateSchedule(ctx context.Context, schedule application.ServiceSchedule) (application.ServiceSchedule, error) {
	if err := a.repo.CreateSchedule(ctx, toPersistenceSchedule(schedule)); err != nil {
		return application.ServiceSchedule{}, err
	}
	return a.GetSchedule(ctx, schedule.ID)
}

func (a *scheduleRepositoryAdapter) GetSchedule(ctx context.Context, id string) (application.ServiceSchedule, error) {
	stored, err := a.repo.GetSchedule(ctx, id)
	if err != nil {
		return application.ServiceSchedule{}, err
	}
	return toApplicationSchedule(stored)
}

func (a *scheduleRepositoryAdapter) UpdateSchedule(ctx context.Context, schedule application.ServiceSchedule) (application.ServiceSchedule, error) {
	if err := a.repo.UpdateSchedule(ctx, toPersistenceSchedule(schedule)); err != nil {
		return application.ServiceSchedule{}, err
	}
	return a.GetSchedule(ctx, schedule.ID)
}

func (a *scheduleRepositoryAdapter) DeleteSchedule(ctx context.Context, id string) error {
	return a.repo.DeleteSchedule(ctx, id)
}

func (a *scheduleRepositoryAdapter) ListSchedules(ctx context.Context) ([]application.ServiceSchedule, error) {
	models, err := a.repo.ListSchedules(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	schedules := make([]application.ServiceSchedule, 0, len(models))
	for _, model := range models {
		schedule, err := toApplicationSchedule(model)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, nil
}

func toApplicationSchedule(model persistence.ServiceSchedule) (application.ServiceSchedule, error) {
	rule := recurrence.Rule{
		Type:         recurrence.Type(model.RecurrencePattern.Type),
		Interval:     model.RecurrencePattern.Interval,
		EndDate:      cloneTime(model.RecurrencePattern.EndDate),
		SkipWeekends: model.RecurrencePattern.SkipWeekends,
		SkipHolidays: model.RecurrencePattern.SkipHolidays,
	}
	for _, day := range model.RecurrencePattern.DaysOfWeek {
		rule.DaysOfWeek = append(rule.DaysOfWeek, time.Weekday(day))
	}
	if model.RecurrencePattern.DayOfMonth != nil {
		rule.DayOfMonth = *model.RecurrencePattern.DayOfMonth
	}
	if model.RecurrencePattern.MaxOccurrences != nil {
		rule.MaxOccurrences = *model.RecurrencePattern.MaxOccurrences
	}

	var adjustments []recurrence.SeasonalAdjustment
	for _, adj := range model.SeasonalAdjustments {
		start, err := calendar.ParseMonthDay(adj.StartDate)
		if err != nil {
			return application.ServiceSchedule{}, fmt.Errorf("schedule %s: seasonal start: %w", model.ID, err)
		}
		end, err := calendar.ParseMonthDay(adj.EndDate)
		if err != nil {
			return application.ServiceSchedule{}, fmt.Errorf("schedule %s: seasonal end: %w", model.ID, err)
		}
		adjustments = append(adjustments, recurrence.SeasonalAdjustment{
			Season:              recurrence.Season(adj.Season),
			FrequencyMultiplier: adj.FrequencyMultiplier,
			CostMultiplier:      adj.CostMultiplier,
			Description:         deref(adj.Description),
			Start:               start,
			End:                 end,
		})
	}

	schedule := application.ServiceSchedule{
		ID:                   model.ID,
		PropertyID:           model.PropertyID,
		PropertyName:         model.PropertyName,
		ServiceItemID:        deref(model.ServiceItemID),
		ServiceItemName:      deref(model.ServiceItemName),
		AssignedEmployeeID:   deref(model.AssignedEmployeeID),
		AssignedEmployeeName: deref(model.AssignedEmployeeName),
		Title:                model.Title,
		Description:          model.Description,
		Category:             application.Category(model.Category),
		Priority:             application.Priority(model.Priority),
		Recurrence:           rule,
		SeasonalAdjustments:  adjustments,
		NextServiceDate:      model.NextServiceDate,
		LastServiceDate:      cloneTime(model.LastServiceDate),
		EstimatedDuration:    model.EstimatedDuration,
		EstimatedCost:        model.EstimatedCost,
		ActualCost:           model.ActualCost,
		IsActive:             model.IsActive,
		OccurrenceCount:      model.OccurrenceCount,
		SpecialInstructions:  deref(model.SpecialInstructions),
		RequiredMaterials:    append([]string(nil), model.RequiredMaterials...),
		Tags:                 append([]string(nil), model.Tags...),
		CreatedAt:            model.CreatedAt,
		UpdatedAt:            model.UpdatedAt,
		CreatedBy:            model.CreatedBy,
		LastModifiedBy:       model.LastModifiedBy,
	}
	return schedule.Clone(), nil
}

func toPersistenceSchedule(schedule application.ServiceSchedule) persistence.ServiceSchedule {
	schedule = schedule.Clone()
	record := persistence.ServiceSchedule{
		ID:                   schedule.ID,
		PropertyID:           schedule.PropertyID,
		PropertyName:         schedule.PropertyName,
		ServiceItemID:        optional(schedule.ServiceItemID),
		ServiceItemName:      optional(schedule.ServiceItemName),
		AssignedEmployeeID:   optional(schedule.AssignedEmployeeID),
		AssignedEmployeeName: optional(schedule.AssignedEmployeeName),
		Title:                schedule.Title,
		Description:          schedule.Description,
		Category:             string(schedule.Category),
		Priority:             string(schedule.Priority),
		NextServiceDate:      schedule.NextServiceDate,
		LastServiceDate:      schedule.LastServiceDate,
		EstimatedDuration:    schedule.EstimatedDuration,
		EstimatedCost:        schedule.EstimatedCost,
		ActualCost:           schedule.ActualCost,
		IsActive:             schedule.IsActive,
		OccurrenceCount:      schedule.OccurrenceCount,
		SpecialInstructions:  optional(schedule.SpecialInstructions),
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
	if dom := schedule.Recurrence.DayOfMonth; dom > 0 {
		record.RecurrencePattern.DayOfMonth = &dom
	}
	if maxOcc := schedule.Recurrence.MaxOccurrences; maxOcc > 0 {
		record.RecurrencePattern.MaxOccurrences = &maxOcc
	}
	for _, adj := range schedule.SeasonalAdjustments {
		record.SeasonalAdjustments = append(record.SeasonalAdjustments, persistence.SeasonalAdjustment{
			Season:              string(adj.Season),
			FrequencyMultiplier: adj.FrequencyMultiplier,
			CostMultiplier:      adj.CostMultiplier,
			Description:         optional(adj.Description),
			StartDate:           adj.Start.String(),
			EndDate:             adj.End.String(),
		})
	}
	return record
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
