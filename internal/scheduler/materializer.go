// Package scheduler turns service schedules into calendar events and inspects them.
package scheduler

import (
	"sort"
	"time"
)

// Schedule is the projection input for a single service schedule.
type Schedule struct {
	ID                   string
	Title                string
	Description          string
	Category             string
	Priority             string
	PropertyID           string
	PropertyName         string
	AssignedEmployeeID   string
	AssignedEmployeeName string
	NextServiceDate      time.Time
	EstimatedDuration    int
	Active               bool
}

// Status is the display state of a calendar event.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusAssigned  Status = "assigned"
	StatusOverdue   Status = "overdue"
	// StatusCompleted is never produced by Materialize; filters still honour it.
	StatusCompleted Status = "completed"
)

// Event is a time-bounded occurrence of a schedule on the calendar.
type Event struct {
	ID                   string
	ScheduleID           string
	Title                string
	Description          string
	Start                time.Time
	End                  time.Time
	Status               Status
	Category             string
	Priority             string
	PropertyID           string
	PropertyName         string
	AssignedEmployeeID   string
	AssignedEmployeeName string
	EstimatedDuration    int
	BackgroundColor      string
	TextColor            string
}

// Filter narrows materialized events. Empty fields match everything.
type Filter struct {
	EmployeeID       string
	PropertyID       string
	Category         string
	IncludeCompleted bool
}

const defaultColor = "#3880ff"

var priorityColors = map[string]string{
	"low":       "#10dc60",
	"medium":    "#ffce00",
	"high":      "#f04141",
	"emergency": "#8b0000",
}

// PriorityColor returns the calendar colour for a priority.
func PriorityColor(priority string) string {
	if color, ok := priorityColors[priority]; ok {
		return color
	}
	return defaultColor
}

// EventStatus classifies a schedule relative to now.
func EventStatus(schedule Schedule, now time.Time) Status {
	if schedule.NextServiceDate.Before(now) {
		return StatusOverdue
	}
	if schedule.AssignedEmployeeID != "" {
		return StatusAssigned
	}
	return StatusScheduled
}

// Materialize emits one event for every active schedule whose next service date lies in
// [windowStart, windowEnd], applying filter afterwards. Events are ordered by start, then
// schedule id. A zero windowStart or windowEnd leaves that side open.
func Materialize(schedules []Schedule, windowStart, windowEnd, now time.Time, filter Filter) []Event {
	events := make([]Event, 0, len(schedules))
	for _, schedule := range schedules {
		if !schedule.Active {
			continue
		}
		start := schedule.NextServiceDate
		if !windowStart.IsZero() && start.Before(windowStart) {
			continue
		}
		if !windowEnd.IsZero() && start.After(windowEnd) {
			continue
		}

		event := Event{
			ID:                   "event-" + schedule.ID,
			ScheduleID:           schedule.ID,
			Title:                schedule.Title,
			Description:          schedule.Description,
			Start:                start,
			End:                  start.Add(time.Duration(schedule.EstimatedDuration) * time.Minute),
			Status:               EventStatus(schedule, now),
			Category:             schedule.Category,
			Priority:             schedule.Priority,
			PropertyID:           schedule.PropertyID,
			PropertyName:         schedule.PropertyName,
			AssignedEmployeeID:   schedule.AssignedEmployeeID,
			AssignedEmployeeName: schedule.AssignedEmployeeName,
			EstimatedDuration:    schedule.EstimatedDuration,
			BackgroundColor:      PriorityColor(schedule.Priority),
			TextColor:            "#ffffff",
		}
		if !filter.matches(event) {
			continue
		}
		events = append(events, event)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].ScheduleID < events[j].ScheduleID
		}
		return events[i].Start.Before(events[j].Start)
	})
	return events
}

func (f Filter) matches(event Event) bool {
	if f.EmployeeID != "" && event.AssignedEmployeeID != f.EmployeeID {
		return false
	}
	if f.PropertyID != "" && event.PropertyID != f.PropertyID {
		return false
	}
	if f.Category != "" && event.Category != f.Category {
		return false
	}
	if !f.IncludeCompleted && event.Status == StatusCompleted {
		return false
	}
	return true
}
