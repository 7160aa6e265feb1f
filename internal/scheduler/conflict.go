package scheduler

import "sort"

// ConflictType describes the type of conflict detected between events.
type ConflictType string

const (
	// ConflictTypeEmployee indicates an employee is booked on overlapping services.
	ConflictTypeEmployee ConflictType = "employee"
)

// Conflict details an overlapping event pair that callers can present to users.
type Conflict struct {
	ScheduleID     string
	WithScheduleID string
	Type           ConflictType
	EmployeeID     string
}

// DetectConflicts reports every pair of events assigned to the same employee whose
// [Start, End) intervals overlap. Each pair is reported once, ordered by schedule id.
func DetectConflicts(events []Event) []Conflict {
	byEmployee := make(map[string][]Event)
	for _, event := range events {
		if event.AssignedEmployeeID == "" {
			continue
		}
		byEmployee[event.AssignedEmployeeID] = append(byEmployee[event.AssignedEmployeeID], event)
	}

	var conflicts []Conflict
	for employeeID, assigned := range byEmployee {
		sort.Slice(assigned, func(i, j int) bool {
			if assigned[i].Start.Equal(assigned[j].Start) {
				return assigned[i].ScheduleID < assigned[j].ScheduleID
			}
			return assigned[i].Start.Before(assigned[j].Start)
		})
		for i := range assigned {
			for j := i + 1; j < len(assigned); j++ {
				if !assigned[j].Start.Before(assigned[i].End) {
					break
				}
				a, b := assigned[i].ScheduleID, assigned[j].ScheduleID
				if b < a {
					a, b = b, a
				}
				conflicts = append(conflicts, Conflict{
					ScheduleID:     a,
					WithScheduleID: b,
					Type:           ConflictTypeEmployee,
					EmployeeID:     employeeID,
				})
			}
		}
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].ScheduleID == conflicts[j].ScheduleID {
			return conflicts[i].WithScheduleID < conflicts[j].WithScheduleID
		}
		return conflicts[i].ScheduleID < conflicts[j].ScheduleID
	})
	return conflicts
}
