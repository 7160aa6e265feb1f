package application

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/maintenance-scheduler/internal/calendar"
	"github.com/example/maintenance-scheduler/internal/recurrence"
)

// UpcomingWindow is how far ahead of now a due schedule counts as upcoming.
const UpcomingWindow = 7 * 24 * time.Hour

// QuerySchedules filters the published snapshot. Results keep the snapshot order,
// ascending by next service date.
func (s *ScheduleService) QuerySchedules(ctx context.Context, criteria QueryCriteria) []ServiceSchedule {
	snapshot := s.Snapshot()
	term := strings.ToLower(strings.TrimSpace(criteria.SearchTerm))

	results := make([]ServiceSchedule, 0, len(snapshot.Schedules))
	for _, schedule := range snapshot.Schedules {
		if !criteria.matches(schedule, term) {
			continue
		}
		results = append(results, schedule.Clone())
	}
	return results
}

func (c QueryCriteria) matches(schedule ServiceSchedule, term string) bool {
	if term != "" && !matchesSearch(schedule, term) {
		return false
	}
	if c.PropertyID != "" && schedule.PropertyID != c.PropertyID {
		return false
	}
	if c.Category != "" && schedule.Category != c.Category {
		return false
	}
	if c.Priority != "" && schedule.Priority != c.Priority {
		return false
	}
	if c.AssignedEmployeeID != "" && schedule.AssignedEmployeeID != c.AssignedEmployeeID {
		return false
	}
	if c.IsActive != nil && schedule.IsActive != *c.IsActive {
		return false
	}
	if c.DueFrom != nil && schedule.NextServiceDate.Before(*c.DueFrom) {
		return false
	}
	if c.DueTo != nil && schedule.NextServiceDate.After(*c.DueTo) {
		return false
	}
	if len(c.Tags) > 0 && !hasAnyTag(schedule.Tags, c.Tags) {
		return false
	}
	if c.RecurrenceType != "" && schedule.Recurrence.Type != c.RecurrenceType {
		return false
	}
	return true
}

func matchesSearch(schedule ServiceSchedule, term string) bool {
	for _, field := range []string{schedule.Title, schedule.Description, schedule.PropertyName, schedule.AssignedEmployeeName} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func hasAnyTag(tags, wanted []string) bool {
	for _, tag := range tags {
		for _, w := range wanted {
			if tag == w {
				return true
			}
		}
	}
	return false
}

// Statistics aggregates the published snapshot relative to the service clock.
func (s *ScheduleService) Statistics(ctx context.Context) ScheduleStatistics {
	return computeStatistics(s.Snapshot().Schedules, s.now())
}

func computeStatistics(schedules []ServiceSchedule, now time.Time) ScheduleStatistics {
	stats := ScheduleStatistics{
		AverageServiceCost:    decimal.Zero,
		ByCategory:            make(map[Category]int),
		ByPriority:            make(map[Priority]int),
		ByRecurrence:          make(map[recurrence.Type]int),
		EmployeeWorkload:      []EmployeeWorkload{},
		PropertyServiceCounts: []PropertyServiceCount{},
		OverdueScheduleIDs:    []string{},
		GeneratedAt:           now,
	}

	monthStart := calendar.StartOfMonth(now)
	monthEnd := calendar.AddMonths(monthStart, 1)
	upcomingEnd := now.Add(UpcomingWindow)

	costTotal := decimal.Zero
	costCount := 0

	type employeeAcc struct {
		workload      EmployeeWorkload
		totalDuration int
	}
	type propertyAcc struct {
		counts     PropertyServiceCount
		categories map[Category]int
	}
	employees := make(map[string]*employeeAcc)
	properties := make(map[string]*propertyAcc)

	for _, schedule := range schedules {
		stats.TotalSchedules++
		stats.ByCategory[schedule.Category]++
		stats.ByPriority[schedule.Priority]++
		stats.ByRecurrence[schedule.Recurrence.Type]++

		overdue := schedule.IsActive && schedule.NextServiceDate.Before(now)
		upcoming := schedule.IsActive && !schedule.NextServiceDate.Before(now) && !schedule.NextServiceDate.After(upcomingEnd)

		if schedule.IsActive {
			stats.ActiveSchedules++
		} else {
			stats.InactiveSchedules++
		}
		if overdue {
			stats.OverdueServices++
			stats.OverdueScheduleIDs = append(stats.OverdueScheduleIDs, schedule.ID)
		}
		if upcoming {
			stats.UpcomingServices++
		}
		if !schedule.NextServiceDate.Before(monthStart) && schedule.NextServiceDate.Before(monthEnd) {
			stats.SchedulesThisMonth++
		}

		cost := decimal.Zero
		if schedule.EstimatedCost != nil {
			cost = *schedule.EstimatedCost
			costTotal = costTotal.Add(cost)
			costCount++
		}

		if schedule.AssignedEmployeeID != "" {
			acc, ok := employees[schedule.AssignedEmployeeID]
			if !ok {
				acc = &employeeAcc{workload: EmployeeWorkload{
					EmployeeID:         schedule.AssignedEmployeeID,
					TotalEstimatedCost: decimal.Zero,
				}}
				employees[schedule.AssignedEmployeeID] = acc
			}
			if acc.workload.EmployeeName == "" {
				acc.workload.EmployeeName = schedule.AssignedEmployeeName
			}
			acc.workload.TotalSchedules++
			acc.totalDuration += schedule.EstimatedDuration
			acc.workload.TotalEstimatedCost = acc.workload.TotalEstimatedCost.Add(cost)
			if upcoming {
				acc.workload.UpcomingServices++
			}
			if overdue {
				acc.workload.OverdueServices++
			}
		}

		acc, ok := properties[schedule.PropertyID]
		if !ok {
			acc = &propertyAcc{
				counts: PropertyServiceCount{
					PropertyID:         schedule.PropertyID,
					TotalEstimatedCost: decimal.Zero,
				},
				categories: make(map[Category]int),
			}
			properties[schedule.PropertyID] = acc
		}
		if acc.counts.PropertyName == "" {
			acc.counts.PropertyName = schedule.PropertyName
		}
		acc.counts.TotalSchedules++
		acc.counts.TotalEstimatedCost = acc.counts.TotalEstimatedCost.Add(cost)
		acc.categories[schedule.Category]++
		if schedule.IsActive {
			acc.counts.ActiveSchedules++
			if acc.counts.NextServiceDate == nil || schedule.NextServiceDate.Before(*acc.counts.NextServiceDate) {
				next := schedule.NextServiceDate
				acc.counts.NextServiceDate = &next
			}
		}
	}

	if costCount > 0 {
		stats.AverageServiceCost = costTotal.Div(decimal.NewFromInt(int64(costCount))).Round(2)
	}
	stats.MostCommonCategory = mostCommonCategory(stats.ByCategory)

	for _, acc := range employees {
		workload := acc.workload
		if workload.TotalSchedules > 0 {
			workload.AverageServiceDuration = (acc.totalDuration + workload.TotalSchedules/2) / workload.TotalSchedules
		}
		stats.EmployeeWorkload = append(stats.EmployeeWorkload, workload)
	}
	sort.Slice(stats.EmployeeWorkload, func(i, j int) bool {
		return stats.EmployeeWorkload[i].EmployeeID < stats.EmployeeWorkload[j].EmployeeID
	})

	for _, acc := range properties {
		counts := acc.counts
		counts.MostCommonCategory = mostCommonCategory(acc.categories)
		stats.PropertyServiceCounts = append(stats.PropertyServiceCounts, counts)
	}
	sort.Slice(stats.PropertyServiceCounts, func(i, j int) bool {
		return stats.PropertyServiceCounts[i].PropertyID < stats.PropertyServiceCounts[j].PropertyID
	})

	return stats
}

// mostCommonCategory breaks ties by category display order.
func mostCommonCategory(counts map[Category]int) Category {
	var (
		best      Category
		bestCount int
	)
	for _, category := range Categories() {
		if counts[category] > bestCount {
			best = category
			bestCount = counts[category]
		}
	}
	return best
}
