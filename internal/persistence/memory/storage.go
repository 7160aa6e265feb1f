// Package memory provides a process-local schedule repository.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/maintenance-scheduler/internal/persistence"
)

// Storage keeps schedules in a map guarded by a RWMutex. Values are cloned on the
// way in and out so callers never share slices or pointers with the store.
type Storage struct {
	mu        sync.RWMutex
	schedules map[string]persistence.ServiceSchedule
}

// New returns an empty Storage.
func New() *Storage {
	return &Storage{schedules: make(map[string]persistence.ServiceSchedule)}
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// Ping fails only when ctx is done.
func (s *Storage) Ping(ctx context.Context) error {
	return ctx.Err()
}

// CreateSchedule stores a new schedule.
func (s *Storage) CreateSchedule(ctx context.Context, schedule persistence.ServiceSchedule) error {
	if err := requireKeys(schedule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[schedule.ID]; ok {
		return fmt.Errorf("memory: schedule %s: %w", schedule.ID, persistence.ErrDuplicate)
	}

	s.schedules[schedule.ID] = CloneSchedule(schedule)
	return nil
}

// UpdateSchedule replaces an existing schedule.
func (s *Storage) UpdateSchedule(ctx context.Context, schedule persistence.ServiceSchedule) error {
	if err := requireKeys(schedule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[schedule.ID]; !ok {
		return persistence.ErrNotFound
	}

	s.schedules[schedule.ID] = CloneSchedule(schedule)
	return nil
}

// GetSchedule retrieves a schedule by ID.
func (s *Storage) GetSchedule(ctx context.Context, id string) (persistence.ServiceSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schedule, ok := s.schedules[id]
	if !ok {
		return persistence.ServiceSchedule{}, persistence.ErrNotFound
	}

	return CloneSchedule(schedule), nil
}

// ListSchedules returns all schedules ordered by next service date, then id.
func (s *Storage) ListSchedules(ctx context.Context) ([]persistence.ServiceSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schedules := make([]persistence.ServiceSchedule, 0, len(s.schedules))
	for _, schedule := range s.schedules {
		schedules = append(schedules, CloneSchedule(schedule))
	}

	sort.Slice(schedules, func(i, j int) bool {
		if schedules[i].NextServiceDate.Equal(schedules[j].NextServiceDate) {
			return schedules[i].ID < schedules[j].ID
		}
		return schedules[i].NextServiceDate.Before(schedules[j].NextServiceDate)
	})

	return schedules, nil
}

// DeleteSchedule removes a schedule by ID.
func (s *Storage) DeleteSchedule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[id]; !ok {
		return persistence.ErrNotFound
	}

	delete(s.schedules, id)
	return nil
}

func requireKeys(schedule persistence.ServiceSchedule) error {
	if strings.TrimSpace(schedule.ID) == "" || strings.TrimSpace(schedule.PropertyID) == "" {
		return persistence.ErrConstraintViolation
	}
	return nil
}

// CloneSchedule returns a deep copy of schedule.
func CloneSchedule(schedule persistence.ServiceSchedule) persistence.ServiceSchedule {
	clone := schedule
	clone.ServiceItemID = cloneString(schedule.ServiceItemID)
	clone.ServiceItemName = cloneString(schedule.ServiceItemName)
	clone.AssignedEmployeeID = cloneString(schedule.AssignedEmployeeID)
	clone.AssignedEmployeeName = cloneString(schedule.AssignedEmployeeName)
	clone.SpecialInstructions = cloneString(schedule.SpecialInstructions)
	clone.LastServiceDate = cloneTime(schedule.LastServiceDate)
	clone.EstimatedCost = cloneDecimal(schedule.EstimatedCost)
	clone.ActualCost = cloneDecimal(schedule.ActualCost)
	clone.RequiredMaterials = cloneStrings(schedule.RequiredMaterials)
	clone.Tags = cloneStrings(schedule.Tags)

	pattern := schedule.RecurrencePattern
	if pattern.DaysOfWeek != nil {
		pattern.DaysOfWeek = append([]int(nil), pattern.DaysOfWeek...)
	}
	pattern.DayOfMonth = cloneInt(pattern.DayOfMonth)
	pattern.MaxOccurrences = cloneInt(pattern.MaxOccurrences)
	pattern.EndDate = cloneTime(pattern.EndDate)
	clone.RecurrencePattern = pattern

	if schedule.SeasonalAdjustments != nil {
		clone.SeasonalAdjustments = make([]persistence.SeasonalAdjustment, len(schedule.SeasonalAdjustments))
		for i, adj := range schedule.SeasonalAdjustments {
			adj.Description = cloneString(adj.Description)
			clone.SeasonalAdjustments[i] = adj
		}
	}

	return clone
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneDecimal(value *decimal.Decimal) *decimal.Decimal {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	return append([]string(nil), values...)
}
