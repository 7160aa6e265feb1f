package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/maintenance-scheduler/internal/persistence"
	"github.com/example/maintenance-scheduler/internal/recurrence"
)

// ScheduleRepository captures the persistence interactions needed by the service.
type ScheduleRepository interface {
	CreateSchedule(ctx context.Context, schedule ServiceSchedule) (ServiceSchedule, error)
	GetSchedule(ctx context.Context, id string) (ServiceSchedule, error)
	UpdateSchedule(ctx context.Context, schedule ServiceSchedule) (ServiceSchedule, error)
	DeleteSchedule(ctx context.Context, id string) error
	ListSchedules(ctx context.Context) ([]ServiceSchedule, error)
}

// Directory resolves display names for referenced records. An empty id is never
// looked up.
type Directory interface {
	PropertyName(ctx context.Context, id string) (string, error)
	EmployeeName(ctx context.Context, id string) (string, error)
	ServiceItemName(ctx context.Context, id string) (string, error)
}

// Projector computes service dates for recurrence rules.
type Projector interface {
	Next(rule recurrence.Rule, from time.Time, adjustments []recurrence.SeasonalAdjustment, completed int) (recurrence.Projection, error)
	Preview(rule recurrence.Rule, from time.Time, adjustments []recurrence.SeasonalAdjustment, completed, n int) ([]time.Time, error)
}

// ScheduleService is the schedule registry. It owns the published snapshot of every
// schedule, serialises mutations, writes them through to the repository and republishes
// a full snapshot to subscribers after each successful change.
type ScheduleService struct {
	schedules   ScheduleRepository
	directory   Directory
	projector   Projector
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger

	mu          sync.RWMutex
	snapshot    Snapshot
	index       map[string]int
	subscribers map[int]chan Snapshot
	nextSubID   int
}

// NewScheduleService wires dependencies for schedule operations.
func NewScheduleService(schedules ScheduleRepository, directory Directory, projector Projector, idGenerator func() string, now func() time.Time) *ScheduleService {
	return NewScheduleServiceWithLogger(schedules, directory, projector, idGenerator, now, nil)
}

// NewScheduleServiceWithLogger wires dependencies and a logger for schedule operations.
// A nil projector falls back to a UTC engine without holidays.
func NewScheduleServiceWithLogger(schedules ScheduleRepository, directory Directory, projector Projector, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ScheduleService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if projector == nil {
		projector = recurrence.NewEngine(time.UTC, nil)
	}
	return &ScheduleService{
		schedules:   schedules,
		directory:   directory,
		projector:   projector,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
		index:       make(map[string]int),
		subscribers: make(map[int]chan Snapshot),
	}
}

func (s *ScheduleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ScheduleService", operation, attrs...)
}

// Load replaces the published snapshot with the repository contents. It is called once
// at start-up before the registry serves requests.
func (s *ScheduleService) Load(ctx context.Context) (err error) {
	if s == nil {
		return fmt.Errorf("ScheduleService is nil")
	}
	if s.schedules == nil {
		return fmt.Errorf("schedule repository not configured")
	}

	logger := s.loggerWith(ctx, "Load")

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.schedules.ListSchedules(ctx)
	if err != nil {
		err = mapScheduleRepoError(err)
		logger.ErrorContext(ctx, "failed to load schedules", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	s.publishLocked(stored)
	logger.InfoContext(ctx, "schedules loaded", "count", len(stored), "version", s.snapshot.Version)
	return nil
}

// CreateSchedule validates the input, assigns identity and stores the schedule as
// given. The next service date is not projected.
func (s *ScheduleService) CreateSchedule(ctx context.Context, params CreateScheduleParams) (schedule ServiceSchedule, err error) {
	if s == nil {
		err = fmt.Errorf("ScheduleService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateSchedule",
		"principal_id", params.Principal.UserID,
		"property_id", params.Input.PropertyID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("schedule_id", schedule.ID).InfoContext(ctx, "schedule created")
	}()

	input := params.Input
	createdAt := s.now()
	candidate := ServiceSchedule{
		ID:                  s.idGenerator(),
		PropertyID:          strings.TrimSpace(input.PropertyID),
		ServiceItemID:       strings.TrimSpace(input.ServiceItemID),
		AssignedEmployeeID:  strings.TrimSpace(input.AssignedEmployeeID),
		Title:               strings.TrimSpace(input.Title),
		Description:         input.Description,
		Category:            input.Category,
		Priority:            input.Priority,
		Recurrence:          input.Recurrence.Clone(),
		SeasonalAdjustments: append([]recurrence.SeasonalAdjustment(nil), input.SeasonalAdjustments...),
		NextServiceDate:     input.NextServiceDate,
		EstimatedDuration:   input.EstimatedDuration,
		EstimatedCost:       cloneDecimal(input.EstimatedCost),
		IsActive:            true,
		SpecialInstructions: input.SpecialInstructions,
		RequiredMaterials:   normalizeStrings(input.RequiredMaterials),
		Tags:                normalizeStrings(input.Tags),
		CreatedAt:           createdAt,
		UpdatedAt:           createdAt,
		CreatedBy:           params.Principal.UserID,
		LastModifiedBy:      params.Principal.UserID,
	}
	applyDefaults(&candidate)

	if err = validateSchedule(candidate); err != nil {
		return
	}

	s.resolveNames(ctx, logger, &candidate, nil)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[candidate.ID]; exists {
		err = ErrAlreadyExists
		return
	}

	schedule, err = s.persistCreate(ctx, candidate)
	if err != nil {
		return
	}

	s.publishLocked(s.withScheduleLocked(schedule))
	schedule = schedule.Clone()
	return
}

// UpdateSchedule merges the patch into an existing schedule. A recurrence change does
// not move the next service date; callers orchestrate that through ReprojectSchedule.
func (s *ScheduleService) UpdateSchedule(ctx context.Context, params UpdateScheduleParams) (schedule ServiceSchedule, err error) {
	if s == nil {
		err = fmt.Errorf("ScheduleService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateSchedule",
		"principal_id", params.Principal.UserID,
		"schedule_id", params.ScheduleID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "schedule updated")
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.lookupLocked(params.ScheduleID)
	if err != nil {
		return
	}

	updated := applyPatch(existing, params.Patch)
	updated.UpdatedAt = s.now()
	updated.LastModifiedBy = params.Principal.UserID
	applyDefaults(&updated)

	if err = validateSchedule(updated); err != nil {
		return
	}

	s.resolveNames(ctx, logger, &updated, &existing)

	schedule, err = s.persistUpdate(ctx, updated)
	if err != nil {
		return
	}

	s.publishLocked(s.withScheduleLocked(schedule))
	schedule = schedule.Clone()
	return
}

// DeleteSchedule removes a schedule. Unknown ids fail with ErrNotFound.
func (s *ScheduleService) DeleteSchedule(ctx context.Context, principal Principal, scheduleID string) (err error) {
	if s == nil {
		return fmt.Errorf("ScheduleService is nil")
	}
	if s.schedules == nil {
		return fmt.Errorf("schedule repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteSchedule",
		"principal_id", principal.UserID,
		"schedule_id", scheduleID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "schedule deleted")
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[scheduleID]; !ok {
		return ErrNotFound
	}

	if err = s.schedules.DeleteSchedule(ctx, scheduleID); err != nil {
		return mapScheduleRepoError(err)
	}

	remaining := make([]ServiceSchedule, 0, len(s.snapshot.Schedules))
	for _, existing := range s.snapshot.Schedules {
		if existing.ID != scheduleID {
			remaining = append(remaining, existing)
		}
	}
	s.publishLocked(remaining)
	return nil
}

// CompleteService records the service due on the current next service date. The prior
// date becomes the last service date and the schedule advances by one occurrence, or is
// deactivated when its rule is exhausted.
func (s *ScheduleService) CompleteService(ctx context.Context, params CompleteServiceParams) (schedule ServiceSchedule, err error) {
	if s == nil {
		err = fmt.Errorf("ScheduleService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CompleteService",
		"principal_id", params.Principal.UserID,
		"schedule_id", params.ScheduleID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to complete service", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "service completed",
			"next_service_date", schedule.NextServiceDate,
			"is_active", schedule.IsActive,
			"occurrence_count", schedule.OccurrenceCount,
		)
	}()

	if params.ActualCost != nil && params.ActualCost.IsNegative() {
		vErr := &ValidationError{}
		vErr.add("actualCost", "actual cost must not be negative")
		err = vErr
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.lookupLocked(params.ScheduleID)
	if err != nil {
		return
	}
	if err = requireActive(existing); err != nil {
		return
	}

	updated := existing.Clone()
	prior := existing.NextServiceDate
	updated.LastServiceDate = &prior
	updated.OccurrenceCount++
	if params.ActualCost != nil {
		updated.ActualCost = cloneDecimal(params.ActualCost)
	}

	projection, err := s.projector.Next(updated.Recurrence, prior, updated.SeasonalAdjustments, updated.OccurrenceCount)
	if err != nil {
		err = fmt.Errorf("complete %s: %w", existing.ID, err)
		return
	}
	if projection.Exhausted {
		updated.IsActive = false
	} else {
		updated.NextServiceDate = projection.Date
	}
	updated.UpdatedAt = s.now()
	updated.LastModifiedBy = params.Principal.UserID

	schedule, err = s.persistUpdate(ctx, updated)
	if err != nil {
		return
	}

	s.publishLocked(s.withScheduleLocked(schedule))
	schedule = schedule.Clone()
	return
}

// ReprojectSchedule recomputes the next service date from the current one, typically
// after the recurrence pattern was edited. One-time schedules are returned unchanged.
func (s *ScheduleService) ReprojectSchedule(ctx context.Context, principal Principal, scheduleID string) (schedule ServiceSchedule, err error) {
	if s == nil {
		err = fmt.Errorf("ScheduleService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ReprojectSchedule",
		"principal_id", principal.UserID,
		"schedule_id", scheduleID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reproject schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "schedule reprojected", "next_service_date", schedule.NextServiceDate, "is_active", schedule.IsActive)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.lookupLocked(scheduleID)
	if err != nil {
		return
	}
	if err = requireActive(existing); err != nil {
		return
	}
	if existing.Recurrence.Type == recurrence.TypeOnce {
		schedule = existing.Clone()
		return
	}

	projection, err := s.projector.Next(existing.Recurrence, existing.NextServiceDate, existing.SeasonalAdjustments, existing.OccurrenceCount)
	if err != nil {
		err = fmt.Errorf("reproject %s: %w", existing.ID, err)
		return
	}

	updated := existing.Clone()
	if projection.Exhausted {
		updated.IsActive = false
	} else {
		updated.NextServiceDate = projection.Date
	}
	updated.UpdatedAt = s.now()
	updated.LastModifiedBy = principal.UserID

	schedule, err = s.persistUpdate(ctx, updated)
	if err != nil {
		return
	}

	s.publishLocked(s.withScheduleLocked(schedule))
	schedule = schedule.Clone()
	return
}

// PreviewSchedule lists up to n upcoming service dates after the current next service
// date. Inactive schedules have no upcoming dates.
func (s *ScheduleService) PreviewSchedule(ctx context.Context, scheduleID string, n int) ([]time.Time, error) {
	if s == nil {
		return nil, fmt.Errorf("ScheduleService is nil")
	}
	schedule, err := s.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !schedule.IsActive || n <= 0 {
		return []time.Time{}, nil
	}
	return s.projector.Preview(schedule.Recurrence, schedule.NextServiceDate, schedule.SeasonalAdjustments, schedule.OccurrenceCount, n)
}

// AdjustedCost returns the schedule's estimated cost scaled by the seasonal cost
// multiplier active on date, or nil when the schedule has no estimate.
func (s *ScheduleService) AdjustedCost(ctx context.Context, scheduleID string, date time.Time) (*decimal.Decimal, error) {
	schedule, err := s.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule.EstimatedCost == nil {
		return nil, nil
	}
	cost := recurrence.AdjustedCost(*schedule.EstimatedCost, date, schedule.SeasonalAdjustments)
	return &cost, nil
}

// GetSchedule returns a copy of the schedule from the published snapshot.
func (s *ScheduleService) GetSchedule(ctx context.Context, scheduleID string) (ServiceSchedule, error) {
	if s == nil {
		return ServiceSchedule{}, fmt.Errorf("ScheduleService is nil")
	}
	return s.lookup(scheduleID)
}

// Snapshot returns the currently published snapshot.
func (s *ScheduleService) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

// Subscribe registers for snapshot publication. The current snapshot is delivered
// immediately; a slow subscriber only ever sees the latest snapshot. The returned
// function cancels the subscription and closes the channel.
func (s *ScheduleService) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	ch <- s.snapshot.Clone()
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			close(ch)
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

func (s *ScheduleService) lookup(id string) (ServiceSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupLocked(id)
}

func (s *ScheduleService) lookupLocked(id string) (ServiceSchedule, error) {
	idx, ok := s.index[id]
	if !ok {
		return ServiceSchedule{}, ErrNotFound
	}
	return s.snapshot.Schedules[idx].Clone(), nil
}

func (s *ScheduleService) persistCreate(ctx context.Context, schedule ServiceSchedule) (ServiceSchedule, error) {
	if s.schedules == nil {
		return schedule, nil
	}
	persisted, err := s.schedules.CreateSchedule(ctx, schedule)
	if err != nil {
		return ServiceSchedule{}, mapScheduleRepoError(err)
	}
	return persisted, nil
}

func (s *ScheduleService) persistUpdate(ctx context.Context, schedule ServiceSchedule) (ServiceSchedule, error) {
	if s.schedules == nil {
		return schedule, nil
	}
	persisted, err := s.schedules.UpdateSchedule(ctx, schedule)
	if err != nil {
		return ServiceSchedule{}, mapScheduleRepoError(err)
	}
	return persisted, nil
}

// withScheduleLocked returns a new collection with schedule inserted or replaced.
func (s *ScheduleService) withScheduleLocked(schedule ServiceSchedule) []ServiceSchedule {
	next := make([]ServiceSchedule, 0, len(s.snapshot.Schedules)+1)
	replaced := false
	for _, existing := range s.snapshot.Schedules {
		if existing.ID == schedule.ID {
			next = append(next, schedule)
			replaced = true
			continue
		}
		next = append(next, existing)
	}
	if !replaced {
		next = append(next, schedule)
	}
	return next
}

// publishLocked installs schedules as the new snapshot and notifies subscribers.
// Ownership of the slice passes to the snapshot.
func (s *ScheduleService) publishLocked(schedules []ServiceSchedule) {
	sort.SliceStable(schedules, func(i, j int) bool {
		if schedules[i].NextServiceDate.Equal(schedules[j].NextServiceDate) {
			return schedules[i].ID < schedules[j].ID
		}
		return schedules[i].NextServiceDate.Before(schedules[j].NextServiceDate)
	})

	index := make(map[string]int, len(schedules))
	for i, schedule := range schedules {
		index[schedule.ID] = i
	}

	s.snapshot = Snapshot{
		Version:     s.snapshot.Version + 1,
		Schedules:   schedules,
		PublishedAt: s.now(),
	}
	s.index = index

	for _, ch := range s.subscribers {
		snapshot := s.snapshot.Clone()
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// resolveNames refreshes denormalized names for changed references. Lookup failures are
// logged and leave the name empty.
func (s *ScheduleService) resolveNames(ctx context.Context, logger *slog.Logger, schedule *ServiceSchedule, previous *ServiceSchedule) {
	if s.directory == nil {
		return
	}
	resolve := func(kind, id, prevID, prevName string, lookup func(context.Context, string) (string, error)) string {
		if id == "" {
			return ""
		}
		if previous != nil && id == prevID && prevName != "" {
			return prevName
		}
		name, err := lookup(ctx, id)
		if err != nil {
			logger.WarnContext(ctx, "failed to resolve display name", "kind", kind, "id", id, "error", err)
			return ""
		}
		return name
	}

	var prev ServiceSchedule
	if previous != nil {
		prev = *previous
	}
	schedule.PropertyName = resolve("property", schedule.PropertyID, prev.PropertyID, prev.PropertyName, s.directory.PropertyName)
	schedule.AssignedEmployeeName = resolve("employee", schedule.AssignedEmployeeID, prev.AssignedEmployeeID, prev.AssignedEmployeeName, s.directory.EmployeeName)
	schedule.ServiceItemName = resolve("service_item", schedule.ServiceItemID, prev.ServiceItemID, prev.ServiceItemName, s.directory.ServiceItemName)
}

func applyPatch(existing ServiceSchedule, patch SchedulePatch) ServiceSchedule {
	updated := existing.Clone()
	if patch.PropertyID != nil {
		updated.PropertyID = strings.TrimSpace(*patch.PropertyID)
	}
	if patch.ServiceItemID != nil {
		updated.ServiceItemID = strings.TrimSpace(*patch.ServiceItemID)
	}
	if patch.AssignedEmployeeID != nil {
		updated.AssignedEmployeeID = strings.TrimSpace(*patch.AssignedEmployeeID)
	}
	if patch.Title != nil {
		updated.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.Category != nil {
		updated.Category = *patch.Category
	}
	if patch.Priority != nil {
		updated.Priority = *patch.Priority
	}
	if patch.Recurrence != nil {
		updated.Recurrence = patch.Recurrence.Clone()
	}
	if patch.SeasonalAdjustments != nil {
		updated.SeasonalAdjustments = append([]recurrence.SeasonalAdjustment(nil), (*patch.SeasonalAdjustments)...)
	}
	if patch.NextServiceDate != nil {
		updated.NextServiceDate = *patch.NextServiceDate
	}
	if patch.EstimatedDuration != nil {
		updated.EstimatedDuration = *patch.EstimatedDuration
	}
	if patch.ClearEstimatedCost {
		updated.EstimatedCost = nil
	} else if patch.EstimatedCost != nil {
		updated.EstimatedCost = cloneDecimal(patch.EstimatedCost)
	}
	if patch.IsActive != nil {
		updated.IsActive = *patch.IsActive
	}
	if patch.SpecialInstructions != nil {
		updated.SpecialInstructions = *patch.SpecialInstructions
	}
	if patch.RequiredMaterials != nil {
		updated.RequiredMaterials = normalizeStrings(*patch.RequiredMaterials)
	}
	if patch.Tags != nil {
		updated.Tags = normalizeStrings(*patch.Tags)
	}
	return updated
}

func applyDefaults(schedule *ServiceSchedule) {
	if schedule.Category == "" {
		schedule.Category = CategoryGeneralMaintenance
	}
	if schedule.Priority == "" {
		schedule.Priority = PriorityMedium
	}
}

// validateSchedule enforces the data model invariants. Rule and seasonal adjustment
// problems surface as ErrInvalidRule; everything else as a ValidationError.
func validateSchedule(schedule ServiceSchedule) error {
	vErr := &ValidationError{}

	if schedule.PropertyID == "" {
		vErr.add("propertyId", "property is required")
	}
	if schedule.Title == "" {
		vErr.add("title", "title is required")
	}
	if !schedule.Category.Valid() {
		vErr.add("category", fmt.Sprintf("unknown category %q", schedule.Category))
	}
	if !schedule.Priority.Valid() {
		vErr.add("priority", fmt.Sprintf("unknown priority %q", schedule.Priority))
	}
	if schedule.NextServiceDate.IsZero() {
		vErr.add("nextServiceDate", "next service date is required")
	}
	if schedule.EstimatedDuration <= 0 {
		vErr.add("estimatedDuration", "estimated duration must be positive")
	}
	if schedule.EstimatedCost != nil && schedule.EstimatedCost.IsNegative() {
		vErr.add("estimatedCost", "estimated cost must not be negative")
	}
	if schedule.ActualCost != nil && schedule.ActualCost.IsNegative() {
		vErr.add("actualCost", "actual cost must not be negative")
	}
	if vErr.HasErrors() {
		return vErr
	}

	if err := schedule.Recurrence.Validate(); err != nil {
		return fmt.Errorf("recurrencePattern: %w", err)
	}
	if err := recurrence.ValidateAdjustments(schedule.SeasonalAdjustments); err != nil {
		return fmt.Errorf("seasonalAdjustments: %w", err)
	}
	return nil
}

func requireActive(schedule ServiceSchedule) error {
	if schedule.IsActive {
		return nil
	}
	vErr := &ValidationError{}
	vErr.add("isActive", "schedule is inactive")
	return vErr
}

func normalizeStrings(values []string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func mapScheduleRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("schedule", "schedule violates a storage constraint")
		return vErr
	}
	return err
}
