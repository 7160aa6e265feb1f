package persistence

import "context"

// ScheduleRepository stores service schedules keyed by id.
//
// Implementations return ErrNotFound for unknown ids, ErrDuplicate when creating an
// id that already exists and ErrConstraintViolation for records missing required keys.
type ScheduleRepository interface {
	CreateSchedule(ctx context.Context, schedule ServiceSchedule) error
	UpdateSchedule(ctx context.Context, schedule ServiceSchedule) error
	GetSchedule(ctx context.Context, id string) (ServiceSchedule, error)
	// ListSchedules returns every schedule ordered by next service date, then id.
	ListSchedules(ctx context.Context) ([]ServiceSchedule, error)
	DeleteSchedule(ctx context.Context, id string) error
}
