package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/maintenance-scheduler/internal/persistence"
	"github.com/example/maintenance-scheduler/internal/persistence/document"
)

// timeLayout sorts lexically in chronological order for UTC values.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ScheduleRepository implements persistence.ScheduleRepository using SQLite
type ScheduleRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewScheduleRepository creates a new SQLite schedule repository
func NewScheduleRepository(pool *ConnectionPool) *ScheduleRepository {
	return &ScheduleRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateSchedule inserts a new schedule
func (r *ScheduleRepository) CreateSchedule(ctx context.Context, schedule persistence.ServiceSchedule) error {
	if err := requireKeys(schedule); err != nil {
		return err
	}
	row, err := toRow(schedule)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO service_schedules (id, property_id, assigned_employee_id, category, priority, is_active, next_service_date, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			_, err := r.helper.ExecTx(ctx, tx, query,
				row.id,
				row.propertyID,
				row.assignedEmployeeID,
				row.category,
				row.priority,
				row.isActive,
				row.nextServiceDate,
				row.document,
				row.createdAt,
				row.updatedAt,
			)
			return err
		})
	})
}

// UpdateSchedule replaces the stored schedule with the same ID
func (r *ScheduleRepository) UpdateSchedule(ctx context.Context, schedule persistence.ServiceSchedule) error {
	if err := requireKeys(schedule); err != nil {
		return err
	}
	row, err := toRow(schedule)
	if err != nil {
		return err
	}

	const query = `
		UPDATE service_schedules
		SET property_id = ?, assigned_employee_id = ?, category = ?, priority = ?, is_active = ?,
			next_service_date = ?, document = ?, updated_at = ?
		WHERE id = ?`

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := r.helper.ExecTx(ctx, tx, query,
				row.propertyID,
				row.assignedEmployeeID,
				row.category,
				row.priority,
				row.isActive,
				row.nextServiceDate,
				row.document,
				row.updatedAt,
				row.id,
			)
			if err != nil {
				return err
			}
			return requireAffected(result)
		})
	})
}

// GetSchedule retrieves a schedule by ID
func (r *ScheduleRepository) GetSchedule(ctx context.Context, id string) (persistence.ServiceSchedule, error) {
	if id == "" {
		return persistence.ServiceSchedule{}, persistence.ErrNotFound
	}

	var doc string
	err := r.helper.QueryRow(ctx, `SELECT document FROM service_schedules WHERE id = ?`, id).Scan(&doc)
	if err != nil {
		return persistence.ServiceSchedule{}, r.mapper.MapError(err)
	}
	return fromDocument(doc)
}

// ListSchedules returns every schedule ordered by next service date, then ID
func (r *ScheduleRepository) ListSchedules(ctx context.Context) ([]persistence.ServiceSchedule, error) {
	rows, err := r.helper.Query(ctx, `SELECT document FROM service_schedules ORDER BY next_service_date ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var schedules []persistence.ServiceSchedule
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, r.mapper.MapError(err)
		}
		schedule, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return schedules, nil
}

// DeleteSchedule removes a schedule by ID
func (r *ScheduleRepository) DeleteSchedule(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := r.helper.ExecTx(ctx, tx, `DELETE FROM service_schedules WHERE id = ?`, id)
			if err != nil {
				return err
			}
			return requireAffected(result)
		})
	})
}

type scheduleRow struct {
	id                 string
	propertyID         string
	assignedEmployeeID sql.NullString
	category           string
	priority           string
	isActive           bool
	nextServiceDate    string
	document           string
	createdAt          string
	updatedAt          string
}

func toRow(schedule persistence.ServiceSchedule) (scheduleRow, error) {
	doc, err := document.Marshal(schedule)
	if err != nil {
		return scheduleRow{}, fmt.Errorf("sqlite: schedule %s: %w", schedule.ID, err)
	}
	row := scheduleRow{
		id:              schedule.ID,
		propertyID:      schedule.PropertyID,
		category:        schedule.Category,
		priority:        schedule.Priority,
		isActive:        schedule.IsActive,
		nextServiceDate: formatTime(schedule.NextServiceDate),
		document:        string(doc),
		createdAt:       formatTime(schedule.CreatedAt),
		updatedAt:       formatTime(schedule.UpdatedAt),
	}
	if schedule.AssignedEmployeeID != nil {
		row.assignedEmployeeID = sql.NullString{String: *schedule.AssignedEmployeeID, Valid: true}
	}
	return row, nil
}

func fromDocument(doc string) (persistence.ServiceSchedule, error) {
	var schedule persistence.ServiceSchedule
	if err := document.Unmarshal([]byte(doc), &schedule); err != nil {
		return persistence.ServiceSchedule{}, fmt.Errorf("sqlite: %w", err)
	}
	return schedule, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func requireKeys(schedule persistence.ServiceSchedule) error {
	if strings.TrimSpace(schedule.ID) == "" || strings.TrimSpace(schedule.PropertyID) == "" {
		return persistence.ErrConstraintViolation
	}
	return nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
