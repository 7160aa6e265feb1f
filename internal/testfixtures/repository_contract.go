package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/example/maintenance-scheduler/internal/persistence"
)

// RepositoryFactory returns an empty repository for one contract subtest.
type RepositoryFactory func(t *testing.T) persistence.ScheduleRepository

// RunScheduleRepositoryContract exercises the behaviour every
// persistence.ScheduleRepository implementation must share.
func RunScheduleRepositoryContract(t *testing.T, newRepo RepositoryFactory) {
	t.Helper()

	t.Run("round trips a fully populated schedule", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		end := referenceTime.AddDate(1, 0, 0)
		fixture := NewScheduleFixture(
			WithScheduleEmployee("emp-1", "Mike Davis"),
			WithScheduleTags("hvac", "filters"),
			WithScheduleDetails("Use the service entrance", "MERV-13 filters"),
			WithWinterAdjustment(0.5, "1.2"),
			WithScheduleHistory(referenceTime.AddDate(0, -1, 0), 3),
		)
		fixture.Recurrence.EndDate = &end
		fixture.Recurrence.MaxOccurrences = 12
		fixture.Recurrence.DayOfMonth = 15
		fixture.Recurrence.SkipWeekends = true
		record := fixture.Persistence()

		require.NoError(t, repo.CreateSchedule(ctx, record))

		stored, err := repo.GetSchedule(ctx, record.ID)
		require.NoError(t, err)
		require.Equal(t, normalize(record), normalize(stored))
	})

	t.Run("absent optional fields stay absent", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		record := NewScheduleFixture(WithoutScheduleCost()).Persistence()
		require.NoError(t, repo.CreateSchedule(ctx, record))

		stored, err := repo.GetSchedule(ctx, record.ID)
		require.NoError(t, err)
		require.Nil(t, stored.AssignedEmployeeID)
		require.Nil(t, stored.EstimatedCost)
		require.Nil(t, stored.LastServiceDate)
		require.Nil(t, stored.RecurrencePattern.EndDate)
		require.Nil(t, stored.RecurrencePattern.MaxOccurrences)
	})

	t.Run("rejects duplicates and missing keys", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		record := NewScheduleFixture().Persistence()
		require.NoError(t, repo.CreateSchedule(ctx, record))
		require.ErrorIs(t, repo.CreateSchedule(ctx, record), persistence.ErrDuplicate)

		missingProperty := NewScheduleFixture(WithScheduleProperty("", "")).Persistence()
		require.ErrorIs(t, repo.CreateSchedule(ctx, missingProperty), persistence.ErrConstraintViolation)

		missingID := NewScheduleFixture(WithScheduleID("")).Persistence()
		require.ErrorIs(t, repo.CreateSchedule(ctx, missingID), persistence.ErrConstraintViolation)
	})

	t.Run("unknown ids report not found", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		_, err := repo.GetSchedule(ctx, "missing")
		require.ErrorIs(t, err, persistence.ErrNotFound)
		require.ErrorIs(t, repo.UpdateSchedule(ctx, NewScheduleFixture(WithScheduleID("missing")).Persistence()), persistence.ErrNotFound)
		require.ErrorIs(t, repo.DeleteSchedule(ctx, "missing"), persistence.ErrNotFound)
	})

	t.Run("update replaces the stored document", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		record := NewScheduleFixture(WithScheduleEmployee("emp-1", "Mike Davis")).Persistence()
		require.NoError(t, repo.CreateSchedule(ctx, record))

		record.Title = "Renamed"
		record.AssignedEmployeeID = nil
		record.AssignedEmployeeName = nil
		record.IsActive = false
		require.NoError(t, repo.UpdateSchedule(ctx, record))

		stored, err := repo.GetSchedule(ctx, record.ID)
		require.NoError(t, err)
		require.Equal(t, "Renamed", stored.Title)
		require.Nil(t, stored.AssignedEmployeeID)
		require.False(t, stored.IsActive)
	})

	t.Run("lists by next service date then id", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		due := referenceTime.AddDate(0, 0, 3)
		records := []persistence.ServiceSchedule{
			NewScheduleFixture(WithScheduleID("c"), WithScheduleNextServiceDate(due)).Persistence(),
			NewScheduleFixture(WithScheduleID("a"), WithScheduleNextServiceDate(due.AddDate(0, 0, 1))).Persistence(),
			NewScheduleFixture(WithScheduleID("b"), WithScheduleNextServiceDate(due)).Persistence(),
		}
		for _, record := range records {
			require.NoError(t, repo.CreateSchedule(ctx, record))
		}

		listed, err := repo.ListSchedules(ctx)
		require.NoError(t, err)
		ids := make([]string, 0, len(listed))
		for _, schedule := range listed {
			ids = append(ids, schedule.ID)
		}
		require.Equal(t, []string{"b", "c", "a"}, ids)
	})

	t.Run("delete removes the schedule", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		record := NewScheduleFixture().Persistence()
		require.NoError(t, repo.CreateSchedule(ctx, record))
		require.NoError(t, repo.DeleteSchedule(ctx, record.ID))

		_, err := repo.GetSchedule(ctx, record.ID)
		require.ErrorIs(t, err, persistence.ErrNotFound)

		listed, err := repo.ListSchedules(ctx)
		require.NoError(t, err)
		require.Empty(t, listed)
	})

	t.Run("returned values do not alias storage", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		record := NewScheduleFixture(WithScheduleTags("roof")).Persistence()
		require.NoError(t, repo.CreateSchedule(ctx, record))
		record.Tags[0] = "mutated"

		stored, err := repo.GetSchedule(ctx, record.ID)
		require.NoError(t, err)
		stored.Tags[0] = "mutated again"

		again, err := repo.GetSchedule(ctx, record.ID)
		require.NoError(t, err)
		require.Equal(t, []string{"roof"}, again.Tags)
	})
}

// normalize puts a record into a canonical form so that values which survive a
// serialisation round trip compare equal.
func normalize(record persistence.ServiceSchedule) persistence.ServiceSchedule {
	out := record
	out.NextServiceDate = record.NextServiceDate.UTC()
	out.CreatedAt = record.CreatedAt.UTC()
	out.UpdatedAt = record.UpdatedAt.UTC()
	out.LastServiceDate = utcPtr(record.LastServiceDate)
	out.RecurrencePattern.EndDate = utcPtr(record.RecurrencePattern.EndDate)
	out.EstimatedCost = canonicalDecimal(record.EstimatedCost)
	out.ActualCost = canonicalDecimal(record.ActualCost)
	if len(record.Tags) == 0 {
		out.Tags = nil
	}
	if len(record.RequiredMaterials) == 0 {
		out.RequiredMaterials = nil
	}
	if len(record.RecurrencePattern.DaysOfWeek) == 0 {
		out.RecurrencePattern.DaysOfWeek = nil
	}
	if len(record.SeasonalAdjustments) == 0 {
		out.SeasonalAdjustments = nil
	} else {
		out.SeasonalAdjustments = make([]persistence.SeasonalAdjustment, len(record.SeasonalAdjustments))
		for i, adj := range record.SeasonalAdjustments {
			adj.CostMultiplier = decimal.RequireFromString(adj.CostMultiplier.String())
			out.SeasonalAdjustments[i] = adj
		}
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func canonicalDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := decimal.RequireFromString(d.String())
	return &v
}
