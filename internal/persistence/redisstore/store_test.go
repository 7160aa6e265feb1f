package redisstore_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/maintenance-scheduler/internal/persistence"
	"github.com/example/maintenance-scheduler/internal/persistence/redisstore"
	"github.com/example/maintenance-scheduler/internal/testfixtures"
)

// newClient connects to the Redis named by SCHEDULER_TEST_REDIS_ADDR or skips.
func newClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("SCHEDULER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SCHEDULER_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func newStore(t *testing.T, client *redis.Client) *redisstore.Store {
	t.Helper()
	prefix := fmt.Sprintf("scheduler-test:%d", time.Now().UnixNano())
	t.Cleanup(func() {
		ctx := context.Background()
		client.Del(ctx, prefix+":schedules", prefix+":schedules:by-next")
	})
	return redisstore.New(client, prefix)
}

func TestStoreContract(t *testing.T) {
	client := newClient(t)
	testfixtures.RunScheduleRepositoryContract(t, func(t *testing.T) persistence.ScheduleRepository {
		return newStore(t, client)
	})
}

func TestStoreUpdateMovesListPosition(t *testing.T) {
	client := newClient(t)
	store := newStore(t, client)
	ctx := context.Background()

	first := testfixtures.NewScheduleFixture(testfixtures.WithScheduleID("first")).Persistence()
	second := testfixtures.NewScheduleFixture(
		testfixtures.WithScheduleID("second"),
		testfixtures.WithScheduleNextServiceDate(first.NextServiceDate.Add(time.Hour)),
	).Persistence()
	require.NoError(t, store.CreateSchedule(ctx, first))
	require.NoError(t, store.CreateSchedule(ctx, second))

	first.NextServiceDate = second.NextServiceDate.AddDate(0, 1, 0)
	require.NoError(t, store.UpdateSchedule(ctx, first))

	listed, err := store.ListSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, "second", listed[0].ID)
	require.Equal(t, "first", listed[1].ID)
}

func TestStoreDocumentsOmitAbsentFields(t *testing.T) {
	client := newClient(t)
	prefix := fmt.Sprintf("scheduler-test:%d", time.Now().UnixNano())
	t.Cleanup(func() { client.Del(context.Background(), prefix+":schedules", prefix+":schedules:by-next") })
	store := redisstore.New(client, prefix)
	ctx := context.Background()

	record := testfixtures.NewScheduleFixture(testfixtures.WithoutScheduleCost()).Persistence()
	require.NoError(t, store.CreateSchedule(ctx, record))

	raw, err := client.HGet(ctx, prefix+":schedules", record.ID).Result()
	require.NoError(t, err)
	require.NotContains(t, raw, "estimatedCost")
	require.NotContains(t, raw, "assignedEmployeeId")
	require.NotContains(t, raw, "null")
}

func TestStoreConcurrentCreatesKeepIndexConsistent(t *testing.T) {
	client := newClient(t)
	prefix := fmt.Sprintf("scheduler-test:%d", time.Now().UnixNano())
	t.Cleanup(func() { client.Del(context.Background(), prefix+":schedules", prefix+":schedules:by-next") })
	store := redisstore.New(client, prefix)
	ctx := context.Background()

	base := testfixtures.NewScheduleFixture(testfixtures.WithScheduleID("contested")).Persistence()
	const writers = 8
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			record := base
			record.NextServiceDate = base.NextServiceDate.AddDate(0, 0, i)
			errs[i] = store.CreateSchedule(ctx, record)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	stored, err := store.GetSchedule(ctx, "contested")
	require.NoError(t, err)
	score, err := client.ZScore(ctx, prefix+":schedules:by-next", "contested").Result()
	require.NoError(t, err)
	assert.Equal(t, float64(stored.NextServiceDate.UnixMilli()), score)

	err = store.CreateSchedule(ctx, base)
	require.ErrorIs(t, err, persistence.ErrDuplicate)
	score, err = client.ZScore(ctx, prefix+":schedules:by-next", "contested").Result()
	require.NoError(t, err)
	assert.Equal(t, float64(stored.NextServiceDate.UnixMilli()), score)
}
