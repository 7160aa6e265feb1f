package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/maintenance-scheduler/internal/config"
	"github.com/example/maintenance-scheduler/internal/persistence"
	"github.com/example/maintenance-scheduler/internal/persistence/memory"
	"github.com/example/maintenance-scheduler/internal/persistence/sqlite"
	"github.com/example/maintenance-scheduler/internal/testfixtures"
)

var schedulerEnv = []string{
	"SCHEDULER_HTTP_PORT",
	"SCHEDULER_STORAGE",
	"SCHEDULER_SQLITE_DSN",
	"SCHEDULER_REDIS_ADDR",
	"SCHEDULER_REDIS_KEY_PREFIX",
	"SCHEDULER_TIMEZONE",
	"SCHEDULER_SWEEP_SCHEDULE",
	"SCHEDULER_METRICS_ENABLED",
	"SCHEDULER_METRICS_PATH",
	"SCHEDULER_LOG_FILE",
	"SCHEDULER_LOG_LEVEL",
	"SCHEDULER_CORS_ORIGINS",
	"SCHEDULER_DIRECTORY_FILE",
}

// isolateEnv blanks every scheduler variable and removes the holiday calendar.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range schedulerEnv {
		t.Setenv(key, "")
	}
	t.Setenv("SCHEDULER_HOLIDAYS", "")
}

func TestScheduleConversion_RoundTrip(t *testing.T) {
	t.Parallel()

	end := testfixtures.ReferenceTime().AddDate(1, 0, 0)
	fixture := testfixtures.NewScheduleFixture(
		testfixtures.WithScheduleEmployee("emp-1", "Mike Davis"),
		testfixtures.WithScheduleTags("hvac", "filters"),
		testfixtures.WithScheduleDetails("Use the service entrance", "MERV-13 filters"),
		testfixtures.WithWinterAdjustment(0.5, "1.2"),
		testfixtures.WithScheduleHistory(testfixtures.ReferenceTime().AddDate(0, -1, 0), 2),
	)
	fixture.Recurrence.EndDate = &end
	fixture.Recurrence.MaxOccurrences = 6
	fixture.Recurrence.DayOfMonth = 15
	fixture.Recurrence.DaysOfWeek = []time.Weekday{time.Monday, time.Thursday}
	original := fixture.Application()
	original.ServiceItemID = "item-9"
	original.ServiceItemName = "Rooftop unit"

	record := toPersistenceSchedule(original)
	require.NotNil(t, record.ServiceItemID)
	assert.Equal(t, "item-9", *record.ServiceItemID)
	assert.Equal(t, []int{1, 4}, record.RecurrencePattern.DaysOfWeek)
	require.Len(t, record.SeasonalAdjustments, 1)
	assert.Equal(t, "12-01", record.SeasonalAdjustments[0].StartDate)

	restored, err := toApplicationSchedule(record)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestScheduleConversion_EmptyOptionalsBecomeNil(t *testing.T) {
	t.Parallel()

	record := toPersistenceSchedule(testfixtures.NewScheduleFixture(testfixtures.WithoutScheduleCost()).Application())
	assert.Nil(t, record.AssignedEmployeeID)
	assert.Nil(t, record.ServiceItemID)
	assert.Nil(t, record.SpecialInstructions)
	assert.Nil(t, record.EstimatedCost)
	assert.Nil(t, record.RecurrencePattern.DayOfMonth)
	assert.Nil(t, record.RecurrencePattern.MaxOccurrences)
}

func TestScheduleConversion_RejectsMalformedWindow(t *testing.T) {
	t.Parallel()

	record := testfixtures.NewScheduleFixture(testfixtures.WithWinterAdjustment(1, "1.1")).Persistence()
	record.SeasonalAdjustments[0].StartDate = "winter"

	_, err := toApplicationSchedule(record)
	require.Error(t, err)
	assert.Contains(t, err.Error(), record.ID)
}

func TestScheduleRepositoryAdapter_Memory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	adapter := newScheduleRepositoryAdapter(memory.New())

	first := testfixtures.NewScheduleFixture(testfixtures.WithScheduleID("a"), testfixtures.WithScheduleTags("roof")).Application()
	second := testfixtures.NewScheduleFixture(testfixtures.WithScheduleID("b"), testfixtures.WithScheduleNextServiceDate(first.NextServiceDate.AddDate(0, 0, -1))).Application()

	created, err := adapter.CreateSchedule(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first, created)
	_, err = adapter.CreateSchedule(ctx, second)
	require.NoError(t, err)

	first.Title = "Roof inspection"
	updated, err := adapter.UpdateSchedule(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "Roof inspection", updated.Title)

	listed, err := adapter.ListSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "b", listed[0].ID)
	assert.Equal(t, "a", listed[1].ID)

	require.NoError(t, adapter.DeleteSchedule(ctx, "a"))
	_, err = adapter.GetSchedule(ctx, "a")
	require.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestRun_ProjectPrintsDates(t *testing.T) {
	isolateEnv(t)

	cases := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "monthly",
			args: []string{"project", "--from", "2025-01-15", "-n", "3"},
			want: []string{"2025-02-15", "2025-03-15", "2025-04-15"},
		},
		{
			name: "weekend skip carries forward",
			args: []string{"project", "--from", "2025-01-15", "-n", "3", "--skip-weekends"},
			want: []string{"2025-02-17", "2025-03-17", "2025-04-17"},
		},
		{
			name: "weekly interval",
			args: []string{"project", "--type", "weekly", "--interval", "2", "--from", "2025-01-06", "-n", "2"},
			want: []string{"2025-01-20", "2025-02-03"},
		},
		{
			name: "occurrence cap counts the base date",
			args: []string{"project", "--from", "2025-01-15", "-n", "5", "--max-occurrences", "3"},
			want: []string{"2025-02-15", "2025-03-15"},
		},
		{
			name: "one time rule has no successors",
			args: []string{"project", "--type", "once", "--from", "2025-01-15"},
			want: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out, logs bytes.Buffer
			require.NoError(t, run(context.Background(), tc.args, &out, &logs))

			var got []string
			for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
				if line != "" {
					got = append(got, line)
				}
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRun_ProjectRejectsBadDate(t *testing.T) {
	isolateEnv(t)

	var out, logs bytes.Buffer
	err := run(context.Background(), []string{"project", "--from", "15/01/2025"}, &out, &logs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--from")
}

func TestRun_ReportsConfigurationErrors(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SCHEDULER_STORAGE", "redis")

	var out, logs bytes.Buffer
	err := run(context.Background(), []string{"project", "--from", "2025-01-15"}, &out, &logs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEDULER_REDIS_ADDR")
}

func TestRun_MigrateIsIdempotent(t *testing.T) {
	isolateEnv(t)
	dsn := filepath.Join(t.TempDir(), "scheduler.db")

	var out, logs bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"migrate", "--sqlite-dsn", dsn}, &out, &logs))
	assert.Contains(t, out.String(), "applied 1 migration(s)")
	assert.Contains(t, logs.String(), "migrations complete")

	out.Reset()
	require.NoError(t, run(context.Background(), []string{"migrate", "--sqlite-dsn", dsn}, &out, &logs))
	assert.Contains(t, out.String(), "applied 0 migration(s)")

	storage, err := sqlite.Open(dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })
	schedules, err := storage.ListSchedules(context.Background())
	require.NoError(t, err)
	assert.Empty(t, schedules)
}

func TestOpenStore_RejectsUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := openStore(context.Background(), config.Config{Storage: "etcd"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd")
}

func TestApp_ServesScheduleLifecycle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	directoryFile := filepath.Join(dir, "directory.json")
	require.NoError(t, os.WriteFile(directoryFile, []byte(`{
		"properties": [{"id": "prop-1", "name": "Sunset Apartments"}],
		"employees": [{"id": "emp-1", "name": "Mike Davis"}]
	}`), 0o600))

	cfg := config.Config{
		Storage:        config.StorageSQLite,
		SQLiteDSN:      filepath.Join(dir, "scheduler.db"),
		Location:       time.UTC,
		SweepSchedule:  "*/15 * * * *",
		MetricsEnabled: true,
		MetricsPath:    "/metrics",
		DirectoryFile:  directoryFile,
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	app, err := newApp(context.Background(), cfg, logger)
	require.NoError(t, err)
	server := httptest.NewServer(app.handler)
	t.Cleanup(func() {
		server.Close()
		app.Close()
	})

	body := `{
		"propertyId": "prop-1",
		"assignedEmployeeId": "emp-1",
		"title": "Boiler inspection",
		"category": "hvac",
		"recurrencePattern": {"type": "quarterly", "interval": 1},
		"nextServiceDate": "2030-03-03",
		"estimatedDuration": 120
	}`
	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/schedules", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "manager-7")
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Schedule struct {
			ID           string `json:"id"`
			PropertyName string `json:"propertyName"`
			Priority     string `json:"priority"`
			CreatedBy    string `json:"createdBy"`
		} `json:"schedule"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.Schedule.ID)
	assert.Equal(t, "Sunset Apartments", created.Schedule.PropertyName)
	assert.Equal(t, "medium", created.Schedule.Priority)
	assert.Equal(t, "manager-7", created.Schedule.CreatedBy)

	stored, err := app.store.GetSchedule(context.Background(), created.Schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, "Boiler inspection", stored.Title)

	require.Eventually(t, func() bool {
		return app.feed.Version() >= app.service.Snapshot().Version
	}, 2*time.Second, 10*time.Millisecond)

	resp, err = server.Client().Get(server.URL + "/calendar.ics?from=2030-03-01&to=2030-03-31")
	require.NoError(t, err)
	ics, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(ics), "SUMMARY:Boiler inspection")

	resp, err = server.Client().Get(server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = server.Client().Get(server.URL + "/metrics")
	require.NoError(t, err)
	exposition, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(exposition), "maintenance_scheduler_http_requests_total")
	assert.Contains(t, string(exposition), "go_goroutines")
}
