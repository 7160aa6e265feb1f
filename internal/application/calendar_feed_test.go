package application

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/maintenance-scheduler/internal/scheduler"
)

func TestCalendarFeed_FollowsRegistrySnapshots(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newScheduleRepoStub())
	feed := NewCalendarFeed(func() time.Time { return serviceNow }, nil)

	snapshots, cancel := svc.Subscribe()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx, snapshots) }()

	first := validInput()
	first.AssignedEmployeeID = "emp-1"
	first.NextServiceDate = date(2025, time.January, 12)
	second := validInput()
	second.AssignedEmployeeID = "emp-1"
	second.NextServiceDate = date(2025, time.January, 12).Add(time.Hour)
	a := mustCreate(t, svc, first)
	b := mustCreate(t, svc, second)

	deadline := time.Now().Add(2 * time.Second)
	for feed.Version() < svc.Snapshot().Version {
		if time.Now().After(deadline) {
			t.Fatalf("feed did not catch up: feed v%d registry v%d", feed.Version(), svc.Snapshot().Version)
		}
		time.Sleep(5 * time.Millisecond)
	}

	view := feed.Events(date(2025, time.January, 1), date(2025, time.January, 31), scheduler.Filter{})
	if len(view.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(view.Events))
	}
	if view.Events[0].ScheduleID != a.ID || view.Events[0].Status != scheduler.StatusAssigned {
		t.Fatalf("unexpected first event %+v", view.Events[0])
	}
	if view.Events[0].AssignedEmployeeName != "Mike Davis" || view.Events[0].PropertyName != "Sunset Apartments" {
		t.Fatalf("expected denormalized names on events, got %+v", view.Events[0])
	}
	if len(view.Conflicts) != 1 || view.Conflicts[0].WithScheduleID != b.ID {
		t.Fatalf("expected one employee conflict, got %+v", view.Conflicts)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("expected clean exit when stream closes, got %v", err)
	}
	stop()
}

func TestCalendarFeed_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	feed := NewCalendarFeed(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := feed.Run(ctx, make(chan Snapshot)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCalendarFeed_ApplyIgnoresStaleSnapshots(t *testing.T) {
	t.Parallel()

	feed := NewCalendarFeed(func() time.Time { return serviceNow }, nil)
	newer := Snapshot{Version: 3, Schedules: []ServiceSchedule{{ID: "kept", IsActive: true, NextServiceDate: serviceNow, EstimatedDuration: 30}}}
	older := Snapshot{Version: 2}

	feed.Apply(newer)
	feed.Apply(older)

	if feed.Version() != 3 {
		t.Fatalf("expected version 3, got %d", feed.Version())
	}
	if view := feed.Events(time.Time{}, time.Time{}, scheduler.Filter{}); len(view.Events) != 1 {
		t.Fatalf("expected stale snapshot to be ignored, got %d events", len(view.Events))
	}
}

func TestCalendarFeed_WriteICS(t *testing.T) {
	t.Parallel()

	feed := NewCalendarFeed(func() time.Time { return serviceNow }, nil)
	feed.Apply(Snapshot{Version: 1, Schedules: []ServiceSchedule{{
		ID:                "s-1",
		Title:             "Gutter cleaning",
		Priority:          PriorityHigh,
		IsActive:          true,
		NextServiceDate:   date(2025, time.January, 20),
		EstimatedDuration: 45,
	}}})

	var buf bytes.Buffer
	if err := feed.WriteICS(&buf, time.Time{}, time.Time{}, scheduler.Filter{}); err != nil {
		t.Fatalf("WriteICS failed: %v", err)
	}
	if !strings.Contains(buf.String(), "SUMMARY:Gutter cleaning") {
		t.Fatalf("expected event summary in %q", buf.String())
	}
}

func TestCalendarFeed_CachedViewDropsOnApply(t *testing.T) {
	t.Parallel()

	feed := NewCalendarFeed(func() time.Time { return serviceNow }, nil)
	feed.Apply(Snapshot{Version: 1, Schedules: []ServiceSchedule{{ID: "s-1", IsActive: true, NextServiceDate: serviceNow, EstimatedDuration: 30}}})

	first := feed.Events(time.Time{}, time.Time{}, scheduler.Filter{})
	if len(first.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(first.Events))
	}
	first.Events[0].Title = "mutated"
	if cached := feed.Events(time.Time{}, time.Time{}, scheduler.Filter{}); cached.Events[0].Title == "mutated" {
		t.Fatalf("expected cached view to be isolated from callers")
	}

	feed.Apply(Snapshot{Version: 2})
	if view := feed.Events(time.Time{}, time.Time{}, scheduler.Filter{}); len(view.Events) != 0 || view.Version != 2 {
		t.Fatalf("expected fresh view after apply, got %+v", view)
	}
}

func TestCalendarFeed_StatusTurnsOverdueOnceStartPasses(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	current := start.Add(-10 * time.Second)
	feed := NewCalendarFeed(func() time.Time { return current }, nil)
	feed.Apply(Snapshot{Version: 1, Schedules: []ServiceSchedule{{
		ID:                 "s-1",
		AssignedEmployeeID: "emp-1",
		IsActive:           true,
		NextServiceDate:    start,
		EstimatedDuration:  30,
	}}})

	before := feed.Events(time.Time{}, time.Time{}, scheduler.Filter{})
	if len(before.Events) != 1 || before.Events[0].Status != scheduler.StatusAssigned {
		t.Fatalf("expected one assigned event before start, got %+v", before.Events)
	}

	current = start.Add(10 * time.Second)
	after := feed.Events(time.Time{}, time.Time{}, scheduler.Filter{})
	if len(after.Events) != 1 || after.Events[0].Status != scheduler.StatusOverdue {
		t.Fatalf("expected the event to be overdue after start, got %+v", after.Events)
	}
}
