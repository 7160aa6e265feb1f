package application

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/maintenance-scheduler/internal/scheduler"
)

// viewCache stores recently materialized calendar windows so that repeated
// queries for the same window skip materialization and conflict detection
// while the snapshot version is unchanged. An entry expires after ttl or once
// the clock passes the start of any event it holds that is not yet overdue,
// whichever comes first.
type viewCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]viewCacheEntry
}

type viewCacheEntry struct {
	view      CalendarView
	expiresAt time.Time
}

func newViewCache(ttl time.Duration, maxEntries int, now func() time.Time) *viewCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &viewCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]viewCacheEntry),
	}
}

func (c *viewCache) Get(key string) (CalendarView, bool) {
	if c == nil {
		return CalendarView{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return CalendarView{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return CalendarView{}, false
	}
	return cloneView(entry.view), true
}

func (c *viewCache) Store(key string, view CalendarView) {
	if c == nil {
		return
	}
	cloned := cloneView(view)
	now := c.now()
	expiry := now.Add(c.ttl)
	for _, event := range cloned.Events {
		if !event.Start.Before(now) && event.Start.Before(expiry) {
			expiry = event.Start
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = viewCacheEntry{view: cloned, expiresAt: expiry}
}

func (c *viewCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]viewCacheEntry)
	c.mu.Unlock()
}

func (c *viewCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *viewCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneView(view CalendarView) CalendarView {
	out := CalendarView{Version: view.Version}
	if len(view.Events) > 0 {
		out.Events = append([]scheduler.Event(nil), view.Events...)
	}
	if len(view.Conflicts) > 0 {
		out.Conflicts = append([]scheduler.Conflict(nil), view.Conflicts...)
	}
	return out
}

func buildViewCacheKey(version uint64, from, to time.Time, filter scheduler.Filter) string {
	bound := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339Nano)
	}

	builder := strings.Builder{}
	builder.WriteString(strconv.FormatUint(version, 10))
	builder.WriteString("|")
	builder.WriteString(bound(from))
	builder.WriteString("|")
	builder.WriteString(bound(to))
	builder.WriteString("|")
	builder.WriteString(filter.EmployeeID)
	builder.WriteString("|")
	builder.WriteString(filter.PropertyID)
	builder.WriteString("|")
	builder.WriteString(filter.Category)
	builder.WriteString("|")
	builder.WriteString(strconv.FormatBool(filter.IncludeCompleted))
	return builder.String()
}
