// Package directory resolves the display names of properties, employees and service
// items referenced by schedules. The records live outside the scheduler; this package
// holds a read-only copy seeded at start-up.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ErrUnknownReference is returned when an id has no entry in the directory.
var ErrUnknownReference = errors.New("directory: unknown reference")

// Entry is one named record.
type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Seed is the on-disk layout accepted by LoadFile.
type Seed struct {
	Properties   []Entry `json:"properties"`
	Employees    []Entry `json:"employees"`
	ServiceItems []Entry `json:"serviceItems"`
}

// Static is an in-memory directory safe for concurrent use.
type Static struct {
	mu           sync.RWMutex
	properties   map[string]string
	employees    map[string]string
	serviceItems map[string]string
}

// New builds a directory from seed.
func New(seed Seed) *Static {
	d := &Static{}
	d.Replace(seed)
	return d
}

// LoadFile reads a JSON seed from path. An empty path yields an empty directory.
func LoadFile(path string) (*Static, error) {
	if strings.TrimSpace(path) == "" {
		return New(Seed{}), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode directory file %s: %w", path, err)
	}
	return New(seed), nil
}

// Replace swaps the directory contents for seed.
func (d *Static) Replace(seed Seed) {
	properties := index(seed.Properties)
	employees := index(seed.Employees)
	serviceItems := index(seed.ServiceItems)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.properties = properties
	d.employees = employees
	d.serviceItems = serviceItems
}

// PropertyName returns the name registered for a property id.
func (d *Static) PropertyName(ctx context.Context, id string) (string, error) {
	return d.lookup(ctx, "property", id, func() map[string]string { return d.properties })
}

// EmployeeName returns the name registered for an employee id.
func (d *Static) EmployeeName(ctx context.Context, id string) (string, error) {
	return d.lookup(ctx, "employee", id, func() map[string]string { return d.employees })
}

// ServiceItemName returns the name registered for a service item id.
func (d *Static) ServiceItemName(ctx context.Context, id string) (string, error) {
	return d.lookup(ctx, "service item", id, func() map[string]string { return d.serviceItems })
}

func (d *Static) lookup(ctx context.Context, kind, id string, table func() map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.RLock()
	name, ok := table()[id]
	d.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%s %q: %w", kind, id, ErrUnknownReference)
	}
	return name, nil
}

func index(entries []Entry) map[string]string {
	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			continue
		}
		out[id] = strings.TrimSpace(entry.Name)
	}
	return out
}
