// Package redisstore keeps service schedules in Redis. Each schedule is a stripped
// JSON document stored as a field of one hash, and a sorted set scored by next
// service date provides the list order.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/example/maintenance-scheduler/internal/persistence"
	"github.com/example/maintenance-scheduler/internal/persistence/document"
)

// DefaultKeyPrefix namespaces keys when no prefix is configured.
const DefaultKeyPrefix = "maintenance-scheduler"

// Store implements persistence.ScheduleRepository on a Redis client.
type Store struct {
	client    redis.UniversalClient
	documents string
	byNext    string
}

// New returns a Store using keys under prefix.
func New(client redis.UniversalClient, prefix string) *Store {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{
		client:    client,
		documents: prefix + ":schedules",
		byNext:    prefix + ":schedules:by-next",
	}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// CreateSchedule stores a new schedule. The document and its index entry are
// written in one transaction while the id is still absent.
func (s *Store) CreateSchedule(ctx context.Context, schedule persistence.ServiceSchedule) error {
	if err := requireKeys(schedule); err != nil {
		return err
	}
	doc, err := document.Marshal(schedule)
	if err != nil {
		return err
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, s.documents, schedule.ID).Result()
		if err != nil {
			return fmt.Errorf("redis hexists: %w", err)
		}
		if exists {
			return fmt.Errorf("redis: schedule %s: %w", schedule.ID, persistence.ErrDuplicate)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.documents, schedule.ID, doc)
			pipe.ZAdd(ctx, s.byNext, member(schedule))
			return nil
		})
		return err
	}, s.documents)
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return err
		}
		return fmt.Errorf("redis create: %w", err)
	}
	return nil
}

// UpdateSchedule replaces an existing schedule. The document is only written while
// the id is still present.
func (s *Store) UpdateSchedule(ctx context.Context, schedule persistence.ServiceSchedule) error {
	if err := requireKeys(schedule); err != nil {
		return err
	}
	doc, err := document.Marshal(schedule)
	if err != nil {
		return err
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, s.documents, schedule.ID).Result()
		if err != nil {
			return fmt.Errorf("redis hexists: %w", err)
		}
		if !exists {
			return persistence.ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.documents, schedule.ID, doc)
			pipe.ZAdd(ctx, s.byNext, member(schedule))
			return nil
		})
		return err
	}, s.documents)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return err
		}
		return fmt.Errorf("redis update: %w", err)
	}
	return nil
}

// GetSchedule retrieves a schedule by ID.
func (s *Store) GetSchedule(ctx context.Context, id string) (persistence.ServiceSchedule, error) {
	doc, err := s.client.HGet(ctx, s.documents, id).Result()
	if errors.Is(err, redis.Nil) {
		return persistence.ServiceSchedule{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.ServiceSchedule{}, fmt.Errorf("redis hget: %w", err)
	}
	return decode(doc)
}

// ListSchedules returns all schedules ordered by next service date, then id.
func (s *Store) ListSchedules(ctx context.Context) ([]persistence.ServiceSchedule, error) {
	ids, err := s.client.ZRange(ctx, s.byNext, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrange: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	values, err := s.client.HMGet(ctx, s.documents, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hmget: %w", err)
	}

	schedules := make([]persistence.ServiceSchedule, 0, len(values))
	for _, value := range values {
		doc, ok := value.(string)
		if !ok {
			// Index entry without a document; removed concurrently.
			continue
		}
		schedule, err := decode(doc)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, nil
}

// DeleteSchedule removes a schedule by ID.
func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.HDel(ctx, s.documents, id)
		pipe.ZRem(ctx, s.byNext, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	if removed.Val() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// member builds the sorted set entry of schedule. Equal scores fall back to the
// lexicographic order of members, which is the id order.
func member(schedule persistence.ServiceSchedule) redis.Z {
	return redis.Z{
		Score:  float64(schedule.NextServiceDate.UnixMilli()),
		Member: schedule.ID,
	}
}

func decode(doc string) (persistence.ServiceSchedule, error) {
	var schedule persistence.ServiceSchedule
	if err := document.Unmarshal([]byte(doc), &schedule); err != nil {
		return persistence.ServiceSchedule{}, fmt.Errorf("redis: %w", err)
	}
	return schedule, nil
}

func requireKeys(schedule persistence.ServiceSchedule) error {
	if strings.TrimSpace(schedule.ID) == "" || strings.TrimSpace(schedule.PropertyID) == "" {
		return persistence.ErrConstraintViolation
	}
	return nil
}
