// Package citystore is the persistent city store: point and ranked lookups by
// geonameid plus the bulk writes used by dataset sync.
package citystore

import (
	"context"
	"sort"
	"sync"

	"github.com/mohammed-shakir/weather-dashboard/internal/city"
)

type Store interface {
	GetByID(ctx context.Context, id int64) (city.City, bool, error)
	// GetByIDs returns the cities in the order of ids, skipping unknown ids.
	GetByIDs(ctx context.Context, ids []int64) ([]city.City, error)
	ListIDs(ctx context.Context) ([]int64, error)
	Upsert(ctx context.Context, cities []city.City) error
	Delete(ctx context.Context, ids []int64) error
}

type memoryStore struct {
	mu sync.RWMutex
	m  map[int64]city.City
}

func NewMemoryStore() Store {
	return &memoryStore{m: make(map[int64]city.City)}
}

func (s *memoryStore) GetByID(ctx context.Context, id int64) (city.City, bool, error) {
	if err := ctx.Err(); err != nil {
		return city.City{}, false, err
	}
	s.mu.RLock()
	c, ok := s.m[id]
	s.mu.RUnlock()
	return c, ok, nil
}

func (s *memoryStore) GetByIDs(ctx context.Context, ids []int64) ([]city.City, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]city.City, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.m[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memoryStore) ListIDs(ctx context.Context) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]int64, 0, len(s.m))
	for id := range s.m {
		out = append(out, id)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *memoryStore) Upsert(ctx context.Context, cities []city.City) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	for _, c := range cities {
		s.m[c.ID] = c
	}
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, ids []int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	for _, id := range ids {
		delete(s.m, id)
	}
	s.mu.Unlock()
	return nil
}
