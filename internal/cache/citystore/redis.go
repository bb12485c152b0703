package citystore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/mohammed-shakir/weather-dashboard/internal/cache/keys"
	"github.com/mohammed-shakir/weather-dashboard/internal/cache/redisstore"
	"github.com/mohammed-shakir/weather-dashboard/internal/city"
)

type redisStore struct {
	cli       *redisstore.Client
	opTimeout time.Duration
}

// NewRedisStore keeps each city as JSON at city:{id} and the id set at
// city:ids. opTimeout bounds every call; 0 leaves the caller's deadline alone.
func NewRedisStore(cli *redisstore.Client, opTimeout time.Duration) Store {
	return &redisStore{cli: cli, opTimeout: opTimeout}
}

func (s *redisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *redisStore) GetByID(ctx context.Context, id int64) (city.City, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	raw, ok, err := s.cli.Get(ctx, keys.City(id))
	if err != nil {
		return city.City{}, false, fmt.Errorf("citystore get %d: %w", id, err)
	}
	if !ok {
		return city.City{}, false, nil
	}
	var c city.City
	if err := json.Unmarshal(raw, &c); err != nil {
		return city.City{}, false, fmt.Errorf("citystore decode %d: %w", id, err)
	}
	return c, true, nil
}

func (s *redisStore) GetByIDs(ctx context.Context, ids []int64) ([]city.City, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ks := make([]string, len(ids))
	for i, id := range ids {
		ks[i] = keys.City(id)
	}
	raw, err := s.cli.MGet(ctx, ks)
	if err != nil {
		return nil, fmt.Errorf("citystore MGET %d ids: %w", len(ids), err)
	}

	out := make([]city.City, 0, len(ids))
	for i, k := range ks {
		v, ok := raw[k]
		if !ok {
			continue
		}
		var c city.City
		if err := json.Unmarshal(v, &c); err != nil {
			return nil, fmt.Errorf("citystore decode %d: %w", ids[i], err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *redisStore) ListIDs(ctx context.Context) ([]int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	members, err := s.cli.SMembers(ctx, keys.CityIDs)
	if err != nil {
		return nil, fmt.Errorf("citystore list ids: %w", err)
	}
	out := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *redisStore) Upsert(ctx context.Context, cities []city.City) error {
	if len(cities) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	kv := make(map[string][]byte, len(cities))
	members := make([]string, 0, len(cities))
	for _, c := range cities {
		b, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("citystore encode %d: %w", c.ID, err)
		}
		kv[keys.City(c.ID)] = b
		members = append(members, strconv.FormatInt(c.ID, 10))
	}
	if err := s.cli.MSetWithTTL(ctx, kv, 0); err != nil {
		return fmt.Errorf("citystore upsert: %w", err)
	}
	if err := s.cli.SAdd(ctx, keys.CityIDs, members...); err != nil {
		return fmt.Errorf("citystore index ids: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ks := make([]string, len(ids))
	members := make([]string, len(ids))
	for i, id := range ids {
		ks[i] = keys.City(id)
		members[i] = strconv.FormatInt(id, 10)
	}
	if err := s.cli.Del(ctx, ks...); err != nil {
		return fmt.Errorf("citystore delete: %w", err)
	}
	if err := s.cli.SRem(ctx, keys.CityIDs, members...); err != nil {
		return fmt.Errorf("citystore unindex ids: %w", err)
	}
	return nil
}
