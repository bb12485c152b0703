// Package expcache is a fetch-through cache whose expiration is computed from
// the fetched item rather than from a fixed TTL.
//
// A hit is an entry with a non-nil item and now < ValidUntil. Everything else
// is a miss: fetch is called, the expiration is computed from the result, and
// the entry is overwritten. There is no delete; entries go stale on their own.
package expcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mohammed-shakir/weather-dashboard/internal/core/observability"
)

// FetchFunc loads a fresh item. A nil item with a nil error is a valid
// "no data" result and is cached as always stale.
type FetchFunc[O, T any] func(ctx context.Context, opts O) (*T, error)

// ExpireFunc returns the Unix second until which item stays valid.
type ExpireFunc[T any] func(ctx context.Context, key string, item *T) (int64, error)

type Cache[O, T any] struct {
	name   string
	fetch  FetchFunc[O, T]
	expire ExpireFunc[T]
	store  entryStore[T]
	group  *singleflight.Group
	shared time.Duration
	now    func() time.Time
	log    *slog.Logger
}

type settings struct {
	name       string
	log        *slog.Logger
	now        func() time.Time
	maxEntries int
	coalesce   bool
	shared     time.Duration
}

// DefaultSharedTimeout bounds a coalesced fetch once it is detached from the
// caller that started it.
const DefaultSharedTimeout = 30 * time.Second

type Option func(*settings)

func WithName(name string) Option { return func(s *settings) { s.name = name } }

func WithLogger(l *slog.Logger) Option { return func(s *settings) { s.log = l } }

func WithClock(now func() time.Time) Option { return func(s *settings) { s.now = now } }

// WithMaxEntries bounds the cache with an LRU. n <= 0 keeps it unbounded.
func WithMaxEntries(n int) Option { return func(s *settings) { s.maxEntries = n } }

// WithCoalescing shares one in-flight fetch between concurrent misses on the
// same key. The shared fetch keeps the starting caller's context values but not
// its cancellation, so one caller leaving does not fail the others.
func WithCoalescing() Option { return func(s *settings) { s.coalesce = true } }

// WithSharedTimeout bounds a coalesced fetch. d <= 0 uses DefaultSharedTimeout.
func WithSharedTimeout(d time.Duration) Option { return func(s *settings) { s.shared = d } }

func New[O, T any](fetch FetchFunc[O, T], expire ExpireFunc[T], opts ...Option) (*Cache[O, T], error) {
	if fetch == nil || expire == nil {
		return nil, errors.New("expcache: fetch and expire are required")
	}
	st := settings{name: "default", now: time.Now}
	for _, o := range opts {
		o(&st)
	}
	if st.log == nil {
		st.log = slog.Default()
	}
	if st.now == nil {
		st.now = time.Now
	}

	c := &Cache[O, T]{
		name:   st.name,
		fetch:  fetch,
		expire: expire,
		now:    st.now,
		log:    st.log.With("cache", st.name),
	}
	if st.maxEntries > 0 {
		s, err := newLRUStore[T](st.maxEntries)
		if err != nil {
			return nil, fmt.Errorf("expcache lru: %w", err)
		}
		c.store = s
	} else {
		c.store = newShardedStore[T]()
	}
	if st.coalesce {
		c.group = &singleflight.Group{}
		c.shared = st.shared
		if c.shared <= 0 {
			c.shared = DefaultSharedTimeout
		}
	}
	return c, nil
}

// Get returns the cached entry for key when valid, otherwise fetches with opts.
// Fetch errors and context cancellation are returned and nothing is stored.
func (c *Cache[O, T]) Get(ctx context.Context, key string, opts O) (Entry[T], error) {
	if e, ok := c.store.get(key); ok && e.ValidAt(c.now().Unix()) {
		observability.IncExpCache(c.name, "hit")
		return e, nil
	}
	observability.IncExpCache(c.name, "miss")

	if c.group == nil {
		return c.refresh(ctx, key, opts)
	}
	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.shared)
		defer cancel()
		return c.refresh(fctx, key, opts)
	})
	select {
	case <-ctx.Done():
		return Entry[T]{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Entry[T]{}, r.Err
		}
		return r.Val.(Entry[T]), nil
	}
}

// Peek returns the stored entry without fetching, valid or not.
func (c *Cache[O, T]) Peek(key string) (Entry[T], bool) { return c.store.get(key) }

func (c *Cache[O, T]) Len() int { return c.store.len() }

func (c *Cache[O, T]) Name() string { return c.name }

func (c *Cache[O, T]) refresh(ctx context.Context, key string, opts O) (Entry[T], error) {
	item, err := c.fetch(ctx, opts)
	if err != nil {
		observability.IncExpCache(c.name, "fetch_error")
		return Entry[T]{}, err
	}
	if err := ctx.Err(); err != nil {
		return Entry[T]{}, err
	}

	var validUntil int64
	if item != nil {
		validUntil = c.validUntil(ctx, key, item)
	}
	e := Entry[T]{Key: key, Item: item, ValidUntil: validUntil}
	c.store.put(key, e)
	return e, nil
}

func (c *Cache[O, T]) validUntil(ctx context.Context, key string, item *T) (out int64) {
	defer func() {
		if r := recover(); r != nil {
			observability.IncExpCache(c.name, "expire_error")
			c.log.Error("expiration panicked", "key", key, "panic", fmt.Sprint(r))
			out = 0
		}
	}()
	v, err := c.expire(ctx, key, item)
	if err != nil {
		observability.IncExpCache(c.name, "expire_error")
		c.log.Warn("expiration failed", "key", key, "err", err)
		return 0
	}
	return v
}
