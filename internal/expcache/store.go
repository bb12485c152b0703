package expcache

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

type entryStore[T any] interface {
	get(key string) (Entry[T], bool)
	put(key string, e Entry[T])
	len() int
}

const numShards = 64

type shardedStore[T any] struct {
	shards [numShards]shard[T]
}

type shard[T any] struct {
	mu sync.RWMutex
	m  map[string]Entry[T]
}

func newShardedStore[T any]() *shardedStore[T] {
	s := &shardedStore[T]{}
	for i := range s.shards {
		s.shards[i].m = make(map[string]Entry[T])
	}
	return s
}

func (s *shardedStore[T]) pick(key string) *shard[T] {
	h := xxhash.Sum64String(key)
	return &s.shards[h&(uint64(len(s.shards))-1)]
}

func (s *shardedStore[T]) get(key string) (Entry[T], bool) {
	sh := s.pick(key)
	sh.mu.RLock()
	e, ok := sh.m[key]
	sh.mu.RUnlock()
	return e, ok
}

func (s *shardedStore[T]) put(key string, e Entry[T]) {
	sh := s.pick(key)
	sh.mu.Lock()
	sh.m[key] = e
	sh.mu.Unlock()
}

func (s *shardedStore[T]) len() int {
	total := 0
	for i := range s.shards {
		s.shards[i].mu.RLock()
		total += len(s.shards[i].m)
		s.shards[i].mu.RUnlock()
	}
	return total
}

// lruStore bounds the key space; golang-lru is already safe for concurrent use.
type lruStore[T any] struct {
	c *lru.Cache[string, Entry[T]]
}

func newLRUStore[T any](size int) (*lruStore[T], error) {
	c, err := lru.New[string, Entry[T]](size)
	if err != nil {
		return nil, err
	}
	return &lruStore[T]{c: c}, nil
}

func (s *lruStore[T]) get(key string) (Entry[T], bool) { return s.c.Get(key) }

func (s *lruStore[T]) put(key string, e Entry[T]) { s.c.Add(key, e) }

func (s *lruStore[T]) len() int { return s.c.Len() }
