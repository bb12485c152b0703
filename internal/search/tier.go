package search

import "context"

// QueryTier maps a normalized query to precomputed ranked geonameids.
type QueryTier interface {
	Lookup(ctx context.Context, query string) ([]int64, bool, error)
}

// MemoryTier is a tier file held in process.
type MemoryTier map[string][]int64

func (t MemoryTier) Lookup(_ context.Context, query string) ([]int64, bool, error) {
	ids, ok := t[query]
	return ids, ok, nil
}
