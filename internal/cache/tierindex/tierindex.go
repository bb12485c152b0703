// Package tierindex holds a query cache tier in Redis: one qtier:{hash} key
// per query, valued with the JSON list of ranked geonameids.
package tierindex

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mohammed-shakir/weather-dashboard/internal/cache/keys"
	"github.com/mohammed-shakir/weather-dashboard/internal/cache/redisstore"
)

const loadBatch = 1000

type Index struct {
	cli       *redisstore.Client
	opTimeout time.Duration
}

func New(cli *redisstore.Client, opTimeout time.Duration) *Index {
	return &Index{cli: cli, opTimeout: opTimeout}
}

// Lookup returns the ranked ids stored for query.
func (ix *Index) Lookup(ctx context.Context, query string) ([]int64, bool, error) {
	if ix.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ix.opTimeout)
		defer cancel()
	}
	raw, ok, err := ix.cli.Get(ctx, keys.Tier(query))
	if err != nil {
		return nil, false, fmt.Errorf("tierindex get: %w", err)
	}
	if !ok || len(raw) == 0 {
		return nil, false, nil
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, false, fmt.Errorf("tierindex decode ids: %w", err)
	}
	return ids, true, nil
}

// Load writes every tier entry, pipelined in batches. Repeated ids in one
// entry are collapsed; empty entries are skipped.
func (ix *Index) Load(ctx context.Context, tier map[string][]int64) (int, error) {
	batch := make(map[string][]byte, loadBatch)
	written := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ix.cli.MSetWithTTL(ctx, batch, 0); err != nil {
			return fmt.Errorf("tierindex load: %w", err)
		}
		written += len(batch)
		batch = make(map[string][]byte, loadBatch)
		return nil
	}

	for q, ids := range tier {
		if len(ids) == 0 {
			continue
		}
		payload, err := json.Marshal(uniq(ids))
		if err != nil {
			return written, fmt.Errorf("tierindex encode ids: %w", err)
		}
		batch[keys.Tier(q)] = payload
		if len(batch) >= loadBatch {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}
	return written, nil
}

func uniq(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
