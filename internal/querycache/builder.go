// Package querycache builds the query tier files offline. Each tier covers
// every prefix of the top-N cities' "name, st" keys and is written as a
// checkpoint, so a later run resumes from the largest finished tier.
package querycache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/weather-dashboard/internal/citydata"
	"github.com/mohammed-shakir/weather-dashboard/internal/search"
)

type Builder struct {
	ix      *search.Index
	dir     string
	workers int
	log     *slog.Logger
}

type Option func(*Builder)

func WithWorkers(n int) Option { return func(b *Builder) { b.workers = n } }

func WithLogger(l *slog.Logger) Option { return func(b *Builder) { b.log = l } }

func New(ix *search.Index, dir string, opts ...Option) *Builder {
	b := &Builder{ix: ix, dir: dir, workers: runtime.GOMAXPROCS(0)}
	for _, o := range opts {
		o(b)
	}
	if b.workers < 1 {
		b.workers = 1
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	return b
}

// Result returns the ranked ids the live search gives for q.
func (b *Builder) Result(q string) []int64 {
	cs, ok := b.ix.PrefixTop(q, search.ResultSize)
	if !ok {
		cs = b.ix.Scan(q, search.ResultSize)
	}
	out := make([]int64, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

// Build writes one tier file per requested size, smallest first.
func (b *Builder) Build(ctx context.Context, tiers []int) error {
	tiers = normalizeTiers(tiers)
	if len(tiers) == 0 {
		return errors.New("querycache: no tiers requested")
	}

	cache := citydata.Tier{}
	boundary := 0
	start := 0
	for i := len(tiers) - 1; i >= 0; i-- {
		path := b.path(tiers[i])
		t, err := citydata.LoadTier(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("resume from %s: %w", path, err)
		}
		cache = t
		boundary = min(tiers[i], b.ix.Len())
		start = i + 1
		b.log.Info("resuming from checkpoint", "tier", tiers[i], "queries", len(t))
		break
	}

	cities := b.ix.Cities()
	for _, n := range tiers[start:] {
		t0 := time.Now()
		end := min(n, len(cities))

		var pending []string
		queued := make(map[string]struct{})
		for _, c := range cities[boundary:end] {
			key := c.SearchKey()
			for i := range key {
				if i == 0 {
					continue
				}
				pending = appendNew(pending, queued, cache, key[:i])
			}
			pending = appendNew(pending, queued, cache, key)
		}

		results, err := b.score(ctx, pending)
		if err != nil {
			return err
		}
		for i, q := range pending {
			cache[q] = results[i]
		}

		path := b.path(n)
		if err := citydata.WriteJSONAtomic(path, cache); err != nil {
			return fmt.Errorf("write tier %d: %w", n, err)
		}
		b.log.Info("tier written",
			"tier", n, "cities", end, "new_queries", len(pending),
			"queries", len(cache), "elapsed", time.Since(t0))
		boundary = end
	}
	return nil
}

func appendNew(pending []string, queued map[string]struct{}, cache citydata.Tier, q string) []string {
	if _, ok := cache[q]; ok {
		return pending
	}
	if _, ok := queued[q]; ok {
		return pending
	}
	queued[q] = struct{}{}
	return append(pending, q)
}

func (b *Builder) score(ctx context.Context, pending []string) ([][]int64, error) {
	results := make([][]int64, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, q := range pending {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = b.Result(q)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (b *Builder) path(n int) string { return filepath.Join(b.dir, citydata.TierFileName(n)) }

func normalizeTiers(in []int) []int {
	seen := make(map[int]struct{}, len(in))
	out := make([]int, 0, len(in))
	for _, n := range in {
		if n <= 0 {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Exists reports whether the tier file for n has been written in dir.
func Exists(dir string, n int) bool {
	_, err := os.Stat(filepath.Join(dir, citydata.TierFileName(n)))
	return err == nil
}
