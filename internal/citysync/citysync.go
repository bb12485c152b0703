// Package citysync copies the loaded dataset into the persistent store.
package citysync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/mohammed-shakir/weather-dashboard/internal/cache/citystore"
	"github.com/mohammed-shakir/weather-dashboard/internal/city"
)

const DefaultBatch = 500

type Result struct {
	Upserted int
	Deleted  int
	Elapsed  time.Duration
}

type Syncer struct {
	cities func() []city.City
	store  citystore.Store
	batch  int
	log    *slog.Logger
}

// New syncs whatever cities returns at the time of each run.
func New(cities func() []city.City, store citystore.Store, log *slog.Logger) *Syncer {
	if log == nil {
		log = slog.Default()
	}
	return &Syncer{cities: cities, store: store, batch: DefaultBatch, log: log.With("component", "citysync")}
}

// Sync upserts every dataset city and deletes stored ids the dataset no
// longer has. An empty dataset is refused so a bad load cannot wipe the store.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	start := time.Now()
	cs := s.cities()
	if len(cs) == 0 {
		return Result{}, errors.New("citysync: dataset is empty")
	}

	var res Result
	for i := 0; i < len(cs); i += s.batch {
		end := min(i+s.batch, len(cs))
		if err := s.store.Upsert(ctx, cs[i:end]); err != nil {
			return res, fmt.Errorf("upsert batch at %d: %w", i, err)
		}
		res.Upserted += end - i
	}

	stored, err := s.store.ListIDs(ctx)
	if err != nil {
		return res, fmt.Errorf("list stored ids: %w", err)
	}
	keep := make(map[int64]struct{}, len(cs))
	for _, c := range cs {
		keep[c.ID] = struct{}{}
	}
	var stale []int64
	for _, id := range stored {
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
	}
	for i := 0; i < len(stale); i += s.batch {
		end := min(i+s.batch, len(stale))
		if err := s.store.Delete(ctx, stale[i:end]); err != nil {
			return res, fmt.Errorf("delete batch at %d: %w", i, err)
		}
		res.Deleted += end - i
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

// Scheduler runs Sync on an interval, starting immediately.
type Scheduler struct {
	sched    *gocron.Scheduler
	syncer   *Syncer
	interval time.Duration
	timeout  time.Duration
}

func NewScheduler(s *Syncer, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{
		sched:    gocron.NewScheduler(time.UTC),
		syncer:   s,
		interval: interval,
		timeout:  5 * time.Minute,
	}
}

func (sc *Scheduler) Start() error {
	_, err := sc.sched.Every(sc.interval).SingletonMode().Do(sc.run)
	if err != nil {
		return fmt.Errorf("citysync: schedule: %w", err)
	}
	sc.sched.StartAsync()
	return nil
}

func (sc *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sc.timeout)
	defer cancel()
	res, err := sc.syncer.Sync(ctx)
	if err != nil {
		sc.syncer.log.Error("dataset sync failed", "err", err)
		return
	}
	sc.syncer.log.Info("dataset synced",
		"upserted", res.Upserted, "deleted", res.Deleted, "elapsed", res.Elapsed)
}

func (sc *Scheduler) Stop() { sc.sched.Stop() }
