package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mohammed-shakir/weather-dashboard/internal/citydata"
	"github.com/mohammed-shakir/weather-dashboard/internal/logger"
	"github.com/mohammed-shakir/weather-dashboard/internal/querycache"
	"github.com/mohammed-shakir/weather-dashboard/internal/search"
)

type Config struct {
	Dataset  string
	Dir      string
	Tiers    string
	Workers  int
	LogLevel string
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.Dataset, "dataset", "data/cities.json", "deduplicated dataset")
	flag.StringVar(&cfg.Dir, "dir", "data", "output directory for tier files")
	flag.StringVar(&cfg.Tiers, "tiers", "500,5000,30542", "comma separated tier sizes")
	flag.IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "concurrent scoring workers")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "log level")
	flag.Parse()
	return cfg
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, loadConfig()))
}

func run(ctx context.Context, cfg Config) int {
	zl := logger.Build(logger.Config{Level: cfg.LogLevel, Console: true, Component: "build-query-cache"}, os.Stderr)
	log := logger.NewSlog(&zl)

	tiers, err := parseTiers(cfg.Tiers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -tiers: %v\n", err)
		return 1
	}

	cities, rejected, err := citydata.LoadCities(cfg.Dataset, log)
	if err != nil {
		log.Error("dataset load failed", "path", cfg.Dataset, "err", err)
		return 1
	}
	if rejected > 0 {
		log.Warn("dataset records rejected", "count", rejected)
	}

	start := time.Now()
	b := querycache.New(search.NewIndex(cities), cfg.Dir,
		querycache.WithWorkers(cfg.Workers), querycache.WithLogger(log))
	if err := b.Build(ctx, tiers); err != nil {
		log.Error("query cache build failed", "err", err)
		return 1
	}
	log.Info("query cache built", "dir", cfg.Dir, "tiers", tiers, "elapsed", time.Since(start))
	return 0
}

func parseTiers(s string) ([]int, error) {
	var out []int
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("tier %q is not a positive integer", part)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no tiers given")
	}
	return out, nil
}
