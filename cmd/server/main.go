package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/mohammed-shakir/weather-dashboard/internal/api"
	"github.com/mohammed-shakir/weather-dashboard/internal/cache/citystore"
	"github.com/mohammed-shakir/weather-dashboard/internal/cache/redisstore"
	"github.com/mohammed-shakir/weather-dashboard/internal/cache/tierindex"
	"github.com/mohammed-shakir/weather-dashboard/internal/city"
	"github.com/mohammed-shakir/weather-dashboard/internal/citydata"
	"github.com/mohammed-shakir/weather-dashboard/internal/citysync"
	"github.com/mohammed-shakir/weather-dashboard/internal/core/config"
	"github.com/mohammed-shakir/weather-dashboard/internal/core/health"
	"github.com/mohammed-shakir/weather-dashboard/internal/core/httpclient"
	"github.com/mohammed-shakir/weather-dashboard/internal/core/observability"
	"github.com/mohammed-shakir/weather-dashboard/internal/core/server"
	"github.com/mohammed-shakir/weather-dashboard/internal/logger"
	"github.com/mohammed-shakir/weather-dashboard/internal/metrics"
	"github.com/mohammed-shakir/weather-dashboard/internal/search"
	"github.com/mohammed-shakir/weather-dashboard/internal/searchevents"
	"github.com/mohammed-shakir/weather-dashboard/internal/upstream"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	addrFlag := flag.String("addr", "", "listen address (overrides ADDR)")
	envFlag := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(*envFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	if *addrFlag != "" {
		cfg.Addr = *addrFlag
	}
	if cfg.BuildVersion == "dev" {
		cfg.BuildVersion = Version
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "weather-dashboard",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		p := metrics.Init(metrics.Config{Build: metrics.BuildInfo{
			Version:   cfg.BuildVersion,
			Revision:  os.Getenv("BUILD_REVISION"),
			Branch:    os.Getenv("BUILD_BRANCH"),
			BuildDate: os.Getenv("BUILD_DATE"),
		}.WithVCS()})
		observability.Init(p.Registerer(), true)
		metricsHandler = p.Handler()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLog.Info("starting weather dashboard",
		"addr", cfg.Addr,
		"version", cfg.BuildVersion,
		"store", cfg.StoreDriver,
		"dataset", cfg.DatasetPath)

	probes := []health.Probe{}
	engineOpts := []search.Option{search.WithLogger(appLog)}
	var store citystore.Store

	switch cfg.StoreDriver {
	case "redis":
		cli, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			appLog.Error("redis connect failed", "addr", cfg.RedisAddr, "err", err)
			return 1
		}
		defer func() { _ = cli.Close() }()
		store = citystore.NewRedisStore(cli, cfg.StoreOpTimeout)

		tiers := tierindex.New(cli, cfg.StoreOpTimeout)
		if err := loadTierIntoRedis(ctx, tiers, cfg.QueryTierPath, appLog); err != nil {
			appLog.Error("query tier load failed", "err", err)
			return 1
		}
		engineOpts = append(engineOpts, search.WithTier(tiers))
		probes = append(probes, health.Probe{Name: "redis", Check: cli.Ping})
	default:
		store = citystore.NewMemoryStore()
	}
	engineOpts = append(engineOpts, search.WithStore(store))

	tierPath := cfg.QueryTierPath
	if cfg.StoreDriver != "redis" && !exists(tierPath) {
		appLog.Warn("query tier file not found; serving from index and scan", "path", tierPath)
		tierPath = ""
	}
	eng, err := search.New(search.Config{
		DatasetPath:       cfg.DatasetPath,
		TierPath:          tierPath,
		DefaultCityID:     cfg.DefaultCityID,
		ClosestTTL:        cfg.ClosestTTL,
		ClosestMaxEntries: cfg.ClosestMaxEntries,
	}, engineOpts...)
	if err != nil {
		appLog.Error("engine setup failed", "err", err)
		return 1
	}
	if err := eng.Load(ctx); err != nil {
		appLog.Error("dataset load failed", "err", err)
		return 1
	}
	probes = append(probes, health.Probe{Name: "dataset", Check: func(context.Context) error {
		if !eng.Ready() {
			return search.ErrNotLoaded
		}
		return nil
	}})

	if cfg.Sync.Enabled {
		syncer := citysync.New(func() []city.City { return eng.Index().Cities() }, store, appLog)
		sched := citysync.NewScheduler(syncer, cfg.Sync.Interval)
		if err := sched.Start(); err != nil {
			appLog.Error("dataset sync setup failed", "err", err)
			return 1
		}
		defer sched.Stop()
	}

	var events searchevents.Sink = searchevents.Nop{}
	if cfg.Events.Enabled {
		pub, err := searchevents.NewPublisher(cfg.Events.BrokerList(), cfg.Events.Topic, cfg.Events.Queue, appLog)
		if err != nil {
			appLog.Error("search events publisher failed", "err", err)
			return 1
		}
		events = pub
	}
	defer func() { _ = events.Close() }()

	up, err := upstream.New(cfg.Upstream, httpclient.NewOutbound(cfg.Upstream.UserAgent),
		upstream.WithLogger(appLog))
	if err != nil {
		appLog.Error("upstream setup failed", "err", err)
		return 1
	}

	handlers := api.New(eng, up, api.WithEvents(events), api.WithLogger(appLog))
	h := server.NewHandler(appLog, handlers, metricsHandler, probes...)

	if err := server.Run(ctx, cfg.Addr, appLog, h); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

func loadTierIntoRedis(ctx context.Context, ix *tierindex.Index, path string, log *slog.Logger) error {
	t, err := citydata.LoadTier(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("query tier file not found", "path", path)
		return nil
	}
	if err != nil {
		return err
	}
	start := time.Now()
	n, err := ix.Load(ctx, t)
	if err != nil {
		return err
	}
	log.Info("query tier loaded into redis", "queries", n, "elapsed", time.Since(start))
	return nil
}

// exists reports whether citydata can open path, compressed variants included.
func exists(path string) bool {
	if path == "" {
		return false
	}
	_, closeFn, err := citydata.Open(path)
	if err != nil {
		return false
	}
	_ = closeFn()
	return true
}
