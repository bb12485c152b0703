package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mohammed-shakir/weather-dashboard/internal/city"
	"github.com/mohammed-shakir/weather-dashboard/internal/citydata"
	"github.com/mohammed-shakir/weather-dashboard/internal/logger"
)

type Config struct {
	In       string
	Out      string
	LogLevel string
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.In, "in", "data/raw-cities.json", "raw city list (JSON, optionally .bz2/.gz)")
	flag.StringVar(&cfg.Out, "out", "data/cities.json", "deduplicated dataset to write")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "log level")
	flag.Parse()
	return cfg
}

func main() {
	os.Exit(run(loadConfig()))
}

func run(cfg Config) int {
	zl := logger.Build(logger.Config{Level: cfg.LogLevel, Console: true, Component: "build-dataset"}, os.Stderr)
	log := logger.NewSlog(&zl)

	if strings.TrimSpace(cfg.In) == "" || strings.TrimSpace(cfg.Out) == "" {
		fmt.Fprintln(os.Stderr, "usage: build-dataset -in raw.json -out cities.json")
		return 1
	}

	raw, rejected, err := citydata.LoadCities(cfg.In, log)
	if err != nil {
		log.Error("read raw cities failed", "path", cfg.In, "err", err)
		return 1
	}
	cities := city.Dedupe(raw)
	if len(cities) == 0 {
		log.Error("no valid cities in input", "path", cfg.In)
		return 1
	}

	if err := citydata.WriteJSONAtomic(cfg.Out, cities); err != nil {
		log.Error("write dataset failed", "path", cfg.Out, "err", err)
		return 1
	}
	log.Info("dataset written",
		"path", cfg.Out,
		"input", len(raw)+rejected,
		"rejected", rejected,
		"duplicates", len(raw)-len(cities),
		"cities", len(cities))
	return 0
}
