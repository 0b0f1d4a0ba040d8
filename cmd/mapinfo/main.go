// Package main loads a map directory, resolves it and prints a YAML summary.
// With a catalog path configured, the resolved map is also indexed into
// SQLite.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/scsmap/internal/catalog"
	"github.com/cory-johannsen/scsmap/internal/config"
	"github.com/cory-johannsen/scsmap/internal/mapio"
	"github.com/cory-johannsen/scsmap/internal/observability"
	"github.com/cory-johannsen/scsmap/internal/report"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file (defaults and SCSMAP_* environment when empty)")
	dir := flag.String("dir", "", "map directory (overrides map.dir)")
	catalogPath := flag.String("catalog", "", "SQLite catalog file (overrides catalog.path)")
	strict := flag.Bool("strict", false, "fail on unresolved references (overrides map.strict_references)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *dir != "" {
		cfg.Map.Dir = *dir
	}
	if *catalogPath != "" {
		cfg.Catalog.Path = *catalogPath
	}
	if *strict {
		cfg.Map.StrictReferences = true
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, rep, err := mapio.NewLoader(cfg.Map, logger).Load(ctx, cfg.Map.Dir)
	if err != nil {
		if mapio.IsNotExist(err) {
			logger.Fatal("map directory not found", zap.String("dir", cfg.Map.Dir))
		}
		logger.Fatal("loading map", zap.String("dir", cfg.Map.Dir), zap.Error(err))
	}

	if cfg.Catalog.Path != "" {
		cat, err := catalog.Open(cfg.Catalog.Path)
		if err != nil {
			logger.Fatal("opening catalog", zap.Error(err))
		}
		defer cat.Close()
		if err := cat.Write(ctx, m, rep); err != nil {
			logger.Fatal("writing catalog", zap.Error(err))
		}
		logger.Info("catalog written",
			zap.String("path", cfg.Catalog.Path),
			zap.Int("items", m.ItemCount()),
		)
	}

	if err := report.Summarize(m, rep).Write(os.Stdout); err != nil {
		logger.Fatal("writing summary", zap.Error(err))
	}
	logger.Debug("done", zap.Duration("elapsed", time.Since(start)))
}
