// Package main packs a map directory into a zstd-compressed bundle, or
// unpacks a bundle into a map directory.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/scsmap/internal/bundle"
	"github.com/cory-johannsen/scsmap/internal/config"
	"github.com/cory-johannsen/scsmap/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file (defaults and SCSMAP_* environment when empty)")
	mode := flag.String("mode", "", "pack or unpack")
	dir := flag.String("dir", "", "map directory (overrides map.dir)")
	file := flag.String("file", "", "bundle file")
	level := flag.String("level", "", "compression level: fastest, default, better, best (overrides bundle.level)")
	flag.Parse()

	if *mode == "" || *file == "" {
		fmt.Fprintln(os.Stderr, "usage: mapbundle -mode pack|unpack -file <bundle"+bundle.Ext+"> [-dir <map dir>] [-level <level>] [-config <file>]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *dir != "" {
		cfg.Map.Dir = *dir
	}
	if *level != "" {
		cfg.Bundle.Level = *level
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	var n int
	switch *mode {
	case "pack":
		lvl, err := bundle.ParseLevel(cfg.Bundle.Level)
		if err != nil {
			logger.Fatal("parsing compression level", zap.Error(err))
		}
		n, err = bundle.PackFile(*file, cfg.Map.Dir, lvl)
		if err != nil {
			logger.Fatal("packing bundle", zap.String("dir", cfg.Map.Dir), zap.Error(err))
		}
	case "unpack":
		n, err = bundle.UnpackFile(*file, cfg.Map.Dir)
		if err != nil {
			logger.Fatal("unpacking bundle", zap.String("file", *file), zap.Error(err))
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (supported: pack, unpack)\n", *mode)
		os.Exit(1)
	}

	logger.Info("bundle complete",
		zap.String("mode", *mode),
		zap.String("file", *file),
		zap.String("dir", cfg.Map.Dir),
		zap.Int("files", n),
		zap.Duration("elapsed", time.Since(start)),
	)
}
