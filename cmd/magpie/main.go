// Magpie - E-commerce order analytics in one command.
// Copyright (c) 2025 opensource.retail
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/opensource-retail/magpie/internal/bus"
	"github.com/opensource-retail/magpie/internal/cache"
	"github.com/opensource-retail/magpie/internal/domain"
	"github.com/opensource-retail/magpie/internal/pipeline"
	"github.com/opensource-retail/magpie/internal/warehouse"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	dbPath := flag.String("db", "", "SQLite dataset path (overrides config)")
	outDir := flag.String("out", "", "output directory (overrides config)")
	refDate := flag.String("reference-date", "", "RFM reference date, RFC 3339 (overrides config)")
	noCharts := flag.Bool("no-charts", false, "skip chart rendering")
	flag.Parse()

	// .env is optional; real env vars win
	_ = godotenv.Load()

	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("MAGPIE_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting magpie",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()
	if *configPath == "" {
		*configPath = os.Getenv("MAGPIE_CONFIG")
	}
	if *configPath != "" {
		var err error
		cfg, err = domain.LoadConfig(*configPath)
		if err != nil {
			slog.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}
	applyOverrides(cfg, *dbPath, *outDir, *refDate, *noCharts)

	slog.Info("configuration loaded",
		"warehouse", cfg.Warehouse.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"output_dir", cfg.Output.Dir,
		"tracing", cfg.Tracing.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Warehouse
	wh, err := warehouse.New(cfg.Warehouse)
	if err != nil {
		slog.Error("failed to initialize warehouse", "error", err)
		os.Exit(1)
	}
	defer wh.Close()
	slog.Info("warehouse initialized", "driver", cfg.Warehouse.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Pipeline
	pipe, err := pipeline.New(cfg, wh, cacheImpl, busImpl)
	if err != nil {
		slog.Error("failed to initialize pipeline", "error", err)
		os.Exit(1)
	}
	slog.Info("pipeline initialized", "top_n", cfg.Analytics.TopN, "rfm_tiers", cfg.Analytics.RFMTiers)

	summary, err := pipe.Run(ctx)
	if err != nil {
		slog.Error("pipeline run failed", "error", err)
		os.Exit(1)
	}

	printSummary(summary)
}

// applyOverrides layers environment variables and flags over the file
// config. Flags win over environment, environment wins over file.
func applyOverrides(cfg *domain.Config, dbPath, outDir, refDate string, noCharts bool) {
	if v := os.Getenv("MAGPIE_DB"); v != "" {
		cfg.Warehouse.SQLitePath = v
	}
	if v := os.Getenv("MAGPIE_OUT"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("MAGPIE_REFERENCE_DATE"); v != "" {
		cfg.Analytics.ReferenceDate = v
	}

	if dbPath != "" {
		cfg.Warehouse.SQLitePath = dbPath
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
	if refDate != "" {
		cfg.Analytics.ReferenceDate = refDate
	}
	if noCharts {
		cfg.Output.Charts = false
	}
}

func printSummary(s *domain.RunSummary) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🐦 MAGPIE                   ║")
	fmt.Println("  ║      Order Analytics Pipeline             ║")
	fmt.Println("  ║      Every order counted.                 ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Run:          %s\n", s.RunID)
	fmt.Printf("  Duration:     %s\n", s.FinishedAt.Sub(s.StartedAt).Round(0))
	fmt.Printf("  Order lines:  %d\n", s.OrderLines)
	fmt.Printf("  Customers:    %d\n", s.Customers)
	fmt.Printf("  Dropped rows: %d\n", s.Dropped.Total())
	if s.CacheHit {
		fmt.Println("  Cache:        hit")
	}
	fmt.Println()
	if len(s.Artifacts) > 0 {
		fmt.Println("  Artifacts:")
		for _, a := range s.Artifacts {
			fmt.Printf("    %s\n", a)
		}
		fmt.Println()
	}
}
