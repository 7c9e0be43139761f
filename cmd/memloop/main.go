package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"memory-loop/internal/config"
	"memory-loop/internal/health"
	"memory-loop/internal/logs"
	"memory-loop/internal/metrics"
	"memory-loop/internal/persist"
	"memory-loop/internal/store"
	"memory-loop/internal/ttl"
)

func main() {
	configPath := defaultString(os.Getenv("MEMLOOP_CONFIG"), "config.yaml")

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		log.Fatal(err)
	}

	// Root context, cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Logger
	logger := logs.NewLogger(cfg.Log.Buffer, cfg.Log.ParsedLevel())
	logger.SetOutput(os.Stderr)

	// Metrics
	metricsRegistry := metrics.NewRegistry()

	// Store
	memory := store.New(store.Options{
		TTL:      cfg.Store.TTL,
		Capacity: cfg.Store.Capacity,
		Metrics:  metricsRegistry,
		Logger:   logger,
	})

	if err := memory.Load(cfg.Snapshot.Path); err != nil {
		// A corrupt snapshot is left on disk for inspection; the next
		// save replaces it.
		if !errors.Is(err, store.ErrCorruptSnapshot) {
			log.Fatal(err)
		}
	}

	memory.Put("user_123", map[string]any{"conversation": "Hello, how are you?"})
	if value, ok := memory.Get("user_123"); ok {
		logger.Info("retrieved memory", "key", "user_123", "value", value)
	}

	var wg sync.WaitGroup

	// TTL sweep
	if cfg.Sweep.Interval > 0 {
		cleaner := ttl.NewCleaner(memory, cfg.Sweep.Interval, logger, metricsRegistry)
		wg.Add(1)
		go func() {
			defer wg.Done()
			cleaner.Start(ctx)
		}()
	}

	// Config hot reload
	if _, err := os.Stat(configPath); err == nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := config.Watch(ctx, configPath, logger, func(next *config.Config) {
				metricsRegistry.Inc(metrics.ConfigReloadsTotal)
				memory.Configure(next.Store.TTL, next.Store.Capacity)
				logger.SetLevel(next.Log.ParsedLevel())
			})
			if err != nil {
				logger.Error("config watch failed", "err", err)
			}
		}()
	}

	logger.Info("memory loop started",
		"snapshot", cfg.Snapshot.Path,
		"ttl", cfg.Store.TTL.String(),
		"capacity", cfg.Store.Capacity,
		"entries", memory.Len(),
	)

	// Autosave; the final snapshot is written when ctx is cancelled.
	saveErr := persist.NewAutosaver(memory, cfg.Snapshot.Path, cfg.Snapshot.AutosaveInterval, logger).Start(ctx)

	wg.Wait()

	report := health.NewAnalyzer(metricsRegistry, logger).Analyze()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]any{
		"health":  report,
		"metrics": metricsRegistry.Snapshot(),
	})

	if saveErr != nil {
		log.Fatal(saveErr)
	}
}

func defaultString(v, d string) string {
	if v == "" {
		return d
	}
	return v
}
