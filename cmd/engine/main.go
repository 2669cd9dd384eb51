package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aquiferwatch/recharge-engine/internal/adapter/ea"
	"github.com/aquiferwatch/recharge-engine/internal/adapter/httpapi"
	"github.com/aquiferwatch/recharge-engine/internal/config"
	"github.com/aquiferwatch/recharge-engine/internal/et"
	"github.com/aquiferwatch/recharge-engine/internal/observability"
	"github.com/aquiferwatch/recharge-engine/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	etTable := loadETTable(cfg.ETTablePath, logger)

	client := ea.NewClient(cfg.HydrologyBaseURL, cfg.FloodBaseURL, ea.Timeouts{
		Metadata: cfg.MetadataTimeout,
		Snapshot: cfg.SnapshotTimeout,
		Station:  cfg.StationTimeout,
	}, logger)
	cached := ea.NewCachedClient(client, ea.DefaultTTLs(), nil)

	engine := pipeline.New(cached, cached, etTable, pipeline.Settings{
		TrendThreshold: cfg.TrendThreshold,
		MaxLinkKM:      cfg.MaxLinkKM,
		WindowDays:     cfg.WindowDays,
		WindowLagDays:  cfg.WindowLagDays,
		Workers:        cfg.Workers,
	}, logger, metrics)

	srv := httpapi.NewServer(cfg.HTTPAddr, engine, cfg.WindowDays, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Warm-up cycle plus periodic refresh to keep the cache hot.
	go refreshLoop(ctx, engine, cfg.RefreshInterval, cfg.WindowDays)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

func refreshLoop(ctx context.Context, engine *pipeline.Engine, interval time.Duration, windowDays int) {
	engine.Refresh(ctx, pipeline.RunOptions{WindowDays: windowDays})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			engine.Refresh(ctx, pipeline.RunOptions{WindowDays: windowDays})
		}
	}
}

// loadETTable reads the optional station evapotranspiration CSV. A missing
// or unreadable file degrades to the national fallback for every station.
func loadETTable(path string, logger *slog.Logger) *et.Table {
	if path == "" {
		return &et.Table{}
	}
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("evapotranspiration table unavailable, using national fallback", "path", path, "error", err)
		return &et.Table{}
	}
	defer f.Close()

	table, err := et.Load(f)
	if err != nil {
		logger.Warn("evapotranspiration table unreadable, using national fallback", "path", path, "error", err)
		return &et.Table{}
	}
	logger.Info("evapotranspiration table loaded", "path", path, "entries", table.Len())
	return table
}
