// Package config loads engine settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/aquiferwatch/recharge-engine/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	RefreshInterval time.Duration

	// Environment Agency provider endpoints and deadlines.
	HydrologyBaseURL string
	FloodBaseURL     string
	MetadataTimeout  time.Duration
	SnapshotTimeout  time.Duration
	StationTimeout   time.Duration

	// Model parameters.
	TrendThreshold float64 // metres
	MaxLinkKM      float64
	WindowDays     int
	WindowLagDays  int
	Workers        int
	ETTablePath    string
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is loaded first, best-effort.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parseDuration("REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	metadataTimeout, err := parseDuration("EA_METADATA_TIMEOUT", 25*time.Second)
	if err != nil {
		return nil, err
	}
	snapshotTimeout, err := parseDuration("EA_SNAPSHOT_TIMEOUT", 20*time.Second)
	if err != nil {
		return nil, err
	}
	stationTimeout, err := parseDuration("EA_STATION_TIMEOUT", 8*time.Second)
	if err != nil {
		return nil, err
	}

	trendThreshold, err := parseFloat("TREND_THRESHOLD", domain.DefaultTrendThreshold)
	if err != nil {
		return nil, err
	}
	maxLinkKM, err := parseFloat("MAX_LINK_KM", domain.DefaultMaxLinkKM)
	if err != nil {
		return nil, err
	}
	windowDays, err := parseInt("WINDOW_DAYS", 7)
	if err != nil {
		return nil, err
	}
	lagDays, err := parseInt("WINDOW_LAG_DAYS", domain.DefaultWindowLagDays)
	if err != nil {
		return nil, err
	}
	workers, err := parseInt("AGGREGATOR_WORKERS", 25)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		RefreshInterval: refreshInterval,

		HydrologyBaseURL: envOrDefault("EA_HYDROLOGY_BASE_URL", "https://environment.data.gov.uk/hydrology"),
		FloodBaseURL:     envOrDefault("EA_FLOOD_BASE_URL", "https://environment.data.gov.uk/flood-monitoring"),
		MetadataTimeout:  metadataTimeout,
		SnapshotTimeout:  snapshotTimeout,
		StationTimeout:   stationTimeout,

		TrendThreshold: trendThreshold,
		MaxLinkKM:      maxLinkKM,
		WindowDays:     windowDays,
		WindowLagDays:  lagDays,
		Workers:        workers,
		ETTablePath:    os.Getenv("ET_TABLE_PATH"),
	}

	if cfg.HydrologyBaseURL == "" || cfg.FloodBaseURL == "" {
		return nil, errors.New("EA base URLs must not be empty")
	}
	if cfg.TrendThreshold < 0 {
		return nil, errors.New("TREND_THRESHOLD must not be negative")
	}
	if cfg.MaxLinkKM <= 0 {
		return nil, errors.New("MAX_LINK_KM must be positive")
	}
	if cfg.WindowDays < 0 || cfg.WindowLagDays < 0 {
		return nil, errors.New("window settings must not be negative")
	}
	if cfg.Workers <= 0 {
		return nil, errors.New("AGGREGATOR_WORKERS must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, nil
}
