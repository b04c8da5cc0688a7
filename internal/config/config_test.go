package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/openingtiers/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		ExplorerURL:          "https://explorer.lichess.ovh",
		DatabaseURL:          "file:test.db",
		Host:                 "0.0.0.0",
		Port:                 8000,
		UpdateIntervalHours:  6,
		UpdateType:           "incremental",
		MaxRequestsPerMinute: 60,
		FetchMaxRetries:      3,
		FetchWorkers:         2,
		RatingRanges:         []string{"all"},
		TimeControls:         []string{"blitz"},
		Catalog:              "fixed",
		LogLevel:             "INFO",
		LogFormat:            "text",
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://explorer.lichess.ovh", cfg.ExplorerURL)
	assert.Equal(t, "file:chess_openings.db", cfg.DatabaseURL)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, 6, cfg.UpdateIntervalHours)
	assert.Equal(t, 60, cfg.MaxRequestsPerMinute)
	assert.Equal(t, []string{"all", "blitz", "rapid", "classical"}, cfg.TimeControls)
	assert.Equal(t, "incremental", cfg.UpdateType)
	assert.Equal(t, "fixed", cfg.Catalog)
	assert.Equal(t, 8, cfg.DiscoverMaxFirstMoves)
	assert.Equal(t, 5, cfg.DiscoverMaxReplies)
	assert.Equal(t, 100, cfg.DiscoverMinGames)
	assert.Equal(t, 50, cfg.DiscoverMaxLines)
	assert.Empty(t, cfg.SnapshotDir)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	t.Setenv("UPDATE_INTERVAL_HOURS", "12")
	t.Setenv("MAX_REQUESTS_PER_MINUTE", "20")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("TIME_CONTROLS", `["blitz","rapid"]`)
	t.Setenv("UPDATE_TYPE", "FULL")
	t.Setenv("CATALOG", "Discover")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 12*time.Hour, cfg.UpdateInterval())
	assert.Equal(t, 20, cfg.MaxRequestsPerMinute)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"blitz", "rapid"}, cfg.TimeControls)
	assert.Equal(t, "full", cfg.UpdateType)
	assert.Equal(t, "discover", cfg.Catalog)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tierlist.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_port: 7000\nfetch_workers: 4\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, 4, cfg.FetchWorkers)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"valid", func(*config.Config) {}, ""},
		{"empty database", func(c *config.Config) { c.DatabaseURL = "" }, "DATABASE_URL cannot be empty"},
		{"bad port", func(c *config.Config) { c.Port = 0 }, "API_PORT"},
		{"zero interval", func(c *config.Config) { c.UpdateIntervalHours = 0 }, "UPDATE_INTERVAL_HOURS"},
		{"bad update type", func(c *config.Config) { c.UpdateType = "partial" }, "UPDATE_TYPE"},
		{"zero rpm", func(c *config.Config) { c.MaxRequestsPerMinute = 0 }, "MAX_REQUESTS_PER_MINUTE"},
		{"negative retries", func(c *config.Config) { c.FetchMaxRetries = -1 }, "FETCH_MAX_RETRIES"},
		{"no workers", func(c *config.Config) { c.FetchWorkers = 0 }, "FETCH_WORKERS"},
		{"no rating ranges", func(c *config.Config) { c.RatingRanges = nil }, "RATING_RANGES"},
		{"no time controls", func(c *config.Config) { c.TimeControls = nil }, "TIME_CONTROLS"},
		{"bad log format", func(c *config.Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"bad catalog", func(c *config.Config) { c.Catalog = "tree" }, "CATALOG"},
		{"discover without limits", func(c *config.Config) { c.Catalog = "discover" }, "DISCOVER_MAX_FIRST_MOVES"},
		{"discover", func(c *config.Config) {
			c.Catalog = "discover"
			c.DiscoverMaxFirstMoves, c.DiscoverMaxReplies, c.DiscoverMaxLines = 8, 5, 50
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
