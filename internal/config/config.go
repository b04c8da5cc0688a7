package config

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	LichessToken  string
	ExplorerURL   string
	DatabaseURL   string
	DatabaseToken string

	Host        string
	Port        int
	CORSOrigins []string

	UpdateIntervalHours  int
	UpdateType           string
	ScheduleOnServe      bool
	MaxRequestsPerMinute int
	FetchMaxRetries      int
	FetchWorkers         int
	RatingRanges         []string
	TimeControls         []string

	// Catalog is "fixed" or "discover".
	Catalog               string
	DiscoverMaxFirstMoves int
	DiscoverMaxReplies    int
	DiscoverMinGames      int
	DiscoverMaxLines      int
	SnapshotDir           string

	SlackWebhookURL string
	NotifyOnSuccess bool

	LogLevel  string
	LogFormat string
}

// Load reads configuration from a .env file (if present), an optional config
// file and environment variables, applying defaults when values are missing.
func Load(file string) (Config, error) {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := Config{
		LichessToken:          v.GetString("lichess_api_token"),
		ExplorerURL:           strings.TrimRight(v.GetString("explorer_url"), "/"),
		DatabaseURL:           v.GetString("database_url"),
		DatabaseToken:         v.GetString("database_auth_token"),
		Host:                  v.GetString("api_host"),
		Port:                  v.GetInt("api_port"),
		CORSOrigins:           parseList(v.GetString("cors_origins")),
		UpdateIntervalHours:   v.GetInt("update_interval_hours"),
		UpdateType:            strings.ToLower(v.GetString("update_type")),
		ScheduleOnServe:       v.GetBool("schedule_on_serve"),
		MaxRequestsPerMinute:  v.GetInt("max_requests_per_minute"),
		FetchMaxRetries:       v.GetInt("fetch_max_retries"),
		FetchWorkers:          v.GetInt("fetch_workers"),
		RatingRanges:          parseList(v.GetString("rating_ranges")),
		TimeControls:          parseList(v.GetString("time_controls")),
		Catalog:               strings.ToLower(strings.TrimSpace(v.GetString("catalog"))),
		DiscoverMaxFirstMoves: v.GetInt("discover_max_first_moves"),
		DiscoverMaxReplies:    v.GetInt("discover_max_replies"),
		DiscoverMinGames:      v.GetInt("discover_min_games"),
		DiscoverMaxLines:      v.GetInt("discover_max_lines"),
		SnapshotDir:           v.GetString("snapshot_dir"),
		SlackWebhookURL:       v.GetString("slack_webhook_url"),
		NotifyOnSuccess:       v.GetBool("notify_on_success"),
		LogLevel:              v.GetString("log_level"),
		LogFormat:             v.GetString("log_format"),
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("lichess_api_token", "")
	v.SetDefault("explorer_url", "https://explorer.lichess.ovh")
	v.SetDefault("database_url", "file:chess_openings.db")
	v.SetDefault("database_auth_token", "")
	v.SetDefault("api_host", "0.0.0.0")
	v.SetDefault("api_port", 8000)
	v.SetDefault("cors_origins", `["http://localhost:3000"]`)
	v.SetDefault("update_interval_hours", 6)
	v.SetDefault("update_type", "incremental")
	v.SetDefault("schedule_on_serve", false)
	v.SetDefault("max_requests_per_minute", 60)
	v.SetDefault("fetch_max_retries", 3)
	v.SetDefault("fetch_workers", 2)
	v.SetDefault("rating_ranges", "all,1600-1800,1800-2000,2000-2200,2200-2500")
	v.SetDefault("time_controls", "all,blitz,rapid,classical")
	v.SetDefault("catalog", "fixed")
	v.SetDefault("discover_max_first_moves", 8)
	v.SetDefault("discover_max_replies", 5)
	v.SetDefault("discover_min_games", 100)
	v.SetDefault("discover_max_lines", 50)
	v.SetDefault("snapshot_dir", "")
	v.SetDefault("slack_webhook_url", "")
	v.SetDefault("notify_on_success", false)
	v.SetDefault("log_level", "INFO")
	v.SetDefault("log_format", "text")
}

// parseList accepts either a JSON string array or a comma-separated list.
func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var out []string
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out
		}
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Addr returns the host:port the HTTP server listens on.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// UpdateInterval returns the scheduler interval.
func (c Config) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalHours) * time.Hour
}

// Validate checks that all configuration values are usable.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL cannot be empty")
	}
	if c.ExplorerURL == "" {
		return fmt.Errorf("EXPLORER_URL cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("API_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.UpdateIntervalHours < 1 {
		return fmt.Errorf("UPDATE_INTERVAL_HOURS must be at least 1, got %d", c.UpdateIntervalHours)
	}
	if c.UpdateType != "full" && c.UpdateType != "incremental" {
		return fmt.Errorf("UPDATE_TYPE must be full or incremental, got %q", c.UpdateType)
	}
	if c.MaxRequestsPerMinute < 1 {
		return fmt.Errorf("MAX_REQUESTS_PER_MINUTE must be at least 1, got %d", c.MaxRequestsPerMinute)
	}
	if c.FetchMaxRetries < 0 {
		return fmt.Errorf("FETCH_MAX_RETRIES cannot be negative, got %d", c.FetchMaxRetries)
	}
	if c.FetchWorkers < 1 {
		return fmt.Errorf("FETCH_WORKERS must be at least 1, got %d", c.FetchWorkers)
	}
	if len(c.RatingRanges) == 0 {
		return fmt.Errorf("RATING_RANGES cannot be empty")
	}
	if len(c.TimeControls) == 0 {
		return fmt.Errorf("TIME_CONTROLS cannot be empty")
	}
	switch c.Catalog {
	case "fixed":
	case "discover":
		if c.DiscoverMaxFirstMoves < 1 || c.DiscoverMaxReplies < 1 || c.DiscoverMaxLines < 1 {
			return fmt.Errorf("DISCOVER_MAX_FIRST_MOVES, DISCOVER_MAX_REPLIES and DISCOVER_MAX_LINES must be at least 1")
		}
		if c.DiscoverMinGames < 0 {
			return fmt.Errorf("DISCOVER_MIN_GAMES cannot be negative, got %d", c.DiscoverMinGames)
		}
	default:
		return fmt.Errorf("CATALOG must be fixed or discover, got %q", c.Catalog)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("LOG_FORMAT must be text, json or logfmt, got %q", c.LogFormat)
	}
	return nil
}
