package config

import (
	"time"

	redisclient "github.com/vietddude/remedy/internal/infra/redis"
	"github.com/vietddude/remedy/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	API       APIConfig          `yaml:"api"`
	Detection DetectionConfig    `yaml:"detection"`
	Retry     RetryConfig        `yaml:"retry"`
	Tree      TreeConfig         `yaml:"tree"`
	Redis     redisclient.Config `yaml:"redis"`
	Database  postgres.Config    `yaml:"database"`
	Logging   LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds health/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// APIConfig holds remediation service endpoints and session identity.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`    // e.g. https://api.example.com
	WSBaseURL string        `yaml:"ws_base_url"` // e.g. wss://api.example.com; derived from base_url when empty
	SessionID string        `yaml:"session_id"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DetectionConfig holds classifier and buffering settings.
type DetectionConfig struct {
	DebounceInterval time.Duration `yaml:"debounce_interval"` // quiet period before a batch is sent
	DedupWindow      time.Duration `yaml:"dedup_window"`      // whole-set eviction interval
	ContextLines     int           `yaml:"context_lines"`     // output context buffer cap
	MaxPending       int           `yaml:"max_pending"`       // error buffer cap
	RecentFileWindow time.Duration `yaml:"recent_file_window"`
	RetentionPeriod  time.Duration `yaml:"retention_period"` // 0 = keep resolved errors forever
}

// RetryConfig holds remediation retry and reconnection bounds.
type RetryConfig struct {
	MaxFixAttempts        int           `yaml:"max_fix_attempts"`
	StabilizationInterval time.Duration `yaml:"stabilization_interval"`
	ReconnectBaseDelay    time.Duration `yaml:"reconnect_base_delay"`
	MaxReconnectAttempts  int           `yaml:"max_reconnect_attempts"`
}

// TreeConfig holds project tree store settings.
type TreeConfig struct {
	Root   string   `yaml:"root"`
	Watch  bool     `yaml:"watch"`
	Ignore []string `yaml:"ignore"` // directory names skipped by the watcher
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
