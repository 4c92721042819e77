package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("api.base_url is required")
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 10 * time.Second
	}
	if cfg.API.WSBaseURL == "" {
		cfg.API.WSBaseURL = deriveWSBase(cfg.API.BaseURL)
	}
	if cfg.Detection.DebounceInterval == 0 {
		cfg.Detection.DebounceInterval = 3 * time.Second
	}
	if cfg.Detection.DedupWindow == 0 {
		cfg.Detection.DedupWindow = 5 * time.Second
	}
	if cfg.Detection.ContextLines == 0 {
		cfg.Detection.ContextLines = 200
	}
	if cfg.Detection.MaxPending == 0 {
		cfg.Detection.MaxPending = 20
	}
	if cfg.Detection.RecentFileWindow == 0 {
		cfg.Detection.RecentFileWindow = 5 * time.Minute
	}
	if cfg.Retry.MaxFixAttempts == 0 {
		cfg.Retry.MaxFixAttempts = 3
	}
	if cfg.Retry.StabilizationInterval == 0 {
		cfg.Retry.StabilizationInterval = 10 * time.Second
	}
	if cfg.Retry.ReconnectBaseDelay == 0 {
		cfg.Retry.ReconnectBaseDelay = 2 * time.Second
	}
	if cfg.Retry.MaxReconnectAttempts == 0 {
		cfg.Retry.MaxReconnectAttempts = 5
	}
	if cfg.Tree.Root == "" {
		cfg.Tree.Root = "."
	}
	if len(cfg.Tree.Ignore) == 0 {
		cfg.Tree.Ignore = []string{"node_modules", ".git", "dist", "build", ".next"}
	}
}

// deriveWSBase maps http(s):// to ws(s)://.
func deriveWSBase(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}
