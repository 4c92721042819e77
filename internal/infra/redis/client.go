package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// journalCap bounds the per-session incident journal.
const journalCap = 100

// journalTTL expires journals for sessions that stopped reporting.
const journalTTL = 24 * time.Hour

// Client wraps Redis operations for the incident journal.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// Incident is one journal entry: a detection, report, or remediation event.
type Incident struct {
	Kind      string    `json:"kind"`
	Source    string    `json:"source,omitempty"`
	Severity  string    `json:"severity,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func journalKey(sessionID string) string {
	return fmt.Sprintf("incidents:%s", sessionID)
}

// AppendIncident pushes an entry onto the session journal, evicting the oldest
// entries past the cap.
func (c *Client) AppendIncident(ctx context.Context, sessionID string, inc Incident) error {
	data, err := json.Marshal(inc)
	if err != nil {
		return fmt.Errorf("failed to marshal incident: %w", err)
	}

	key := journalKey(sessionID)
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, journalCap-1)
	pipe.Expire(ctx, key, journalTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append incident: %w", err)
	}
	return nil
}

// RecentIncidents returns up to limit journal entries, newest first.
func (c *Client) RecentIncidents(ctx context.Context, sessionID string, limit int) ([]Incident, error) {
	if limit <= 0 || limit > journalCap {
		limit = journalCap
	}

	raw, err := c.rdb.LRange(ctx, journalKey(sessionID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange failed: %w", err)
	}

	incidents := make([]Incident, 0, len(raw))
	for _, item := range raw {
		var inc Incident
		if err := json.Unmarshal([]byte(item), &inc); err != nil {
			continue
		}
		incidents = append(incidents, inc)
	}
	return incidents, nil
}

// ClearJournal removes the journal for a session.
func (c *Client) ClearJournal(ctx context.Context, sessionID string) error {
	return c.rdb.Del(ctx, journalKey(sessionID)).Err()
}

// Health checks if Redis is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
