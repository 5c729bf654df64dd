package config

import (
	"fmt"
	"time"
)

const (
	TransportREST = "rest"
	TransportGRPC = "grpc"
)

// Config holds runtime settings for the healthsync client.
//
// Fields:
//   - ServerURL: base URL of the REST backend, or host:port when Transport is grpc.
//   - Transport: "rest" or "grpc".
//   - DBPath: SQLite file holding the cache and the offline queue.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - DrainInterval: how often queued mutations are replayed while online.
//   - RequestTimeout: per-call deadline for remote requests.
//   - MaxRetries: replay attempts before a queued mutation is pruned.
//   - LogLevel: debug, info, warn or error.
//   - Passphrase: when set, local data is encrypted at rest.
type Config struct {
	ServerURL           string        `env:"HEALTHSYNC_SERVER_URL"`
	Transport           string        `env:"HEALTHSYNC_TRANSPORT"`
	DBPath              string        `env:"HEALTHSYNC_DB_PATH"`
	OnlineCheckInterval time.Duration `env:"HEALTHSYNC_ONLINE_CHECK_INTERVAL"`
	DrainInterval       time.Duration `env:"HEALTHSYNC_DRAIN_INTERVAL"`
	RequestTimeout      time.Duration `env:"HEALTHSYNC_REQUEST_TIMEOUT"`
	MaxRetries          int           `env:"HEALTHSYNC_MAX_RETRIES"`
	LogLevel            string        `env:"HEALTHSYNC_LOG_LEVEL"`
	Passphrase          string        `env:"HEALTHSYNC_PASSPHRASE"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.Transport = TransportREST
	c.DBPath = "healthsync.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.DrainInterval = 30 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.MaxRetries = 3
	c.LogLevel = "info"
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server url is empty")
	}
	if c.Transport != TransportREST && c.Transport != TransportGRPC {
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db path is empty")
	}
	if c.OnlineCheckInterval <= 0 || c.DrainInterval <= 0 || c.RequestTimeout <= 0 {
		return fmt.Errorf("intervals must be positive")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", c.MaxRetries)
	}
	return nil
}

// LoadConfig builds a Config from defaults, then an optional JSON file,
// then HEALTHSYNC_* environment variables, then command-line flags.
// Later sources take precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
