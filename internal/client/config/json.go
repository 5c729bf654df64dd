package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/healthsync/internal/flagx"
	"github.com/dmitrijs2005/healthsync/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Intervals use
// timex.Duration, so "3s" and integer nanoseconds are both accepted.
// Empty fields keep the value loaded before.
type JsonConfig struct {
	ServerURL           string         `json:"server_url"`
	Transport           string         `json:"transport"`
	DBPath              string         `json:"db_path"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	DrainInterval       timex.Duration `json:"drain_interval"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	MaxRetries          int            `json:"max_retries"`
	LogLevel            string         `json:"log_level"`
}

// parseJson overlays cfg with the file named by -c / -config, if any.
func parseJson(cfg *Config, args []string) error {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.Transport != "" {
		cfg.Transport = jc.Transport
	}
	if jc.DBPath != "" {
		cfg.DBPath = jc.DBPath
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.DrainInterval.Duration != 0 {
		cfg.DrainInterval = jc.DrainInterval.Duration
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.MaxRetries != 0 {
		cfg.MaxRetries = jc.MaxRetries
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	return nil
}
