// Package config loads runtime configuration for the healthsync client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config (see parseJson).
//  3. HEALTHSYNC_* environment variables, read with cleanenv (see parseEnv).
//  4. Command-line flags (see parseFlags), which override everything else.
//
// # JSON schema
//
//	{
//	  "server_url": "https://api.example.org",
//	  "transport": "rest",
//	  "db_path": "healthsync.db",
//	  "online_check_interval": "3s",
//	  "drain_interval": "30s",
//	  "request_timeout": "10s",
//	  "max_retries": 3,
//	  "log_level": "info"
//	}
//
// The passphrase is deliberately absent from the file format; pass it through
// HEALTHSYNC_PASSPHRASE or -p.
package config
