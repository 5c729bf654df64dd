package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string   server URL (REST) or host:port (gRPC)
//	-t string   transport: rest | grpc
//	-d string   path to the local SQLite database
//	-i int      online check interval (seconds)
//	-s int      drain interval (seconds)
//	-r int      max replay attempts per queued mutation
//	-l string   log level
//	-p string   passphrase for encryption at rest
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-t", "-d", "-i", "-s", "-r", "-l", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "server address")
	fs.StringVar(&cfg.Transport, "t", cfg.Transport, "transport: rest or grpc")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "local database path")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	drainInterval := fs.Int("s", int(cfg.DrainInterval.Seconds()), "drain interval (in seconds)")
	fs.IntVar(&cfg.MaxRetries, "r", cfg.MaxRetries, "max replay attempts")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.Passphrase, "p", cfg.Passphrase, "passphrase for local encryption")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	// Only explicitly given interval flags override; defaults keep sub-second precision.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
		case "s":
			cfg.DrainInterval = time.Duration(*drainInterval) * time.Second
		}
	})
	return nil
}
