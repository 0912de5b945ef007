// Package config parses process configuration from flags, mirroring the
// teacher's cmd/pokersrv flag.StringVar/IntVar idiom, with an environment
// variable override layer for deployment without a flags file.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds everything cmd/pokersrv needs to build the stack: listen
// address, data directory, RNG seed, and the tunables spec'd for rate
// limiting, timeouts, and idempotency retention.
type Config struct {
	Host string
	Port int

	DataDir string
	DBPath  string

	Seed int64

	LogLevel string
	LogFile  string

	// ActionTimeout bounds how long a seat has to act before the table
	// actor synthesizes a check-or-fold.
	ActionTimeout time.Duration
	// DisconnectGrace is how long a disconnected seat keeps its chair
	// before being treated as sitting out.
	DisconnectGrace time.Duration

	// IdempotencyTTL bounds how long a completed command's result is
	// replayed for a repeated idempotency key.
	IdempotencyTTL time.Duration
	// CoalesceWindow bounds how long concurrent requests sharing an
	// idempotency key are merged into a single execution.
	CoalesceWindow time.Duration

	// RateLimitPerSecond caps player actions accepted per second per
	// session before ErrCodeRateLimited is returned.
	RateLimitPerSecond int

	// AuditRetention is how long audit rows are kept before Cleanup
	// purges them.
	AuditRetention time.Duration

	JWTSecret string
}

func defaults() Config {
	return Config{
		Host:               "127.0.0.1",
		Port:               8080,
		LogLevel:           "info",
		ActionTimeout:      30 * time.Second,
		DisconnectGrace:    30 * time.Second,
		IdempotencyTTL:     24 * time.Hour,
		CoalesceWindow:     2 * time.Second,
		RateLimitPerSecond: 10,
		AuditRetention:     90 * 24 * time.Hour,
	}
}

// Parse builds a Config from command-line flags (args, typically
// os.Args[1:]), applying environment variable overrides for values that
// operators more commonly set via the environment in containerized
// deployments: POKER_SEED, POKER_JWT_SECRET, POKER_DB_PATH.
func Parse(args []string) (Config, error) {
	cfg := defaults()
	fs := flag.NewFlagSet("pokersrv", flag.ContinueOnError)

	fs.StringVar(&cfg.Host, "host", cfg.Host, "Host to listen on")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Port to listen on")
	fs.StringVar(&cfg.DataDir, "datadir", "", "Directory for the sqlite audit database")
	fs.StringVar(&cfg.DBPath, "db", "", "Path to the sqlite audit database file (overrides -datadir)")
	fs.Int64Var(&cfg.Seed, "seed", 0, "Deterministic RNG seed (0 = CSPRNG)")
	fs.StringVar(&cfg.LogLevel, "debuglevel", cfg.LogLevel, "Logging level: trace, debug, info, warn, error, critical, off")
	fs.StringVar(&cfg.LogFile, "logfile", "", "If set, additionally write logs to this file")
	fs.DurationVar(&cfg.ActionTimeout, "actiontimeout", cfg.ActionTimeout, "Per-seat action timeout")
	fs.DurationVar(&cfg.DisconnectGrace, "disconnectgrace", cfg.DisconnectGrace, "Grace period before a disconnected seat sits out")
	fs.DurationVar(&cfg.IdempotencyTTL, "idempotencyttl", cfg.IdempotencyTTL, "Idempotency result cache TTL")
	fs.DurationVar(&cfg.CoalesceWindow, "coalescewindow", cfg.CoalesceWindow, "Idempotency request coalesce window")
	fs.IntVar(&cfg.RateLimitPerSecond, "ratelimit", cfg.RateLimitPerSecond, "Max player actions accepted per second per session")
	fs.DurationVar(&cfg.AuditRetention, "auditretention", cfg.AuditRetention, "Audit row retention before cleanup")
	fs.StringVar(&cfg.JWTSecret, "jwtsecret", "", "HMAC secret for session bearer tokens")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.DBPath == "" {
		dir := cfg.DataDir
		if dir == "" {
			dir = os.TempDir()
		}
		cfg.DBPath = dir + string(os.PathSeparator) + "pokercore.sqlite"
	}

	if env := os.Getenv("POKER_SEED"); env != "" && cfg.Seed == 0 {
		v, err := strconv.ParseInt(env, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("config: POKER_SEED: %w", err)
		}
		cfg.Seed = v
	}
	if env := os.Getenv("POKER_JWT_SECRET"); env != "" && cfg.JWTSecret == "" {
		cfg.JWTSecret = env
	}
	if env := os.Getenv("POKER_DB_PATH"); env != "" {
		cfg.DBPath = env
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("config: jwtsecret is required (flag -jwtsecret or POKER_JWT_SECRET)")
	}

	return cfg, nil
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// EnsureDataDir creates the data directory and its logs subdirectory if
// they don't already exist.
func EnsureDataDir(dataDir string) error {
	if dataDir == "" {
		return nil
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("config: create datadir %s: %w", dataDir, err)
	}
	logsDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logsDir, 0700); err != nil {
		return fmt.Errorf("config: create logs dir %s: %w", logsDir, err)
	}
	return nil
}
