// Package config loads service configuration from a YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nar43/eventtracking/internal/crypto"
	"github.com/nar43/eventtracking/internal/db"
	"github.com/nar43/eventtracking/internal/logging"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// DatabaseConfig selects the SQLite driver and file.
type DatabaseConfig struct {
	// Driver is "sqlite" (modernc, pure Go) or "sqlite3" (mattn, cgo).
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// SyncConfig controls the pending-sync scheduler.
type SyncConfig struct {
	// Schedule is a cron spec ("*/5 * * * *") or descriptor ("@every 1m").
	Schedule     string        `yaml:"schedule"`
	StartOffline bool          `yaml:"start_offline"`
	Timeout      time.Duration `yaml:"timeout"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Config is the top-level service configuration.
type Config struct {
	Listen   string         `yaml:"listen"`
	LogLevel string         `yaml:"log_level"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Sync     SyncConfig     `yaml:"sync"`
	CORS     CORSConfig     `yaml:"cors"`
}

// DefaultConfig returns an in-memory default configuration. It carries no
// JWT secret.
func DefaultConfig() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		LogLevel: "info",
		Database: DatabaseConfig{
			Driver: db.DriverModernc,
			Path:   "eventtracking.db",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Sync: SyncConfig{
			Schedule: "@every 1m",
			Timeout:  30 * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
	}
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	def := DefaultConfig()

	c.Listen = strings.TrimSpace(c.Listen)
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Database.Driver == "" {
		c.Database.Driver = def.Database.Driver
	}
	if c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = def.Auth.TokenTTL
	}
	if c.Sync.Schedule == "" {
		c.Sync.Schedule = def.Sync.Schedule
	}
	if c.Sync.Timeout <= 0 {
		c.Sync.Timeout = def.Sync.Timeout
	}
	if c.CORS.AllowedOrigins == nil {
		c.CORS.AllowedOrigins = def.CORS.AllowedOrigins
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT secret is required (auth.jwt_secret, -jwt-secret or JWT_SECRET)")
	}
	if c.Database.Driver != db.DriverModernc && c.Database.Driver != db.DriverCgo {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if _, err := cron.ParseStandard(c.Sync.Schedule); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", c.Sync.Schedule, err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Load reads the YAML file at path. When the file does not exist a default
// config with a freshly generated JWT secret is written there (0600) and
// returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		cfg := DefaultConfig()
		secret, err := crypto.GenerateRandomBytes(32)
		if err != nil {
			return nil, err
		}
		cfg.Auth.JWTSecret = crypto.EncodeBase64(secret)
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventtracking-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Parse builds the effective configuration from args and getenv. The YAML
// file named by -config (or EVENTTRACK_CONFIG) is applied first, then the
// environment, then flags that were explicitly set.
func Parse(args []string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	var (
		configPath   string
		listen       string
		dbPath       string
		driver       string
		jwtSecret    string
		schedule     string
		logLevel     string
		startOffline bool
	)

	flags := flag.NewFlagSet("eventtracking", flag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "Path to YAML config file")
	flags.StringVar(&listen, "listen", "", "HTTP listen address")
	flags.StringVar(&dbPath, "db", "", "SQLite database path")
	flags.StringVar(&driver, "driver", "", "SQLite driver (sqlite or sqlite3)")
	flags.StringVar(&jwtSecret, "jwt-secret", "", "JWT secret (prefer env)")
	flags.StringVar(&schedule, "sync-schedule", "", "Cron schedule for pending sync")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.BoolVar(&startOffline, "offline", false, "Start with pending sync paused")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if configPath == "" {
		configPath = getenv("EVENTTRACK_CONFIG")
	}

	cfg := DefaultConfig()
	if configPath != "" {
		loaded, err := Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnv(cfg, getenv)

	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = listen
		case "db":
			cfg.Database.Path = dbPath
		case "driver":
			cfg.Database.Driver = driver
		case "jwt-secret":
			cfg.Auth.JWTSecret = jwtSecret
		case "sync-schedule":
			cfg.Sync.Schedule = schedule
		case "log-level":
			cfg.LogLevel = logLevel
		case "offline":
			cfg.Sync.StartOffline = startOffline
		}
	})

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}

	set(&cfg.Listen, "EVENTTRACK_LISTEN")
	set(&cfg.Database.Path, "EVENTTRACK_DB")
	set(&cfg.Database.Driver, "EVENTTRACK_DRIVER")
	set(&cfg.Auth.JWTSecret, "EVENTTRACK_JWT_SECRET", "JWT_SECRET")
	set(&cfg.Sync.Schedule, "EVENTTRACK_SYNC_SCHEDULE")
	set(&cfg.LogLevel, "EVENTTRACK_LOG_LEVEL")

	if v := getenv("EVENTTRACK_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORS.AllowedOrigins = origins
	}
}
