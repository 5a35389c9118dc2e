package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gookit/validate"
)

// Config holds runtime settings for the daybook device client.
//
// Fields:
//   - ServerURL: base URL of the sync server; empty disables sync.
//   - DBPath: SQLite file of the local store.
//   - UserID: owner sent with every sync request.
//   - SyncInterval: period of the daemon loop.
//   - PushBatchSize: most records per push request.
//   - RequestTimeout: per-request HTTP timeout.
//   - LogLevel: zerolog level name.
type Config struct {
	ServerURL      string
	DBPath         string `validate:"required"`
	UserID         string
	SyncInterval   time.Duration `validate:"required|min:1"`
	PushBatchSize  int           `validate:"required|min:1"`
	RequestTimeout time.Duration `validate:"required|min:1"`
	LogLevel       string        `validate:"required|in:trace,debug,info,warn,error"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DBPath = "daybook.db"
	c.UserID = ""
	c.SyncInterval = 30 * time.Second
	c.PushBatchSize = 200
	c.RequestTimeout = 30 * time.Second
	c.LogLevel = "info"
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	v := validate.Struct(c)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %s", v.Errors.One())
	}
	return nil
}

// CanSync reports whether both a server and a user are configured.
func (c *Config) CanSync() bool {
	return c.ServerURL != "" && c.UserID != ""
}

// Environment variables read by LoadEnv.
const (
	EnvServerURL = "DAYBOOK_SERVER"
	EnvDBPath    = "DAYBOOK_DB"
	EnvUserID    = "DAYBOOK_USER"
	EnvInterval  = "DAYBOOK_SYNC_INTERVAL"
	EnvBatchSize = "DAYBOOK_PUSH_BATCH"
)

// LoadEnv overlays c with any DAYBOOK_* variables that are set.
func (c *Config) LoadEnv() error {
	if v, ok := os.LookupEnv(EnvServerURL); ok {
		c.ServerURL = v
	}
	if v, ok := os.LookupEnv(EnvDBPath); ok {
		c.DBPath = v
	}
	if v, ok := os.LookupEnv(EnvUserID); ok {
		c.UserID = v
	}
	if v, ok := os.LookupEnv(EnvInterval); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvInterval, err)
		}
		c.SyncInterval = d
	}
	if v, ok := os.LookupEnv(EnvBatchSize); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvBatchSize, err)
		}
		c.PushBatchSize = n
	}
	return nil
}

// Load builds a Config from defaults, the JSON file at path (skipped when
// empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := cfg.LoadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.LoadEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}
