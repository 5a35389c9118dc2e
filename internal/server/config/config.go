// Package config handles configuration for the sync server: defaults, an
// optional JSON overlay and command-line flags, in that order.
package config

import (
	"fmt"
	"time"

	"github.com/gookit/validate"
)

// Config holds runtime settings for the daybook sync server.
//
// Fields:
//   - ListenAddr: bind address of the HTTP endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty means no database.
//   - UseMemoryStore: keep records in process memory when DatabaseDSN is
//     empty. With both unset the sync endpoints answer 503.
//   - MaxPushBatch: most records accepted in one push request.
//   - MaxBodyBytes: request body cap.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ListenAddr      string `validate:"required"`
	DatabaseDSN     string
	UseMemoryStore  bool
	MaxPushBatch    int           `validate:"required|min:1"`
	MaxBodyBytes    int64         `validate:"required|min:1024"`
	LogLevel        string        `validate:"required|in:debug,info,warn,error"`
	ReadTimeout     time.Duration `validate:"required|min:1"`
	WriteTimeout    time.Duration `validate:"required|min:1"`
	ShutdownTimeout time.Duration `validate:"required|min:1"`
}

// LoadDefaults populates Config with development defaults: an in-memory store
// on port 8080.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8080"
	c.DatabaseDSN = ""
	c.UseMemoryStore = true
	c.MaxPushBatch = 500
	c.MaxBodyBytes = 10 << 20
	c.LogLevel = "info"
	c.ReadTimeout = 15 * time.Second
	c.WriteTimeout = 30 * time.Second
	c.ShutdownTimeout = 10 * time.Second
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	v := validate.Struct(c)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %s", v.Errors.One())
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
