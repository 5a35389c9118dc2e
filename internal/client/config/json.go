package config

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/daybook/internal/timex"
	json "github.com/goccy/go-json"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations use
// timex.Duration so "30s" and integer nanoseconds are both accepted.
type JsonConfig struct {
	ServerURL      *string        `json:"server_url"`
	DBPath         string         `json:"db_path"`
	UserID         string         `json:"user_id"`
	SyncInterval   timex.Duration `json:"sync_interval"`
	PushBatchSize  int            `json:"push_batch_size"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	LogLevel       string         `json:"log_level"`
}

// LoadFile overlays c with the fields present in the JSON file at path.
// An empty path is a no-op. ServerURL may be set to "" to disable sync.
func (c *Config) LoadFile(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if jc.ServerURL != nil {
		c.ServerURL = *jc.ServerURL
	}
	if jc.DBPath != "" {
		c.DBPath = jc.DBPath
	}
	if jc.UserID != "" {
		c.UserID = jc.UserID
	}
	if jc.SyncInterval.Duration != 0 {
		c.SyncInterval = jc.SyncInterval.Duration
	}
	if jc.PushBatchSize != 0 {
		c.PushBatchSize = jc.PushBatchSize
	}
	if jc.RequestTimeout.Duration != 0 {
		c.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.LogLevel != "" {
		c.LogLevel = jc.LogLevel
	}
	return nil
}
