// Package metadata stores device-local key/value settings: the device
// identity and the per-kind last sync time.
package metadata

import (
	"context"
	"time"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error

	// GetTime returns nil, nil when the key is absent.
	GetTime(ctx context.Context, key string) (*time.Time, error)
	SetTime(ctx context.Context, key string, t time.Time) error
}

const (
	KeyDeviceID = "device_id"

	lastSyncPrefix = "last_sync_time:"
)

// LastSyncKey is the metadata key holding the last successful pull of kind.
func LastSyncKey(kind string) string {
	return lastSyncPrefix + kind
}
