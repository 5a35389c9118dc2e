package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/daybook/internal/client/client"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// tickingClock advances by step on every reading, so no two stamps collide.
type tickingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newTickingClock() *tickingClock {
	return &tickingClock{now: t0, step: time.Second}
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

// staticDevice is a DeviceService with a fixed id.
type staticDevice string

func (d staticDevice) DeviceID(context.Context) (string, error) { return string(d), nil }
