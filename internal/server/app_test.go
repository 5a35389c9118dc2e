package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/daybook/internal/server/config"
	"github.com/dmitrijs2005/daybook/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.ListenAddr = "127.0.0.1:0"
	c.LogLevel = "error"
	return c
}

func TestNewApp_StoreSelection(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		app, err := NewApp(ctx, testConfig())
		require.NoError(t, err)
		require.NotNil(t, app.repos)

		rr := httptest.NewRecorder()
		app.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("none", func(t *testing.T) {
		c := testConfig()
		c.UseMemoryStore = false
		app, err := NewApp(ctx, c)
		require.NoError(t, err)
		assert.Nil(t, app.repos)

		rr := httptest.NewRecorder()
		body := strings.NewReader(`{"action":"pull","userId":"u","deviceId":"d"}`)
		app.router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/sync/todos", body))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("postgres failure", func(t *testing.T) {
		orig := openRepositories
		t.Cleanup(func() { openRepositories = orig })
		openRepositories = func(context.Context, *config.Config) (repomanager.RepositoryManager, error) {
			return nil, errors.New("connection refused")
		}

		c := testConfig()
		c.DatabaseDSN = "postgres://nowhere"
		_, err := NewApp(ctx, c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("invalid config", func(t *testing.T) {
		c := testConfig()
		c.MaxPushBatch = 0
		_, err := NewApp(ctx, c)
		require.Error(t, err)
	})
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestApp_RunFailsOnBadAddress(t *testing.T) {
	c := testConfig()
	c.ListenAddr = "256.0.0.1:1"
	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	require.Error(t, app.Run(context.Background()))
}
