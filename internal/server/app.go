// Package server wires the sync server together: it picks the record store,
// builds the HTTP router and runs it until a signal or context cancellation,
// then shuts down gracefully.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/daybook/internal/logging"
	"github.com/dmitrijs2005/daybook/internal/models"
	"github.com/dmitrijs2005/daybook/internal/server/config"
	"github.com/dmitrijs2005/daybook/internal/server/httpapi"
	"github.com/dmitrijs2005/daybook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/daybook/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	repos  repomanager.RepositoryManager
	router http.Handler
}

// openRepositories is a seam for tests that must not reach PostgreSQL.
var openRepositories = func(ctx context.Context, cfg *config.Config) (repomanager.RepositoryManager, error) {
	switch {
	case cfg.DatabaseDSN != "":
		return repomanager.OpenPostgres(ctx, cfg.DatabaseDSN)
	case cfg.UseMemoryStore:
		return repomanager.NewMemoryRepositoryManager(), nil
	default:
		return nil, nil
	}
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	repos, err := openRepositories(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, repos: repos}
	app.router = httpapi.NewRouter(app.services(), httpapi.Limits{
		MaxBodyBytes: c.MaxBodyBytes,
		MaxPushBatch: c.MaxPushBatch,
	}, logger)

	switch {
	case repos == nil:
		logger.Warn(ctx, "no record store configured, sync endpoints will answer 503")
	case c.DatabaseDSN == "":
		logger.Info(ctx, "using in-memory record store")
	default:
		logger.Info(ctx, "using PostgreSQL record store")
	}
	return app, nil
}

// services leaves every field nil when there is no store.
func (app *App) services() httpapi.Services {
	if app.repos == nil {
		return httpapi.Services{}
	}
	return httpapi.Services{
		Journal:  services.NewSyncService(models.Journal, app.repos.Journal(), app.logger),
		Projects: services.NewSyncService(models.Projects, app.repos.Projects(), app.logger),
		Todos:    services.NewSyncService(models.Todos, app.repos.Todos(), app.logger),
		Ready:    app.repos.Ping,
	}
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startHTTPServer(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      app.router,
		ReadTimeout:  app.config.ReadTimeout,
		WriteTimeout: app.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "Starting HTTP server", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	}

	app.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Run serves until ctx is cancelled or the process gets SIGINT/SIGTERM.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	ln, err := net.Listen("tcp", app.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", app.config.ListenAddr, err)
	}

	var wg sync.WaitGroup
	var serveErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.startHTTPServer(ctx, ln); err != nil {
			app.logger.Error(ctx, err.Error())
			serveErr = err
			cancelFunc()
		}
	}()

	wg.Wait()

	if app.repos != nil {
		if err := app.repos.Close(); err != nil {
			app.logger.Error(ctx, "failed to close store", "error", err)
		}
	}
	app.logger.Info(ctx, "Stopped")
	return serveErr
}
