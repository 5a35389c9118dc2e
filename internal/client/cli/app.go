package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/daybook/internal/client/client"
	"github.com/dmitrijs2005/daybook/internal/client/config"
	"github.com/dmitrijs2005/daybook/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/daybook/internal/client/services"
	"github.com/dmitrijs2005/daybook/internal/filex"
	"github.com/dmitrijs2005/daybook/internal/logging"
	"github.com/dmitrijs2005/daybook/internal/models"
)

var errSyncDisabled = errors.New("sync is not configured: set --server and --user")

// App holds the opened local store and, when configured, the sync engine.
type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	meta    metadata.Repository
	devices services.DeviceService
	remote  *client.HTTPClient

	journal  *services.RecordService[models.JournalEntry]
	projects *services.RecordService[models.Project]
	todos    *services.RecordService[models.Todo]

	kinds  map[string]kindOps
	engine *services.SyncEngine
}

func NewApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewConsoleLogger(logOut, c.LogLevel)

	if _, err := filex.EnsureParentDir(c.DBPath); err != nil {
		return nil, fmt.Errorf("error preparing database directory: %w", err)
	}

	db, err := client.InitDatabase(ctx, c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	meta := metadata.NewSQLiteRepository(db)
	devices := services.NewDeviceService(meta)

	a := &App{
		config:   c,
		logger:   logger,
		db:       db,
		meta:     meta,
		devices:  devices,
		journal:  services.NewRecordService(db, models.Journal, devices, c.UserID),
		projects: services.NewRecordService(db, models.Projects, devices, c.UserID),
		todos:    services.NewRecordService(db, models.Todos, devices, c.UserID),
	}

	jh := &kindHandle[models.JournalEntry]{svc: a.journal, meta: meta, summary: journalSummary}
	ph := &kindHandle[models.Project]{svc: a.projects, meta: meta, summary: projectSummary}
	th := &kindHandle[models.Todo]{svc: a.todos, meta: meta, summary: todoSummary}

	if c.CanSync() {
		a.remote = client.NewHTTPClient(c.ServerURL, client.WithTimeout(c.RequestTimeout))
		opts := []services.SyncerOption{
			services.WithBatchSize(c.PushBatchSize),
			services.WithSyncLogger(logger),
		}
		jh.syncer = services.NewSyncer(models.Journal, a.journal.Store(), client.NewTransport(a.remote, models.Journal), meta, devices, c.UserID, opts...)
		ph.syncer = services.NewSyncer(models.Projects, a.projects.Store(), client.NewTransport(a.remote, models.Projects), meta, devices, c.UserID, opts...)
		th.syncer = services.NewSyncer(models.Todos, a.todos.Store(), client.NewTransport(a.remote, models.Todos), meta, devices, c.UserID, opts...)
		a.engine = services.NewSyncEngine(logger.With("module", "sync"), c.SyncInterval, jh.syncer, ph.syncer, th.syncer)
	}

	a.kinds = map[string]kindOps{
		models.Journal.Name:  jh,
		models.Projects.Name: ph,
		models.Todos.Name:    th,
	}
	return a, nil
}

func (a *App) kind(name string) (kindOps, error) {
	k, err := resolveKind(name)
	if err != nil {
		return nil, err
	}
	return a.kinds[k], nil
}

func (a *App) Close() error {
	return a.db.Close()
}
