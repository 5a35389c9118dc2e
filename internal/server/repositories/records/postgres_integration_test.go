package records

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/daybook/internal/models"
	"github.com/dmitrijs2005/daybook/internal/server/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a disposable PostgreSQL and applies the migrations.
// Skipped unless TEST_INTEGRATION is set.
func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("daybook_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("pgx"))
	require.NoError(t, goose.UpContext(ctx, db, "."))
	return db
}

func TestPostgresIntegration_RoundTripAllKinds(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	projects := NewPostgresRepository(db, models.Projects)
	p := &models.Record[models.Project]{
		ID: "p1", UserID: "u1", DeviceID: "d1",
		Payload:   models.Project{Name: "n", Description: "d", Tasks: models.Tasks{{Text: "a", Done: true}}},
		Checksum:  "c1",
		CreatedAt: ts, UpdatedAt: ts,
	}
	ok, err := projects.Insert(ctx, p)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := projects.Get(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	todos := NewPostgresRepository(db, models.Todos)
	_, err = todos.Insert(ctx, &models.Record[models.Todo]{
		ID: "t1", UserID: "u1", Payload: models.Todo{Text: "x", Done: true, ProjectID: "p1"},
		CreatedAt: ts, UpdatedAt: ts,
	})
	require.NoError(t, err)

	since := ts.Add(-time.Second)
	list, err := todos.SelectUpdated(ctx, "u1", &since)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Payload.Done)

	// старая правка, принятая позже окна, всё равно возвращается
	late := ts.Add(time.Hour)
	_, err = todos.Insert(ctx, &models.Record[models.Todo]{
		ID: "t2", UserID: "u1", Payload: models.Todo{Text: "offline"},
		CreatedAt: ts.Add(-time.Hour), UpdatedAt: ts.Add(-time.Hour), ReceivedAt: late,
	})
	require.NoError(t, err)

	window := ts.Add(time.Minute)
	list, err = todos.SelectUpdated(ctx, "u1", &window)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t2", list[0].ID)
}

func TestPostgresIntegration_ConditionalUpdate(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	repo := NewPostgresRepository(db, models.Journal)

	rec := journalRecord()
	_, err := repo.Insert(ctx, rec)
	require.NoError(t, err)

	same := *rec
	ok, err := repo.UpdateIfOlder(ctx, &same)
	require.NoError(t, err)
	assert.False(t, ok)

	newer := *rec
	newer.UpdatedAt = rec.UpdatedAt.Add(time.Millisecond)
	newer.Payload.Title = "newer"
	ok, err = repo.UpdateIfOlder(ctx, &newer)
	require.NoError(t, err)
	assert.True(t, ok)

	foreign := newer
	foreign.UserID = "intruder"
	foreign.UpdatedAt = newer.UpdatedAt.Add(time.Hour)
	ok, err = repo.UpdateIfOlder(ctx, &foreign)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresIntegration_ConcurrentFirstInsert(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	repo := NewPostgresRepository(db, models.Journal)

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan bool, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Insert(ctx, journalRecord())
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one insert wins, the rest must take the update path")
}
