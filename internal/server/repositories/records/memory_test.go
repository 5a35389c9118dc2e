package records

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/daybook/internal/common"
	"github.com/dmitrijs2005/daybook/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func todo(id, user string, at time.Time) *models.Record[models.Todo] {
	return &models.Record[models.Todo]{ID: id, UserID: user, Payload: models.Todo{Text: id}, CreatedAt: at, UpdatedAt: at}
}

func TestMemory_InsertOnceAndGetScopedByUser(t *testing.T) {
	repo := NewMemoryRepository[models.Todo]()
	ctx := context.Background()

	ok, err := repo.Insert(ctx, todo("a", "u1", ts))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Insert(ctx, todo("a", "u2", ts))
	require.NoError(t, err)
	assert.False(t, ok, "id is global")

	got, err := repo.Get(ctx, "u1", "a")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	_, err = repo.Get(ctx, "u2", "a")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestMemory_UpdateIfOlder(t *testing.T) {
	repo := NewMemoryRepository[models.Todo]()
	ctx := context.Background()
	_, err := repo.Insert(ctx, todo("a", "u1", ts))
	require.NoError(t, err)

	ok, err := repo.UpdateIfOlder(ctx, todo("a", "u1", ts))
	require.NoError(t, err)
	assert.False(t, ok, "same timestamp is not newer")

	ok, err = repo.UpdateIfOlder(ctx, todo("a", "u2", ts.Add(time.Hour)))
	require.NoError(t, err)
	assert.False(t, ok, "other owner")

	newer := todo("a", "u1", ts.Add(time.Second))
	newer.Payload.Done = true
	newer.CreatedAt = ts.Add(time.Second)
	ok, err = repo.UpdateIfOlder(ctx, newer)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.Get(ctx, "u1", "a")
	require.NoError(t, err)
	assert.True(t, got.Payload.Done)
	assert.Equal(t, ts, got.CreatedAt, "createdAt is kept")
}

func TestMemory_SelectUpdatedOrderAndWindow(t *testing.T) {
	repo := NewMemoryRepository[models.Todo]()
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		_, err := repo.Insert(ctx, todo(id, "u1", ts.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	_, err := repo.Insert(ctx, todo("x", "u2", ts.Add(time.Hour)))
	require.NoError(t, err)

	all, err := repo.SelectUpdated(ctx, "u1", nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	since := ts.Add(time.Minute)
	window, err := repo.SelectUpdated(ctx, "u1", &since)
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "c", window[0].ID)
}

func TestMemory_SelectUpdatedMatchesReceivedAt(t *testing.T) {
	repo := NewMemoryRepository[models.Todo]()
	ctx := context.Background()
	since := ts.Add(time.Hour)

	// правка сделана офлайн до since, но принята сервером после
	late := todo("late", "u1", ts)
	late.ReceivedAt = since.Add(time.Second)
	_, err := repo.Insert(ctx, late)
	require.NoError(t, err)

	old := todo("old", "u1", ts)
	old.ReceivedAt = since
	_, err = repo.Insert(ctx, old)
	require.NoError(t, err)

	window, err := repo.SelectUpdated(ctx, "u1", &since)
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "late", window[0].ID)

	// a later update moves the receive time too
	newer := todo("old", "u1", ts.Add(time.Minute))
	newer.ReceivedAt = since.Add(2 * time.Second)
	ok, err := repo.UpdateIfOlder(ctx, newer)
	require.NoError(t, err)
	require.True(t, ok)

	window, err = repo.SelectUpdated(ctx, "u1", &since)
	require.NoError(t, err)
	assert.Len(t, window, 2)
}

func TestMemory_ConcurrentInsertSingleWinner(t *testing.T) {
	repo := NewMemoryRepository[models.Todo]()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Insert(ctx, todo("same", "u1", ts))
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}
