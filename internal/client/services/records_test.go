package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/daybook/internal/common"
	"github.com/dmitrijs2005/daybook/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTodoService(t *testing.T) *RecordService[models.Todo] {
	t.Helper()
	clock := newTickingClock()
	return NewRecordService(newDB(t), models.Todos, staticDevice("dev-1"), "alice").WithClock(clock.Now)
}

func TestRecordService_Lifecycle(t *testing.T) {
	svc := newTodoService(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, models.Todo{Text: "milk"})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "alice", rec.UserID)
	assert.Equal(t, "dev-1", rec.DeviceID)
	assert.Equal(t, models.StatusPending, rec.SyncStatus)

	upd, err := svc.Update(ctx, rec.ID, models.Todo{Text: "oat milk", Done: true})
	require.NoError(t, err)
	assert.True(t, upd.UpdatedAt.After(rec.UpdatedAt))
	assert.Equal(t, rec.CreatedAt, upd.CreatedAt)
	assert.NotEqual(t, rec.Checksum, upd.Checksum)

	got, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "oat milk", got.Payload.Text)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, rec.ID))

	_, err = svc.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = svc.Update(ctx, rec.ID, models.Todo{Text: "zombie"})
	assert.ErrorIs(t, err, common.ErrNotFound)

	list, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	tomb, err := svc.Store().Get(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, tomb)
	assert.True(t, tomb.IsDeleted)
	assert.Equal(t, models.StatusPending, tomb.SyncStatus)
	assert.True(t, tomb.UpdatedAt.After(upd.UpdatedAt))

	counts, err := svc.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.StatusPending])
}

func TestRecordService_PurgeOnlySyncedTombstones(t *testing.T) {
	svc := newTodoService(t)
	ctx := context.Background()

	live, err := svc.Create(ctx, models.Todo{Text: "keep"})
	require.NoError(t, err)
	gone, err := svc.Create(ctx, models.Todo{Text: "drop"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, gone.ID))

	_, err = svc.Purge(ctx, gone.ID)
	require.ErrorIs(t, err, ErrNotPurgeable, "tombstone not pushed yet")

	tomb, err := svc.Store().Get(ctx, gone.ID)
	require.NoError(t, err)
	ok, err := svc.Store().MarkSynced(ctx, gone.ID, tomb.UpdatedAt)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.Purge(ctx, gone.ID, live.ID)
	require.ErrorIs(t, err, ErrNotPurgeable, "live record in the set")

	// транзакция откатилась: надгробие на месте
	still, err := svc.Store().Get(ctx, gone.ID)
	require.NoError(t, err)
	require.NotNil(t, still)

	_, err = svc.Purge(ctx, "unknown")
	require.ErrorIs(t, err, common.ErrNotFound)

	n, err := svc.Purge(ctx, gone.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	after, err := svc.Store().Get(ctx, gone.ID)
	require.NoError(t, err)
	assert.Nil(t, after)
}
