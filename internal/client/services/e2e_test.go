package services

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/daybook/internal/client/client"
	"github.com/dmitrijs2005/daybook/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/daybook/internal/models"
	"github.com/dmitrijs2005/daybook/internal/server/httpapi"
	serverrecords "github.com/dmitrijs2005/daybook/internal/server/repositories/records"
	serverservices "github.com/dmitrijs2005/daybook/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDevice is one installation with its own database talking to srv.
type testDevice struct {
	projects *RecordService[models.Project]
	syncer   *Syncer[models.Project]
	engine   *SyncEngine
}

// newTestServer serves projects from memory. The server reads the same clock
// as the devices so receive times interleave with device edits.
func newTestServer(t *testing.T, clock *tickingClock) *httptest.Server {
	t.Helper()
	repo := serverrecords.NewMemoryRepository[models.Project]()
	h := httpapi.NewRouter(httpapi.Services{
		Projects: serverservices.NewSyncService(models.Projects, repo, nil).WithClock(clock.Now),
	}, httpapi.Limits{MaxBodyBytes: 1 << 20, MaxPushBatch: 50}, nil)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func newTestDevice(t *testing.T, srv *httptest.Server, name string, clock *tickingClock) *testDevice {
	t.Helper()
	db := newDB(t)
	meta := metadata.NewSQLiteRepository(db)
	dev := staticDevice(name)
	projects := NewRecordService(db, models.Projects, dev, "alice").WithClock(clock.Now)
	tr := client.NewTransport(client.NewHTTPClient(srv.URL), models.Projects)
	s := NewSyncer(models.Projects, projects.Store(), tr, meta, dev, "alice", WithSyncClock(clock.Now))
	return &testDevice{projects: projects, syncer: s, engine: NewSyncEngine(nil, 0, s)}
}

func (d *testDevice) sync(t *testing.T) *SyncResult {
	t.Helper()
	res, err := d.engine.SyncNow(context.Background())
	require.NoError(t, err)
	return res
}

func (d *testDevice) get(t *testing.T, id string) *models.Record[models.Project] {
	t.Helper()
	rec, err := d.projects.Store().Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	return rec
}

func TestE2E_TwoDevicesConverge(t *testing.T) {
	clock := newTickingClock()
	srv := newTestServer(t, clock)
	laptop := newTestDevice(t, srv, "laptop", clock)
	phone := newTestDevice(t, srv, "phone", clock)
	ctx := context.Background()

	rec, err := laptop.projects.Create(ctx, models.Project{Name: "garden", Tasks: models.Tasks{{Text: "seeds"}}})
	require.NoError(t, err)
	laptop.sync(t)
	phone.sync(t)
	assert.Equal(t, "garden", phone.get(t, rec.ID).Payload.Name)

	// обе стороны правят одну запись офлайн, телефон позже
	_, err = laptop.projects.Update(ctx, rec.ID, models.Project{Name: "garden (laptop)"})
	require.NoError(t, err)
	_, err = phone.projects.Update(ctx, rec.ID, models.Project{Name: "garden (phone)"})
	require.NoError(t, err)

	// телефон синхронизируется первым; ноутбук получает конфликт
	phone.sync(t)
	res := laptop.sync(t)
	assert.Equal(t, 1, res.Conflicts())
	assert.Equal(t, 1, res.Kinds[0].Pull.Applied, "authoritative copy pulled in the same cycle")

	phone.sync(t)

	l, p := laptop.get(t, rec.ID), phone.get(t, rec.ID)
	assert.Equal(t, "garden (phone)", l.Payload.Name)
	assert.Equal(t, l.Payload, p.Payload)
	assert.Equal(t, l.Checksum, p.Checksum)
	assert.Equal(t, l.UpdatedAt, p.UpdatedAt)
	assert.Equal(t, models.StatusSynced, l.SyncStatus)
	assert.Equal(t, models.StatusSynced, p.SyncStatus)
}

func TestE2E_IdempotentPush(t *testing.T) {
	clock := newTickingClock()
	srv := newTestServer(t, clock)
	dev := newTestDevice(t, srv, "laptop", clock)
	ctx := context.Background()

	rec, err := dev.projects.Create(ctx, models.Project{Name: "once"})
	require.NoError(t, err)
	pending, err := dev.projects.Store().GetUnsynced(ctx)
	require.NoError(t, err)

	tr := client.NewTransport(client.NewHTTPClient(srv.URL), models.Projects)
	for i := 0; i < 3; i++ {
		resp, err := tr.Push(ctx, "alice", "laptop", pending)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Pushed)
		assert.Empty(t, resp.Conflicts)
	}

	pull, err := tr.Pull(ctx, "alice", "laptop", nil)
	require.NoError(t, err)
	require.Equal(t, 1, pull.Count)
	assert.Equal(t, rec.ID, pull.Records[0].ID)
}

func TestE2E_TombstonePropagates(t *testing.T) {
	clock := newTickingClock()
	srv := newTestServer(t, clock)
	laptop := newTestDevice(t, srv, "laptop", clock)
	phone := newTestDevice(t, srv, "phone", clock)
	ctx := context.Background()

	rec, err := laptop.projects.Create(ctx, models.Project{Name: "temp"})
	require.NoError(t, err)
	laptop.sync(t)
	phone.sync(t)

	require.NoError(t, phone.projects.Delete(ctx, rec.ID))
	phone.sync(t)
	laptop.sync(t)

	got := laptop.get(t, rec.ID)
	assert.True(t, got.IsDeleted)
	assert.Equal(t, models.StatusSynced, got.SyncStatus)

	live, err := laptop.projects.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, live)

	// purge is local only; the server keeps the tombstone
	n, err := laptop.projects.Purge(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	fresh := newTestDevice(t, srv, "tablet", clock)
	fresh.sync(t)
	assert.True(t, fresh.get(t, rec.ID).IsDeleted)
}

func TestE2E_PullKeepsNewerLocalEdit(t *testing.T) {
	clock := newTickingClock()
	srv := newTestServer(t, clock)
	laptop := newTestDevice(t, srv, "laptop", clock)
	phone := newTestDevice(t, srv, "phone", clock)
	ctx := context.Background()

	rec, err := laptop.projects.Create(ctx, models.Project{Name: "v1"})
	require.NoError(t, err)
	laptop.sync(t)
	phone.sync(t)

	_, err = laptop.projects.Update(ctx, rec.ID, models.Project{Name: "v2 laptop"})
	require.NoError(t, err)
	laptop.sync(t)

	_, err = phone.projects.Update(ctx, rec.ID, models.Project{Name: "v3 phone"})
	require.NoError(t, err)

	// pull alone: the server copy is older than the pending edit
	pull, err := phone.syncer.Pull(ctx, PushResult{})
	require.NoError(t, err)
	assert.Equal(t, 1, pull.KeptLocal)

	p := phone.get(t, rec.ID)
	assert.Equal(t, "v3 phone", p.Payload.Name)
	assert.Equal(t, models.StatusPending, p.SyncStatus)

	phone.sync(t)
	laptop.sync(t)
	assert.Equal(t, "v3 phone", laptop.get(t, rec.ID).Payload.Name)
}

func TestE2E_ServerWithoutStore(t *testing.T) {
	srv := httptest.NewServer(httpapi.NewRouter(httpapi.Services{}, httpapi.Limits{}, nil))
	t.Cleanup(srv.Close)

	dev := newTestDevice(t, srv, "laptop", newTickingClock())
	_, err := dev.projects.Create(context.Background(), models.Project{Name: "offline"})
	require.NoError(t, err)

	_, err = dev.engine.SyncNow(context.Background())
	require.ErrorIs(t, err, client.ErrSyncNotConfigured)

	st := dev.engine.Status()
	assert.ErrorIs(t, st.LastError, client.ErrSyncNotConfigured)
	pending, err := dev.projects.Store().GetUnsynced(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestE2E_OfflineEditReachesDeviceThatPulledMeanwhile(t *testing.T) {
	clock := newTickingClock()
	srv := newTestServer(t, clock)
	laptop := newTestDevice(t, srv, "laptop", clock)
	phone := newTestDevice(t, srv, "phone", clock)
	ctx := context.Background()

	// телефон создаёт запись офлайн, ноутбук тем временем синхронизируется
	rec, err := phone.projects.Create(ctx, models.Project{Name: "written on the train"})
	require.NoError(t, err)
	laptop.sync(t)

	phone.sync(t)
	res := laptop.sync(t)
	assert.Equal(t, 1, res.Kinds[0].Pull.Applied)

	got := laptop.get(t, rec.ID)
	assert.Equal(t, "written on the train", got.Payload.Name)
	assert.True(t, rec.UpdatedAt.Equal(got.UpdatedAt), "edit time survives the late upload")
	assert.Equal(t, models.StatusSynced, got.SyncStatus)

	// the edit is not pulled again once the cursor moved past its receive time
	res = laptop.sync(t)
	assert.Equal(t, 0, res.Kinds[0].Pull.Received)
}
