package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/daybook/internal/client/repositories/metadata"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceService_CreatesOnceAndPersists(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	meta := metadata.NewSQLiteRepository(db)

	first, err := NewDeviceService(meta).DeviceID(ctx)
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err)

	// новый экземпляр сервиса читает сохранённый id
	again, err := NewDeviceService(meta).DeviceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	stored, err := meta.Get(ctx, metadata.KeyDeviceID)
	require.NoError(t, err)
	assert.Equal(t, first, string(stored))
}

type countingMeta struct {
	metadata.Repository
	gets int
}

func (f *countingMeta) Get(context.Context, string) ([]byte, error) {
	f.gets++
	return []byte("cached-id"), nil
}

func TestDeviceService_CachesAfterFirstRead(t *testing.T) {
	meta := &countingMeta{}
	svc := NewDeviceService(meta)

	for i := 0; i < 3; i++ {
		id, err := svc.DeviceID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "cached-id", id)
	}
	assert.Equal(t, 1, meta.gets)
}

type brokenMeta struct {
	metadata.Repository
}

func (brokenMeta) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk full")
}

func TestDeviceService_ReadError(t *testing.T) {
	_, err := NewDeviceService(brokenMeta{}).DeviceID(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
