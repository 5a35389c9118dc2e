package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/daybook/internal/client/repositories/records"
	"github.com/dmitrijs2005/daybook/internal/common"
	"github.com/dmitrijs2005/daybook/internal/dbx"
	"github.com/dmitrijs2005/daybook/internal/models"
	"github.com/google/uuid"
)

// ErrNotPurgeable is returned when purging a record whose deletion the server
// has not acknowledged yet.
var ErrNotPurgeable = errors.New("only synced tombstones can be purged")

// RecordService is the editing surface of one record kind. Every mutation is
// a local edit that the next sync cycle pushes.
type RecordService[P any] struct {
	db      *sql.DB
	kind    models.Kind[P]
	repo    records.Repository[P]
	devices DeviceService
	userID  string
}

func NewRecordService[P any](db *sql.DB, kind models.Kind[P], devices DeviceService, userID string) *RecordService[P] {
	return &RecordService[P]{
		db:      db,
		kind:    kind,
		repo:    records.NewSQLiteRepository(db, kind),
		devices: devices,
		userID:  userID,
	}
}

// WithClock replaces the clock that stamps local edits. Call it before
// handing Store to a syncer.
func (s *RecordService[P]) WithClock(now func() time.Time) *RecordService[P] {
	s.repo = records.NewSQLiteRepository(s.db, s.kind).WithClock(now)
	return s
}

// Store exposes the underlying repository to the syncer.
func (s *RecordService[P]) Store() records.Repository[P] {
	return s.repo
}

func (s *RecordService[P]) Kind() models.Kind[P] {
	return s.kind
}

func (s *RecordService[P]) Create(ctx context.Context, payload P) (*models.Record[P], error) {
	deviceID, err := s.devices.DeviceID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.Save(ctx, &models.Record[P]{
		ID:       uuid.NewString(),
		UserID:   s.userID,
		DeviceID: deviceID,
		Payload:  payload,
	})
}

// Update replaces the payload of a live record.
func (s *RecordService[P]) Update(ctx context.Context, id string, payload P) (*models.Record[P], error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	deviceID, err := s.devices.DeviceID(ctx)
	if err != nil {
		return nil, err
	}

	rec := *existing
	rec.Payload = payload
	rec.DeviceID = deviceID
	if rec.UserID == "" {
		rec.UserID = s.userID
	}
	return s.repo.Save(ctx, &rec)
}

// Get returns a live record or common.ErrNotFound.
func (s *RecordService[P]) Get(ctx context.Context, id string) (*models.Record[P], error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.IsDeleted {
		return nil, fmt.Errorf("%s %s: %w", s.kind.Name, id, common.ErrNotFound)
	}
	return rec, nil
}

func (s *RecordService[P]) List(ctx context.Context) ([]*models.Record[P], error) {
	return s.repo.GetAll(ctx)
}

// Delete tombstones the record. The tombstone is pushed like any other edit.
func (s *RecordService[P]) Delete(ctx context.Context, id string) error {
	deviceID, err := s.devices.DeviceID(ctx)
	if err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, id, deviceID)
}

// Purge physically removes tombstones that are already synced. The check and
// the delete run in one transaction so a concurrent import cannot slip in.
func (s *RecordService[P]) Purge(ctx context.Context, ids ...string) (int64, error) {
	var purged int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := records.NewSQLiteRepository(tx, s.kind)
		for _, id := range ids {
			rec, err := repo.Get(ctx, id)
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("%s %s: %w", s.kind.Name, id, common.ErrNotFound)
			}
			if !rec.IsDeleted || rec.SyncStatus != models.StatusSynced {
				return fmt.Errorf("%s %s: %w", s.kind.Name, id, ErrNotPurgeable)
			}
		}
		n, err := repo.PermanentlyDelete(ctx, ids...)
		purged = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}

func (s *RecordService[P]) Counts(ctx context.Context) (map[models.SyncStatus]int, error) {
	return s.repo.CountByStatus(ctx)
}
