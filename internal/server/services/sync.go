package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/daybook/internal/common"
	"github.com/dmitrijs2005/daybook/internal/logging"
	"github.com/dmitrijs2005/daybook/internal/models"
	"github.com/dmitrijs2005/daybook/internal/server/repositories/records"
	"github.com/dmitrijs2005/daybook/internal/wire"
)

// maxWriteAttempts bounds the re-evaluations of one record when concurrent
// writers keep changing it between the read and the conditional write.
const maxWriteAttempts = 3

// ConflictError is returned by Delete when the stored copy is newer.
type ConflictError struct {
	Conflict wire.Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("record %s: %s", e.Conflict.ID, common.ErrConflict)
}

func (e *ConflictError) Is(target error) bool {
	return target == common.ErrConflict
}

type PushResult struct {
	Pushed    int
	Conflicts []wire.Conflict
}

// SyncService applies the sync rules for one record kind.
type SyncService[P any] struct {
	kind   models.Kind[P]
	repo   records.Repository[P]
	logger logging.Logger
	now    func() time.Time
}

func NewSyncService[P any](kind models.Kind[P], repo records.Repository[P], logger logging.Logger) *SyncService[P] {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &SyncService[P]{
		kind:   kind,
		repo:   repo,
		logger: logger.With("kind", kind.Name),
		now:    models.Now,
	}
}

// WithClock replaces the server clock used for tombstones and sync times.
func (s *SyncService[P]) WithClock(now func() time.Time) *SyncService[P] {
	s.now = now
	return s
}

func (s *SyncService[P]) Kind() string {
	return s.kind.Name
}

// Push merges incoming records one by one. Records are independent: a
// conflict on one never blocks another. Repository failures abort the push;
// records merged before the failure stay merged and a retry is idempotent.
func (s *SyncService[P]) Push(ctx context.Context, userID, deviceID string, recs []models.Record[P]) (*PushResult, error) {
	res := &PushResult{Conflicts: []wire.Conflict{}}

	for i := range recs {
		rec, err := s.normalize(ctx, userID, deviceID, &recs[i])
		if err != nil {
			return nil, err
		}

		conflict, err := s.pushOne(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("failed to push %s %s: %w", s.kind.Name, rec.ID, err)
		}
		if conflict != nil {
			res.Conflicts = append(res.Conflicts, *conflict)
			recordsConflicted.WithLabelValues(s.kind.Name).Inc()
			continue
		}
		res.Pushed++
	}
	return res, nil
}

// normalize binds the record to the requesting user and device and
// recomputes the checksum from the payload.
func (s *SyncService[P]) normalize(ctx context.Context, userID, deviceID string, in *models.Record[P]) (*models.Record[P], error) {
	rec := *in
	rec.UserID = userID
	rec.DeviceID = deviceID
	rec.SyncStatus = ""
	rec.UpdatedAt = models.Truncate(rec.UpdatedAt)
	rec.CreatedAt = models.Truncate(rec.CreatedAt)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}

	sum, err := models.Checksum(rec.Payload)
	if err != nil {
		return nil, err
	}
	if rec.Checksum != "" && rec.Checksum != sum {
		s.logger.Debug(ctx, "client checksum replaced", "id", rec.ID, "client", rec.Checksum, "server", sum)
	}
	rec.Checksum = sum
	rec.ReceivedAt = s.now()
	return &rec, nil
}

// pushOne returns a non-nil conflict when the stored copy wins.
func (s *SyncService[P]) pushOne(ctx context.Context, rec *models.Record[P]) (*wire.Conflict, error) {
	var last *models.Record[P]

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		existing, err := s.repo.Get(ctx, rec.UserID, rec.ID)
		switch {
		case errors.Is(err, common.ErrNotFound):
			inserted, err := s.repo.Insert(ctx, rec)
			if err != nil {
				return nil, err
			}
			if inserted {
				recordsPushed.WithLabelValues(s.kind.Name, "inserted").Inc()
				return nil, nil
			}

			// Someone holds the id: a concurrent first insert of the same
			// record, or another user.
			insertRaces.WithLabelValues(s.kind.Name).Inc()
			existing, err = s.repo.Get(ctx, rec.UserID, rec.ID)
			if errors.Is(err, common.ErrNotFound) {
				// No server version is disclosed; the conflict is final for
				// the pushing device.
				s.logger.Warn(ctx, "record id owned by another user", "id", rec.ID, "user_id", rec.UserID)
				return &wire.Conflict{ID: rec.ID, LocalUpdatedAt: rec.UpdatedAt}, nil
			}
			if err != nil {
				return nil, err
			}
		case err != nil:
			return nil, err
		}
		last = existing

		if models.SameContent(existing, rec) {
			recordsPushed.WithLabelValues(s.kind.Name, "unchanged").Inc()
			return nil, nil
		}
		if !rec.UpdatedAt.After(existing.UpdatedAt) {
			return conflictWith(existing, rec), nil
		}

		updated, err := s.repo.UpdateIfOlder(ctx, rec)
		if err != nil {
			return nil, err
		}
		if updated {
			recordsPushed.WithLabelValues(s.kind.Name, "updated").Inc()
			return nil, nil
		}
		// A concurrent writer got in between; re-evaluate against its copy.
	}

	s.logger.Warn(ctx, "giving up on contended record", "id", rec.ID)
	if last == nil {
		return &wire.Conflict{ID: rec.ID, LocalUpdatedAt: rec.UpdatedAt}, nil
	}
	return conflictWith(last, rec), nil
}

func conflictWith[P any](server, local *models.Record[P]) *wire.Conflict {
	return &wire.Conflict{ID: local.ID, ServerUpdatedAt: server.UpdatedAt, LocalUpdatedAt: local.UpdatedAt}
}

// Pull returns records of userID changed after since together with the
// server time the response was assembled at.
func (s *SyncService[P]) Pull(ctx context.Context, userID string, since *time.Time) ([]models.Record[P], time.Time, error) {
	syncTime := s.now()

	rows, err := s.repo.SelectUpdated(ctx, userID, since)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to pull %s: %w", s.kind.Name, err)
	}

	out := make([]models.Record[P], len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	recordsPulled.WithLabelValues(s.kind.Name).Add(float64(len(out)))
	return out, syncTime, nil
}

// Delete tombstones one record at server time under the push conflict rule.
// Deleting a tombstone again is a no-op.
func (s *SyncService[P]) Delete(ctx context.Context, userID, deviceID, id string) error {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		existing, err := s.repo.Get(ctx, userID, id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return fmt.Errorf("%s %s: %w", s.kind.Name, id, common.ErrNotFound)
			}
			return fmt.Errorf("failed to delete %s %s: %w", s.kind.Name, id, err)
		}
		if existing.IsDeleted {
			return nil
		}

		tomb := *existing
		tomb.IsDeleted = true
		tomb.DeviceID = deviceID
		tomb.UpdatedAt = s.now()
		tomb.ReceivedAt = tomb.UpdatedAt

		if !tomb.UpdatedAt.After(existing.UpdatedAt) {
			recordsConflicted.WithLabelValues(s.kind.Name).Inc()
			return &ConflictError{Conflict: *conflictWith(existing, &tomb)}
		}

		updated, err := s.repo.UpdateIfOlder(ctx, &tomb)
		if err != nil {
			return fmt.Errorf("failed to delete %s %s: %w", s.kind.Name, id, err)
		}
		if updated {
			return nil
		}
	}
	return fmt.Errorf("failed to delete %s %s: record keeps changing", s.kind.Name, id)
}
