// Package records implements the local record store of the device: one SQLite
// table per record kind, generic over the payload type.
package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/daybook/internal/models"
)

// ImportOutcome tells what Import did with an incoming server record.
type ImportOutcome int

const (
	// Applied means the server copy was written and marked synced.
	Applied ImportOutcome = iota
	// KeptLocal means a newer pending local edit was preserved.
	KeptLocal
)

func (o ImportOutcome) String() string {
	if o == KeptLocal {
		return "kept-local"
	}
	return "applied"
}

// Repository is the local store of one record kind.
type Repository[P any] interface {
	// Save upserts rec as a local edit. It marks the row pending, recomputes
	// the checksum, moves updatedAt strictly forward and keeps the original
	// createdAt. The stored version is returned.
	Save(ctx context.Context, rec *models.Record[P]) (*models.Record[P], error)

	// Get returns nil, nil when the id is unknown. Tombstones are returned.
	Get(ctx context.Context, id string) (*models.Record[P], error)

	// GetAll returns live records, newest first.
	GetAll(ctx context.Context) ([]*models.Record[P], error)

	// GetUnsynced returns pending records, oldest first.
	GetUnsynced(ctx context.Context) ([]*models.Record[P], error)

	// MarkSynced flips a pending row to synced if it still carries the
	// updatedAt that was pushed. It reports whether the row changed.
	MarkSynced(ctx context.Context, id string, pushedAt time.Time) (bool, error)

	// MarkConflict flips a pending row to conflict under the same guard.
	MarkConflict(ctx context.Context, id string, pushedAt time.Time) (bool, error)

	// SoftDelete tombstones the record as a local edit made by deviceID.
	SoftDelete(ctx context.Context, id, deviceID string) error

	// PermanentlyDelete removes rows. Local housekeeping only.
	PermanentlyDelete(ctx context.Context, ids ...string) (int64, error)

	// Import applies a record received from the server.
	Import(ctx context.Context, rec *models.Record[P]) (ImportOutcome, error)

	// CountByStatus returns row counts grouped by sync status, tombstones included.
	CountByStatus(ctx context.Context) (map[models.SyncStatus]int, error)
}
