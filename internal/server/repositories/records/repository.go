// Package records provides the server-side stores of synchronized records:
// a PostgreSQL implementation and an in-memory one for single-node setups and
// tests. Both are generic over the payload type.
package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/daybook/internal/models"
)

// Repository stores the authoritative copy of one record kind.
//
// Writes are conditional so that concurrent requests never overwrite a newer
// version: Insert does nothing when the id already exists and UpdateIfOlder
// only replaces a row owned by the same user whose updatedAt is strictly
// older than the incoming one.
type Repository[P any] interface {
	// Get returns common.ErrNotFound when userID has no record with id.
	Get(ctx context.Context, userID, id string) (*models.Record[P], error)
	// Insert reports false when a record with the same id exists for any user.
	Insert(ctx context.Context, rec *models.Record[P]) (bool, error)
	// UpdateIfOlder reports false when the stored copy is not older.
	UpdateIfOlder(ctx context.Context, rec *models.Record[P]) (bool, error)
	// SelectUpdated returns records of userID whose updatedAt or receivedAt
	// is after since (all when since is nil), newest first. Tombstones are
	// included.
	SelectUpdated(ctx context.Context, userID string, since *time.Time) ([]*models.Record[P], error)
}
