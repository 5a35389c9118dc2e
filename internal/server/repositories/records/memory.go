package records

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/daybook/internal/common"
	"github.com/dmitrijs2005/daybook/internal/models"
)

// MemoryRepository keeps records in a map. It applies the same conditional
// write rules as the PostgreSQL store and is safe for concurrent use.
type MemoryRepository[P any] struct {
	mu   sync.RWMutex
	rows map[string]models.Record[P]
}

func NewMemoryRepository[P any]() *MemoryRepository[P] {
	return &MemoryRepository[P]{rows: make(map[string]models.Record[P])}
}

func (r *MemoryRepository[P]) Get(_ context.Context, userID, id string) (*models.Record[P], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.rows[id]
	if !ok || rec.UserID != userID {
		return nil, common.ErrNotFound
	}
	return &rec, nil
}

func (r *MemoryRepository[P]) Insert(_ context.Context, rec *models.Record[P]) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[rec.ID]; ok {
		return false, nil
	}
	stored := *rec
	stored.SyncStatus = ""
	r.rows[rec.ID] = stored
	return true, nil
}

func (r *MemoryRepository[P]) UpdateIfOlder(_ context.Context, rec *models.Record[P]) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.rows[rec.ID]
	if !ok || cur.UserID != rec.UserID || !cur.UpdatedAt.Before(rec.UpdatedAt) {
		return false, nil
	}

	cur.DeviceID = rec.DeviceID
	cur.Payload = rec.Payload
	cur.Checksum = rec.Checksum
	cur.UpdatedAt = rec.UpdatedAt
	cur.IsDeleted = rec.IsDeleted
	cur.ReceivedAt = rec.ReceivedAt
	r.rows[rec.ID] = cur
	return true, nil
}

func (r *MemoryRepository[P]) SelectUpdated(_ context.Context, userID string, since *time.Time) ([]*models.Record[P], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Record[P]
	for _, rec := range r.rows {
		if rec.UserID != userID {
			continue
		}
		if since != nil && !rec.UpdatedAt.After(*since) && !rec.ReceivedAt.After(*since) {
			continue
		}
		rec := rec
		out = append(out, &rec)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
