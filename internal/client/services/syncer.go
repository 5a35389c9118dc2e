package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/daybook/internal/client/client"
	"github.com/dmitrijs2005/daybook/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/daybook/internal/client/repositories/records"
	"github.com/dmitrijs2005/daybook/internal/logging"
	"github.com/dmitrijs2005/daybook/internal/models"
	"github.com/dmitrijs2005/daybook/internal/wire"
)

// DefaultPushBatchSize bounds the records sent in one push request.
const DefaultPushBatchSize = 200

// ErrNoUser is returned when syncing without a configured user id.
var ErrNoUser = errors.New("user id is not configured")

type PushResult struct {
	Pushed    int
	Conflicts []wire.Conflict
	// Superseded counts acknowledged records edited again before the ack
	// arrived. They stay pending for the next cycle.
	Superseded int
}

type PullResult struct {
	Since     *time.Time
	Received  int
	Applied   int
	KeptLocal int
}

type KindResult struct {
	Kind string
	Push PushResult
	Pull PullResult

	// Skipped is set when the kind was held back after a server rejection.
	Skipped bool
}

// Syncer moves the records of one kind between the local store and the
// endpoint.
type Syncer[P any] struct {
	kind      models.Kind[P]
	store     records.Repository[P]
	transport client.Transport[P]
	meta      metadata.Repository
	devices   DeviceService
	userID    string
	batchSize int
	now       func() time.Time
	logger    logging.Logger
}

type SyncerOption func(*syncerOptions)

type syncerOptions struct {
	batchSize int
	now       func() time.Time
	logger    logging.Logger
}

func WithBatchSize(n int) SyncerOption {
	return func(o *syncerOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

func WithSyncClock(now func() time.Time) SyncerOption {
	return func(o *syncerOptions) { o.now = now }
}

func WithSyncLogger(l logging.Logger) SyncerOption {
	return func(o *syncerOptions) { o.logger = l }
}

func NewSyncer[P any](
	kind models.Kind[P],
	store records.Repository[P],
	transport client.Transport[P],
	meta metadata.Repository,
	devices DeviceService,
	userID string,
	opts ...SyncerOption,
) *Syncer[P] {
	o := syncerOptions{batchSize: DefaultPushBatchSize, now: models.Now, logger: logging.Nop{}}
	for _, fn := range opts {
		fn(&o)
	}
	return &Syncer[P]{
		kind:      kind,
		store:     store,
		transport: transport,
		meta:      meta,
		devices:   devices,
		userID:    userID,
		batchSize: o.batchSize,
		now:       o.now,
		logger:    o.logger.With("kind", kind.Name),
	}
}

func (s *Syncer[P]) Kind() string {
	return s.kind.Name
}

func (s *Syncer[P]) identity(ctx context.Context) (string, error) {
	if s.userID == "" {
		return "", ErrNoUser
	}
	return s.devices.DeviceID(ctx)
}

// Push sends pending records in batches. A transport failure aborts the push
// with nothing of the failed batch marked synced.
func (s *Syncer[P]) Push(ctx context.Context) (PushResult, error) {
	var res PushResult

	pending, err := s.store.GetUnsynced(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to read pending %s records: %w", s.kind.Name, err)
	}
	if len(pending) == 0 {
		return res, nil
	}

	deviceID, err := s.identity(ctx)
	if err != nil {
		return res, err
	}

	for start := 0; start < len(pending); start += s.batchSize {
		end := min(start+s.batchSize, len(pending))
		batch := pending[start:end]

		resp, err := s.transport.Push(ctx, s.userID, deviceID, batch)
		if err != nil {
			return res, fmt.Errorf("failed to push %s: %w", s.kind.Name, err)
		}

		conflicts := make(map[string]wire.Conflict, len(resp.Conflicts))
		for _, c := range resp.Conflicts {
			conflicts[c.ID] = c
		}

		for _, rec := range batch {
			if c, ok := conflicts[rec.ID]; ok {
				if _, err := s.store.MarkConflict(ctx, rec.ID, rec.UpdatedAt); err != nil {
					return res, err
				}
				res.Conflicts = append(res.Conflicts, c)
				if c.ServerUpdatedAt.IsZero() {
					// the id is taken by another account; retrying cannot help
					s.logger.Warn(ctx, "push conflict, id owned by another user", "id", rec.ID)
					continue
				}
				s.logger.Warn(ctx, "push conflict", "id", rec.ID,
					"local_updated_at", c.LocalUpdatedAt, "server_updated_at", c.ServerUpdatedAt)
				continue
			}

			ok, err := s.store.MarkSynced(ctx, rec.ID, rec.UpdatedAt)
			if err != nil {
				return res, err
			}
			if !ok {
				res.Superseded++
			}
		}
		res.Pushed += resp.Pushed
	}

	s.logger.Debug(ctx, "push finished", "pushed", res.Pushed, "conflicts", len(res.Conflicts))
	return res, nil
}

// PendingVersion summarizes the pending set: it changes whenever a pending
// record is added, edited or synced.
func (s *Syncer[P]) PendingVersion(ctx context.Context) (string, error) {
	pending, err := s.store.GetUnsynced(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read pending %s records: %w", s.kind.Name, err)
	}
	var latest int64
	for _, rec := range pending {
		latest = max(latest, rec.UpdatedAt.UnixMilli())
	}
	return fmt.Sprintf("%d:%d", len(pending), latest), nil
}

// Pull fetches records changed since the last pull and imports them. When
// the preceding push hit conflicts the window is widened so the server copies
// of the conflicted records are part of the response.
func (s *Syncer[P]) Pull(ctx context.Context, push PushResult) (PullResult, error) {
	var res PullResult

	deviceID, err := s.identity(ctx)
	if err != nil {
		return res, err
	}

	key := metadata.LastSyncKey(s.kind.Name)
	since, err := s.meta.GetTime(ctx, key)
	if err != nil {
		return res, fmt.Errorf("failed to read last sync time: %w", err)
	}
	since = widenWindow(since, push.Conflicts)
	res.Since = since

	// Captured before the request: anything written while the response is in
	// flight falls into the next window.
	startedAt := s.now()

	resp, err := s.transport.Pull(ctx, s.userID, deviceID, since)
	if err != nil {
		return res, fmt.Errorf("failed to pull %s: %w", s.kind.Name, err)
	}
	res.Received = len(resp.Records)

	for i := range resp.Records {
		outcome, err := s.store.Import(ctx, &resp.Records[i])
		if err != nil {
			return res, err
		}
		if outcome == records.KeptLocal {
			res.KeptLocal++
			s.logger.Debug(ctx, "kept newer local edit", "id", resp.Records[i].ID)
			continue
		}
		res.Applied++
	}

	if err := s.meta.SetTime(ctx, key, startedAt); err != nil {
		return res, fmt.Errorf("failed to store last sync time: %w", err)
	}

	s.logger.Debug(ctx, "pull finished", "received", res.Received, "applied", res.Applied, "kept_local", res.KeptLocal)
	return res, nil
}

// DeleteRemote asks the server to tombstone id directly. The tombstone comes
// back through the next pull.
func (s *Syncer[P]) DeleteRemote(ctx context.Context, id string) error {
	deviceID, err := s.identity(ctx)
	if err != nil {
		return err
	}
	if err := s.transport.Delete(ctx, s.userID, deviceID, id); err != nil {
		return fmt.Errorf("failed to delete %s %s on server: %w", s.kind.Name, id, err)
	}
	return nil
}

func widenWindow(since *time.Time, conflicts []wire.Conflict) *time.Time {
	if since == nil || len(conflicts) == 0 {
		return since
	}
	earliest := *since
	for _, c := range conflicts {
		if c.ServerUpdatedAt.IsZero() {
			continue
		}
		if before := c.ServerUpdatedAt.Add(-time.Millisecond); before.Before(earliest) {
			earliest = before
		}
	}
	return &earliest
}
