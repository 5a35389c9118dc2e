package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/daybook/internal/client/client"
	"github.com/dmitrijs2005/daybook/internal/logging"
	"github.com/dmitrijs2005/daybook/internal/models"
)

// ErrSyncInProgress is returned when a cycle is triggered while one runs.
var ErrSyncInProgress = errors.New("sync already in progress")

// DefaultSyncInterval is the period of the background loop.
const DefaultSyncInterval = 30 * time.Second

// KindSyncer is one record kind as driven by the engine.
type KindSyncer interface {
	Kind() string
	Push(ctx context.Context) (PushResult, error)
	Pull(ctx context.Context, push PushResult) (PullResult, error)
}

// changeTracker is implemented by syncers that can tell whether their pending
// set changed. A kind the server rejected is retried by the background loop
// only after the version moves.
type changeTracker interface {
	PendingVersion(ctx context.Context) (string, error)
}

// rejected reports errors the server will repeat for the same request.
func rejected(err error) bool {
	return errors.Is(err, client.ErrBadRequest) || errors.Is(err, client.ErrSyncNotConfigured)
}

func onlyRejected(err error) bool {
	if err == nil {
		return false
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range j.Unwrap() {
			if !rejected(e) {
				return false
			}
		}
		return true
	}
	return rejected(err)
}

// parkedKind is a kind held back after a rejection.
type parkedKind struct {
	err     error
	version string
}

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhasePushing Phase = "pushing"
	PhasePulling Phase = "pulling"
)

type SyncResult struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Kinds      []KindResult
}

// Conflicts returns the total number of push conflicts of the cycle.
func (r *SyncResult) Conflicts() int {
	n := 0
	for _, k := range r.Kinds {
		n += len(k.Push.Conflicts)
	}
	return n
}

type Status struct {
	Phase   Phase
	Syncing bool
	Kind    string
	// LastSync is the finish time of the last successful cycle.
	LastSync   *time.Time
	LastError  error
	LastResult *SyncResult
}

// SyncEngine runs sync cycles over all kinds, one cycle at a time.
type SyncEngine struct {
	syncers  []KindSyncer
	interval time.Duration
	logger   logging.Logger
	now      func() time.Time

	running atomic.Bool
	parked  map[string]parkedKind // owned by the cycle holding running

	mu     sync.RWMutex
	status Status
}

func NewSyncEngine(logger logging.Logger, interval time.Duration, syncers ...KindSyncer) *SyncEngine {
	if logger == nil {
		logger = logging.Nop{}
	}
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &SyncEngine{
		syncers:  syncers,
		interval: interval,
		logger:   logger,
		now:      models.Now,
		parked:   make(map[string]parkedKind),
		status:   Status{Phase: PhaseIdle},
	}
}

// Status returns a snapshot of the engine state.
func (e *SyncEngine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

func (e *SyncEngine) setPhase(p Phase, kind string) {
	e.mu.Lock()
	e.status.Phase = p
	e.status.Kind = kind
	e.mu.Unlock()
}

// SyncNow runs one cycle: for each kind push pending edits, then pull and
// import remote changes. A transport or local failure stops the cycle; the
// local state of the failing kind is left exactly as it was before the
// failing step. A kind the server rejects (400, 413, 503) is reported and the
// remaining kinds still run. SyncNow retries kinds held back by Run.
func (e *SyncEngine) SyncNow(ctx context.Context) (*SyncResult, error) {
	return e.sync(ctx, false)
}

func (e *SyncEngine) sync(ctx context.Context, background bool) (*SyncResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer e.running.Store(false)

	e.mu.Lock()
	e.status.Syncing = true
	e.mu.Unlock()

	result := &SyncResult{StartedAt: e.now()}
	err := e.cycle(ctx, result, background)
	result.FinishedAt = e.now()

	e.mu.Lock()
	e.status.Phase = PhaseIdle
	e.status.Kind = ""
	e.status.Syncing = false
	e.status.LastError = err
	e.status.LastResult = result
	if err == nil {
		finished := result.FinishedAt
		e.status.LastSync = &finished
	}
	e.mu.Unlock()

	return result, err
}

func (e *SyncEngine) cycle(ctx context.Context, result *SyncResult, background bool) error {
	var rejections []error

	for _, s := range e.syncers {
		kr := KindResult{Kind: s.Kind()}

		if p, ok := e.parked[s.Kind()]; ok {
			if background && !e.pendingChanged(ctx, s, p.version) {
				kr.Skipped = true
				result.Kinds = append(result.Kinds, kr)
				rejections = append(rejections, p.err)
				continue
			}
			delete(e.parked, s.Kind())
		}

		e.setPhase(PhasePushing, s.Kind())
		push, err := s.Push(ctx)
		kr.Push = push
		if err == nil {
			e.setPhase(PhasePulling, s.Kind())
			kr.Pull, err = s.Pull(ctx, push)
		}
		result.Kinds = append(result.Kinds, kr)

		switch {
		case err == nil:
		case rejected(err):
			e.park(ctx, s, err)
			rejections = append(rejections, err)
		default:
			return errors.Join(append(rejections, err)...)
		}
	}
	return errors.Join(rejections...)
}

func (e *SyncEngine) park(ctx context.Context, s KindSyncer, err error) {
	p := parkedKind{err: err}
	if t, ok := s.(changeTracker); ok {
		if v, verr := t.PendingVersion(ctx); verr == nil {
			p.version = v
		}
	}
	e.parked[s.Kind()] = p
	e.logger.Warn(ctx, "server rejected sync, waiting for local changes", "kind", s.Kind(), "error", err)
}

// pendingChanged reports whether a held back kind should be retried. Kinds
// without a tracker wait for SyncNow; an unreadable version counts as a change.
func (e *SyncEngine) pendingChanged(ctx context.Context, s KindSyncer, version string) bool {
	t, ok := s.(changeTracker)
	if !ok {
		return false
	}
	if version == "" {
		return true
	}
	v, err := t.PendingVersion(ctx)
	return err != nil || v != version
}

// Run syncs immediately and then on every tick until ctx is done. Cycle
// failures are logged and retried on the next tick, except kinds the server
// rejected: those wait until their pending records change.
func (e *SyncEngine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		e.runOnce(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (e *SyncEngine) runOnce(ctx context.Context) {
	res, err := e.sync(ctx, true)
	switch {
	case errors.Is(err, ErrSyncInProgress):
		e.logger.Debug(ctx, "sync skipped, previous cycle still running")
	case ctx.Err() != nil:
		// shutting down
	case onlyRejected(err):
		e.logger.Debug(ctx, "sync finished, rejected kinds held back", "error", err)
	case err != nil:
		e.logger.Error(ctx, "sync failed", "error", err)
	case res.Conflicts() > 0:
		e.logger.Warn(ctx, "sync finished with conflicts", "conflicts", res.Conflicts())
	default:
		e.logger.Debug(ctx, "sync finished")
	}
}
