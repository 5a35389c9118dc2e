package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/daybook/internal/common"
	"github.com/dmitrijs2005/daybook/internal/logging"
	"github.com/dmitrijs2005/daybook/internal/models"
	"github.com/dmitrijs2005/daybook/internal/server/services"
	"github.com/dmitrijs2005/daybook/internal/wire"
	json "github.com/goccy/go-json"
)

// SyncService is the server-side sync logic of one record kind.
type SyncService[P any] interface {
	Push(ctx context.Context, userID, deviceID string, recs []models.Record[P]) (*services.PushResult, error)
	Pull(ctx context.Context, userID string, since *time.Time) ([]models.Record[P], time.Time, error)
	Delete(ctx context.Context, userID, deviceID, id string) error
}

// Limits bound the work a single request may ask for.
type Limits struct {
	MaxBodyBytes int64
	MaxPushBatch int
}

// KindEndpoint serves POST /api/v1/sync/{kind} for one kind. A nil service
// means no store is configured and every request gets 503.
type KindEndpoint[P any] struct {
	kind   string
	svc    SyncService[P]
	limits Limits
	logger logging.Logger
}

func NewKindEndpoint[P any](kind models.Kind[P], svc SyncService[P], limits Limits, logger logging.Logger) *KindEndpoint[P] {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &KindEndpoint[P]{
		kind:   kind.Name,
		svc:    svc,
		limits: limits,
		logger: logger.With("kind", kind.Name),
	}
}

func (e *KindEndpoint[P]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if e.svc == nil {
		notConfigured(w)
		return
	}

	if e.limits.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, e.limits.MaxBodyBytes)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			tooLarge(w, mbe.Limit)
			return
		}
		badRequest(w, "failed to read body: "+err.Error())
		return
	}

	var req wire.Request[P]
	if err := json.Unmarshal(body, &req); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	if err := req.Validate(e.limits.MaxPushBatch); err != nil {
		badRequest(w, err.Error())
		return
	}

	ctx := r.Context()
	switch req.Action {
	case wire.ActionPush:
		e.push(ctx, w, &req)
	case wire.ActionPull:
		e.pull(ctx, w, &req)
	case wire.ActionDelete:
		e.delete(ctx, w, &req)
	}
}

func (e *KindEndpoint[P]) push(ctx context.Context, w http.ResponseWriter, req *wire.Request[P]) {
	res, err := e.svc.Push(ctx, req.UserID, req.DeviceID, req.Records)
	if err != nil {
		e.logger.Error(ctx, "push failed", "user_id", req.UserID, "error", err)
		internalError(w, err)
		return
	}

	e.logger.Debug(ctx, "push done", "user_id", req.UserID, "device_id", req.DeviceID,
		"received", len(req.Records), "pushed", res.Pushed, "conflicts", len(res.Conflicts))

	writeJSON(w, http.StatusOK, wire.PushResponse{Success: true, Pushed: res.Pushed, Conflicts: res.Conflicts})
}

func (e *KindEndpoint[P]) pull(ctx context.Context, w http.ResponseWriter, req *wire.Request[P]) {
	recs, syncTime, err := e.svc.Pull(ctx, req.UserID, req.LastSyncTime)
	if err != nil {
		e.logger.Error(ctx, "pull failed", "user_id", req.UserID, "error", err)
		internalError(w, err)
		return
	}
	if recs == nil {
		recs = []models.Record[P]{}
	}

	writeJSON(w, http.StatusOK, wire.PullResponse[P]{
		Success:  true,
		Records:  recs,
		Count:    len(recs),
		SyncTime: syncTime,
	})
}

func (e *KindEndpoint[P]) delete(ctx context.Context, w http.ResponseWriter, req *wire.Request[P]) {
	err := e.svc.Delete(ctx, req.UserID, req.DeviceID, req.RecordID)

	var ce *services.ConflictError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, wire.DeleteResponse{Success: true})
	case errors.As(err, &ce):
		conflict(w, ce.Conflict)
	case errors.Is(err, common.ErrNotFound):
		notFound(w, "record not found")
	default:
		e.logger.Error(ctx, "delete failed", "user_id", req.UserID, "id", req.RecordID, "error", err)
		internalError(w, err)
	}
}
