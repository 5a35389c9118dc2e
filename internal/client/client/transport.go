package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/daybook/internal/models"
	"github.com/dmitrijs2005/daybook/internal/wire"
)

// Transport is the sync endpoint of one record kind as seen by a device.
type Transport[P any] interface {
	Push(ctx context.Context, userID, deviceID string, recs []*models.Record[P]) (*wire.PushResponse, error)
	Pull(ctx context.Context, userID, deviceID string, since *time.Time) (*wire.PullResponse[P], error)
	Delete(ctx context.Context, userID, deviceID, id string) error
}

// KindTransport implements Transport over an HTTPClient.
type KindTransport[P any] struct {
	c    *HTTPClient
	kind string
}

func NewTransport[P any](c *HTTPClient, kind models.Kind[P]) *KindTransport[P] {
	return &KindTransport[P]{c: c, kind: kind.Name}
}

func (t *KindTransport[P]) Push(ctx context.Context, userID, deviceID string, recs []*models.Record[P]) (*wire.PushResponse, error) {
	req := wire.Request[P]{Action: wire.ActionPush, UserID: userID, DeviceID: deviceID}
	req.Records = make([]models.Record[P], len(recs))
	for i, r := range recs {
		req.Records[i] = *r
	}

	var resp wire.PushResponse
	if err := t.c.post(ctx, t.kind, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (t *KindTransport[P]) Pull(ctx context.Context, userID, deviceID string, since *time.Time) (*wire.PullResponse[P], error) {
	req := wire.Request[P]{Action: wire.ActionPull, UserID: userID, DeviceID: deviceID, LastSyncTime: since}

	var resp wire.PullResponse[P]
	if err := t.c.post(ctx, t.kind, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (t *KindTransport[P]) Delete(ctx context.Context, userID, deviceID, id string) error {
	req := wire.Request[P]{Action: wire.ActionDelete, UserID: userID, DeviceID: deviceID, RecordID: id}

	var resp wire.DeleteResponse
	return t.c.post(ctx, t.kind, req, &resp)
}
