// Package wire defines the JSON messages exchanged between devices and the
// sync endpoint.
package wire

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/daybook/internal/models"
	"github.com/gookit/validate"
)

const (
	ActionPush   = "push"
	ActionPull   = "pull"
	ActionDelete = "delete"
)

// PathPrefix is the route prefix of the per-kind sync endpoints.
const PathPrefix = "/api/v1/sync/"

// Request is the body posted to the sync endpoint of kind P.
type Request[P any] struct {
	Action       string             `json:"action" validate:"required|in:push,pull,delete"`
	UserID       string             `json:"userId" validate:"required"`
	DeviceID     string             `json:"deviceId" validate:"required"`
	Records      []models.Record[P] `json:"records,omitempty"`
	LastSyncTime *time.Time         `json:"lastSyncTime,omitempty"`
	RecordID     string             `json:"recordId,omitempty"`
}

// ErrInvalidRequest wraps every validation failure.
var ErrInvalidRequest = errors.New("invalid request")

// Validate checks the request shape. maxRecords <= 0 disables the batch cap.
func (r *Request[P]) Validate(maxRecords int) error {
	v := validate.Struct(r)
	if !v.Validate() {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, v.Errors.One())
	}

	switch r.Action {
	case ActionPush:
		if len(r.Records) == 0 {
			return fmt.Errorf("%w: records are required for push", ErrInvalidRequest)
		}
		if maxRecords > 0 && len(r.Records) > maxRecords {
			return fmt.Errorf("%w: at most %d records per push, got %d", ErrInvalidRequest, maxRecords, len(r.Records))
		}
		for i := range r.Records {
			if r.Records[i].ID == "" {
				return fmt.Errorf("%w: records[%d].id is required", ErrInvalidRequest, i)
			}
			if r.Records[i].UpdatedAt.IsZero() {
				return fmt.Errorf("%w: records[%d].updatedAt is required", ErrInvalidRequest, i)
			}
		}
	case ActionDelete:
		if r.RecordID == "" {
			return fmt.Errorf("%w: recordId is required for delete", ErrInvalidRequest)
		}
	}
	return nil
}

// Conflict reports a pushed record the server did not accept because its own
// copy is at least as recent. ServerUpdatedAt is zero when the id belongs to
// another user; the client keeps such a record in conflict.
type Conflict struct {
	ID              string    `json:"id"`
	ServerUpdatedAt time.Time `json:"serverUpdatedAt"`
	LocalUpdatedAt  time.Time `json:"localUpdatedAt"`
}

type PushResponse struct {
	Success   bool       `json:"success"`
	Pushed    int        `json:"pushed"`
	Conflicts []Conflict `json:"conflicts"`
}

type PullResponse[P any] struct {
	Success  bool               `json:"success"`
	Records  []models.Record[P] `json:"records"`
	Count    int                `json:"count"`
	SyncTime time.Time          `json:"syncTime"`
}

type DeleteResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse carries any non-200 outcome.
type ErrorResponse struct {
	Error    string    `json:"error"`
	Message  string    `json:"message,omitempty"`
	Details  string    `json:"details,omitempty"`
	Conflict *Conflict `json:"conflict,omitempty"`
}
