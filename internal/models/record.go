// Package models holds the record model shared by the device client and the
// sync server: the generic Record envelope, the payload types carried by it and
// the Kind descriptors that bind a payload to its storage columns.
package models

import (
	"bytes"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// SyncStatus is local bookkeeping of a record relative to the server.
// It is never transmitted.
type SyncStatus string

const (
	StatusSynced   SyncStatus = "synced"
	StatusPending  SyncStatus = "pending"
	StatusConflict SyncStatus = "conflict"
)

// Record is a single synchronized unit. The payload P carries the user-visible
// fields, everything else is envelope metadata used by the sync protocol.
type Record[P any] struct {
	ID         string
	UserID     string
	DeviceID   string
	Payload    P
	CreatedAt  time.Time
	UpdatedAt  time.Time
	IsDeleted  bool
	Checksum   string
	SyncStatus SyncStatus
	// ReceivedAt is the server time the current version was stored. Pulls
	// match it as well as UpdatedAt, so an edit made offline long ago still
	// reaches devices that pulled in between. Server side only.
	ReceivedAt time.Time
}

// envelope is the wire form of the non-payload fields.
type envelope struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	DeviceID  string    `json:"deviceId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	IsDeleted bool      `json:"isDeleted"`
	Checksum  string    `json:"checksum,omitempty"`
}

// MarshalJSON writes the envelope and the payload fields as one flat object.
func (r Record[P]) MarshalJSON() ([]byte, error) {
	env, err := json.Marshal(envelope{
		ID:        r.ID,
		UserID:    r.UserID,
		DeviceID:  r.DeviceID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		IsDeleted: r.IsDeleted,
		Checksum:  r.Checksum,
	})
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(r.Payload)
	if err != nil {
		return nil, err
	}
	payload = bytes.TrimSpace(payload)
	if len(payload) < 2 || payload[0] != '{' {
		return nil, fmt.Errorf("payload of record %s is not a JSON object", r.ID)
	}
	if bytes.Equal(payload, []byte("{}")) {
		return env, nil
	}

	out := make([]byte, 0, len(env)+len(payload))
	out = append(out, env[:len(env)-1]...)
	out = append(out, ',')
	out = append(out, payload[1:]...)
	return out, nil
}

// UnmarshalJSON reads a flat record object. Unknown fields are ignored.
func (r *Record[P]) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	var payload P
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	*r = Record[P]{
		ID:        env.ID,
		UserID:    env.UserID,
		DeviceID:  env.DeviceID,
		Payload:   payload,
		CreatedAt: env.CreatedAt,
		UpdatedAt: env.UpdatedAt,
		IsDeleted: env.IsDeleted,
		Checksum:  env.Checksum,
	}
	return nil
}

// SameContent reports whether two versions of a record carry identical data.
// The tombstone flag is part of the comparison because a soft delete leaves
// the payload, and therefore the checksum, untouched.
func SameContent[P any](a, b *Record[P]) bool {
	return a.Checksum == b.Checksum && a.IsDeleted == b.IsDeleted
}
