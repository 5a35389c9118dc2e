// Package client contains the device-side building blocks that talk to the
// outside world: the HTTP transport to the sync endpoint and the bootstrap of
// the local SQLite database.
//
// # Overview
//
// HTTPClient posts JSON requests to /api/v1/sync/{kind} and maps HTTP
// outcomes to sentinel errors. Transport narrows it to one record kind so the
// sync services can stay generic over the payload type. InitDatabase opens the
// device database and applies the embedded goose migrations.
//
// # Error Handling
//
// Conditions callers act upon are exposed as sentinel errors matched with
// errors.Is: ErrUnavailable, ErrBadRequest, ErrSyncNotConfigured,
// ErrRecordNotFound and ErrRejected.
package client
