package client

import "errors"

var (
	// ErrUnavailable means the endpoint could not be reached.
	ErrUnavailable = errors.New("server unavailable")
	// ErrBadRequest is a 400 from the endpoint. Retrying unmodified is pointless.
	ErrBadRequest = errors.New("request rejected by server")
	// ErrSyncNotConfigured is a 503: the endpoint has no store behind it.
	ErrSyncNotConfigured = errors.New("sync unavailable")
	ErrRecordNotFound    = errors.New("record not found on server")
	// ErrRejected is a 409 on delete: the server holds a newer copy.
	ErrRejected = errors.New("rejected by newer server copy")
	ErrServer   = errors.New("server error")
)
