package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// ChecksumLength is the number of hex characters kept from the digest.
const ChecksumLength = 16

// Checksum returns a short digest of the payload fields. Timestamps and sync
// metadata live outside the payload and never influence the result.
func Checksum[P any](p P) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:ChecksumLength], nil
}

// Now returns the current UTC time truncated to the millisecond precision
// records are stored with.
func Now() time.Time {
	return Truncate(time.Now())
}

// Truncate normalizes t to UTC milliseconds.
func Truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// NextUpdatedAt returns a modification timestamp that is never earlier than
// now and strictly later than prev.
func NextUpdatedAt(prev, now time.Time) time.Time {
	now = Truncate(now)
	if prev.IsZero() {
		return now
	}
	if floor := Truncate(prev).Add(time.Millisecond); now.Before(floor) {
		return floor
	}
	return now
}
