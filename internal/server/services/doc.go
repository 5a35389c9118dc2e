// Package services implements the server-side sync rules: per-record
// last-writer-wins merge of pushed changes, incremental pulls and tombstone
// deletes.
package services
