// Package counter holds the counter record and the stores that persist it.
package counter

import (
	"context"
	"errors"
	"time"
)

const (
	// RecordID is the key of the only record the service touches.
	RecordID = "password_counter"

	DefaultTableName = "password-generator-counter"
)

// TimeLayout is how LastUpdated is rendered.
const TimeLayout = time.RFC3339Nano

var ErrNotFound = errors.New("counter: record not found")

type Record struct {
	ID          string
	Count       int64
	LastUpdated string
}

// NewRecord stamps count with now in UTC.
func NewRecord(count int64, now time.Time) *Record {
	return &Record{
		ID:          RecordID,
		Count:       count,
		LastUpdated: now.UTC().Format(TimeLayout),
	}
}

// Store persists records by id. Put replaces the whole record; there is no
// compare-and-swap, the last writer wins.
type Store interface {
	// Get returns ErrNotFound when no record exists for id.
	Get(ctx context.Context, id string) (*Record, error)
	Put(ctx context.Context, rec *Record) error
	Close() error
}
