package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/crmvault/internal/domain/model"
)

// ErrStoreUnavailable is returned when the backing store cannot be opened or
// fails mid-operation (quota, locked, disabled, timed out). Callers treat it
// as "nothing remembered".
var ErrStoreUnavailable = errors.New("credential store unavailable")

// ErrRecordCorrupt is returned by Get when the stored entry exists but cannot
// be decoded into a StoredRecord of a known version.
var ErrRecordCorrupt = errors.New("stored credential record is corrupt")

// RecordStore defines the driven port for the singleton remembered-credential
// record. Implementations hold at most one record and never merge writes.
type RecordStore interface {
	// Ping acquires and releases a store handle. Used as the storage
	// capability probe.
	Ping(ctx context.Context) error

	// Put replaces the stored record. Last write wins.
	Put(ctx context.Context, record model.StoredRecord) error

	// Get returns the stored record, or (nil, nil) if none exists.
	Get(ctx context.Context) (*model.StoredRecord, error)

	// Delete removes the stored record. Deleting an absent record is not an error.
	Delete(ctx context.Context) error
}
