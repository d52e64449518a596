package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNoSuchKey          = errors.New("no record under key")
	ErrDuplicateKey       = errors.New("record already exists under key")
	ErrInsertFailed       = errors.New("failed to insert record")
	ErrRetrieveFailed     = errors.New("failed to retrieve record")
	ErrRemoveFailed       = errors.New("failed to remove record")
	ErrMaxCapacityReached = errors.New("storage capacity reached")
	ErrDestroyed          = errors.New("storage handler destroyed")
)

// PutMode selects the insert-or-update policy of Put.
type PutMode int

const (
	// InsertFirst and UpdateFirst are both upserts; the names record which
	// side the handler is expected to try first.
	InsertFirst PutMode = iota
	UpdateFirst
	// InsertOnly fails with ErrDuplicateKey when the key is already present.
	// The existence check and the insert form one atomic unit per key.
	InsertOnly
)

// Record is the persisted unit. Timestamp and Value always change together;
// the expiration sweep only ever reads the timestamp.
type Record struct {
	Timestamp time.Time
	Value     []byte
}

// Sweep reports the bookkeeping of one expiration pass.
// Removed + Remaining == Scanned.
type Sweep struct {
	Scanned   int
	Removed   int
	Remaining int
}

// Sensor observes records as the expiration sweep evicts them. It must not
// block; a failing sensor never fails the sweep.
type Sensor interface {
	OnExpired(value []byte, age time.Duration)
}

// Handler is the store contract shared by every backend. A nil or empty
// value under a key is a present record; absence is ErrNoSuchKey.
type Handler interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetTimestamp(ctx context.Context, key string) (time.Time, error)
	Count(ctx context.Context) (int, error)

	// GetAll returns a point-in-time snapshot, never a live view.
	GetAll(ctx context.Context) (map[string][]byte, error)

	Put(ctx context.Context, key string, value []byte, ts time.Time, mode PutMode) error
	Remove(ctx context.Context, key string) error
	RemoveAll(ctx context.Context) error

	// Cleanup removes every record whose timestamp is at or before cutoff.
	// Best effort per record; concurrent traffic on other keys is unaffected.
	Cleanup(ctx context.Context, cutoff time.Time) (Sweep, error)

	// IsMaximum reports count >= limit. The check is a soft bound: two
	// writers may both pass it and transiently overshoot the limit.
	IsMaximum(ctx context.Context, limit int) bool

	ContainsKey(ctx context.Context, key string) bool

	// Destroy releases all resources. The handler must not be used after.
	Destroy() error
}
