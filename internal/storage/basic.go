package storage

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/fedauth/aselect/internal/o11y/logging"
)

// Basic is the legacy single-lock backend: one RWMutex around a plain map.
// Simpler than Memory and strictly serialized; kept for deployments that
// predate the concurrent backend.
type Basic struct {
	mu        sync.RWMutex
	data      map[string]Record
	destroyed bool

	sensor Sensor
	logger *logging.Logger
}

var _ Handler = (*Basic)(nil)

type BasicOption func(*Basic)

func WithBasicSensor(s Sensor) BasicOption {
	return func(b *Basic) { b.sensor = s }
}

func NewBasic(logger *logging.Logger, sizeHint int, opts ...BasicOption) *Basic {
	if sizeHint <= 0 {
		sizeHint = 64
	}

	b := &Basic{
		data:   make(map[string]Record, sizeHint),
		logger: logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Basic) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed {
		return nil, ErrDestroyed
	}

	rec, ok := b.data[key]
	if !ok {
		return nil, ErrNoSuchKey
	}
	return rec.Value, nil
}

func (b *Basic) GetTimestamp(_ context.Context, key string) (time.Time, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.data[key]
	if !ok {
		return time.Time{}, ErrNoSuchKey
	}
	return rec.Timestamp, nil
}

func (b *Basic) Count(_ context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data), nil
}

func (b *Basic) GetAll(_ context.Context) (map[string][]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snapshot := make(map[string][]byte, len(b.data))
	for k, rec := range b.data {
		snapshot[k] = rec.Value
	}
	return snapshot, nil
}

func (b *Basic) Put(_ context.Context, key string, value []byte, ts time.Time, mode PutMode) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return ErrInsertFailed
	}

	// The whole-store lock makes check-then-insert atomic here.
	if mode == InsertOnly {
		if _, exists := b.data[key]; exists {
			return ErrDuplicateKey
		}
	}

	b.data[key] = Record{Timestamp: ts, Value: value}
	return nil
}

func (b *Basic) Remove(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.data[key]; !ok {
		return ErrNoSuchKey
	}
	delete(b.data, key)
	return nil
}

func (b *Basic) RemoveAll(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	clear(b.data)
	return nil
}

func (b *Basic) Cleanup(_ context.Context, cutoff time.Time) (Sweep, error) {
	now := time.Now()

	b.mu.Lock()
	var sweep Sweep
	sweep.Scanned = len(b.data)

	expired := make(map[string]Record)
	for k, rec := range b.data {
		if !rec.Timestamp.After(cutoff) {
			expired[k] = rec
			delete(b.data, k)
			sweep.Removed++
		}
	}
	sweep.Remaining = sweep.Scanned - sweep.Removed
	b.mu.Unlock()

	// Sensor runs outside the lock; it must never stall writers.
	if b.sensor != nil {
		for rec := range maps.Values(expired) {
			b.sensor.OnExpired(rec.Value, now.Sub(rec.Timestamp))
		}
	}

	b.logger.Info("expiration sweep finished",
		"scanned", sweep.Scanned,
		"removed", sweep.Removed,
		"remaining", sweep.Remaining,
	)
	return sweep, nil
}

func (b *Basic) IsMaximum(ctx context.Context, limit int) bool {
	count, _ := b.Count(ctx)
	return count >= limit
}

func (b *Basic) ContainsKey(_ context.Context, key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.data[key]
	return ok
}

func (b *Basic) Destroy() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = nil
	b.destroyed = true
	return nil
}
