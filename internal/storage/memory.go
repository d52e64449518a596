package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fedauth/aselect/internal/o11y/logging"
)

// Memory is the concurrent in-process backend. Each record is stored behind
// one pointer so the (timestamp, value) pair is never observed half-written.
type Memory struct {
	data   sync.Map // string -> *Record
	count  atomic.Int64
	sensor Sensor
	logger *logging.Logger
}

var _ Handler = (*Memory)(nil)

type MemoryOption func(*Memory)

func WithSensor(s Sensor) MemoryOption {
	return func(m *Memory) { m.sensor = s }
}

func NewMemory(logger *logging.Logger, opts ...MemoryOption) *Memory {
	m := &Memory{logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) load(key string) (*Record, bool) {
	v, ok := m.data.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*Record), true
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	rec, ok := m.load(key)
	if !ok {
		return nil, ErrNoSuchKey
	}
	return rec.Value, nil
}

func (m *Memory) GetTimestamp(_ context.Context, key string) (time.Time, error) {
	rec, ok := m.load(key)
	if !ok {
		return time.Time{}, ErrNoSuchKey
	}
	return rec.Timestamp, nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	return int(m.count.Load()), nil
}

func (m *Memory) GetAll(_ context.Context) (map[string][]byte, error) {
	snapshot := make(map[string][]byte)
	m.data.Range(func(k, v any) bool {
		snapshot[k.(string)] = v.(*Record).Value
		return true
	})
	return snapshot, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte, ts time.Time, mode PutMode) error {
	rec := &Record{Timestamp: ts, Value: value}

	if mode == InsertOnly {
		// LoadOrStore is the atomic check-and-insert unit.
		if _, loaded := m.data.LoadOrStore(key, rec); loaded {
			return ErrDuplicateKey
		}
		m.count.Add(1)
		return nil
	}

	if _, loaded := m.data.Swap(key, rec); !loaded {
		m.count.Add(1)
	}
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	if _, loaded := m.data.LoadAndDelete(key); !loaded {
		return ErrNoSuchKey
	}
	m.count.Add(-1)
	return nil
}

func (m *Memory) RemoveAll(_ context.Context) error {
	m.data.Range(func(k, _ any) bool {
		if _, loaded := m.data.LoadAndDelete(k); loaded {
			m.count.Add(-1)
		}
		return true
	})
	return nil
}

func (m *Memory) Cleanup(_ context.Context, cutoff time.Time) (Sweep, error) {
	var sweep Sweep
	now := time.Now()

	m.data.Range(func(k, v any) bool {
		sweep.Scanned++

		rec := v.(*Record)
		if rec.Timestamp.After(cutoff) {
			return true
		}

		m.observeExpired(rec, now)

		// Only remove the exact record observed; a concurrent refresh of
		// the same key swaps the pointer and survives the sweep.
		if m.data.CompareAndDelete(k, v) {
			m.count.Add(-1)
			sweep.Removed++
		}
		return true
	})

	sweep.Remaining = sweep.Scanned - sweep.Removed
	m.logger.Info("expiration sweep finished",
		"scanned", sweep.Scanned,
		"removed", sweep.Removed,
		"remaining", sweep.Remaining,
	)
	return sweep, nil
}

func (m *Memory) observeExpired(rec *Record, now time.Time) {
	if m.sensor == nil {
		return
	}
	m.sensor.OnExpired(rec.Value, now.Sub(rec.Timestamp))
}

func (m *Memory) IsMaximum(ctx context.Context, limit int) bool {
	count, _ := m.Count(ctx)
	return count >= limit
}

func (m *Memory) ContainsKey(_ context.Context, key string) bool {
	_, ok := m.data.Load(key)
	return ok
}

func (m *Memory) Destroy() error {
	return m.RemoveAll(context.Background())
}
