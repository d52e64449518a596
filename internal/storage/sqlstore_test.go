package storage_test

import (
	"testing"
	"time"

	"github.com/fedauth/aselect/internal/assert"
	"github.com/fedauth/aselect/internal/o11y/logging"
	"github.com/fedauth/aselect/internal/storage"
)

func newSQLStore(t *testing.T) *storage.SQLStore {
	t.Helper()

	s, err := storage.NewSQL(storage.SQLConfig{
		DSN:    ":memory:",
		Logger: logging.Noop(),
	})
	assert.Err(t, err, nil)

	err = s.Migrate(t.Context())
	assert.Err(t, err, nil)

	t.Cleanup(func() {
		if err := s.Destroy(); err != nil {
			t.Error(err)
		}
	})
	return s
}

func TestSQLPutGetRoundTrip(t *testing.T) {
	s := newSQLStore(t)
	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	err := s.Put(t.Context(), "tgt-1", []byte{0x00, 0xff, 0x10}, ts, storage.InsertFirst)
	assert.Err(t, err, nil)

	got, err := s.Get(t.Context(), "tgt-1")
	assert.Err(t, err, nil)
	assert.Equal(t, got, []byte{0x00, 0xff, 0x10})

	gotTS, err := s.GetTimestamp(t.Context(), "tgt-1")
	assert.Err(t, err, nil)
	assert.Equal(t, gotTS.UnixNano(), ts.UnixNano())
}

func TestSQLAbsence(t *testing.T) {
	s := newSQLStore(t)

	_, err := s.Get(t.Context(), "missing")
	assert.Err(t, err, storage.ErrNoSuchKey)

	err = s.Put(t.Context(), "empty", nil, time.Now(), storage.InsertFirst)
	assert.Err(t, err, nil)

	got, err := s.Get(t.Context(), "empty")
	assert.Err(t, err, nil)
	assert.Equal(t, len(got), 0)
}

func TestSQLInsertOnly(t *testing.T) {
	s := newSQLStore(t)

	err := s.Put(t.Context(), "k", []byte("a"), time.Now(), storage.InsertOnly)
	assert.Err(t, err, nil)

	err = s.Put(t.Context(), "k", []byte("b"), time.Now(), storage.InsertOnly)
	assert.Err(t, err, storage.ErrDuplicateKey)

	got, err := s.Get(t.Context(), "k")
	assert.Err(t, err, nil)
	assert.Equal(t, got, []byte("a"))
}

func TestSQLUpsertUpdatesPair(t *testing.T) {
	s := newSQLStore(t)

	t1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	_ = s.Put(t.Context(), "k", []byte("old"), t1, storage.InsertFirst)
	err := s.Put(t.Context(), "k", []byte("new"), t2, storage.UpdateFirst)
	assert.Err(t, err, nil)

	got, err := s.Get(t.Context(), "k")
	assert.Err(t, err, nil)
	assert.Equal(t, got, []byte("new"))

	gotTS, err := s.GetTimestamp(t.Context(), "k")
	assert.Err(t, err, nil)
	assert.Equal(t, gotTS.UnixNano(), t2.UnixNano())

	count, err := s.Count(t.Context())
	assert.Err(t, err, nil)
	assert.Equal(t, count, 1)
}

func TestSQLCleanup(t *testing.T) {
	s := newSQLStore(t)
	cutoff := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_ = s.Put(t.Context(), "older", []byte("x"), cutoff.Add(-time.Hour), storage.InsertFirst)
	_ = s.Put(t.Context(), "exact", []byte("x"), cutoff, storage.InsertFirst)
	_ = s.Put(t.Context(), "newer", []byte("x"), cutoff.Add(time.Hour), storage.InsertFirst)

	sweep, err := s.Cleanup(t.Context(), cutoff)
	assert.Err(t, err, nil)
	assert.Equal(t, sweep.Scanned, 3)
	assert.Equal(t, sweep.Removed, 2)
	assert.Equal(t, sweep.Remaining, 1)

	_, err = s.Get(t.Context(), "older")
	assert.Err(t, err, storage.ErrNoSuchKey)
	_, err = s.Get(t.Context(), "newer")
	assert.Err(t, err, nil)
}

func TestSQLRemove(t *testing.T) {
	s := newSQLStore(t)

	err := s.Remove(t.Context(), "ghost")
	assert.Err(t, err, storage.ErrNoSuchKey)

	_ = s.Put(t.Context(), "k", []byte("v"), time.Now(), storage.InsertFirst)
	assert.True(t, s.ContainsKey(t.Context(), "k"))

	err = s.Remove(t.Context(), "k")
	assert.Err(t, err, nil)
	assert.False(t, s.ContainsKey(t.Context(), "k"))
}
