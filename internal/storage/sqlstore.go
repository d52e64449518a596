package storage

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fedauth/aselect/internal/o11y/logging"
)

// SQLConfig selects the driver, connection and table layout of the SQL
// backend. Column names are configurable so an existing schema can be
// pointed at directly.
type SQLConfig struct {
	Driver    string
	DSN       string
	Table     string
	KeyColumn string // integer column holding the key hash
	TSColumn  string // integer column holding unix-nano timestamps
	ValColumn string // text column holding the base64 payload

	Logger *logging.Logger
	Sensor Sensor
}

func (c *SQLConfig) defaults() {
	if c.Driver == "" {
		c.Driver = "sqlite3"
	}
	if c.Table == "" {
		c.Table = "records"
	}
	if c.KeyColumn == "" {
		c.KeyColumn = "key_hash"
	}
	if c.TSColumn == "" {
		c.TSColumn = "ts"
	}
	if c.ValColumn == "" {
		c.ValColumn = "payload"
	}
}

// SQLStore persists records in a single three-column table.
//
// The lookup column holds a 64-bit FNV-1a hash of the key, not the key
// itself: two distinct keys that hash-collide alias the same row and will
// overwrite each other. This mirrors the historical schema and is kept
// deliberately; see DESIGN.md before changing it.
type SQLStore struct {
	db     *sql.DB
	cfg    SQLConfig
	logger *logging.Logger
	sensor Sensor
}

var _ Handler = (*SQLStore)(nil)

func NewSQL(cfg SQLConfig) (*SQLStore, error) {
	cfg.defaults()
	if cfg.Logger == nil {
		cfg.Logger = logging.Noop()
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.Ping(); err != nil {
		cfg.Logger.Warn("failed to ping database on startup", "error", err.Error())
	}

	return &SQLStore{db: db, cfg: cfg, logger: cfg.Logger, sensor: cfg.Sensor}, nil
}

func (s *SQLStore) Migrate(ctx context.Context) error {
	schema := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			%s INTEGER PRIMARY KEY,
			%s INTEGER NOT NULL,
			%s TEXT NOT NULL
		)`,
		s.cfg.Table, s.cfg.KeyColumn, s.cfg.TSColumn, s.cfg.ValColumn,
	)

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.logger.Info("storage schema applied", "table", s.cfg.Table)
	return nil
}

func hashKey(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64())
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		s.cfg.ValColumn, s.cfg.Table, s.cfg.KeyColumn)

	var encoded string
	err := s.db.QueryRowContext(ctx, q, hashKey(key)).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSuchKey
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieveFailed, err)
	}

	value, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt payload: %v", ErrRetrieveFailed, err)
	}
	return value, nil
}

func (s *SQLStore) GetTimestamp(ctx context.Context, key string) (time.Time, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		s.cfg.TSColumn, s.cfg.Table, s.cfg.KeyColumn)

	var nanos int64
	err := s.db.QueryRowContext(ctx, q, hashKey(key)).Scan(&nanos)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNoSuchKey
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrRetrieveFailed, err)
	}
	return time.Unix(0, nanos), nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.cfg.Table)

	var count int
	if err := s.db.QueryRowContext(ctx, q).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRetrieveFailed, err)
	}
	return count, nil
}

func (s *SQLStore) GetAll(ctx context.Context) (map[string][]byte, error) {
	// Keys are stored hashed; the snapshot is addressed by the decimal
	// rendering of the hash.
	q := fmt.Sprintf("SELECT %s, %s FROM %s",
		s.cfg.KeyColumn, s.cfg.ValColumn, s.cfg.Table)

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieveFailed, err)
	}
	defer rows.Close()

	snapshot := make(map[string][]byte)
	for rows.Next() {
		var hash int64
		var encoded string
		if err := rows.Scan(&hash, &encoded); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRetrieveFailed, err)
		}
		value, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: corrupt payload: %v", ErrRetrieveFailed, err)
		}
		snapshot[fmt.Sprintf("%d", hash)] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieveFailed, err)
	}
	return snapshot, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte, ts time.Time, mode PutMode) error {
	hash := hashKey(key)
	encoded := base64.StdEncoding.EncodeToString(value)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}
	defer tx.Rollback()

	existsQ := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?",
		s.cfg.Table, s.cfg.KeyColumn)

	var one int
	err = tx.QueryRowContext(ctx, existsQ, hash).Scan(&one)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}

	switch {
	case exists && mode == InsertOnly:
		return ErrDuplicateKey
	case exists:
		q := fmt.Sprintf("UPDATE %s SET %s = ?, %s = ? WHERE %s = ?",
			s.cfg.Table, s.cfg.TSColumn, s.cfg.ValColumn, s.cfg.KeyColumn)
		if _, err := tx.ExecContext(ctx, q, ts.UnixNano(), encoded, hash); err != nil {
			return fmt.Errorf("%w: %v", ErrInsertFailed, err)
		}
	default:
		q := fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES (?, ?, ?)",
			s.cfg.Table, s.cfg.KeyColumn, s.cfg.TSColumn, s.cfg.ValColumn)
		if _, err := tx.ExecContext(ctx, q, hash, ts.UnixNano(), encoded); err != nil {
			return fmt.Errorf("%w: %v", ErrInsertFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, key string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = ?",
		s.cfg.Table, s.cfg.KeyColumn)

	res, err := s.db.ExecContext(ctx, q, hashKey(key))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoveFailed, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNoSuchKey
	}
	return nil
}

func (s *SQLStore) RemoveAll(ctx context.Context) error {
	q := fmt.Sprintf("DELETE FROM %s", s.cfg.Table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("%w: %v", ErrRemoveFailed, err)
	}
	return nil
}

func (s *SQLStore) Cleanup(ctx context.Context, cutoff time.Time) (Sweep, error) {
	var sweep Sweep

	total, err := s.Count(ctx)
	if err != nil {
		return sweep, err
	}
	sweep.Scanned = total

	if s.sensor != nil {
		s.observeExpired(ctx, cutoff)
	}

	q := fmt.Sprintf("DELETE FROM %s WHERE %s <= ?",
		s.cfg.Table, s.cfg.TSColumn)
	res, err := s.db.ExecContext(ctx, q, cutoff.UnixNano())
	if err != nil {
		return sweep, fmt.Errorf("%w: %v", ErrRemoveFailed, err)
	}

	if n, err := res.RowsAffected(); err == nil {
		sweep.Removed = int(n)
	}
	sweep.Remaining = sweep.Scanned - sweep.Removed

	s.logger.Info("expiration sweep finished",
		"scanned", sweep.Scanned,
		"removed", sweep.Removed,
		"remaining", sweep.Remaining,
	)
	return sweep, nil
}

func (s *SQLStore) observeExpired(ctx context.Context, cutoff time.Time) {
	q := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s <= ?",
		s.cfg.TSColumn, s.cfg.ValColumn, s.cfg.Table, s.cfg.TSColumn)

	rows, err := s.db.QueryContext(ctx, q, cutoff.UnixNano())
	if err != nil {
		s.logger.Warn("sweep sensor query failed", "error", err.Error())
		return
	}
	defer rows.Close()

	now := time.Now()
	for rows.Next() {
		var nanos int64
		var encoded string
		if err := rows.Scan(&nanos, &encoded); err != nil {
			continue
		}
		value, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			continue
		}
		s.sensor.OnExpired(value, now.Sub(time.Unix(0, nanos)))
	}
}

func (s *SQLStore) IsMaximum(ctx context.Context, limit int) bool {
	count, err := s.Count(ctx)
	if err != nil {
		s.logger.Warn("capacity check failed", "error", err.Error())
		return false
	}
	return count >= limit
}

func (s *SQLStore) ContainsKey(ctx context.Context, key string) bool {
	_, err := s.GetTimestamp(ctx, key)
	return err == nil
}

func (s *SQLStore) Destroy() error {
	return s.db.Close()
}
