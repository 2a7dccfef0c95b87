package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// kvRow mirrors a row of the kv table. Times are unix milliseconds.
type kvRow struct {
	Key       string `db:"key"`
	Value     string `db:"value"`
	ExpiresAt int64  `db:"expires_at"`
	UpdatedAt int64  `db:"updated_at"`
}

// KVStore is a key-value table with per-row expiry. It satisfies memory.Backend.
type KVStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// KVOption customizes a KVStore.
type KVOption func(*KVStore)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) KVOption {
	return func(s *KVStore) { s.now = now }
}

// NewKVStore creates a KVStore backed by a migrated sqlx.DB.
func NewKVStore(db *sqlx.DB, logger *slog.Logger, opts ...KVOption) *KVStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &KVStore{
		db:     db,
		logger: logger.With("component", "kv_store"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks the database connection.
func (s *KVStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get returns the value stored under key unless it is absent or expired.
func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	var row kvRow
	err := s.db.GetContext(ctx, &row,
		`SELECT key, value, expires_at, updated_at FROM kv WHERE key = ? AND expires_at > ?;`,
		key, s.now().UnixMilli())
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return row.Value, true, nil
}

// Put stores value under key, replacing any previous value and expiry.
func (s *KVStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}

	now := s.now()
	row := kvRow{
		Key:       key,
		Value:     value,
		ExpiresAt: now.Add(ttl).UnixMilli(),
		UpdatedAt: now.UnixMilli(),
	}

	query := `
        INSERT INTO kv (key, value, expires_at, updated_at)
        VALUES (:key, :value, :expires_at, :updated_at)
        ON CONFLICT(key) DO UPDATE SET
            value = excluded.value,
            expires_at = excluded.expires_at,
            updated_at = excluded.updated_at;
    `
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		s.logger.ErrorContext(ctx, "Error saving key", "key", key, "error", err)
		return fmt.Errorf("failed to put key %s: %w", key, err)
	}
	return nil
}

// PurgeExpired deletes rows whose expiry has passed and returns how many were removed.
func (s *KVStore) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE expires_at <= ?;`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired keys: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not read affected rows after purge", "error", err)
		return 0, nil
	}
	s.logger.DebugContext(ctx, "Purged expired keys", "count", affected)
	return affected, nil
}

// RunSQLMaintenance reclaims free pages after purges.
func (s *KVStore) RunSQLMaintenance(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}
