package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// PostgresStore keeps values in a single kv_store table
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects, retrying while the database comes up, and
// creates the kv_store table
func NewPostgresStore(ctx context.Context, databaseURL string, logger *zap.Logger) (*PostgresStore, error) {
	const maxRetries = 10
	const retryInterval = 2 * time.Second

	var (
		db  *sqlx.DB
		err error
	)
	for attempt := 1; attempt <= maxRetries; attempt++ {
		db, err = sqlx.ConnectContext(ctx, "postgres", databaseURL)
		if err == nil {
			break
		}
		logger.Warn("Failed to connect to database, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", retryInterval),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to database after %d attempts: %w", maxRetries, err)
	}

	if _, err := db.ExecContext(ctx, kvSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv_store table: %w", err)
	}

	logger.Info("Connected to database")
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an open connection. The kv_store table must
// already exist.
func NewPostgresStoreFromDB(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetJSON implements Store
func (p *PostgresStore) GetJSON(ctx context.Context, key string, v interface{}) error {
	var raw []byte
	err := p.db.GetContext(ctx, &raw, `SELECT value FROM kv_store WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return json.Unmarshal(raw, v)
}

// SetJSON implements Store
func (p *PostgresStore) SetJSON(ctx context.Context, key string, v interface{}) error {
	if err := validKey(key); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	query := `
	INSERT INTO kv_store (key, value, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (key) DO UPDATE
	SET value = EXCLUDED.value,
	updated_at = now();
	`
	if _, err := p.db.ExecContext(ctx, query, key, raw); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete implements Store
func (p *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// List implements Store
func (p *PostgresStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	err := p.db.SelectContext(ctx, &keys,
		`SELECT key FROM kv_store WHERE key LIKE $1 ESCAPE '\' ORDER BY key`,
		likeEscape(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list keys with prefix %s: %w", prefix, err)
	}
	return keys, nil
}

// Close implements Store
func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
