package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
)

// ConfigRepository reads and writes rows of the vault's config table.
type ConfigRepository interface {
	// Get returns the value stored under key, or common.ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set inserts or overwrites key.
	Set(ctx context.Context, key, value string) error
	// Exists reports whether a row for key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

type SQLiteConfigRepository struct {
	db dbx.DBTX
}

// NewConfigRepository returns a repository over the config table of db.
func NewConfigRepository(db dbx.DBTX) *SQLiteConfigRepository {
	return &SQLiteConfigRepository{db: db}
}

func (r *SQLiteConfigRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get config[%s]: %w: %w", key, common.ErrStoreUnavailable, err)
	}
	return value, nil
}

func (r *SQLiteConfigRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set config[%s]: %w: %w", key, common.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *SQLiteConfigRepository) Exists(ctx context.Context, key string) (bool, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM config WHERE key = ?`, key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check config[%s]: %w: %w", key, common.ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

func (r *SQLiteConfigRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM config WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete config[%s]: %w: %w", key, common.ErrStoreUnavailable, err)
	}
	return nil
}
