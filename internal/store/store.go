// Package store is the encrypted vault store: one SQLCipher database file per
// vault, encrypted page by page with the raw key derived from the master
// password. Without the key the file is indistinguishable from random bytes.
//
// The store never persists the key. On first open it also writes a key-check
// value, an AES-GCM sealed constant, into the config table; every later open
// must be able to unseal it. A key that cannot, or a file the driver cannot
// decrypt, fails with *OpenError. The two causes are indistinguishable from
// here and OpenError does not pretend otherwise.
package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/filex"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/store/migrations"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	_ "github.com/mutecomm/go-sqlcipher/v4"
)

// DriverName is the database/sql driver the vault files are opened with.
const DriverName = "sqlite3"

// CipherPageSize is the SQLCipher page size of vault files. Vault files are
// always a whole number of pages long.
const CipherPageSize = 4096

// keyCheckPlaintext is sealed with the vault key and stored under
// common.KeyCheckKey.
const keyCheckPlaintext = "gophvault-key-check-v1"

// OpenError reports that a vault could not be opened with the given key.
// Err is the underlying cause: a decryption failure or a driver error.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open vault %s: wrong password or corrupt file: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, common.ErrOpenFailed) match any OpenError.
func (e *OpenError) Is(target error) bool { return target == common.ErrOpenFailed }

// Store is an open vault handle.
type Store struct {
	db      *sql.DB
	path    string
	vaultID string
	logger  logging.Logger
}

// Open opens the vault file at path with key, creating the file, its parent
// directory and the schema if needed.
//
// Filesystem and driver faults are wrapped with common.ErrStoreUnavailable;
// a wrong key or an unreadable file yields *OpenError.
func Open(ctx context.Context, path string, key []byte, logger logging.Logger) (*Store, error) {
	if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}

	db, err := sql.Open(DriverName, dsn(path, key))
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", common.ErrStoreUnavailable, err)
	}
	// One connection: SQLite serializes writers anyway, and the vault is a
	// single shared handle.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, logger: logger.With("component", "store", "path", path)}
	if err := s.init(ctx, key); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.logger = s.logger.With("vault_id", s.vaultID)
	s.logger.Info(ctx, "vault opened")
	return s, nil
}

// dsn hands key to SQLCipher as a raw 256-bit key, skipping its own
// passphrase derivation.
func dsn(path string, key []byte) string {
	return fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=%d", path, hex.EncodeToString(key), CipherPageSize)
}

func (s *Store) init(ctx context.Context, key []byte) error {
	// The first real read is where SQLCipher notices a wrong key or a file
	// that is not a database at all.
	if _, err := s.db.ExecContext(ctx, `SELECT COUNT(*) FROM sqlite_master`); err != nil {
		return &OpenError{Path: s.path, Err: err}
	}

	if err := RunMigrations(ctx, s.db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return s.checkKey(ctx, key)
}

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

func (s *Store) checkKey(ctx context.Context, key []byte) error {
	repo := s.Config()

	sealed, err := repo.Get(ctx, common.KeyCheckKey)
	if errors.Is(err, common.ErrNotFound) {
		initialized, err := s.isInitialized(ctx)
		if err != nil {
			return err
		}
		if initialized {
			return &OpenError{Path: s.path, Err: fmt.Errorf("%w: key check missing", common.ErrCorruptConfiguration)}
		}
		return s.initKeyCheck(ctx, key)
	}
	if err != nil {
		return err
	}

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < 12 {
		return &OpenError{Path: s.path, Err: fmt.Errorf("%w: malformed key check", common.ErrCorruptConfiguration)}
	}

	var plaintext string
	if err := cryptox.DecryptEntry(raw[12:], raw[:12], key, &plaintext); err != nil {
		return &OpenError{Path: s.path, Err: err}
	}
	if plaintext != keyCheckPlaintext {
		return &OpenError{Path: s.path, Err: fmt.Errorf("%w: unexpected key check", common.ErrCorruptConfiguration)}
	}

	s.vaultID, err = repo.Get(ctx, common.VaultIDKey)
	if errors.Is(err, common.ErrNotFound) {
		s.vaultID = ""
		return nil
	}
	return err
}

// isInitialized reports whether the vault already holds rows that are only
// written after the key check: the vault id or a master password hash.
func (s *Store) isInitialized(ctx context.Context) (bool, error) {
	repo := s.Config()
	for _, key := range []string{common.VaultIDKey, common.MasterPasswordHashKey} {
		ok, err := repo.Exists(ctx, key)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// initKeyCheck seals the key-check constant and assigns a vault id in one
// transaction.
func (s *Store) initKeyCheck(ctx context.Context, key []byte) error {
	ciphertext, nonce, err := cryptox.EncryptEntry(keyCheckPlaintext, key)
	if err != nil {
		return fmt.Errorf("sealing key check: %w", err)
	}
	sealed := base64.StdEncoding.EncodeToString(append(nonce, ciphertext...))
	id := uuid.NewString()

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewConfigRepository(tx)
		if err := repo.Set(ctx, common.KeyCheckKey, sealed); err != nil {
			return err
		}
		return repo.Set(ctx, common.VaultIDKey, id)
	})
	if err != nil {
		return err
	}

	s.vaultID = id
	s.logger.Info(ctx, "new vault initialized", "vault_id", id)
	return nil
}

// Config returns the repository over the vault's config table.
func (s *Store) Config() ConfigRepository {
	return NewConfigRepository(s.db)
}

// Path is the file the store was opened from.
func (s *Store) Path() string { return s.path }

// VaultID is the UUID assigned when the vault was created.
func (s *Store) VaultID() string { return s.vaultID }

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
