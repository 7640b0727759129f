// Package vaultfs manages vault files on disk: the vault directory, creating
// and opening vaults, checking candidate files and the recent vaults list.
package vaultfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/auth"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/filex"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/store"
	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"
)

// VaultExt is the extension of vault files.
const VaultExt = ".db"

// Manager owns one vault directory.
type Manager struct {
	dir      string
	logger   logging.Logger
	now      func() time.Time
	authOpts []auth.Option
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now for vault file names and recent entries.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithAuthOptions passes options to the authenticator that sets the master
// password of new vaults.
func WithAuthOptions(opts ...auth.Option) Option {
	return func(m *Manager) {
		m.authOpts = append(m.authOpts, opts...)
	}
}

// NewManager returns a Manager for vault files under dir. The directory is
// created lazily on first use.
func NewManager(dir string, logger logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		dir:    dir,
		logger: logger.With("component", "vaultfs"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dir returns the vault directory, creating it if needed.
func (m *Manager) Dir() (string, error) {
	if m.dir == "" {
		return "", fmt.Errorf("%w: vault directory is not configured", common.ErrStoreUnavailable)
	}
	dir, err := filex.EnsureDir(m.dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}
	return dir, nil
}

// Create makes a new vault_<unix seconds>.db in the vault directory, opens it
// with the key derived from password and stores password as its master
// password. The returned store is open; the caller closes it.
func (m *Manager) Create(ctx context.Context, password []byte) (*store.Store, error) {
	if err := auth.ValidatePasswordStrength(password); err != nil {
		return nil, err
	}

	dir, err := m.Dir()
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, fmt.Sprintf("vault_%d%s", m.now().Unix(), VaultExt))
	// Reserve the name so two creations in the same second cannot share a file.
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: creating %s: %w", common.ErrStoreUnavailable, path, err)
	}
	_ = f.Close()

	s, err := m.openStore(ctx, path, password)
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	a := auth.NewAuthenticator(s.Config(), auth.NewState(), m.logger, m.authOpts...)
	if err := a.SetMasterPassword(ctx, password); err != nil {
		_ = s.Close()
		_ = os.Remove(path)
		return nil, err
	}

	m.logger.Info(ctx, "vault created", "path", path, "vault_id", s.VaultID())
	m.remember(ctx, path)
	return s, nil
}

// Open opens the vault at path with the key derived from password, creating
// an empty vault when the file does not exist yet. An existing file must
// pass IsVaultFileValid. A wrong password or corrupt file yields
// *store.OpenError.
func (m *Manager) Open(ctx context.Context, path string, password []byte) (*store.Store, error) {
	exists, err := filex.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}
	if exists && !IsVaultFileValid(path) {
		return nil, fmt.Errorf("%w: %s", common.ErrInvalidVaultFile, path)
	}

	s, err := m.openStore(ctx, path, password)
	if err != nil {
		return nil, err
	}
	m.remember(ctx, path)
	return s, nil
}

func (m *Manager) openStore(ctx context.Context, path string, password []byte) (*store.Store, error) {
	key := cryptox.DeriveKey(password)
	defer common.WipeByteArray(key)

	return store.Open(ctx, path, key, m.logger)
}

// List returns the valid vault files in the vault directory, sorted by name.
func (m *Manager) List() ([]string, error) {
	dir, err := m.Dir()
	if err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*"+VaultExt))
	if err != nil {
		return nil, err
	}

	vaults := make([]string, 0, len(matches))
	for _, p := range matches {
		if IsVaultFileValid(p) {
			vaults = append(vaults, p)
		}
	}
	sort.Strings(vaults)
	return vaults, nil
}

// IsVaultFileValid reports whether path looks like a vault: a regular file
// with the vault extension, a whole number of cipher pages long, whose
// header is encrypted. A plaintext SQLite database is not a vault.
func IsVaultFileValid(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), VaultExt) {
		return false
	}

	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return false
	}
	if fi.Size() == 0 || fi.Size()%store.CipherPageSize != 0 {
		return false
	}

	encrypted, err := sqlcipher.IsEncrypted(path)
	return err == nil && encrypted
}

// IsOpenFailure reports whether err means the password was wrong or the file
// is damaged.
func IsOpenFailure(err error) bool {
	return errors.Is(err, common.ErrOpenFailed)
}
