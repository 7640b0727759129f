package cli

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/gophvault/internal/auth"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/filex"
	"github.com/dmitrijs2005/gophvault/internal/vaultfs"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// readNewPassword asks for a password twice. The caller wipes the result.
func (a *App) readNewPassword(prompt string) ([]byte, error) {
	password, err := getPassword(a.out, prompt)
	if err != nil {
		return nil, err
	}
	confirm, err := getPassword(a.out, "Repeat password")
	if err != nil {
		common.WipeByteArray(password)
		return nil, err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(password, confirm) {
		common.WipeByteArray(password)
		return nil, errPasswordMismatch
	}
	return password, nil
}

// New creates a timestamped vault in the vault directory, protected by a new
// master password, and makes it the current vault.
func (a *App) New(ctx context.Context) error {
	password, err := a.readNewPassword("New master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.vaults.Create(ctx, password)
	if err != nil {
		return err
	}
	a.useVault(ctx, s)

	fmt.Fprintf(a.out, "Created vault %s\n", s.Path())
	return nil
}

// Open opens the vault named by args[0], or the configured default vault. A
// bare file name is looked up in the vault directory. Failed opens count
// towards a per-path lockout.
func (a *App) Open(ctx context.Context, args []string) error {
	path := a.config.VaultPath()
	if len(args) > 0 {
		path = args[0]
		if filepath.Base(path) == path {
			path = filepath.Join(a.config.VaultDir, path)
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	key := throttleKey(path)

	if allowed, until := a.openThrottle.Check(key); !allowed {
		return &auth.LockedError{Until: until}
	}

	exists, err := filex.Exists(path)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}

	var password []byte
	if exists {
		password, err = getPassword(a.out, "Master password")
	} else {
		fmt.Fprintf(a.out, "%s does not exist and will be created\n", path)
		password, err = a.readNewPassword("New master password")
		if err == nil {
			err = auth.ValidatePasswordStrength(password)
		}
	}
	if err != nil {
		common.WipeByteArray(password)
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.vaults.Open(ctx, path, password)
	if vaultfs.IsOpenFailure(err) {
		if a.openThrottle.RecordFailure(key) {
			a.logger.Warn(ctx, "vault open locked out", "path", path)
		}
		return err
	}
	if err != nil {
		return err
	}
	a.openThrottle.RecordSuccess(key)
	a.useVault(ctx, s)

	set, err := a.auth.IsMasterPasswordSet(ctx)
	if err != nil {
		return err
	}
	if !set && !exists {
		if err := a.auth.SetMasterPassword(ctx, password); err != nil {
			return err
		}
		set = true
	}

	fmt.Fprintf(a.out, "Opened vault %s\n", s.Path())
	if !set {
		fmt.Fprintln(a.out, "No master password set; use 'setpw'")
	}
	return nil
}

// throttleKey names the file behind an absolute path, so that every spelling
// of it shares one failure counter.
func throttleKey(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return filepath.Clean(path)
}

// Dir prints the vault directory and the vaults in it.
func (a *App) Dir(_ context.Context) error {
	dir, err := a.vaults.Dir()
	if err != nil {
		return err
	}
	vaults, err := a.vaults.List()
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, dir)
	for _, v := range vaults {
		fmt.Fprintf(a.out, "  %s\n", filepath.Base(v))
	}
	return nil
}

// Check reports whether a file looks like a vault. The path comes from
// args[0] or is prompted for.
func (a *App) Check(_ context.Context, args []string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
	} else {
		p, err := getSimpleText(a.reader, "Vault file path", a.out)
		if err != nil {
			return err
		}
		path = p
	}

	if vaultfs.IsVaultFileValid(path) {
		fmt.Fprintf(a.out, "%s: valid vault file\n", path)
	} else {
		fmt.Fprintf(a.out, "%s: not a vault file\n", path)
	}
	return nil
}

// Recent prints the recently opened vaults.
func (a *App) Recent(_ context.Context) error {
	list, err := a.vaults.Recent()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No recent vaults")
		return nil
	}
	for i, v := range list {
		fmt.Fprintf(a.out, "%d. %s  %s  (%s)\n", i+1, v.Name, v.Path, v.LastAccessed.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
