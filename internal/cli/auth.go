package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

// SetPassword sets the master password of the current vault. Replacing an
// existing master password requires an unlocked session.
func (a *App) SetPassword(ctx context.Context) error {
	if a.store == nil {
		return errNoVault
	}
	set, err := a.auth.IsMasterPasswordSet(ctx)
	if err != nil {
		return err
	}
	if set {
		if err := a.requireSession(ctx); err != nil {
			return err
		}
	}

	password, err := a.readNewPassword("New master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.SetMasterPassword(ctx, password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Master password set")
	return nil
}

// verify prompts for the master password and remembers the capability on
// success. It reports whether the password was accepted.
func (a *App) verify(ctx context.Context) (bool, error) {
	if a.store == nil {
		return false, errNoVault
	}

	password, err := getPassword(a.out, "Master password")
	if err != nil {
		return false, err
	}
	defer common.WipeByteArray(password)

	u, err := a.auth.VerifyMasterPassword(ctx, password)
	if err != nil {
		return false, err
	}
	if u != nil {
		a.unlocked = u
		return true, nil
	}

	set, err := a.auth.IsMasterPasswordSet(ctx)
	if err != nil {
		return false, err
	}
	if !set {
		fmt.Fprintln(a.out, "No master password set; use 'setpw'")
	} else {
		fmt.Fprintln(a.out, "Wrong password")
	}
	return false, nil
}

// Verify checks the master password without starting a session.
func (a *App) Verify(ctx context.Context) error {
	ok, err := a.verify(ctx)
	if ok {
		fmt.Fprintln(a.out, "Password accepted")
	}
	return err
}

// Unlock verifies the master password and starts a session.
func (a *App) Unlock(ctx context.Context) error {
	ok, err := a.verify(ctx)
	if err != nil || !ok {
		return err
	}
	return a.CreateSession(ctx)
}

// CreateSession exchanges the last successful verification for a session.
// Each verification yields one session.
func (a *App) CreateSession(ctx context.Context) error {
	if a.store == nil {
		return errNoVault
	}

	token, err := a.auth.CreateSession(ctx, a.unlocked)
	if err != nil {
		return err
	}
	a.unlocked = nil
	if a.token != "" {
		a.auth.LockSession(ctx, a.token)
	}
	a.token = token

	fmt.Fprintf(a.out, "Unlocked; session expires after %s of inactivity\n", a.config.SessionTimeout)
	return nil
}

// Validate reports whether the current session is still alive and extends it.
func (a *App) Validate(ctx context.Context) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Session valid")
	return nil
}

// Lock ends the current session.
func (a *App) Lock(ctx context.Context) error {
	if a.store == nil {
		return errNoVault
	}
	if a.token != "" {
		a.auth.LockSession(ctx, a.token)
		a.token = ""
	}
	a.unlocked = nil
	fmt.Fprintln(a.out, "Locked")
	return nil
}

// Status prints the current vault and its authentication state.
func (a *App) Status(ctx context.Context) error {
	if a.store == nil {
		fmt.Fprintln(a.out, "No vault open")
		return nil
	}

	set, err := a.auth.IsMasterPasswordSet(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Vault:           %s\n", a.store.Path())
	fmt.Fprintf(a.out, "Vault ID:        %s\n", a.store.VaultID())
	fmt.Fprintf(a.out, "Master password: %t\n", set)

	switch {
	case a.token == "":
		fmt.Fprintln(a.out, "Session:         locked")
	case a.auth.ValidateSession(ctx, a.token):
		fmt.Fprintf(a.out, "Session:         unlocked (timeout %s)\n", a.config.SessionTimeout.Round(time.Second))
	default:
		a.token = ""
		fmt.Fprintln(a.out, "Session:         expired")
	}
	return nil
}
