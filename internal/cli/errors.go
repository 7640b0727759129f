package cli

import (
	"errors"

	"github.com/dmitrijs2005/gophvault/internal/auth"
	"github.com/dmitrijs2005/gophvault/internal/common"
)

var (
	errNoVault          = errors.New("no vault is open; use 'new' or 'open'")
	errNoSession        = errors.New("vault is locked; use 'unlock'")
	errPasswordMismatch = errors.New("passwords do not match")
)

// renderError turns err into the message shown to the user. Wrong password,
// lockout and a missing master password each get their own wording.
func renderError(err error) string {
	var locked *auth.LockedError
	switch {
	case errors.As(err, &locked):
		return "too many failed attempts; locked until " + locked.Until.Format("15:04:05")
	case errors.Is(err, common.ErrAccountLocked):
		return "too many failed attempts; try again later"
	case errors.Is(err, common.ErrOpenFailed):
		return "wrong password or corrupt vault file"
	case errors.Is(err, common.ErrWeakPassword):
		return "password must be at least 8 characters long and contain a letter and a digit"
	case errors.Is(err, common.ErrNotUnlocked):
		return "verify the master password first; use 'verify'"
	case errors.Is(err, common.ErrInvalidVaultFile):
		return "not a vault file"
	case errors.Is(err, common.ErrCorruptConfiguration):
		return "vault configuration is corrupt: " + err.Error()
	case errors.Is(err, common.ErrStoreUnavailable):
		return "vault storage unavailable: " + err.Error()
	}
	return err.Error()
}
