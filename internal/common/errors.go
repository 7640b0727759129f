// Package common defines shared constants and sentinel errors used across
// the vault, auth and CLI layers of gophvault. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Store-level errors.
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrOpenFailed       = errors.New("wrong password or corrupt vault file")

	// Configuration row errors.
	ErrCorruptConfiguration = errors.New("corrupt configuration")

	// Auth errors.
	ErrWeakPassword  = errors.New("password must be at least 8 characters long and contain both letters and numbers")
	ErrAccountLocked = errors.New("account temporarily locked due to too many failed attempts")
	ErrNotUnlocked   = errors.New("vault is not unlocked")

	// Vault file errors.
	ErrInvalidVaultFile = errors.New("not a valid vault file")
)
