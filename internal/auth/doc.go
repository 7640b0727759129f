// Package auth is the vault's authentication and session-security core.
//
// Authenticator verifies and sets the master password against the hash in
// the vault's config table, consults a Throttle before every verification
// and hands out an Unlocked capability on success. Only an Unlocked value
// can be exchanged for a session token, so a session can never be issued
// without a prior successful verification.
//
// Throttle and SessionRegistry keep their state in memory only and are not
// safe for concurrent use on their own. They live in a State owned by one
// Authenticator, whose mutex serializes every operation. Session expiry is
// lazy: a stale token is removed by the validation that notices it.
package auth
