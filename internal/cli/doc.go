// Package cli implements the interactive gophvault shell.
//
// The shell opens one vault at a time and exposes the vault authentication
// operations as commands: creating and opening vaults, setting and verifying
// the master password, and creating, validating and locking sessions. Errors
// are printed as plain messages; the REPL keeps running after any of them.
//
// Passwords are read without echo and wiped from memory after use.
package cli
