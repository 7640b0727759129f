// Package config loads runtime configuration for the gophvault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-d string   directory holding vault files
//	-f string   vault file name inside the directory
//	-t int      session inactivity timeout (minutes)
//	-m int      failed verifications before lockout
//	-l int      lockout duration (minutes)
//	-v string   log level: debug, info, warn, error
//
// # JSON schema
//
// Durations accept strings like "15m" or integer nanoseconds:
//
//	{
//	  "vault_dir": "/home/me/.local/share/vault",
//	  "vault_file": "vault.db",
//	  "session_timeout": "15m",
//	  "max_login_attempts": 5,
//	  "lockout_duration": "30m",
//	  "log_level": "info",
//	  "log_format": "text"
//	}
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/filex"
)

// Config holds runtime settings for the vault CLI.
type Config struct {
	VaultDir         string
	VaultFile        string
	SessionTimeout   time.Duration
	MaxLoginAttempts int
	LockoutDuration  time.Duration
	LogLevel         string
	LogFormat        string
}

// DefaultVaultFile is the name of the single-vault file.
const DefaultVaultFile = "vault.db"

// LoadDefaults populates c with the defaults. VaultDir stays empty when the
// platform data directory cannot be determined.
func (c *Config) LoadDefaults() {
	c.VaultDir = ""
	if dir, err := filex.UserDataDir(); err == nil {
		c.VaultDir = filepath.Join(dir, "vault")
	}
	c.VaultFile = DefaultVaultFile
	c.SessionTimeout = 15 * time.Minute
	c.MaxLoginAttempts = 5
	c.LockoutDuration = 30 * time.Minute
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// VaultPath is the full path of the configured vault file.
func (c *Config) VaultPath() string {
	return filepath.Join(c.VaultDir, c.VaultFile)
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags. Later sources take precedence.
// It panics on unreadable files or malformed flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, os.Args[1:])
	parseFlags(cfg, os.Args[1:])
	return cfg
}
