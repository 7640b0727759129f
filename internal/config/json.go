package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophvault/internal/flagx"
	"github.com/dmitrijs2005/gophvault/internal/timex"
)

// JsonConfig is the DTO for the config file. Pointer and zero-value fields
// that are absent from the file leave the current Config untouched.
type JsonConfig struct {
	VaultDir         string          `json:"vault_dir"`
	VaultFile        string          `json:"vault_file"`
	SessionTimeout   *timex.Duration `json:"session_timeout"`
	MaxLoginAttempts *int            `json:"max_login_attempts"`
	LockoutDuration  *timex.Duration `json:"lockout_duration"`
	LogLevel         string          `json:"log_level"`
	LogFormat        string          `json:"log_format"`
}

// parseJson overlays cfg with values from the file named by -c/-config.
// It panics on read or unmarshal errors.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigFile(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.VaultDir != "" {
		cfg.VaultDir = jc.VaultDir
	}
	if jc.VaultFile != "" {
		cfg.VaultFile = jc.VaultFile
	}
	if jc.SessionTimeout != nil {
		cfg.SessionTimeout = jc.SessionTimeout.Duration
	}
	if jc.MaxLoginAttempts != nil {
		cfg.MaxLoginAttempts = *jc.MaxLoginAttempts
	}
	if jc.LockoutDuration != nil {
		cfg.LockoutDuration = jc.LockoutDuration.Duration
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	if jc.LogFormat != "" {
		cfg.LogFormat = jc.LogFormat
	}
}
