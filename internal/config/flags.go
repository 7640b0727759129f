package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/flagx"
)

// parseFlags populates cfg from the short flags listed in the package doc.
// Other arguments are filtered out first so they do not trip the parser.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-d", "-f", "-t", "-m", "-l", "-v"})

	fs := flag.NewFlagSet("gophvault", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.VaultDir, "d", cfg.VaultDir, "directory holding vault files")
	fs.StringVar(&cfg.VaultFile, "f", cfg.VaultFile, "vault file name")
	timeout := fs.Int("t", int(cfg.SessionTimeout.Minutes()), "session timeout (in minutes)")
	fs.IntVar(&cfg.MaxLoginAttempts, "m", cfg.MaxLoginAttempts, "failed attempts before lockout")
	lockout := fs.Int("l", int(cfg.LockoutDuration.Minutes()), "lockout duration (in minutes)")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SessionTimeout = time.Duration(*timeout) * time.Minute
	cfg.LockoutDuration = time.Duration(*lockout) * time.Minute
}
