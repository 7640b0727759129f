package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/auth"
	"github.com/dmitrijs2005/gophvault/internal/config"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/store"
	"github.com/dmitrijs2005/gophvault/internal/vaultfs"
)

// App is the state of one shell: at most one open vault with its
// authenticator, the last verification and the current session token.
type App struct {
	config   *config.Config
	logger   logging.Logger
	vaults   *vaultfs.Manager
	authOpts []auth.Option
	now      auth.Clock

	// openThrottle counts failed store opens per vault path. A wrong
	// password fails there, before the authenticator sees it.
	openThrottle *auth.Throttle

	store    *store.Store
	auth     *auth.Authenticator
	unlocked *auth.Unlocked
	token    string

	reader *bufio.Reader
	out    io.Writer
}

// AppOption configures an App.
type AppOption func(*App)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) AppOption {
	return func(a *App) {
		a.reader = bufio.NewReader(in)
		a.out = out
	}
}

// WithAuthOptions passes options to every authenticator the app creates.
func WithAuthOptions(opts ...auth.Option) AppOption {
	return func(a *App) {
		a.authOpts = append(a.authOpts, opts...)
	}
}

// WithClock replaces time.Now for sessions, lockouts and vault names.
func WithClock(clock auth.Clock) AppOption {
	return func(a *App) {
		a.now = clock
	}
}

// NewApp wires the shell to cfg. It reads stdin and writes stdout unless
// WithIO says otherwise.
func NewApp(cfg *config.Config, logger logging.Logger, opts ...AppOption) *App {
	a := &App{
		config: cfg,
		logger: logger,
		now:    time.Now,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.vaults = vaultfs.NewManager(cfg.VaultDir, logger,
		vaultfs.WithClock(a.now),
		vaultfs.WithAuthOptions(a.authOpts...),
	)
	a.openThrottle = auth.NewThrottle(cfg.MaxLoginAttempts, cfg.LockoutDuration, a.now)
	return a
}

// Run starts the shell and blocks until the user exits or input ends.
func (a *App) Run(ctx context.Context) error {
	defer a.closeVault(ctx)

	fmt.Fprintln(a.out, "Welcome to gophvault (type 'help' for commands)")
	if vaultfs.IsVaultFileValid(a.config.VaultPath()) {
		fmt.Fprintf(a.out, "Default vault: %s (use 'open' to open it)\n", a.config.VaultPath())
	}

	runREPL(ctx, a, a.status, a.reader, a.out)
	return nil
}

func (a *App) status() string {
	if a.store == nil {
		return "no vault"
	}
	name := filepath.Base(a.store.Path())
	if a.token != "" {
		return name + " unlocked"
	}
	return name + " locked"
}

func (a *App) newState() *auth.State {
	return auth.NewState(
		auth.WithSessionTimeout(a.config.SessionTimeout),
		auth.WithMaxAttempts(a.config.MaxLoginAttempts),
		auth.WithLockoutDuration(a.config.LockoutDuration),
		auth.WithClock(a.now),
	)
}

// useVault makes s the current vault with fresh authentication state.
func (a *App) useVault(ctx context.Context, s *store.Store) {
	a.closeVault(ctx)
	a.store = s
	a.auth = auth.NewAuthenticator(s.Config(), a.newState(), a.logger.With("vault_id", s.VaultID()), a.authOpts...)
}

func (a *App) closeVault(ctx context.Context) {
	if a.store == nil {
		return
	}
	if a.token != "" {
		a.auth.LockSession(ctx, a.token)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn(ctx, "closing vault", "error", err)
	}
	a.store, a.auth, a.unlocked, a.token = nil, nil, nil, ""
}

// requireSession fails unless a vault is open and the current session is
// still valid. An expired token is forgotten.
func (a *App) requireSession(ctx context.Context) error {
	if a.store == nil {
		return errNoVault
	}
	if a.token == "" {
		return errNoSession
	}
	if !a.auth.ValidateSession(ctx, a.token) {
		a.token = ""
		return errNoSession
	}
	return nil
}
