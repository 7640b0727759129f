package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/store"
)

// Unlocked proves that the master password was verified by a particular
// Authenticator. It is only created by VerifyMasterPassword.
type Unlocked struct {
	issuer     *Authenticator
	VerifiedAt time.Time
}

// Authenticator guards one vault. All methods are safe for concurrent use;
// they are serialized by a single mutex.
type Authenticator struct {
	mu       sync.Mutex
	config   store.ConfigRepository
	hasher   cryptox.PasswordHasher
	state    *State
	identity string
	logger   logging.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithIdentity sets the throttle identity. The desktop vault has a single
// user, so the default is common.DefaultIdentity.
func WithIdentity(identity string) Option {
	return func(a *Authenticator) {
		a.identity = identity
	}
}

// WithHasher replaces the default argon2id hasher.
func WithHasher(h cryptox.PasswordHasher) Option {
	return func(a *Authenticator) {
		a.hasher = h
	}
}

// NewAuthenticator binds state to the config table of an open vault.
func NewAuthenticator(config store.ConfigRepository, state *State, logger logging.Logger, opts ...Option) *Authenticator {
	a := &Authenticator{
		config:   config,
		hasher:   cryptox.NewArgon2Hasher(),
		state:    state,
		identity: common.DefaultIdentity,
		logger:   logger.With("component", "auth"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IsMasterPasswordSet reports whether the vault holds a master password hash.
func (a *Authenticator) IsMasterPasswordSet(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.config.Exists(ctx, common.MasterPasswordHashKey)
}

// SetMasterPassword checks password against the strength policy, hashes it
// and stores the hash, replacing any previous one.
func (a *Authenticator) SetMasterPassword(ctx context.Context, password []byte) error {
	if err := ValidatePasswordStrength(password); err != nil {
		return err
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hashing master password: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.config.Set(ctx, common.MasterPasswordHashKey, hash); err != nil {
		return fmt.Errorf("storing master password: %w", err)
	}
	a.logger.Info(ctx, "master password set")
	return nil
}

// VerifyMasterPassword checks password against the stored hash.
//
// It returns a non-nil *Unlocked on success. A wrong password, or a vault
// without a master password, yields (nil, nil); only the former counts as a
// failed attempt. While the identity is locked out it returns *LockedError
// without looking at the password.
func (a *Authenticator) VerifyMasterPassword(ctx context.Context, password []byte) (*Unlocked, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	throttle := a.state.Throttle
	if allowed, until := throttle.Check(a.identity); !allowed {
		a.logger.Warn(ctx, "verification refused, identity locked", "identity", a.identity, "locked_until", until)
		return nil, &LockedError{Until: until}
	}

	stored, err := a.config.Get(ctx, common.MasterPasswordHashKey)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	ok, err := a.hasher.Verify(password, stored)
	if err != nil {
		a.logger.Error(ctx, "stored master password hash is unreadable", "error", err)
		return nil, err
	}

	if !ok {
		locked := throttle.RecordFailure(a.identity)
		info, _ := throttle.Info(a.identity)
		a.logger.Warn(ctx, "master password verification failed", "identity", a.identity, "attempts", info.Attempts)
		if locked {
			a.logger.Warn(ctx, "identity locked out", "identity", a.identity, "locked_until", time.Unix(info.LockedUntil, 0))
		}
		return nil, nil
	}

	throttle.RecordSuccess(a.identity)
	a.logger.Info(ctx, "master password verified", "identity", a.identity)
	return &Unlocked{issuer: a, VerifiedAt: a.state.Now()}, nil
}

// CreateSession exchanges an Unlocked capability issued by a for a new
// session token. Any other value yields common.ErrNotUnlocked.
func (a *Authenticator) CreateSession(ctx context.Context, u *Unlocked) (string, error) {
	if u == nil || u.issuer != a {
		return "", common.ErrNotUnlocked
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	token, err := a.state.Sessions.Create()
	if err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	a.logger.Info(ctx, "session created", "token", tokenPrefix(token))
	return token, nil
}

// ValidateSession reports whether token belongs to a live session and, if
// so, extends it.
func (a *Authenticator) ValidateSession(ctx context.Context, token string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	sessions := a.state.Sessions
	_, known := sessions.Info(token)
	valid := sessions.Validate(token)
	if known && !valid {
		a.logger.Info(ctx, "session expired", "token", tokenPrefix(token))
	}
	return valid
}

// LockSession ends the session of token. Locking an unknown or already
// locked token is a no-op.
func (a *Authenticator) LockSession(ctx context.Context, token string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.state.Sessions.Info(token); ok {
		a.logger.Info(ctx, "session locked", "token", tokenPrefix(token))
	}
	a.state.Sessions.Lock(token)
}

func tokenPrefix(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}
