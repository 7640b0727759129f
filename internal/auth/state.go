package auth

import "time"

// Defaults for NewState.
const (
	DefaultSessionTimeout  = 15 * time.Minute
	DefaultMaxAttempts     = 5
	DefaultLockoutDuration = 30 * time.Minute
)

// State is the mutable in-memory state of an Authenticator. It is created
// by the caller and handed to exactly one Authenticator.
type State struct {
	Throttle *Throttle
	Sessions *SessionRegistry

	now Clock
}

// Now reads the clock the state was built with.
func (s *State) Now() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// StateOption configures NewState.
type StateOption func(*stateConfig)

type stateConfig struct {
	sessionTimeout time.Duration
	maxAttempts    int
	lockout        time.Duration
	clock          Clock
}

// WithSessionTimeout sets the inactivity timeout of sessions.
func WithSessionTimeout(d time.Duration) StateOption {
	return func(c *stateConfig) {
		if d > 0 {
			c.sessionTimeout = d
		}
	}
}

// WithMaxAttempts sets the number of failures that triggers a lockout.
func WithMaxAttempts(n int) StateOption {
	return func(c *stateConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithLockoutDuration sets how long a lockout lasts.
func WithLockoutDuration(d time.Duration) StateOption {
	return func(c *stateConfig) {
		if d > 0 {
			c.lockout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(clock Clock) StateOption {
	return func(c *stateConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewState builds the throttle and session registry for one vault, using the
// Default* limits unless overridden by opts.
func NewState(opts ...StateOption) *State {
	c := &stateConfig{
		sessionTimeout: DefaultSessionTimeout,
		maxAttempts:    DefaultMaxAttempts,
		lockout:        DefaultLockoutDuration,
		clock:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return &State{
		Throttle: NewThrottle(c.maxAttempts, c.lockout, c.clock),
		Sessions: NewSessionRegistry(c.sessionTimeout, c.clock),
		now:      c.clock,
	}
}
