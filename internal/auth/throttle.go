package auth

import "time"

// LoginAttemptInfo is the failure record of one identity. Times are Unix
// seconds; LockedUntil is zero when no lockout was ever imposed.
type LoginAttemptInfo struct {
	Attempts    int
	LastAttempt int64
	LockedUntil int64
}

// Throttle counts failed verifications per identity and locks the identity
// out for a fixed duration once the limit is reached.
//
// An expired lockout does not clear the counter; only RecordSuccess does. The
// next failure after an expired lockout therefore locks again.
type Throttle struct {
	attempts    map[string]*LoginAttemptInfo
	maxAttempts int
	lockout     time.Duration
	now         Clock
}

// NewThrottle allows maxAttempts consecutive failures per identity before
// refusing it for lockout. now supplies the current time.
func NewThrottle(maxAttempts int, lockout time.Duration, now Clock) *Throttle {
	return &Throttle{
		attempts:    make(map[string]*LoginAttemptInfo),
		maxAttempts: maxAttempts,
		lockout:     lockout,
		now:         now,
	}
}

// Check reports whether identity may attempt a verification. When it may
// not, lockedUntil is the end of the lockout.
func (t *Throttle) Check(identity string) (allowed bool, lockedUntil time.Time) {
	info, ok := t.attempts[identity]
	if !ok || info.LockedUntil == 0 {
		return true, time.Time{}
	}
	if t.now().Unix() < info.LockedUntil {
		return false, time.Unix(info.LockedUntil, 0)
	}
	return true, time.Time{}
}

// RecordFailure counts one failed attempt and reports whether it put the
// identity into lockout.
func (t *Throttle) RecordFailure(identity string) (locked bool) {
	now := t.now().Unix()

	info, ok := t.attempts[identity]
	if !ok {
		info = &LoginAttemptInfo{}
		t.attempts[identity] = info
	}

	info.Attempts++
	info.LastAttempt = now

	if info.Attempts >= t.maxAttempts {
		info.LockedUntil = now + int64(t.lockout/time.Second)
		return true
	}
	return false
}

// RecordSuccess forgets everything about identity.
func (t *Throttle) RecordSuccess(identity string) {
	delete(t.attempts, identity)
}

// Info returns a copy of identity's record.
func (t *Throttle) Info(identity string) (LoginAttemptInfo, bool) {
	info, ok := t.attempts[identity]
	if !ok {
		return LoginAttemptInfo{}, false
	}
	return *info, true
}
