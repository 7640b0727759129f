package auth

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfig struct {
	values map[string]string

	GetErr    error
	SetErr    error
	ExistsErr error

	SetCalls int
}

func newFakeConfig() *fakeConfig {
	return &fakeConfig{values: make(map[string]string)}
}

func (f *fakeConfig) Get(_ context.Context, key string) (string, error) {
	if f.GetErr != nil {
		return "", f.GetErr
	}
	v, ok := f.values[key]
	if !ok {
		return "", common.ErrNotFound
	}
	return v, nil
}

func (f *fakeConfig) Set(_ context.Context, key, value string) error {
	f.SetCalls++
	if f.SetErr != nil {
		return f.SetErr
	}
	f.values[key] = value
	return nil
}

func (f *fakeConfig) Exists(_ context.Context, key string) (bool, error) {
	if f.ExistsErr != nil {
		return false, f.ExistsErr
	}
	_, ok := f.values[key]
	return ok, nil
}

func (f *fakeConfig) Delete(_ context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func cheapHasher() *cryptox.Argon2Hasher {
	return &cryptox.Argon2Hasher{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}
}

func newTestAuthenticator(t *testing.T, cfg store.ConfigRepository) (*Authenticator, *ManualClock) {
	t.Helper()
	clock := NewManualClock(epoch)
	state := NewState(WithClock(clock.Now))
	return NewAuthenticator(cfg, state, logging.NewNopLogger(), WithHasher(cheapHasher())), clock
}

func TestAuthenticator_SetMasterPassword_RejectsWeak(t *testing.T) {
	cfg := newFakeConfig()
	a, _ := newTestAuthenticator(t, cfg)
	ctx := context.Background()

	for _, pw := range []string{"", "abc1234", "abcdefgh", "12345678"} {
		err := a.SetMasterPassword(ctx, []byte(pw))
		assert.ErrorIs(t, err, common.ErrWeakPassword, "password %q", pw)
	}

	assert.Zero(t, cfg.SetCalls)
	set, err := a.IsMasterPasswordSet(ctx)
	require.NoError(t, err)
	assert.False(t, set)
}

func TestAuthenticator_SetAndVerify(t *testing.T) {
	cfg := newFakeConfig()
	a, _ := newTestAuthenticator(t, cfg)
	ctx := context.Background()

	require.NoError(t, a.SetMasterPassword(ctx, []byte("abc12345")))

	set, err := a.IsMasterPasswordSet(ctx)
	require.NoError(t, err)
	assert.True(t, set)
	assert.Contains(t, cfg.values[common.MasterPasswordHashKey], "$argon2id$")

	u, err := a.VerifyMasterPassword(ctx, []byte("abc12345"))
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, epoch, u.VerifiedAt)

	u, err = a.VerifyMasterPassword(ctx, []byte("abc12346"))
	require.NoError(t, err)
	assert.Nil(t, u)

	info, ok := a.state.Throttle.Info(common.DefaultIdentity)
	require.True(t, ok)
	assert.Equal(t, 1, info.Attempts)
}

func TestAuthenticator_SetMasterPassword_Overwrites(t *testing.T) {
	a, _ := newTestAuthenticator(t, newFakeConfig())
	ctx := context.Background()

	require.NoError(t, a.SetMasterPassword(ctx, []byte("first1234")))
	require.NoError(t, a.SetMasterPassword(ctx, []byte("second1234")))

	u, err := a.VerifyMasterPassword(ctx, []byte("first1234"))
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = a.VerifyMasterPassword(ctx, []byte("second1234"))
	require.NoError(t, err)
	assert.NotNil(t, u)
}

func TestAuthenticator_LockoutAfterFiveFailures(t *testing.T) {
	a, clock := newTestAuthenticator(t, newFakeConfig())
	ctx := context.Background()
	require.NoError(t, a.SetMasterPassword(ctx, []byte("correct1")))

	for i := 0; i < 5; i++ {
		u, err := a.VerifyMasterPassword(ctx, []byte("wrong1234"))
		require.NoError(t, err, "attempt %d", i+1)
		require.Nil(t, u)
	}

	u, err := a.VerifyMasterPassword(ctx, []byte("correct1"))
	assert.Nil(t, u)
	require.ErrorIs(t, err, common.ErrAccountLocked)

	var locked *LockedError
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, epoch.Add(30*time.Minute).Unix(), locked.Until.Unix())

	clock.Advance(30 * time.Minute)

	u, err = a.VerifyMasterPassword(ctx, []byte("correct1"))
	require.NoError(t, err)
	require.NotNil(t, u)

	_, ok := a.state.Throttle.Info(common.DefaultIdentity)
	assert.False(t, ok, "success must clear the attempt record")
}

func TestAuthenticator_SuccessResetsFailureCount(t *testing.T) {
	a, _ := newTestAuthenticator(t, newFakeConfig())
	ctx := context.Background()
	require.NoError(t, a.SetMasterPassword(ctx, []byte("correct1")))

	for i := 0; i < 4; i++ {
		_, err := a.VerifyMasterPassword(ctx, []byte("wrong1234"))
		require.NoError(t, err)
	}
	u, err := a.VerifyMasterPassword(ctx, []byte("correct1"))
	require.NoError(t, err)
	require.NotNil(t, u)

	for i := 0; i < 4; i++ {
		_, err := a.VerifyMasterPassword(ctx, []byte("wrong1234"))
		require.NoError(t, err)
	}
	u, err = a.VerifyMasterPassword(ctx, []byte("correct1"))
	require.NoError(t, err)
	assert.NotNil(t, u)
}

func TestAuthenticator_VerifyWithoutMasterPassword(t *testing.T) {
	a, _ := newTestAuthenticator(t, newFakeConfig())

	u, err := a.VerifyMasterPassword(context.Background(), []byte("anything1"))
	require.NoError(t, err)
	assert.Nil(t, u)

	_, ok := a.state.Throttle.Info(common.DefaultIdentity)
	assert.False(t, ok, "missing hash is not a failed attempt")
}

func TestAuthenticator_VerifyCorruptHash(t *testing.T) {
	cfg := newFakeConfig()
	cfg.values[common.MasterPasswordHashKey] = "not-a-hash"
	a, _ := newTestAuthenticator(t, cfg)

	u, err := a.VerifyMasterPassword(context.Background(), []byte("abc12345"))
	assert.Nil(t, u)
	assert.ErrorIs(t, err, common.ErrCorruptConfiguration)

	_, ok := a.state.Throttle.Info(common.DefaultIdentity)
	assert.False(t, ok)
}

func TestAuthenticator_StoreErrorsPropagate(t *testing.T) {
	storeErr := errors.New("disk on fire")
	cfg := newFakeConfig()
	a, _ := newTestAuthenticator(t, cfg)
	ctx := context.Background()

	cfg.ExistsErr = storeErr
	_, err := a.IsMasterPasswordSet(ctx)
	assert.ErrorIs(t, err, storeErr)

	cfg.SetErr = storeErr
	err = a.SetMasterPassword(ctx, []byte("abc12345"))
	assert.ErrorIs(t, err, storeErr)

	cfg.GetErr = storeErr
	u, err := a.VerifyMasterPassword(ctx, []byte("abc12345"))
	assert.Nil(t, u)
	assert.ErrorIs(t, err, storeErr)
}

func TestAuthenticator_CreateSessionRequiresUnlocked(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAuthenticator(t, newFakeConfig())
	other, _ := newTestAuthenticator(t, newFakeConfig())
	require.NoError(t, other.SetMasterPassword(ctx, []byte("abc12345")))

	foreign, err := other.VerifyMasterPassword(ctx, []byte("abc12345"))
	require.NoError(t, err)
	require.NotNil(t, foreign)

	for name, u := range map[string]*Unlocked{
		"nil":     nil,
		"zero":    {},
		"foreign": foreign,
	} {
		t.Run(name, func(t *testing.T) {
			token, err := a.CreateSession(ctx, u)
			assert.ErrorIs(t, err, common.ErrNotUnlocked)
			assert.Empty(t, token)
		})
	}
	assert.Equal(t, 0, a.state.Sessions.Len())
}

func TestAuthenticator_SessionLifecycle(t *testing.T) {
	a, clock := newTestAuthenticator(t, newFakeConfig())
	ctx := context.Background()
	require.NoError(t, a.SetMasterPassword(ctx, []byte("abc12345")))

	u, err := a.VerifyMasterPassword(ctx, []byte("abc12345"))
	require.NoError(t, err)

	token, err := a.CreateSession(ctx, u)
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.True(t, a.ValidateSession(ctx, token))

	clock.Advance(10 * time.Minute)
	assert.True(t, a.ValidateSession(ctx, token))

	clock.Advance(16 * time.Minute)
	assert.False(t, a.ValidateSession(ctx, token))
	assert.Equal(t, 0, a.state.Sessions.Len())
}

func TestAuthenticator_LockSession(t *testing.T) {
	a, _ := newTestAuthenticator(t, newFakeConfig())
	ctx := context.Background()
	require.NoError(t, a.SetMasterPassword(ctx, []byte("abc12345")))

	u, err := a.VerifyMasterPassword(ctx, []byte("abc12345"))
	require.NoError(t, err)
	token, err := a.CreateSession(ctx, u)
	require.NoError(t, err)

	a.LockSession(ctx, token)
	assert.False(t, a.ValidateSession(ctx, token))
	assert.NotPanics(t, func() { a.LockSession(ctx, token) })
}

func TestAuthenticator_ConcurrentFailuresAreCountedOnce(t *testing.T) {
	a, _ := newTestAuthenticator(t, newFakeConfig())
	ctx := context.Background()
	require.NoError(t, a.SetMasterPassword(ctx, []byte("abc12345")))

	const workers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		refused int
		failed  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := a.VerifyMasterPassword(ctx, []byte("wrong1234"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, common.ErrAccountLocked):
				refused++
			case err == nil && u == nil:
				failed++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, DefaultMaxAttempts, failed)
	assert.Equal(t, workers-DefaultMaxAttempts, refused)
}

func TestAuthenticator_WithRealStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vault.db")
	key := cryptox.DeriveKey([]byte("correct1"))

	s, err := store.Open(ctx, path, key, logging.NewNopLogger())
	require.NoError(t, err)

	a := NewAuthenticator(s.Config(), NewState(), logging.NewNopLogger(), WithHasher(cheapHasher()))
	require.NoError(t, a.SetMasterPassword(ctx, []byte("correct1")))
	require.NoError(t, s.Close())

	s, err = store.Open(ctx, path, key, logging.NewNopLogger())
	require.NoError(t, err)
	defer s.Close()

	a = NewAuthenticator(s.Config(), NewState(), logging.NewNopLogger(), WithHasher(cheapHasher()))
	set, err := a.IsMasterPasswordSet(ctx)
	require.NoError(t, err)
	assert.True(t, set)

	u, err := a.VerifyMasterPassword(ctx, []byte("correct1"))
	require.NoError(t, err)
	assert.NotNil(t, u)
}
