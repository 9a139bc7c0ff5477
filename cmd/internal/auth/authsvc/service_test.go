package authsvc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finapp/cmd/identity"
	"finapp/cmd/internal/auth/session"
	"finapp/cmd/internal/auth/throttle"
	"finapp/cmd/security/password"
	"finapp/cmd/security/token"
)

var t0 = time.Date(2026, 3, 1, 9, 30, 15, 250_000_000, time.UTC)

const (
	goodPassword = "correct horse battery staple"
	accessTTL    = 15 * time.Minute
	refreshTTL   = 720 * time.Hour
)

var laptop = Device{Info: "laptop", IP: "203.0.113.7", UserAgent: "finapp-test/1.0"}

type fixture struct {
	svc      *Service
	accounts *identity.MemoryDirectory
	sessions session.Store
	digester token.Digester
}

func newFixture(t *testing.T, mutate ...func(*Config, *Deps)) fixture {
	t.Helper()

	pcfg := password.DefaultConfig()
	pcfg.Params.MemoryKiB = 8 * 1024
	pcfg.Params.Iterations = 1
	creds, err := identity.NewPasswordVerifier(pcfg)
	require.NoError(t, err)

	codec, err := token.NewCodec("finapp", []byte("0123456789abcdef0123456789abcdef"), 0)
	require.NoError(t, err)

	accounts := identity.NewMemoryDirectory()
	cfg := Config{AccessTokenTTL: accessTTL, RefreshTokenTTL: refreshTTL}
	deps := Deps{
		Accounts:    accounts,
		Credentials: creds,
		Sessions:    session.NewMemoryStore(),
		Throttle:    throttle.New(throttle.NewMemoryStore()),
		Codec:       codec,
		Digester:    token.NewDigester(nil),
	}
	for _, m := range mutate {
		m(&cfg, &deps)
	}

	svc, err := New(cfg, deps)
	require.NoError(t, err)
	return fixture{svc: svc, accounts: accounts, sessions: deps.Sessions, digester: deps.Digester}
}

func (f fixture) register(t *testing.T, email string) TokenPair {
	t.Helper()
	pair, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "Ada Lovelace", Email: email, Password: goodPassword, Device: laptop,
	}, t0)
	require.NoError(t, err)
	return pair
}

func (f fixture) login(email, pw string, now time.Time) (TokenPair, error) {
	return f.svc.Login(context.Background(), LoginInput{Email: email, Password: pw, Device: laptop}, now)
}

func TestNew_MissingDependency(t *testing.T) {
	_, err := New(Config{AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}, Deps{})
	assert.Error(t, err)
}

func TestRegister_IssuesSession(t *testing.T) {
	f := newFixture(t)
	pair := f.register(t, "Ada@Example.com")

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	row, err := f.sessions.GetByID(context.Background(), pair.SessionID)
	require.NoError(t, err)
	assert.Equal(t, row.CreatedAt.Add(accessTTL), row.AccessExpiresAt)
	assert.Equal(t, row.CreatedAt.Add(refreshTTL), row.RefreshExpiresAt)
	assert.Equal(t, pair.AccessExpiresAt, row.AccessExpiresAt)
	assert.Equal(t, f.digester.Digest(pair.AccessToken), row.AccessHash)
	assert.Equal(t, f.digester.Digest(pair.RefreshToken), row.RefreshHash)
	assert.Equal(t, "laptop", row.DeviceInfo)
	assert.Equal(t, "203.0.113.7", row.DeviceIP)
	assert.False(t, row.Revoked)

	acc, err := f.accounts.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, identity.StatusActive, acc.Status)
	assert.Equal(t, acc.ID, row.AccountID)
}

func TestRegister_Failures(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ada@example.com")
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ADA@example.com", Password: goodPassword}, t0)
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)

	_, err = f.svc.Register(ctx, RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "short"}, t0)
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = f.svc.Register(ctx, RegisterInput{Name: "Bob", Email: "not-an-email", Password: goodPassword}, t0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Register(ctx, RegisterInput{Name: "  ", Email: "bob@example.com", Password: goodPassword}, t0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLogin_OK(t *testing.T) {
	f := newFixture(t)
	first := f.register(t, "ada@example.com")

	pair, err := f.login("ada@example.com", goodPassword, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, pair.SessionID)
	assert.Equal(t, token.IssueTime(t0.Add(time.Minute)).Add(accessTTL), pair.AccessExpiresAt)
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.login("nobody@example.com", goodPassword, t0)
	assert.ErrorIs(t, err, ErrEmailNotFound)
}

func TestLogin_BackoffProgression(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ada@example.com")

	want := []time.Duration{0, 0, 5 * time.Second, 15 * time.Second, time.Minute}
	for i, w := range want {
		_, err := f.login("ada@example.com", "wrong password here", t0.Add(time.Duration(i)*time.Second))

		var te ThrottledError
		require.True(t, errors.As(err, &te), "attempt %d", i+1)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, i+1, te.Attempts)
		assert.Equal(t, w, te.RetryAfter(), "attempt %d", i+1)
	}
}

func TestLogin_SuccessClearsFailures(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ada@example.com")

	for i := 0; i < 3; i++ {
		_, err := f.login("ada@example.com", "wrong password here", t0)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := f.login("ada@example.com", goodPassword, t0)
	require.NoError(t, err)

	_, err = f.login("ada@example.com", "wrong password here", t0)
	var te ThrottledError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 1, te.Attempts)
	assert.Zero(t, te.Wait)
}

func TestLogin_BlockEnforced(t *testing.T) {
	f := newFixture(t, func(c *Config, _ *Deps) { c.EnforceLoginBlock = true })
	f.register(t, "ada@example.com")

	for i := 0; i < 3; i++ {
		_, _ = f.login("ada@example.com", "wrong password here", t0)
	}

	_, err := f.login("ada@example.com", goodPassword, t0.Add(2*time.Second))
	var te ThrottledError
	require.True(t, errors.As(err, &te))
	assert.ErrorIs(t, err, ErrTooManyLoginAttempts)
	assert.Equal(t, 3*time.Second, te.RetryAfter())

	_, err = f.login("ada@example.com", goodPassword, t0.Add(6*time.Second))
	assert.NoError(t, err)
}

func TestLogin_LockedAccount(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ada@example.com")
	acc, err := f.accounts.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.True(t, f.accounts.SetStatus(acc.ID, identity.StatusLocked, t0))

	_, err = f.login("ada@example.com", goodPassword, t0)
	assert.ErrorIs(t, err, ErrAccountLocked)

	_, err = f.login("ada@example.com", "wrong password here", t0)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_ReactivatesPendingDeactivation(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ada@example.com")
	acc, err := f.accounts.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.True(t, f.accounts.SetStatus(acc.ID, identity.StatusDeactivationRequested, t0))

	_, err = f.login("ada@example.com", goodPassword, t0.Add(time.Hour))
	require.NoError(t, err)

	acc, err = f.accounts.FindByID(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, identity.StatusActive, acc.Status)
}

func TestRefresh_RotatesAccessOnly(t *testing.T) {
	f := newFixture(t)
	pair := f.register(t, "ada@example.com")
	ctx := context.Background()
	later := t0.Add(10 * time.Minute)

	next, err := f.svc.Refresh(ctx, pair.RefreshToken, later)
	require.NoError(t, err)
	assert.Equal(t, pair.SessionID, next.SessionID)
	assert.Equal(t, pair.RefreshToken, next.RefreshToken)
	assert.Equal(t, pair.RefreshExpiresAt, next.RefreshExpiresAt)
	assert.NotEqual(t, pair.AccessToken, next.AccessToken)
	assert.Equal(t, token.IssueTime(later).Add(accessTTL), next.AccessExpiresAt)

	_, err = f.svc.Authenticate(ctx, pair.AccessToken, later)
	assert.ErrorIs(t, err, ErrExpiredSession)

	p, err := f.svc.Authenticate(ctx, next.AccessToken, later)
	require.NoError(t, err)
	assert.Equal(t, pair.SessionID, p.SessionID)
}

func TestRefresh_Failures(t *testing.T) {
	f := newFixture(t)
	pair := f.register(t, "ada@example.com")
	ctx := context.Background()

	_, err := f.svc.Refresh(ctx, "garbage", t0)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = f.svc.Refresh(ctx, pair.AccessToken, t0)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = f.svc.Refresh(ctx, pair.RefreshToken, t0.Add(refreshTTL+time.Second))
	assert.ErrorIs(t, err, ErrExpiredRefreshToken)
}

func TestRefresh_RevokedSession(t *testing.T) {
	f := newFixture(t)
	pair := f.register(t, "ada@example.com")
	ctx := context.Background()

	require.NoError(t, f.svc.RevokeCurrentSession(ctx, pair.AccessToken, t0))

	_, err := f.svc.Refresh(ctx, pair.RefreshToken, t0.Add(time.Minute))
	assert.ErrorIs(t, err, ErrRevokedRefreshToken)

	assert.ErrorIs(t, f.svc.RevokeCurrentSession(ctx, pair.AccessToken, t0), ErrInvalidAccessToken)
}

type conflictStore struct {
	*session.MemoryStore
}

func (conflictStore) RotateAccess(context.Context, session.AccessRotation) error {
	return session.ErrRotationConflict
}

func TestRefresh_Conflict(t *testing.T) {
	f := newFixture(t, func(_ *Config, d *Deps) {
		d.Sessions = conflictStore{session.NewMemoryStore()}
	})
	pair := f.register(t, "ada@example.com")

	_, err := f.svc.Refresh(context.Background(), pair.RefreshToken, t0.Add(time.Minute))
	assert.ErrorIs(t, err, ErrRefreshConflict)
}

// revokingStore revokes the session just before the guarded rotation runs,
// as a concurrent logout would.
type revokingStore struct {
	*session.MemoryStore
}

func (s revokingStore) RotateAccess(ctx context.Context, r session.AccessRotation) error {
	if err := s.Revoke(ctx, r.SessionID, r.Now); err != nil {
		return err
	}
	return s.MemoryStore.RotateAccess(ctx, r)
}

func TestRefresh_RevokedDuringRotation(t *testing.T) {
	f := newFixture(t, func(_ *Config, d *Deps) {
		d.Sessions = revokingStore{session.NewMemoryStore()}
	})
	pair := f.register(t, "ada@example.com")

	_, err := f.svc.Refresh(context.Background(), pair.RefreshToken, t0.Add(time.Minute))
	assert.ErrorIs(t, err, ErrRevokedRefreshToken)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	pair := f.register(t, "ada@example.com")
	ctx := context.Background()

	p, err := f.svc.Authenticate(ctx, pair.AccessToken, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, pair.SessionID, p.SessionID)
	assert.NotEmpty(t, p.AccountID)

	_, err = f.svc.Authenticate(ctx, "garbage", t0)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)

	_, err = f.svc.Authenticate(ctx, pair.RefreshToken, t0)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)

	_, err = f.svc.Authenticate(ctx, pair.AccessToken, t0.Add(accessTTL+time.Second))
	assert.ErrorIs(t, err, ErrExpiredSession)
}

func TestRevokeAllSessions(t *testing.T) {
	f := newFixture(t)
	first := f.register(t, "ada@example.com")
	second, err := f.login("ada@example.com", goodPassword, t0.Add(time.Second))
	require.NoError(t, err)
	ctx := context.Background()

	p, err := f.svc.Authenticate(ctx, first.AccessToken, t0.Add(2*time.Second))
	require.NoError(t, err)

	n, err := f.svc.RevokeAllSessions(ctx, p.AccountID, t0.Add(2*time.Second))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	for _, tok := range []string{first.AccessToken, second.AccessToken} {
		_, err := f.svc.Authenticate(ctx, tok, t0.Add(3*time.Second))
		assert.ErrorIs(t, err, ErrExpiredSession)
	}
}
