// Package authsvc orchestrates registration, login, refresh and logout.
//
// It composes the account directory, the credential verifier, the token
// codec, the session store and the login throttle. Every method takes the
// current time explicitly.
package authsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finapp/cmd/identity"
	"finapp/cmd/identity/ids"
	"finapp/cmd/internal/auth/session"
	"finapp/cmd/internal/auth/throttle"
	"finapp/cmd/security/token"
)

// Config holds the token lifetimes and login policy.
type Config struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// EnforceLoginBlock rejects logins for a blocked (ip, user agent, email)
	// before the password is checked.
	EnforceLoginBlock bool
}

// Device describes the client performing a login or registration.
type Device struct {
	Info      string
	IP        string
	UserAgent string
}

// TokenPair is the credential set returned to a client.
type TokenPair struct {
	SessionID        string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Principal is an authenticated caller.
type Principal struct {
	AccountID   string
	SessionID   string
	AccessToken string
}

// Deps are the collaborators a Service needs.
type Deps struct {
	Accounts    identity.Directory
	Credentials identity.CredentialVerifier
	Sessions    session.Store
	Throttle    *throttle.Throttle
	Codec       *token.Codec
	Digester    token.Digester
}

// Service implements the auth flows.
type Service struct {
	accounts identity.Directory
	creds    identity.CredentialVerifier
	sessions session.Store
	throttle *throttle.Throttle
	codec    *token.Codec
	digester token.Digester
	cfg      Config
	log      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// New constructs a Service.
func New(cfg Config, deps Deps, opts ...Option) (*Service, error) {
	switch {
	case deps.Accounts == nil, deps.Credentials == nil, deps.Sessions == nil,
		deps.Throttle == nil, deps.Codec == nil:
		return nil, errors.New("authsvc: missing dependency")
	case cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0:
		return nil, errors.New("authsvc: token TTLs must be positive")
	}

	s := &Service{
		accounts: deps.Accounts,
		creds:    deps.Credentials,
		sessions: deps.Sessions,
		throttle: deps.Throttle,
		codec:    deps.Codec,
		digester: deps.Digester,
		cfg:      cfg,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// RegisterInput is the payload of Register.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Device   Device
}

// Register creates an ACTIVE account and its first session.
func (s *Service) Register(ctx context.Context, in RegisterInput, now time.Time) (TokenPair, error) {
	if identity.ParseIdentifier(in.Email).Kind != identity.IdentifierByEmail {
		return TokenPair{}, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if identity.NormalizeName(in.Name) == "" {
		return TokenPair{}, fmt.Errorf("%w: name", ErrInvalidInput)
	}

	_, err := s.accounts.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return TokenPair{}, ErrEmailAlreadyRegistered
	case !identity.IsNotFound(err):
		return TokenPair{}, err
	}

	hash, err := s.creds.Hash(in.Password)
	if err != nil {
		if errors.Is(err, identity.ErrWeakCredential) {
			return TokenPair{}, fmt.Errorf("%w: %v", ErrInvalidPassword, err)
		}
		return TokenPair{}, err
	}

	acc, err := s.accounts.Create(ctx, identity.NewAccount{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Now:          now,
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			return TokenPair{}, ErrEmailAlreadyRegistered
		case identity.IsInvalidInput(err):
			return TokenPair{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return TokenPair{}, err
	}

	s.log.Info("auth.register.ok", "account_id", acc.ID)
	return s.issueSession(ctx, acc.ID, in.Device, now)
}

// LoginInput is the payload of Login.
type LoginInput struct {
	Email    string
	Password string
	Device   Device
}

// Login verifies credentials and opens a new session.
//
// A password mismatch records a throttle failure and returns a
// ThrottledError wrapping ErrInvalidCredentials; no token is issued.
func (s *Service) Login(ctx context.Context, in LoginInput, now time.Time) (TokenPair, error) {
	if in.Email == "" || in.Password == "" {
		return TokenPair{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	key := throttle.NewKey(in.Device.IP, in.Device.UserAgent, in.Email)

	if s.cfg.EnforceLoginBlock {
		wait, err := s.throttle.Blocked(ctx, key, now)
		if err != nil {
			return TokenPair{}, err
		}
		if wait > 0 {
			return TokenPair{}, ThrottledError{Err: ErrTooManyLoginAttempts, Wait: wait}
		}
	}

	acc, err := s.accounts.FindByEmail(ctx, in.Email)
	if err != nil {
		if identity.IsNotFound(err) {
			// Same hashing cost as a real account.
			_, _ = s.creds.Verify("", in.Password)
			return TokenPair{}, ErrEmailNotFound
		}
		return TokenPair{}, err
	}

	ok, err := s.creds.Verify(acc.PasswordHash, in.Password)
	if err != nil {
		return TokenPair{}, err
	}
	if !ok {
		v, err := s.throttle.RecordFailure(ctx, key, now)
		if err != nil {
			return TokenPair{}, err
		}
		s.log.Warn("auth.login.bad_password",
			"account_id", acc.ID,
			"attempts", v.Attempts,
			"retry_after_s", int64(v.Wait.Seconds()),
		)
		return TokenPair{}, ThrottledError{Err: ErrInvalidCredentials, Attempts: v.Attempts, Wait: v.Wait}
	}

	switch acc.Status {
	case identity.StatusLocked:
		return TokenPair{}, ErrAccountLocked
	case identity.StatusDeactivationRequested:
		if err := s.accounts.Reactivate(ctx, acc.ID, now); err != nil && !errors.Is(err, identity.ErrNotActive) {
			return TokenPair{}, err
		}
		s.log.Info("auth.login.reactivated", "account_id", acc.ID)
	}

	if err := s.throttle.Clear(ctx, in.Device.IP, in.Email); err != nil {
		return TokenPair{}, err
	}

	return s.issueSession(ctx, acc.ID, in.Device, now)
}

// rotationConflict tells a lost refresh race apart from a session revoked
// (or reaped) after it was read.
func (s *Service) rotationConflict(ctx context.Context, sessionID string) error {
	cur, err := s.sessions.GetByID(ctx, sessionID)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return ErrRevokedRefreshToken
	case err != nil:
		return err
	case cur.Revoked:
		return ErrRevokedRefreshToken
	}
	return ErrRefreshConflict
}

// Refresh mints a new access token for the session holding refreshToken.
// The refresh token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string, now time.Time) (TokenPair, error) {
	claims, verr := s.codec.Verify(refreshToken, token.KindRefresh, now)
	if verr != nil && !errors.Is(verr, token.ErrExpiredToken) {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	acc, err := s.accounts.FindByID(ctx, claims.Subject)
	if err != nil {
		if identity.IsNotFound(err) {
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, err
	}
	if acc.ID != claims.Subject {
		return TokenPair{}, ErrInvalidRefreshToken
	}
	if verr != nil || claims.IsExpired(now) {
		return TokenPair{}, ErrExpiredRefreshToken
	}

	row, err := s.sessions.GetByRefreshHash(ctx, s.digester.Digest(refreshToken))
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return TokenPair{}, ErrRevokedRefreshToken
		}
		return TokenPair{}, err
	}
	if row.Revoked {
		return TokenPair{}, ErrRevokedRefreshToken
	}
	if row.AccountID != acc.ID {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	access, accessExp, err := s.codec.Mint(acc.ID, token.KindAccess, s.cfg.AccessTokenTTL, now)
	if err != nil {
		return TokenPair{}, err
	}

	err = s.sessions.RotateAccess(ctx, session.AccessRotation{
		SessionID:          row.ID,
		PreviousAccessHash: row.AccessHash,
		AccessHash:         s.digester.Digest(access),
		AccessExpiresAt:    accessExp,
		Now:                token.IssueTime(now),
	})
	if err != nil {
		if errors.Is(err, session.ErrRotationConflict) {
			return TokenPair{}, s.rotationConflict(ctx, row.ID)
		}
		return TokenPair{}, err
	}

	return TokenPair{
		SessionID:        row.ID,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: row.RefreshExpiresAt,
	}, nil
}

// Authenticate resolves an access token to a Principal. The token must
// verify and a non-revoked session must still hold it.
func (s *Service) Authenticate(ctx context.Context, accessToken string, now time.Time) (Principal, error) {
	claims, err := s.codec.Verify(accessToken, token.KindAccess, now)
	switch {
	case errors.Is(err, token.ErrExpiredToken):
		return Principal{}, ErrExpiredSession
	case err != nil:
		return Principal{}, ErrInvalidAccessToken
	}

	row, err := s.sessions.GetActiveByAccessHash(ctx, s.digester.Digest(accessToken))
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return Principal{}, ErrExpiredSession
		}
		return Principal{}, err
	}
	if row.AccountID != claims.Subject {
		return Principal{}, ErrInvalidAccessToken
	}

	return Principal{AccountID: row.AccountID, SessionID: row.ID, AccessToken: accessToken}, nil
}

// RevokeCurrentSession revokes the session holding accessToken.
func (s *Service) RevokeCurrentSession(ctx context.Context, accessToken string, now time.Time) error {
	row, err := s.sessions.RevokeByAccessHash(ctx, s.digester.Digest(accessToken), now)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return ErrInvalidAccessToken
		}
		return err
	}
	s.log.Info("auth.logout.ok", "account_id", row.AccountID, "session_id", row.ID)
	return nil
}

// RevokeAllSessions revokes every active session of an account.
func (s *Service) RevokeAllSessions(ctx context.Context, accountID string, now time.Time) (int64, error) {
	n, err := s.sessions.RevokeAll(ctx, accountID, now)
	if err != nil {
		return 0, err
	}
	s.log.Info("auth.logout_all.ok", "account_id", accountID, "revoked", n)
	return n, nil
}

func (s *Service) issueSession(ctx context.Context, accountID string, dev Device, now time.Time) (TokenPair, error) {
	access, accessExp, err := s.codec.Mint(accountID, token.KindAccess, s.cfg.AccessTokenTTL, now)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := s.codec.Mint(accountID, token.KindRefresh, s.cfg.RefreshTokenTTL, now)
	if err != nil {
		return TokenPair{}, err
	}

	issuedAt := token.IssueTime(now)
	id, err := ids.NewULID(issuedAt)
	if err != nil {
		return TokenPair{}, err
	}

	err = s.sessions.Create(ctx, session.Session{
		ID:               id,
		AccountID:        accountID,
		AccessHash:       s.digester.Digest(access),
		RefreshHash:      s.digester.Digest(refresh),
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		CreatedAt:        issuedAt,
		UpdatedAt:        issuedAt,
		DeviceInfo:       dev.Info,
		DeviceIP:         dev.IP,
	})
	if err != nil {
		s.log.Error("auth.issue_session.fail", "account_id", accountID, "err", err)
		return TokenPair{}, err
	}

	return TokenPair{
		SessionID:        id,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}
