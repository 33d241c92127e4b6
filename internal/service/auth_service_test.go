package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/launchpad/internal/config"
	"github.com/smallbiznis/launchpad/internal/jwt"
)

type authFixture struct {
	svc      *AuthService
	users    *memUserRepo
	tokens   *memTokenRepo
	audits   *memAuditRepo
	lockouts *memLockoutStore
	signer   *jwt.Signer
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.Config{
		JWTSecret:         []byte("test-secret-test-secret-test-secret"),
		JWTIssuer:         "launchpad",
		JWTAudience:       "launchpad-users",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   7 * 24 * time.Hour,
		RefreshTokenBytes: 32,
		LockoutAttempts:   3,
		LockoutWindow:     5 * time.Minute,
	}

	users := newMemUserRepo()
	tokens := newMemTokenRepo()
	audits := &memAuditRepo{}
	lockouts := newMemLockoutStore(cfg.LockoutAttempts)
	signer := jwt.NewSigner(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTokenTTL)

	return &authFixture{
		svc:      NewAuthService(users, tokens, audits, lockouts, node, signer, cfg, zap.NewNop()),
		users:    users,
		tokens:   tokens,
		audits:   audits,
		lockouts: lockouts,
		signer:   signer,
	}
}

func (f *authFixture) registerAndLogin(t *testing.T, email, password string) *TokenResponse {
	t.Helper()
	ctx := context.Background()

	_, err := f.svc.Register(ctx, email, password, "Test", "User", "10.0.0.1")
	require.NoError(t, err)

	resp, err := f.svc.Login(ctx, email, password, "10.0.0.1")
	require.NoError(t, err)
	return resp
}

func requireAuthError(t *testing.T, err error, code string) *AuthError {
	t.Helper()
	require.Error(t, err)
	authErr, ok := err.(*AuthError)
	require.True(t, ok, "expected *AuthError, got %T: %v", err, err)
	require.Equal(t, code, authErr.Code)
	return authErr
}

func TestLoginIssuesTokenPair(t *testing.T) {
	f := newAuthFixture(t)
	resp := f.registerAndLogin(t, "alice@example.com", "correct horse battery")

	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, int((15 * time.Minute).Seconds()), resp.ExpiresIn)
	require.NotNil(t, resp.User)
	require.Equal(t, "alice@example.com", resp.User.Email)

	std, custom, err := f.signer.Validate(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", custom.Email)
	require.Equal(t, "user", custom.Role)
	require.NotEmpty(t, std.Subject)

	stored, err := f.tokens.GetByToken(context.Background(), resp.RefreshToken)
	require.NoError(t, err)
	require.True(t, stored.Active(time.Now().UTC()))
	require.Equal(t, "10.0.0.1", stored.CreatedByIP)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.registerAndLogin(t, "alice@example.com", "correct horse battery")

	_, err := f.svc.Login(context.Background(), "alice@example.com", "wrong", "10.0.0.1")
	authErr := requireAuthError(t, err, "invalid_credentials")
	require.Equal(t, 401, authErr.Status)
}

func TestLoginUnknownEmailMatchesWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.registerAndLogin(t, "alice@example.com", "correct horse battery")

	_, unknownErr := f.svc.Login(context.Background(), "nobody@example.com", "whatever", "10.0.0.1")
	_, wrongErr := f.svc.Login(context.Background(), "alice@example.com", "wrong", "10.0.0.1")

	unknown := requireAuthError(t, unknownErr, "invalid_credentials")
	wrong := requireAuthError(t, wrongErr, "invalid_credentials")
	require.Equal(t, unknown.Description, wrong.Description)
	require.Equal(t, unknown.Status, wrong.Status)
}

func TestLoginInactiveAccountIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	resp := f.registerAndLogin(t, "alice@example.com", "correct horse battery")
	f.users.setActive(resp.User.ID, false)

	_, err := f.svc.Login(context.Background(), "alice@example.com", "correct horse battery", "10.0.0.1")
	authErr := requireAuthError(t, err, "account_inactive")

	wrong := errInvalidCredentials()
	require.Equal(t, wrong.Description, authErr.Description)
	require.Equal(t, wrong.Status, authErr.Status)
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	f := newAuthFixture(t)
	f.registerAndLogin(t, "alice@example.com", "correct horse battery")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Login(ctx, "alice@example.com", "wrong", "10.0.0.1")
		requireAuthError(t, err, "invalid_credentials")
	}

	_, err := f.svc.Login(ctx, "alice@example.com", "correct horse battery", "10.0.0.1")
	authErr := requireAuthError(t, err, "too_many_attempts")
	require.Equal(t, 429, authErr.Status)
}

func TestLockoutClearsOnSuccessfulLogin(t *testing.T) {
	f := newAuthFixture(t)
	f.registerAndLogin(t, "alice@example.com", "correct horse battery")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.Login(ctx, "alice@example.com", "wrong", "10.0.0.1")
		requireAuthError(t, err, "invalid_credentials")
	}

	_, err := f.svc.Login(ctx, "alice@example.com", "correct horse battery", "10.0.0.1")
	require.NoError(t, err)

	locked, err := f.lockouts.Locked(ctx, "alice@example.com")
	require.NoError(t, err)
	require.False(t, locked)
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newAuthFixture(t)
	resp := f.registerAndLogin(t, "alice@example.com", "correct horse battery")
	ctx := context.Background()

	rotated, err := f.svc.Refresh(ctx, resp.RefreshToken, "10.0.0.2")
	require.NoError(t, err)
	require.NotEmpty(t, rotated.AccessToken)
	require.NotEqual(t, resp.RefreshToken, rotated.RefreshToken)

	old, err := f.tokens.GetByToken(ctx, resp.RefreshToken)
	require.NoError(t, err)
	require.True(t, old.Revoked)
	require.NotNil(t, old.RevokedAt)
	require.Equal(t, "10.0.0.2", old.RevokedByIP)
	require.Equal(t, rotated.RefreshToken, old.ReplacedByToken)

	replacement, err := f.tokens.GetByToken(ctx, rotated.RefreshToken)
	require.NoError(t, err)
	require.True(t, replacement.Active(time.Now().UTC()))
}

func TestRefreshReplayAfterRotationFails(t *testing.T) {
	f := newAuthFixture(t)
	resp := f.registerAndLogin(t, "alice@example.com", "correct horse battery")
	ctx := context.Background()

	_, err := f.svc.Refresh(ctx, resp.RefreshToken, "10.0.0.2")
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, resp.RefreshToken, "10.0.0.3")
	requireAuthError(t, err, "invalid_refresh_token")
}

func TestRefreshUnknownToken(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Refresh(context.Background(), "no-such-secret", "10.0.0.1")
	requireAuthError(t, err, "invalid_refresh_token")
}

func TestRefreshEmptyToken(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Refresh(context.Background(), "", "10.0.0.1")
	requireAuthError(t, err, "invalid_refresh_token")
}

func TestRefreshExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	resp := f.registerAndLogin(t, "alice@example.com", "correct horse battery")
	ctx := context.Background()

	f.tokens.mu.Lock()
	token := f.tokens.tokens[resp.RefreshToken]
	token.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	f.tokens.tokens[resp.RefreshToken] = token
	f.tokens.mu.Unlock()

	_, err := f.svc.Refresh(ctx, resp.RefreshToken, "10.0.0.1")
	requireAuthError(t, err, "invalid_refresh_token")
}

func TestRefreshInactiveUser(t *testing.T) {
	f := newAuthFixture(t)
	resp := f.registerAndLogin(t, "alice@example.com", "correct horse battery")
	f.users.setActive(resp.User.ID, false)

	_, err := f.svc.Refresh(context.Background(), resp.RefreshToken, "10.0.0.1")
	requireAuthError(t, err, "invalid_refresh_token")
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	f := newAuthFixture(t)
	resp := f.registerAndLogin(t, "alice@example.com", "correct horse battery")
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	results := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.Refresh(ctx, resp.RefreshToken, "10.0.0.1")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		requireAuthError(t, err, "invalid_refresh_token")
	}
	require.Equal(t, 1, winners)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newAuthFixture(t)
	resp := f.registerAndLogin(t, "alice@example.com", "correct horse battery")
	ctx := context.Background()

	require.True(t, f.svc.Logout(ctx, resp.RefreshToken, "10.0.0.1"))

	stored, err := f.tokens.GetByToken(ctx, resp.RefreshToken)
	require.NoError(t, err)
	require.True(t, stored.Revoked)
	require.Empty(t, stored.ReplacedByToken)

	_, err = f.svc.Refresh(ctx, resp.RefreshToken, "10.0.0.1")
	requireAuthError(t, err, "invalid_refresh_token")
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newAuthFixture(t)
	resp := f.registerAndLogin(t, "alice@example.com", "correct horse battery")
	ctx := context.Background()

	require.True(t, f.svc.Logout(ctx, resp.RefreshToken, "10.0.0.1"))
	require.True(t, f.svc.Logout(ctx, resp.RefreshToken, "10.0.0.1"))
	require.True(t, f.svc.Logout(ctx, "never-issued", "10.0.0.1"))
	require.True(t, f.svc.Logout(ctx, "", "10.0.0.1"))
}

func TestRevokeAllSeversEverySession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	first := f.registerAndLogin(t, "alice@example.com", "correct horse battery")
	second, err := f.svc.Login(ctx, "alice@example.com", "correct horse battery", "10.0.0.1")
	require.NoError(t, err)
	other := f.registerAndLogin(t, "bob@example.com", "another password here")

	require.True(t, f.svc.RevokeAll(ctx, first.User.ID, "10.0.0.1"))
	require.Equal(t, 0, f.tokens.activeCount(first.User.ID))
	require.Equal(t, 1, f.tokens.activeCount(other.User.ID))

	_, err = f.svc.Refresh(ctx, second.RefreshToken, "10.0.0.1")
	requireAuthError(t, err, "invalid_refresh_token")

	_, err = f.svc.Refresh(ctx, other.RefreshToken, "10.0.0.1")
	require.NoError(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "alice@example.com", "correct horse battery", "Alice", "A", "10.0.0.1")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "Alice@Example.com", "different password", "Alice", "B", "10.0.0.1")
	authErr := requireAuthError(t, err, "duplicate_email")
	require.Equal(t, 409, authErr.Status)
}

func TestCurrentUser(t *testing.T) {
	f := newAuthFixture(t)
	resp := f.registerAndLogin(t, "alice@example.com", "correct horse battery")
	ctx := context.Background()

	user, err := f.svc.CurrentUser(ctx, resp.User.ID)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)

	_, err = f.svc.CurrentUser(ctx, 99999)
	authErr := requireAuthError(t, err, "user_not_found")
	require.Equal(t, 404, authErr.Status)
}

func TestValidateTokenRoundTrip(t *testing.T) {
	f := newAuthFixture(t)
	resp := f.registerAndLogin(t, "alice@example.com", "correct horse battery")

	userID, claims, err := f.svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, resp.User.ID, userID)
	require.Equal(t, "alice@example.com", claims.Email)

	_, _, err = f.svc.ValidateToken("not-a-jwt")
	require.Error(t, err)
}
