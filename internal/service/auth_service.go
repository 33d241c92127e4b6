package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/smallbiznis/launchpad/internal/config"
	"github.com/smallbiznis/launchpad/internal/domain"
	"github.com/smallbiznis/launchpad/internal/jwt"
	pw "github.com/smallbiznis/launchpad/internal/password"
	"github.com/smallbiznis/launchpad/internal/repository"
)

// TokenResponse is returned from login and refresh.
type TokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	User         *UserDTO `json:"user,omitempty"`
}

// UserDTO is the external shape of a user record.
type UserDTO struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// AuthError standardizes authentication failures for the transport layer.
type AuthError struct {
	Code        string
	Description string
	Status      int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func newAuthError(code, desc string, status int) *AuthError {
	return &AuthError{Code: code, Description: desc, Status: status}
}

// Credential and account-state failures share one description so callers
// cannot enumerate accounts.
func errInvalidCredentials() *AuthError {
	return newAuthError("invalid_credentials", "Wrong email or password.", http.StatusUnauthorized)
}

func errAccountInactive() *AuthError {
	return newAuthError("account_inactive", "Wrong email or password.", http.StatusUnauthorized)
}

func errInvalidRefreshToken() *AuthError {
	return newAuthError("invalid_refresh_token", "Invalid refresh token.", http.StatusUnauthorized)
}

// LockoutStore throttles repeated failed logins per account.
type LockoutStore interface {
	Locked(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Clear(ctx context.Context, key string) error
}

// AuthService owns the login, refresh rotation, and revocation flows.
type AuthService struct {
	users     repository.UserRepository
	tokens    repository.TokenRepository
	audits    repository.AuditRepository
	lockouts  LockoutStore
	snowflake *snowflake.Node
	signer    *jwt.Signer
	cfg       config.Config
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewAuthService wires dependencies.
func NewAuthService(users repository.UserRepository, tokens repository.TokenRepository, audits repository.AuditRepository, lockouts LockoutStore, node *snowflake.Node, signer *jwt.Signer, cfg config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		audits:    audits,
		lockouts:  lockouts,
		snowflake: node,
		signer:    signer,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer("github.com/smallbiznis/launchpad/internal/service"),
	}
}

// Register creates a new account with the default user role.
func (s *AuthService) Register(ctx context.Context, email, password, firstName, lastName, ip string) (*UserDTO, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Register")
	defer span.End()

	normalized := strings.ToLower(strings.TrimSpace(email))
	hashed, err := pw.Hash(password)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, domain.User{
		ID:           s.snowflake.Generate().Int64(),
		Email:        normalized,
		PasswordHash: hashed,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         "user",
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, newAuthError("duplicate_email", "Email is already registered.", http.StatusConflict)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.audit(ctx, "user.registered", "user", "account created", &user.ID, ip)
	return toUserDTO(user), nil
}

// Login verifies credentials and issues an access/refresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password, ip string) (*TokenResponse, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Login")
	defer span.End()

	normalized := strings.ToLower(strings.TrimSpace(email))

	if locked, err := s.lockouts.Locked(ctx, normalized); err != nil {
		s.log().Warn("lockout lookup failed", zap.Error(err))
	} else if locked {
		return nil, newAuthError("too_many_attempts", "Too many failed attempts. Try again later.", http.StatusTooManyRequests)
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			span.RecordError(err)
		}
		s.recordFailure(ctx, normalized)
		return nil, errInvalidCredentials()
	}

	valid, err := pw.Verify(password, user.PasswordHash)
	if err != nil || !valid {
		s.recordFailure(ctx, normalized)
		return nil, errInvalidCredentials()
	}

	if !user.IsActive {
		return nil, errAccountInactive()
	}

	if err := s.lockouts.Clear(ctx, normalized); err != nil {
		s.log().Warn("lockout clear failed", zap.Error(err))
	}

	access, _, err := s.signer.Issue(user)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refresh, err := s.tokens.Create(ctx, s.newRefreshToken(user.ID, ip))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.log().Warn("update last login failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	s.audit(ctx, "user.login", "user", "login succeeded", &user.ID, ip)

	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.cfg.AccessTokenTTL.Seconds()),
		User:         toUserDTO(user),
	}, nil
}

// Refresh exchanges an active refresh token for a new pair, revoking the old
// token and linking it to its replacement. A secret that is unknown, expired,
// or already revoked fails identically; replay after rotation always fails.
func (s *AuthService) Refresh(ctx context.Context, secret, ip string) (*TokenResponse, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Refresh")
	defer span.End()

	if secret == "" {
		return nil, errInvalidRefreshToken()
	}

	stored, err := s.tokens.GetByToken(ctx, secret)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			span.RecordError(err)
		}
		return nil, errInvalidRefreshToken()
	}
	if !stored.Active(time.Now().UTC()) {
		return nil, errInvalidRefreshToken()
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil || !user.IsActive {
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			span.RecordError(err)
		}
		return nil, errInvalidRefreshToken()
	}

	// Revoke-old and insert-new commit together; a racing refresh on the
	// same secret loses on the conditional update inside Rotate.
	replacement, err := s.tokens.Rotate(ctx, secret, ip, s.newRefreshToken(user.ID, ip))
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotActive) {
			return nil, errInvalidRefreshToken()
		}
		span.RecordError(err)
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	access, _, err := s.signer.Issue(user)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	s.audit(ctx, "token.refreshed", "refresh_token", "token rotated", &user.ID, ip)

	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: replacement.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// Logout revokes the presented refresh token. Revoking a token that is absent
// or already revoked is not an error.
func (s *AuthService) Logout(ctx context.Context, secret, ip string) bool {
	ctx, span := s.startSpan(ctx, "AuthService.Logout")
	defer span.End()

	if secret == "" {
		return true
	}
	if err := s.tokens.Revoke(ctx, secret, ip, ""); err != nil {
		if errors.Is(err, repository.ErrTokenNotActive) {
			return true
		}
		span.RecordError(err)
		s.log().Error("logout revoke failed", zap.Error(err))
		return false
	}

	s.audit(ctx, "user.logout", "refresh_token", "token revoked", nil, ip)
	return true
}

// RevokeAll severs every active session for the user.
func (s *AuthService) RevokeAll(ctx context.Context, userID int64, ip string) bool {
	ctx, span := s.startSpan(ctx, "AuthService.RevokeAll")
	defer span.End()

	revoked, err := s.tokens.RevokeAllForUser(ctx, userID, ip)
	if err != nil {
		span.RecordError(err)
		s.log().Error("revoke all failed", zap.Int64("user_id", userID), zap.Error(err))
		return false
	}

	s.audit(ctx, "token.revoke_all", "refresh_token", fmt.Sprintf("%d tokens revoked", revoked), &userID, ip)
	return true
}

// CurrentUser loads the profile for an authenticated subject.
func (s *AuthService) CurrentUser(ctx context.Context, userID int64) (*UserDTO, error) {
	ctx, span := s.startSpan(ctx, "AuthService.CurrentUser")
	defer span.End()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, newAuthError("user_not_found", "User not found.", http.StatusNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("load user: %w", err)
	}
	return toUserDTO(user), nil
}

// ValidateToken proxies access token validation for the HTTP middleware.
func (s *AuthService) ValidateToken(token string) (int64, *jwt.AccessTokenClaims, error) {
	std, custom, err := s.signer.Validate(token)
	if err != nil {
		return 0, nil, err
	}
	var userID int64
	if _, err := fmt.Sscanf(std.Subject, "%d", &userID); err != nil {
		return 0, nil, fmt.Errorf("invalid subject claim: %w", err)
	}
	return userID, custom, nil
}

func (s *AuthService) newRefreshToken(userID int64, ip string) domain.RefreshToken {
	return domain.RefreshToken{
		ID:          s.snowflake.Generate().Int64(),
		UserID:      userID,
		Token:       randomSecret(s.cfg.RefreshTokenBytes),
		ExpiresAt:   time.Now().UTC().Add(s.cfg.RefreshTokenTTL),
		CreatedByIP: ip,
	}
}

func (s *AuthService) recordFailure(ctx context.Context, key string) {
	if err := s.lockouts.RecordFailure(ctx, key); err != nil {
		s.log().Warn("lockout record failed", zap.Error(err))
	}
}

func (s *AuthService) audit(ctx context.Context, action, resource, details string, userID *int64, ip string) {
	fields := []zap.Field{
		zap.String("event", action),
		zap.String("resource", resource),
		zap.String("client_ip", ip),
		zap.Time("timestamp", time.Now().UTC()),
	}
	if userID != nil {
		fields = append(fields, zap.Int64("user_id", *userID))
	}
	s.log().Info("audit", fields...)

	if s.audits == nil {
		return
	}
	entry := domain.AuditEntry{
		ID:        s.snowflake.Generate().Int64(),
		Action:    action,
		Resource:  resource,
		Details:   details,
		UserID:    userID,
		IPAddress: ip,
	}
	if err := s.audits.Insert(ctx, entry); err != nil {
		s.log().Warn("audit insert failed", zap.String("event", action), zap.Error(err))
	}
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *AuthService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}

func toUserDTO(user domain.User) *UserDTO {
	return &UserDTO{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
	}
}

func randomSecret(n int) string {
	if n <= 0 {
		n = 32
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
