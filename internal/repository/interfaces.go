package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/launchpad/internal/domain"
)

// ErrTokenNotActive is returned by conditional revocation when the token is
// absent or already revoked. Callers cannot distinguish the two cases, which
// keeps replayed secrets indistinguishable from unknown ones.
var ErrTokenNotActive = errors.New("refresh token not found or already revoked")

// ErrEmailTaken is returned when a user insert hits the unique email index.
var ErrEmailTaken = errors.New("email already registered")

// UserRepository exposes persistence for platform users.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, userID int64) (domain.User, error)
	UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error
}

// TokenRepository handles refresh token persistence. Revoke and Rotate use
// conditional updates (revoked = false) so concurrent callers racing on the
// same secret see at most one winner.
type TokenRepository interface {
	Create(ctx context.Context, token domain.RefreshToken) (domain.RefreshToken, error)
	GetByToken(ctx context.Context, secret string) (domain.RefreshToken, error)
	Revoke(ctx context.Context, secret, ip, replacedBy string) error
	Rotate(ctx context.Context, oldSecret, ip string, replacement domain.RefreshToken) (domain.RefreshToken, error)
	RevokeAllForUser(ctx context.Context, userID int64, ip string) (int64, error)
	IsValid(ctx context.Context, secret string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CustomerRepository exposes customer CRUD.
type CustomerRepository interface {
	Create(ctx context.Context, customer domain.Customer) (domain.Customer, error)
	GetByID(ctx context.Context, id int64) (domain.Customer, error)
	List(ctx context.Context) ([]domain.Customer, error)
	Update(ctx context.Context, customer domain.Customer) (domain.Customer, error)
	Delete(ctx context.Context, id int64) error
}

// AuditRepository persists audit entries. Writes are best-effort; callers may
// ignore failures.
type AuditRepository interface {
	Insert(ctx context.Context, entry domain.AuditEntry) error
}
