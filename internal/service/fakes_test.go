package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/smallbiznis/launchpad/internal/domain"
	"github.com/smallbiznis/launchpad/internal/repository"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[int64]domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[int64]domain.User{}}
}

func (r *memUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return domain.User{}, repository.ErrEmailTaken
		}
	}
	user.CreatedAt = time.Now().UTC()
	r.users[user.ID] = user
	return user, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (r *memUserRepo) GetByID(_ context.Context, userID int64) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (r *memUserRepo) UpdateLastLogin(_ context.Context, userID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	user.LastLoginAt = &at
	r.users[userID] = user
	return nil
}

func (r *memUserRepo) setActive(userID int64, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user := r.users[userID]
	user.IsActive = active
	r.users[userID] = user
}

// memTokenRepo mirrors the conditional-update semantics of the postgres repo:
// revocation only succeeds while revoked is still false, and rotation commits
// the revoke and the insert together under one lock.
type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]domain.RefreshToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: map[string]domain.RefreshToken{}}
}

func (r *memTokenRepo) Create(_ context.Context, token domain.RefreshToken) (domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token.CreatedAt = time.Now().UTC()
	r.tokens[token.Token] = token
	return token, nil
}

func (r *memTokenRepo) GetByToken(_ context.Context, secret string) (domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[secret]
	if !ok {
		return domain.RefreshToken{}, pgx.ErrNoRows
	}
	return token, nil
}

func (r *memTokenRepo) revokeLocked(secret, ip, replacedBy string) error {
	token, ok := r.tokens[secret]
	if !ok || token.Revoked {
		return repository.ErrTokenNotActive
	}
	now := time.Now().UTC()
	token.Revoked = true
	token.RevokedAt = &now
	token.RevokedByIP = ip
	token.ReplacedByToken = replacedBy
	r.tokens[secret] = token
	return nil
}

func (r *memTokenRepo) Revoke(_ context.Context, secret, ip, replacedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revokeLocked(secret, ip, replacedBy)
}

func (r *memTokenRepo) Rotate(_ context.Context, oldSecret, ip string, replacement domain.RefreshToken) (domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.revokeLocked(oldSecret, ip, replacement.Token); err != nil {
		return domain.RefreshToken{}, err
	}
	replacement.CreatedAt = time.Now().UTC()
	r.tokens[replacement.Token] = replacement
	return replacement, nil
}

func (r *memTokenRepo) RevokeAllForUser(_ context.Context, userID int64, ip string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var revoked int64
	for secret, token := range r.tokens {
		if token.UserID != userID || token.Revoked || token.Expired(now) {
			continue
		}
		token.Revoked = true
		token.RevokedAt = &now
		token.RevokedByIP = ip
		r.tokens[secret] = token
		revoked++
	}
	return revoked, nil
}

func (r *memTokenRepo) IsValid(ctx context.Context, secret string) (bool, error) {
	token, err := r.GetByToken(ctx, secret)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return token.Active(time.Now().UTC()), nil
}

func (r *memTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for secret, token := range r.tokens {
		if token.ExpiresAt.Before(now) {
			delete(r.tokens, secret)
			removed++
		}
	}
	return removed, nil
}

func (r *memTokenRepo) activeCount(userID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	count := 0
	for _, token := range r.tokens {
		if token.UserID == userID && token.Active(now) {
			count++
		}
	}
	return count
}

type memLockoutStore struct {
	mu       sync.Mutex
	failures map[string]int
	attempts int
}

func newMemLockoutStore(attempts int) *memLockoutStore {
	return &memLockoutStore{failures: map[string]int{}, attempts: attempts}
}

func (s *memLockoutStore) Locked(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[key] >= s.attempts, nil
}

func (s *memLockoutStore) RecordFailure(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[key]++
	return nil
}

func (s *memLockoutStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, key)
	return nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (r *memAuditRepo) Insert(_ context.Context, entry domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

type memCustomerRepo struct {
	mu        sync.Mutex
	customers map[int64]domain.Customer
}

func newMemCustomerRepo() *memCustomerRepo {
	return &memCustomerRepo{customers: map[int64]domain.Customer{}}
}

func (r *memCustomerRepo) Create(_ context.Context, customer domain.Customer) (domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	customer.CreatedAt = now
	customer.UpdatedAt = now
	r.customers[customer.ID] = customer
	return customer, nil
}

func (r *memCustomerRepo) GetByID(_ context.Context, id int64) (domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	customer, ok := r.customers[id]
	if !ok {
		return domain.Customer{}, pgx.ErrNoRows
	}
	return customer, nil
}

func (r *memCustomerRepo) List(_ context.Context) ([]domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Customer, 0, len(r.customers))
	for _, customer := range r.customers {
		out = append(out, customer)
	}
	return out, nil
}

func (r *memCustomerRepo) Update(_ context.Context, customer domain.Customer) (domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.customers[customer.ID]
	if !ok {
		return domain.Customer{}, pgx.ErrNoRows
	}
	customer.CreatedAt = existing.CreatedAt
	customer.UpdatedAt = time.Now().UTC()
	r.customers[customer.ID] = customer
	return customer, nil
}

func (r *memCustomerRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.customers[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.customers, id)
	return nil
}
