package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallbiznis/launchpad/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserRepository     = (*PostgresUserRepo)(nil)
	_ TokenRepository    = (*PostgresTokenRepo)(nil)
	_ CustomerRepository = (*PostgresCustomerRepo)(nil)
	_ AuditRepository    = (*PostgresAuditRepo)(nil)
)

const uniqueViolation = "23505"

// PostgresUserRepo implements UserRepository.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

const insertUserSQL = `INSERT INTO users (id, email, password_hash, first_name, last_name, role, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, email, password_hash, first_name, last_name, role, is_active, created_at, last_login_at`

const selectUserSQL = `SELECT id, email, password_hash, first_name, last_name, role, is_active, created_at, last_login_at
FROM users`

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	row := r.db.QueryRow(ctx, insertUserSQL,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
		user.IsActive,
	)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRow(ctx, selectUserSQL+` WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, userID int64) (domain.User, error) {
	row := r.db.QueryRow(ctx, selectUserSQL+` WHERE id = $1`, userID)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error {
	if _, err := r.db.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, userID, at); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.LastLoginAt,
	)
	return user, err
}

// PostgresTokenRepo implements TokenRepository.
type PostgresTokenRepo struct {
	db *pgxpool.Pool
}

func NewPostgresTokenRepo(pool *pgxpool.Pool) *PostgresTokenRepo {
	return &PostgresTokenRepo{db: pool}
}

const insertTokenSQL = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_by_ip)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, token, expires_at, created_at, created_by_ip, revoked, revoked_at, revoked_by_ip, replaced_by_token`

const selectTokenSQL = `SELECT id, user_id, token, expires_at, created_at, created_by_ip, revoked, revoked_at, revoked_by_ip, replaced_by_token
FROM refresh_tokens WHERE token = $1`

// revokeTokenSQL flips a token to revoked only while it is still unrevoked.
// The revoked branch of a record is immutable afterwards.
const revokeTokenSQL = `UPDATE refresh_tokens
SET revoked = true, revoked_at = $2, revoked_by_ip = $3, replaced_by_token = $4
WHERE token = $1 AND revoked = false`

func (r *PostgresTokenRepo) Create(ctx context.Context, token domain.RefreshToken) (domain.RefreshToken, error) {
	row := r.db.QueryRow(ctx, insertTokenSQL,
		token.ID,
		token.UserID,
		token.Token,
		token.ExpiresAt,
		token.CreatedByIP,
	)
	created, err := scanToken(row)
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("insert refresh token: %w", err)
	}
	return created, nil
}

func (r *PostgresTokenRepo) GetByToken(ctx context.Context, secret string) (domain.RefreshToken, error) {
	token, err := scanToken(r.db.QueryRow(ctx, selectTokenSQL, secret))
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("get refresh token: %w", err)
	}
	return token, nil
}

func (r *PostgresTokenRepo) Revoke(ctx context.Context, secret, ip, replacedBy string) error {
	tag, err := r.db.Exec(ctx, revokeTokenSQL, secret, time.Now().UTC(), ip, nullIfEmpty(replacedBy))
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotActive
	}
	return nil
}

// Rotate revokes the presented secret and persists its replacement in one
// transaction. The conditional update means two rotations racing on the same
// secret commit at most once; the loser gets ErrTokenNotActive.
func (r *PostgresTokenRepo) Rotate(ctx context.Context, oldSecret, ip string, replacement domain.RefreshToken) (domain.RefreshToken, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("begin rotate: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, revokeTokenSQL, oldSecret, time.Now().UTC(), ip, replacement.Token)
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("rotate revoke: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.RefreshToken{}, ErrTokenNotActive
	}

	created, err := scanToken(tx.QueryRow(ctx, insertTokenSQL,
		replacement.ID,
		replacement.UserID,
		replacement.Token,
		replacement.ExpiresAt,
		replacement.CreatedByIP,
	))
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("rotate insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.RefreshToken{}, fmt.Errorf("commit rotate: %w", err)
	}
	return created, nil
}

func (r *PostgresTokenRepo) RevokeAllForUser(ctx context.Context, userID int64, ip string) (int64, error) {
	now := time.Now().UTC()
	tag, err := r.db.Exec(ctx, `UPDATE refresh_tokens
SET revoked = true, revoked_at = $2, revoked_by_ip = $3
WHERE user_id = $1 AND revoked = false AND expires_at > $2`, userID, now, ip)
	if err != nil {
		return 0, fmt.Errorf("revoke all for user: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresTokenRepo) IsValid(ctx context.Context, secret string) (bool, error) {
	token, err := r.GetByToken(ctx, secret)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return token.Active(time.Now().UTC()), nil
}

// DeleteExpired removes every record past its expiry, revoked or not. The
// audit trail lives in audit_logs; a token past expiry can no longer be
// exchanged, so the row carries no security value.
func (r *PostgresTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanToken(row pgx.Row) (domain.RefreshToken, error) {
	var (
		token       domain.RefreshToken
		revokedByIP *string
		replacedBy  *string
	)
	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.Token,
		&token.ExpiresAt,
		&token.CreatedAt,
		&token.CreatedByIP,
		&token.Revoked,
		&token.RevokedAt,
		&revokedByIP,
		&replacedBy,
	)
	if err != nil {
		return domain.RefreshToken{}, err
	}
	if revokedByIP != nil {
		token.RevokedByIP = *revokedByIP
	}
	if replacedBy != nil {
		token.ReplacedByToken = *replacedBy
	}
	return token, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// PostgresCustomerRepo implements CustomerRepository.
type PostgresCustomerRepo struct {
	db *pgxpool.Pool
}

func NewPostgresCustomerRepo(pool *pgxpool.Pool) *PostgresCustomerRepo {
	return &PostgresCustomerRepo{db: pool}
}

const selectCustomerSQL = `SELECT id, business_name, first_name, last_name, tax_id, email, phone, created_at, updated_at
FROM customers`

func (r *PostgresCustomerRepo) Create(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO customers (id, business_name, first_name, last_name, tax_id, email, phone)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, business_name, first_name, last_name, tax_id, email, phone, created_at, updated_at`,
		customer.ID,
		customer.BusinessName,
		customer.FirstName,
		customer.LastName,
		customer.TaxID,
		customer.Email,
		customer.Phone,
	)
	created, err := scanCustomer(row)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return created, nil
}

func (r *PostgresCustomerRepo) GetByID(ctx context.Context, id int64) (domain.Customer, error) {
	customer, err := scanCustomer(r.db.QueryRow(ctx, selectCustomerSQL+` WHERE id = $1`, id))
	if err != nil {
		return domain.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return customer, nil
}

func (r *PostgresCustomerRepo) List(ctx context.Context) ([]domain.Customer, error) {
	rows, err := r.db.Query(ctx, selectCustomerSQL+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

func (r *PostgresCustomerRepo) Update(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	row := r.db.QueryRow(ctx, `UPDATE customers
SET business_name = $2, first_name = $3, last_name = $4, tax_id = $5, email = $6, phone = $7, updated_at = now()
WHERE id = $1
RETURNING id, business_name, first_name, last_name, tax_id, email, phone, created_at, updated_at`,
		customer.ID,
		customer.BusinessName,
		customer.FirstName,
		customer.LastName,
		customer.TaxID,
		customer.Email,
		customer.Phone,
	)
	updated, err := scanCustomer(row)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	return updated, nil
}

func (r *PostgresCustomerRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanCustomer(row pgx.Row) (domain.Customer, error) {
	var customer domain.Customer
	err := row.Scan(
		&customer.ID,
		&customer.BusinessName,
		&customer.FirstName,
		&customer.LastName,
		&customer.TaxID,
		&customer.Email,
		&customer.Phone,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	return customer, err
}

// PostgresAuditRepo implements AuditRepository.
type PostgresAuditRepo struct {
	db *pgxpool.Pool
}

func NewPostgresAuditRepo(pool *pgxpool.Pool) *PostgresAuditRepo {
	return &PostgresAuditRepo{db: pool}
}

func (r *PostgresAuditRepo) Insert(ctx context.Context, entry domain.AuditEntry) error {
	_, err := r.db.Exec(ctx, `INSERT INTO audit_logs (id, action, resource, details, user_id, ip_address)
VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID,
		entry.Action,
		entry.Resource,
		entry.Details,
		entry.UserID,
		entry.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
