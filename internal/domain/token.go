package domain

import "time"

// RefreshToken persists one long-lived credential in the rotation chain.
// Once revoked a record never becomes active again; ReplacedByToken points
// at the secret that superseded it.
type RefreshToken struct {
	ID              int64
	UserID          int64
	Token           string
	ExpiresAt       time.Time
	CreatedAt       time.Time
	CreatedByIP     string
	Revoked         bool
	RevokedAt       *time.Time
	RevokedByIP     string
	ReplacedByToken string
}

// Expired reports whether the token is past its expiry at the given instant.
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Active reports whether the token can still be exchanged.
func (t RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && !t.Expired(now)
}
