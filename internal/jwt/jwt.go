package jwt

import (
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"github.com/smallbiznis/launchpad/internal/domain"
)

// Signer issues and validates HS256 access tokens with a fixed claim shape.
type Signer struct {
	secret    []byte
	issuer    string
	audience  string
	accessTTL time.Duration
}

// NewSigner constructs a Signer from the injected signing material.
func NewSigner(secret []byte, issuer, audience string, accessTTL time.Duration) *Signer {
	return &Signer{secret: secret, issuer: issuer, audience: audience, accessTTL: accessTTL}
}

// AccessTokenClaims is the typed JWT payload for access tokens. Claims are
// fixed at issuance so validation cannot drift from what was signed.
type AccessTokenClaims struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Issue produces a signed JWT for the user and returns the token with its jti.
func (s *Signer) Issue(user domain.User) (string, string, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: s.secret},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", "", fmt.Errorf("new signer: %w", err)
	}

	now := time.Now().UTC()
	jti := uuid.NewString()
	std := gojwt.Claims{
		Subject:   fmt.Sprintf("%d", user.ID),
		Issuer:    s.issuer,
		Audience:  gojwt.Audience{s.audience},
		ID:        jti,
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
		Expiry:    gojwt.NewNumericDate(now.Add(s.accessTTL)),
	}
	custom := AccessTokenClaims{
		Email:     user.Email,
		Role:      user.Role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}

	token, err := gojwt.Signed(signer).Claims(std).Claims(custom).Serialize()
	if err != nil {
		return "", "", fmt.Errorf("serialize jwt: %w", err)
	}
	return token, jti, nil
}

// Validate verifies signature, issuer, audience and expiry, and returns the
// claims. The signing algorithm is pinned to HS256; tokens declaring any other
// header algorithm are rejected during parsing. Expired tokens fail validation
// and are not decodable through this path.
func (s *Signer) Validate(token string) (*gojwt.Claims, *AccessTokenClaims, error) {
	parsed, err := gojwt.ParseSigned(token, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return nil, nil, fmt.Errorf("parse token: %w", err)
	}

	var std gojwt.Claims
	var custom AccessTokenClaims
	if err := parsed.Claims(s.secret, &std, &custom); err != nil {
		return nil, nil, fmt.Errorf("verify token: %w", err)
	}

	if err := std.Validate(gojwt.Expected{
		Issuer:      s.issuer,
		AnyAudience: gojwt.Audience{s.audience},
		Time:        time.Now().UTC(),
	}); err != nil {
		return nil, nil, fmt.Errorf("validate claims: %w", err)
	}

	return &std, &custom, nil
}
