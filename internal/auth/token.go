package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/medatechnology/goutil/medaerror"
)

var (
	ErrInvalidToken medaerror.MedaError = medaerror.MedaError{Message: "invalid token"}
	ErrTokenExpired medaerror.MedaError = medaerror.MedaError{Message: "token has expired"}
)

// Tenant is the authenticated caller. Every user is its own tenant, so ID is
// both the user id and the tenant_id stamped on that user's rows.
type Tenant struct {
	ID    int64
	Email string
}

// Claims represents the JWT claims. The subject carries the email.
type Claims struct {
	TenantID int64 `json:"tenant_id"`
	jwt.RegisteredClaims
}

// Token is what login and signup hand back to the client.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expire"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Issuer signs and verifies HS256 tenant tokens.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewIssuer creates an issuer whose tokens live for ttl.
func NewIssuer(signingKey string, ttl time.Duration) *Issuer {
	return &Issuer{key: []byte(signingKey), ttl: ttl, now: time.Now}
}

// Issue signs a token for t.
func (i *Issuer) Issue(t Tenant) (Token, error) {
	if t.ID <= 0 {
		return Token{}, fmt.Errorf("%w: tenant id %d", ErrInvalidToken, t.ID)
	}

	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		TenantID: t.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   t.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	return Token{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64(i.ttl.Seconds()),
		ExpiresAt:   expiresAt,
	}, nil
}

// Parse verifies raw and returns the tenant it was issued for.
func (i *Issuer) Parse(raw string) (Tenant, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(token *jwt.Token) (interface{}, error) {
			return i.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Tenant{}, ErrTokenExpired
	case err != nil:
		return Tenant{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	case claims.TenantID <= 0:
		return Tenant{}, fmt.Errorf("%w: missing tenant_id", ErrInvalidToken)
	}

	return Tenant{ID: claims.TenantID, Email: claims.Subject}, nil
}
