package fakebackend

import (
	"net/http"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-contest-portal/backend"
	"github.com/pkg/errors"
)

const issuer = "contest-portal-dev"

// Claims carried by an access token.
type Claims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	jwtlib.RegisteredClaims
}

func (b *Backend) issue(userID, email string, role Role) (string, error) {
	now := b.clock.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			Audience:  jwtlib.ClaimStrings{"authenticated"},
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(b.tokenTTL)),
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return "", errors.Wrap(err, "[Backend.issue] sign token")
	}
	return signed, nil
}

// Authenticate validates a bearer token. Any failure is reported the way the
// rest API reports an expired JWT.
func (b *Backend) Authenticate(raw string) (*Claims, *backend.Error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &backend.Error{Status: http.StatusUnauthorized, Code: backend.CodeJWTExpired, Message: "invalid JWT"}
	}

	claims := &Claims{}
	token, err := jwtlib.ParseWithClaims(raw, claims, func(*jwtlib.Token) (any, error) {
		return b.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(issuer),
		jwtlib.WithTimeFunc(b.clock.Now),
	)
	if err != nil || !token.Valid {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, backend.ErrJWTExpired()
		}
		return nil, &backend.Error{Status: http.StatusUnauthorized, Code: backend.CodeJWTExpired, Message: "invalid JWT"}
	}
	if b.revoked.IsRevoked(claims.ID) {
		return nil, &backend.Error{Status: http.StatusUnauthorized, Code: backend.CodeJWTExpired, Message: "invalid JWT"}
	}
	return claims, nil
}

// Logout revokes the token until its natural expiry.
func (b *Backend) Logout(raw string) *backend.Error {
	claims, berr := b.Authenticate(raw)
	if berr != nil {
		return berr
	}
	b.revoked.Add(claims.ID, claims.ExpiresAt.Time)
	return nil
}

// RevokedCount is the number of revocations still tracked.
func (b *Backend) RevokedCount() int {
	return b.revoked.Len()
}
