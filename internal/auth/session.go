package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	datamodel "github.com/frahmantamala/identity-service/internal/core/datamodel/principal"
)

// Claims is the session token claim set: subject is the principal id, Role
// picks the store the principal must be reloaded from.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SessionIssuer mints and verifies stateless HS256 session tokens. Validity
// is purely cryptographic plus expiry; there is no server-side revocation.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewSessionIssuer(secret string, ttl time.Duration) *SessionIssuer {
	return &SessionIssuer{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (s *SessionIssuer) Issue(principalID string, role datamodel.Role) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Resolve verifies signature and expiry. Expiry is distinguished from a bad
// signature here for logging only; the transport layer collapses both into
// one undifferentiated 401.
func (s *SessionIssuer) Resolve(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
