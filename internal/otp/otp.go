package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"

	datamodel "github.com/frahmantamala/identity-service/internal/core/datamodel/principal"
)

// CodeTTL is how long a recovery code stays valid after issuance.
const CodeTTL = 3 * time.Minute

const resetAudience = "password-reset"

var (
	ErrCodeInvalid       = errors.New("recovery code is invalid or expired")
	ErrResetTokenInvalid = errors.New("reset token is invalid or expired")
	ErrPasswordMismatch  = errors.New("password confirmation does not match")
)

// GenerateCode returns a 6-digit recovery code from crypto/rand. Leading
// zeros are preserved, so the space is the full 000000-999999.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate recovery code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashCode is the digest of a recovery code embedded into reset tokens, so
// the token proves which code was verified without carrying it.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func codeHashEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ResetClaims bind a reset token to one principal and one verified code.
type ResetClaims struct {
	Kind     string `json:"kind"`
	CodeHash string `json:"code_hash"`
	jwt.RegisteredClaims
}

// ResetTokenIssuer mints the single-use capability token returned by code
// verification and consumed by password reset. Single use is enforced by the
// stored code, not the token: resetting clears the code, and the token's
// embedded code hash then matches nothing.
type ResetTokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewResetTokenIssuer(secret string, ttl time.Duration) *ResetTokenIssuer {
	return &ResetTokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue mints a reset token. Expiry is the issuer TTL capped at notAfter,
// so the token never outlives the code it was issued for.
func (i *ResetTokenIssuer) Issue(principalID string, kind datamodel.Kind, code string, now, notAfter time.Time) (string, error) {
	expires := now.Add(i.ttl)
	if notAfter.Before(expires) {
		expires = notAfter
	}

	claims := &ResetClaims{
		Kind:     string(kind),
		CodeHash: HashCode(code),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			Audience:  jwt.ClaimStrings{resetAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Resolve verifies signature, expiry and audience. A session token presented
// here fails the audience check.
func (i *ResetTokenIssuer) Resolve(tokenString string) (*ResetClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ResetClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithAudience(resetAudience))

	if err != nil {
		return nil, ErrResetTokenInvalid
	}

	claims, ok := token.Claims.(*ResetClaims)
	if !ok || !token.Valid {
		return nil, ErrResetTokenInvalid
	}
	return claims, nil
}
