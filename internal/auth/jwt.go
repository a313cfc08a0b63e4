package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT claims. Scope names the inventory the bearer
// may read and write.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// TokenExpiry is the default token lifetime.
const TokenExpiry = 30 * 24 * time.Hour

// ErrInvalidScope is returned for scope names outside [A-Za-z0-9_-]{1,64}.
var ErrInvalidScope = errors.New("invalid scope name")

var scopePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidScope reports whether scope is usable as a persistence key.
func ValidScope(scope string) bool {
	return scopePattern.MatchString(scope)
}

// GenerateToken creates a new JWT for a scope with a unique JTI. A
// non-positive ttl means TokenExpiry.
func GenerateToken(secret, scope string, ttl time.Duration) (string, error) {
	if !ValidScope(scope) {
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	if ttl <= 0 {
		ttl = TokenExpiry
	}

	jti, err := generateJTI()
	if err != nil {
		return "", fmt.Errorf("generating JTI: %w", err)
	}

	now := time.Now()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if !ValidScope(claims.Scope) {
		return nil, ErrInvalidScope
	}

	return claims, nil
}

// generateJTI creates a random token ID.
func generateJTI() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
