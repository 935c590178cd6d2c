package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingSecret is returned when no signing secret is configured.
	ErrMissingSecret = errors.New("security: missing jwt secret")
	// ErrMissingSubject is returned when a token carries no subject.
	ErrMissingSubject = errors.New("security: token has no subject")
)

// UserClaims are the claims issued by the hosted auth provider.
type UserClaims struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"user_name,omitempty"`
	jwt.RegisteredClaims
}

// ParseUserToken validates an HS256 token and returns its claims.
func ParseUserToken(secret, token string) (*UserClaims, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	claims := &UserClaims{}
	parsed, errParse := jwt.ParseWithClaims(
		strings.TrimSpace(token),
		claims,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	if errParse != nil {
		return nil, fmt.Errorf("security: parse token: %w", errParse)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("security: invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}

// IssueUserToken signs claims for subject. Used by tooling and tests.
func IssueUserToken(secret, subject, email string, ttl time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", ErrMissingSecret
	}
	claims := UserClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, errSign := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if errSign != nil {
		return "", fmt.Errorf("security: sign token: %w", errSign)
	}
	return signed, nil
}
