package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is what a bearer token says about its holder.
type Identity struct {
	UserID uint
	Role   string
}

// GenerateToken signs an HS256 token carrying the user id and role name.
func GenerateToken(secret string, identity Identity, ttl time.Duration) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, errors.New("empty signing secret")
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": identity.UserID,
		"role":    identity.Role,
		"exp":     exp.Unix(),
		"iat":     now.Unix(),
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseToken verifies raw and extracts the identity. Any failure, including
// expiry, wraps ErrInvalidToken.
func ParseToken(secret, raw string) (Identity, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return Identity{}, ErrInvalidToken
	}

	// JSON numbers decode as float64.
	rawID, ok := claims["user_id"].(float64)
	if !ok || rawID <= 0 {
		return Identity{}, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return Identity{}, fmt.Errorf("%w: missing role", ErrInvalidToken)
	}

	return Identity{UserID: uint(rawID), Role: role}, nil
}
