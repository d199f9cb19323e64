// Package auth issues and checks access tokens and owns the user lifecycle.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"monthlydata/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	LoginTokenTTL   = 24 * time.Hour
	RefreshTokenTTL = 30 * 24 * time.Hour
	// RefreshedTokenTTL is the lifetime of access tokens minted from a refresh token.
	RefreshedTokenTTL = 15 * time.Minute
)

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID   uint   `json:"_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the identity may write records.
func (i Identity) IsAdmin() bool { return i.Role == models.RoleAdministrator }

type claims struct {
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 access tokens.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

func NewTokens(secret []byte) *Tokens {
	return &Tokens{secret: secret, now: time.Now}
}

// Issue signs a token for id valid for ttl.
func (t *Tokens) Issue(id Identity, ttl time.Duration) (string, error) {
	now := t.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: id.Username,
		Role:     id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(id.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	s, err := tok.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Parse verifies the signature and expiry and returns the identity in the token.
func (t *Tokens) Parse(tokenString string) (Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, errors.New("invalid token")
	}
	uid, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || uid == 0 {
		return Identity{}, errors.New("invalid subject claim")
	}
	return Identity{UserID: uint(uid), Username: c.Username, Role: c.Role}, nil
}
