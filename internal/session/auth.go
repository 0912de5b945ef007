package session

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSessionExpired is returned when a bearer token is malformed, expired,
// or otherwise fails verification; callers surface this as the
// session_expired error code.
var ErrSessionExpired = errors.New("session_expired")

// Claims is the bearer token payload: a player identity bound by signature,
// nothing more. Authorization beyond identity (table membership, wallet
// balance) is decided by the table actor and the wallet collaborator.
type Claims struct {
	PlayerID string `json:"player_id"`
	jwt.RegisteredClaims
}

// Authenticator verifies HMAC-signed bearer tokens presented on attach.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator builds an Authenticator around a shared HMAC secret.
func NewAuthenticator(secret []byte) *Authenticator {
	return &Authenticator{secret: secret}
}

// Verify parses and validates a bearer token, returning the bound player
// identity.
func (a *Authenticator) Verify(token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrSessionExpired
	}
	if claims.PlayerID == "" {
		return "", fmt.Errorf("token missing player_id claim")
	}
	return claims.PlayerID, nil
}
