// Package auth verifies the HS256 bearer tokens issued to OpenMusic users.
package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"openmusic/internal/apperr"
)

// ErrInvalidToken covers missing, malformed, expired or badly signed tokens.
var ErrInvalidToken = apperr.New(apperr.KindAuthentication, "invalid access token")

// TokenManager verifies access tokens carrying the user ID in the "id"
// claim. Tokens are issued by the authentication service sharing the key.
type TokenManager struct {
	key []byte
}

// NewTokenManager returns a TokenManager using key.
func NewTokenManager(key string) *TokenManager {
	return &TokenManager{key: []byte(key)}
}

// Verify checks the signature and expiry of raw and returns the user ID.
func (m *TokenManager) Verify(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return m.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", apperr.Wrap(err, apperr.KindAuthentication, ErrInvalidToken.Message)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, _ := claims["id"].(string)
	if userID == "" {
		return "", errors.Join(ErrInvalidToken, errors.New("token has no id claim"))
	}
	return userID, nil
}
