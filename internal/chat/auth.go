package chat

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenLifetime = 5 * time.Minute

// handshakeToken mints the short-lived bearer token the gateway expects on
// the websocket handshake. An empty secret disables auth (local gateways).
func handshakeToken(botID, secret string) (string, error) {
	if secret == "" {
		return "", nil
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   botID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign handshake token: %w", err)
	}
	return token, nil
}
