// FILE: actionwisp/src/internal/socketcluster/token.go
package socketcluster

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthToken is a token pushed by the coordinator with #setAuthToken.
// Signed tokens are decoded without verification; the coordinator holds the key.
type AuthToken struct {
	Raw       string
	Subject   string
	ExpiresAt time.Time
	Claims    jwt.MapClaims
	Signed    bool
}

// Expired reports whether the token carries an expiry that has passed
func (t *AuthToken) Expired(now time.Time) bool {
	return t != nil && !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

func parseAuthToken(raw json.RawMessage) (*AuthToken, error) {
	var signed string
	if err := json.Unmarshal(raw, &signed); err != nil {
		// Unsigned object tokens are kept as-is
		var claims map[string]any
		if err := json.Unmarshal(raw, &claims); err != nil {
			return nil, fmt.Errorf("unsupported auth token encoding: %w", err)
		}
		return &AuthToken{Raw: string(raw), Claims: claims}, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(signed, claims); err != nil {
		return nil, fmt.Errorf("failed to decode auth token: %w", err)
	}

	tok := &AuthToken{Raw: signed, Claims: claims, Signed: true}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tok.ExpiresAt = exp.Time
	}
	if sub, err := claims.GetSubject(); err == nil {
		tok.Subject = sub
	}
	return tok, nil
}
