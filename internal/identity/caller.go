package identity

import (
	"github.com/golang-jwt/jwt/v5"
)

// Caller is the verified principal behind a request.
type Caller struct {
	UID       string
	Email     string
	SessionID string
	Claims    map[string]any
}

func (c *Caller) IsAdmin() bool {
	return c != nil && isAdmin(c.Claims)
}

// CallerFromToken builds a Caller from a verified access token.
func CallerFromToken(token *jwt.Token) (*Caller, error) {
	if token == nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return CallerFromClaims(claims)
}

func CallerFromClaims(claims jwt.MapClaims) (*Caller, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	sid, _ := claims["sid"].(string)

	custom := map[string]any{}
	for k, v := range claims {
		if !reservedClaims[k] {
			custom[k] = v
		}
	}
	return &Caller{UID: sub, Email: email, SessionID: sid, Claims: custom}, nil
}
