package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens is the result of a sign-in or refresh.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	SessionID    string `json:"session_id"`
	User         *User  `json:"user"`
}

func (p *Provider) generateAccessToken(user *User, sessionID string) (string, error) {
	now := p.now()
	claims := jwt.MapClaims{}
	for k, v := range user.Claims {
		claims[k] = v
	}
	claims["sub"] = user.UID
	claims["email"] = user.Email
	claims["name"] = user.DisplayName
	claims["sid"] = sessionID
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(p.cfg.AccessExpiry).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(p.cfg.Secret))
}

func generateRefreshToken() (raw string, hash string, err error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	raw = base64.URLEncoding.EncodeToString(rawBytes)
	return raw, hashToken(raw), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}

// VerifyAccessToken checks an HS256 access token and returns its caller.
func (p *Provider) VerifyAccessToken(raw string) (*Caller, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(p.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return CallerFromToken(token)
}

func (p *Provider) tokenExpiry() int64 {
	return int64(p.cfg.AccessExpiry / time.Second)
}
