package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/feed"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

var validate = validator.New()

type Config struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// Provider is the identity provider used by the account handlers, the auth
// endpoints and the session stream.
type Provider struct {
	repo   Repository
	broker feed.Broker
	cfg    Config
	now    func() time.Time
}

func NewProvider(repo Repository, broker feed.Broker, cfg Config) *Provider {
	return &Provider{
		repo:   repo,
		broker: broker,
		cfg:    cfg,
		now:    time.Now,
	}
}

func (p *Provider) CreateUser(ctx context.Context, in NewUser) (*User, error) {
	email := normalizeEmail(in.Email)
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(in.Password) < MinPasswordLength {
		return nil, ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	identity := models.Identity{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  in.DisplayName,
		Claims:       datatypes.JSON("{}"),
	}
	if err := p.repo.CreateIdentity(ctx, &identity); err != nil {
		return nil, err
	}
	return toUser(&identity), nil
}

func (p *Provider) GetUser(ctx context.Context, uid string) (*User, error) {
	identity, err := p.repo.GetIdentity(ctx, uid)
	if err != nil {
		return nil, err
	}
	return toUser(identity), nil
}

func (p *Provider) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	identity, err := p.repo.GetIdentityByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return toUser(identity), nil
}

func (p *Provider) UpdatePassword(ctx context.Context, uid, password string) error {
	if len(password) < MinPasswordLength {
		return ErrInvalidPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return p.repo.UpdatePasswordHash(ctx, uid, string(hash))
}

// SetCustomClaims replaces the custom claims of uid. Tokens already issued
// keep their claims until the next refresh or sign-in.
func (p *Provider) SetCustomClaims(ctx context.Context, uid string, claims map[string]any) error {
	for name := range claims {
		if reservedClaims[name] {
			return fmt.Errorf("%w: %s", ErrReservedClaim, name)
		}
	}
	if claims == nil {
		claims = map[string]any{}
	}
	raw, err := json.Marshal(claims)
	if err != nil {
		return fmt.Errorf("claims are not JSON encodable: %w", err)
	}
	if err := p.repo.UpdateClaims(ctx, uid, datatypes.JSON(raw)); err != nil {
		return err
	}
	p.publish(ctx, AuthEvent{Type: EventUserUpdated, UID: uid})
	return nil
}

// DeleteUser removes the identity and revokes all of its sessions.
func (p *Provider) DeleteUser(ctx context.Context, uid string) error {
	if err := p.repo.DeleteIdentity(ctx, uid); err != nil {
		return err
	}
	if err := p.repo.RevokeSessions(ctx, uid); err != nil {
		slog.Error("failed to revoke sessions of deleted user", "uid", uid, "error", err)
	}
	p.publish(ctx, AuthEvent{Type: EventUserDeleted, UID: uid})
	return nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*Tokens, error) {
	identity, err := p.repo.GetIdentityByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	raw, hash, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}
	session := models.Session{
		ID:          uuid.NewString(),
		UID:         identity.UID,
		RefreshHash: hash,
		ExpiresAt:   p.now().Add(p.cfg.RefreshExpiry),
	}
	if err := p.repo.CreateSession(ctx, &session); err != nil {
		return nil, err
	}

	return p.issue(toUser(identity), session.ID, raw)
}

// Refresh exchanges a refresh token for a new token pair. The refresh token
// is rotated; the session id is kept.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	session, err := p.repo.GetSessionByRefreshHash(ctx, hashToken(refreshToken))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if session.Revoked {
		return nil, ErrInvalidToken
	}
	if p.now().After(session.ExpiresAt) {
		_ = p.repo.RevokeSession(ctx, session.ID)
		return nil, ErrInvalidToken
	}

	identity, err := p.repo.GetIdentity(ctx, session.UID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	raw, hash, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}
	err = p.repo.RotateSession(ctx, session.ID, hash, p.now().Add(p.cfg.RefreshExpiry))
	if errors.Is(err, ErrSessionNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	return p.issue(toUser(identity), session.ID, raw)
}

// SignOut revokes the session. Signing out of an unknown session is a no-op.
func (p *Provider) SignOut(ctx context.Context, sessionID string) error {
	session, err := p.repo.GetSession(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := p.repo.RevokeSession(ctx, sessionID); err != nil {
		return err
	}
	p.publish(ctx, AuthEvent{Type: EventSignedOut, UID: session.UID, SessionID: sessionID})
	return nil
}

func (p *Provider) issue(user *User, sessionID, refreshToken string) (*Tokens, error) {
	access, err := p.generateAccessToken(user, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	return &Tokens{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    p.tokenExpiry(),
		SessionID:    sessionID,
		User:         user,
	}, nil
}
