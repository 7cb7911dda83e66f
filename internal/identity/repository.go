package identity

import (
	"context"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/models"
	"gorm.io/datatypes"
)

// Repository persists identities and sessions.
type Repository interface {
	// CreateIdentity fails with ErrEmailExists when the email is taken.
	CreateIdentity(ctx context.Context, identity *models.Identity) error
	GetIdentity(ctx context.Context, uid string) (*models.Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error)
	UpdatePasswordHash(ctx context.Context, uid, hash string) error
	UpdateClaims(ctx context.Context, uid string, claims datatypes.JSON) error
	DeleteIdentity(ctx context.Context, uid string) error

	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	GetSessionByRefreshHash(ctx context.Context, hash string) (*models.Session, error)
	RotateSession(ctx context.Context, id, refreshHash string, expiresAt time.Time) error
	RevokeSession(ctx context.Context, id string) error
	RevokeSessions(ctx context.Context, uid string) error
}

// MemoryRepository keeps identities in process. It backs STORE_DRIVER=memory
// and tests.
type MemoryRepository struct {
	mu         sync.RWMutex
	identities map[string]models.Identity
	byEmail    map[string]string
	sessions   map[string]models.Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		identities: make(map[string]models.Identity),
		byEmail:    make(map[string]string),
		sessions:   make(map[string]models.Session),
	}
}

func (r *MemoryRepository) CreateIdentity(_ context.Context, identity *models.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[identity.Email]; taken {
		return ErrEmailExists
	}
	now := time.Now()
	identity.CreatedAt = now
	identity.UpdatedAt = now
	r.identities[identity.UID] = *identity
	r.byEmail[identity.Email] = identity.UID
	return nil
}

func (r *MemoryRepository) GetIdentity(_ context.Context, uid string) (*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.identities[uid]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &identity, nil
}

func (r *MemoryRepository) GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	r.mu.RLock()
	uid, ok := r.byEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.GetIdentity(ctx, uid)
}

func (r *MemoryRepository) UpdatePasswordHash(_ context.Context, uid, hash string) error {
	return r.updateIdentity(uid, func(identity *models.Identity) {
		identity.PasswordHash = hash
	})
}

func (r *MemoryRepository) UpdateClaims(_ context.Context, uid string, claims datatypes.JSON) error {
	return r.updateIdentity(uid, func(identity *models.Identity) {
		identity.Claims = append(datatypes.JSON(nil), claims...)
	})
}

func (r *MemoryRepository) updateIdentity(uid string, fn func(*models.Identity)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[uid]
	if !ok {
		return ErrUserNotFound
	}
	fn(&identity)
	identity.UpdatedAt = time.Now()
	r.identities[uid] = identity
	return nil
}

func (r *MemoryRepository) DeleteIdentity(_ context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[uid]
	if !ok {
		return ErrUserNotFound
	}
	delete(r.identities, uid)
	delete(r.byEmail, identity.Email)
	return nil
}

func (r *MemoryRepository) CreateSession(_ context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session.CreatedAt = time.Now()
	r.sessions[session.ID] = *session
	return nil
}

func (r *MemoryRepository) GetSession(_ context.Context, id string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (r *MemoryRepository) GetSessionByRefreshHash(_ context.Context, hash string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, session := range r.sessions {
		if session.RefreshHash == hash {
			s := session
			return &s, nil
		}
	}
	return nil, ErrSessionNotFound
}

func (r *MemoryRepository) RotateSession(_ context.Context, id, refreshHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok || session.Revoked {
		return ErrSessionNotFound
	}
	session.RefreshHash = refreshHash
	session.ExpiresAt = expiresAt
	r.sessions[id] = session
	return nil
}

func (r *MemoryRepository) RevokeSession(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.sessions[id]; ok {
		session.Revoked = true
		r.sessions[id] = session
	}
	return nil
}

func (r *MemoryRepository) RevokeSessions(_ context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, session := range r.sessions {
		if session.UID == uid {
			session.Revoked = true
			r.sessions[id] = session
		}
	}
	return nil
}
