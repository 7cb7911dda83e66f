package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormRepository stores identities and sessions in Postgres.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) CreateIdentity(ctx context.Context, identity *models.Identity) error {
	var existing models.Identity
	if err := r.db.WithContext(ctx).Where("email = ?", identity.Email).First(&existing).Error; err == nil {
		return ErrEmailExists
	}

	err := r.db.WithContext(ctx).Create(identity).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailExists
	}
	if err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}
	return nil
}

func (r *GormRepository) GetIdentity(ctx context.Context, uid string) (*models.Identity, error) {
	var identity models.Identity
	err := r.db.WithContext(ctx).First(&identity, "uid = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	return &identity, nil
}

func (r *GormRepository) GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	var identity models.Identity
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	return &identity, nil
}

func (r *GormRepository) UpdatePasswordHash(ctx context.Context, uid, hash string) error {
	return r.updateIdentity(ctx, uid, "password_hash", hash)
}

func (r *GormRepository) UpdateClaims(ctx context.Context, uid string, claims datatypes.JSON) error {
	return r.updateIdentity(ctx, uid, "claims", claims)
}

func (r *GormRepository) updateIdentity(ctx context.Context, uid, column string, value interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Identity{}).
		Where("uid = ?", uid).
		Update(column, value)
	if result.Error != nil {
		return fmt.Errorf("failed to update identity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *GormRepository) DeleteIdentity(ctx context.Context, uid string) error {
	result := r.db.WithContext(ctx).Where("uid = ?", uid).Delete(&models.Identity{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete identity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *GormRepository) CreateSession(ctx context.Context, session *models.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (r *GormRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &session, nil
}

func (r *GormRepository) GetSessionByRefreshHash(ctx context.Context, hash string) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).Where("refresh_hash = ?", hash).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &session, nil
}

func (r *GormRepository) RotateSession(ctx context.Context, id, refreshHash string, expiresAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND revoked = false", id).
		Updates(map[string]interface{}{
			"refresh_hash": refreshHash,
			"expires_at":   expiresAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to rotate session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *GormRepository) RevokeSession(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", id).
		Update("revoked", true).Error
}

func (r *GormRepository) RevokeSessions(ctx context.Context, uid string) error {
	return r.db.WithContext(ctx).Model(&models.Session{}).
		Where("uid = ? AND revoked = false", uid).
		Update("revoked", true).Error
}
