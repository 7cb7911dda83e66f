package models

import (
	"time"

	"gorm.io/datatypes"
)

// Identity is an account of the identity provider. Profile data lives in the
// users document with the same id.
type Identity struct {
	UID          string         `gorm:"primaryKey;size:64" json:"uid"`
	Email        string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	DisplayName  string         `gorm:"size:255" json:"display_name"`
	Claims       datatypes.JSON `gorm:"type:jsonb" json:"claims"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
