package models

import "time"

// Session is one sign-in of an identity. Access tokens carry its ID; the
// refresh token is stored hashed and rotated on every refresh.
type Session struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	UID         string    `gorm:"size:64;not null;index" json:"uid"`
	RefreshHash string    `gorm:"uniqueIndex;not null;size:64" json:"-"`
	ExpiresAt   time.Time `gorm:"not null" json:"expires_at"`
	Revoked     bool      `gorm:"default:false" json:"revoked"`
	CreatedAt   time.Time `json:"created_at"`
}
