package models

import (
	"time"

	"gorm.io/datatypes"
)

// Document is one record of a document collection (citizens, customers,
// users, ...). Fields live in Data as a jsonb object.
type Document struct {
	Collection string         `gorm:"primaryKey;size:64" json:"collection"`
	ID         string         `gorm:"primaryKey;size:64" json:"id"`
	Data       datatypes.JSON `gorm:"type:jsonb;not null" json:"data"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
