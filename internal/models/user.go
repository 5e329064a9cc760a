package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an anonymous participant. Identity is the generated UUID; the alias
// is a per-session display name and carries no identity.
type User struct {
	ID        string    `gorm:"primaryKey" json:"id"` // anonymous UUID
	Alias     string    `gorm:"type:text" json:"alias"`
	CreatedAt time.Time
}

// BeforeCreate is a GORM hook that assigns a fresh UUID when no ID is set.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
