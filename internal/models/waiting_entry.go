package models

import "time"

// WaitingEntry is one user currently seeking an anonymous chat partner.
// Keyed by user id, so a repeated search overwrites any prior entry and a
// user can hold at most one at a time.
type WaitingEntry struct {
	UserID    string    `gorm:"primaryKey" json:"user_id"`
	Alias     string    `gorm:"type:text;not null" json:"alias"`
	Looking   bool      `gorm:"index" json:"looking"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
