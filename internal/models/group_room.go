package models

import "time"

// GroupRoom is a persistent topic chatroom, unlike a Match it has no fixed
// pair of participants and never ends.
type GroupRoom struct {
	RoomID      string    `gorm:"primaryKey" json:"room_id"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	Topic       string    `gorm:"type:text" json:"topic"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoomMembership links a user to a group room they joined.
type RoomMembership struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	RoomID    string    `gorm:"type:text;not null;index:idx_room_member,unique" json:"room_id"`
	UserID    string    `gorm:"type:text;not null;index:idx_room_member,unique" json:"user_id"`
	Alias     string    `gorm:"type:text;not null" json:"alias"`
	CreatedAt time.Time `json:"joined_at"`
}
