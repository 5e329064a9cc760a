package models

import "time"

// Peer is a saved chat partner: after a good session either side may keep the
// partner's anon id and alias without revealing anything else.
type Peer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:text;not null;index:idx_user_peer,unique" json:"user_id"`
	PeerID    string    `gorm:"type:text;not null;index:idx_user_peer,unique" json:"peer_id"`
	PeerAlias string    `gorm:"type:text;not null" json:"peer_alias"`
	// FromMatch records the session the peer was saved from.
	FromMatch string    `gorm:"type:text" json:"from_match"`
	CreatedAt time.Time `json:"created_at"`
}
