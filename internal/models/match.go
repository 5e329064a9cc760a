package models

import "time"

// Match represents one anonymous 1:1 chat session between exactly two users.
// A match is never physically deleted: leaving soft-closes it by clearing
// Active and stamping the end metadata.
type Match struct {
	// MatchID is the unique identifier for the match (ULID).
	MatchID string `gorm:"primaryKey" json:"match_id"`

	User1ID    string `gorm:"type:text;not null;index" json:"user1_id"`
	User1Alias string `gorm:"type:text;not null" json:"user1_alias"`
	User2ID    string `gorm:"type:text;not null;index" json:"user2_id"`
	User2Alias string `gorm:"type:text;not null" json:"user2_alias"`

	// Active is true while both participants are in the session.
	Active    bool      `gorm:"index" json:"active"`
	CreatedAt time.Time `json:"created_at"`

	// EndedAt and EndedBy are set when either participant leaves.
	EndedAt *time.Time `json:"ended_at,omitempty"`
	EndedBy string     `gorm:"type:text" json:"ended_by,omitempty"`
}

// HasParticipant reports whether userID is one of the two participants.
func (m *Match) HasParticipant(userID string) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// PartnerOf returns the id and alias of the other participant. ok is false
// when userID is not a participant of this match.
func (m *Match) PartnerOf(userID string) (id, partnerAlias string, ok bool) {
	switch userID {
	case m.User1ID:
		return m.User2ID, m.User2Alias, true
	case m.User2ID:
		return m.User1ID, m.User1Alias, true
	}
	return "", "", false
}

// AliasOf returns the alias assigned to userID within this match.
func (m *Match) AliasOf(userID string) string {
	switch userID {
	case m.User1ID:
		return m.User1Alias
	case m.User2ID:
		return m.User2Alias
	}
	return ""
}
