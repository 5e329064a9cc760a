package models

import (
	"time"

	"github.com/lib/pq"
)

// MessageRecord is a persisted chat line, stored post-filter. When filtering
// changed the text, the pre-filter original is kept for moderation review.
type MessageRecord struct {
	// MessageID is a ULID, so lexicographic order follows send time.
	MessageID string `gorm:"primaryKey" json:"message_id"`
	// ChannelID is the match or group room this message belongs to.
	ChannelID string `gorm:"type:text;not null;index:idx_channel_msg" json:"channel_id"`

	SenderID string `gorm:"type:text;not null" json:"sender_id"`
	// Alias is the sender's display name, denormalized at send time.
	Alias    string `gorm:"type:text;not null" json:"alias"`

	// Text is the display text after filtering.
	Text         string  `gorm:"type:text;not null" json:"text"`
	// OriginalText is present only if filtering changed the text.
	OriginalText *string `gorm:"type:text" json:"original_text,omitempty"`

	// Flagged marks the message for moderator review.
	Flagged  bool `gorm:"index" json:"flagged"`
	Reviewed bool `json:"reviewed"`

	// Structured content-check result.
	HasInappropriate bool           `json:"has_inappropriate"`
	HasCrisis        bool           `gorm:"index" json:"has_crisis"`
	HasPersonalInfo  bool           `json:"has_personal_info"`
	FlaggedWords     pq.StringArray `gorm:"type:text[]" json:"flagged_words,omitempty"`
	CrisisKeywords   pq.StringArray `gorm:"type:text[]" json:"crisis_keywords,omitempty"`
	PersonalInfo     pq.StringArray `gorm:"type:text[]" json:"personal_info,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_channel_msg" json:"created_at"`
}
