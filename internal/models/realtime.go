package models

import (
	"time"

	"campusmind/backend/internal/moderation"
)

// Event types carried over a websocket connection and through Redis pub/sub.
const (
	// Client -> server
	EventSearch     = "search"
	EventStopSearch = "stop_search"
	EventLeave      = "leave"
	EventMessage    = "message"
	EventTyping     = "typing"
	EventAddPeer    = "add_peer"

	// Server -> client
	EventStatus       = "status"
	EventMatchFound   = "match_found"
	EventChatEnded    = "chat_ended"
	EventSearchFailed = "search_failed"
	EventCrisis       = "crisis"
	EventError        = "error"
)

// Error codes surfaced to the client.
const (
	ErrCodePermissionDenied = "permission_denied"
	ErrCodeUnavailable      = "unavailable"
	ErrCodeValidation       = "validation"
	ErrCodeContentBlocked   = "content_blocked"
	ErrCodeOperationFailed  = "operation_failed"
)

// ChatEvent is the JSON frame exchanged with clients and fanned out through
// Redis. One struct serves both directions, fields are populated per Type.
type ChatEvent struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id,omitempty"`

	MessageID string `json:"message_id,omitempty"`
	// TempID ties a persisted message back to the sender's optimistic local
	// echo; Sending marks the echo itself.
	TempID   string `json:"temp_id,omitempty"`
	Sending  bool   `json:"sending,omitempty"`
	SenderID string `json:"sender_id,omitempty"`
	Alias    string `json:"alias,omitempty"`
	Text     string `json:"text,omitempty"`
	Flagged  bool   `json:"flagged,omitempty"`

	IsTyping bool `json:"is_typing,omitempty"`

	Status       string `json:"status,omitempty"`
	PartnerAlias string `json:"partner_alias,omitempty"`

	Code string `json:"code,omitempty"`

	Notice *moderation.CrisisNotice `json:"notice,omitempty"`
	// NoticeMs is how long the client should keep the notice on screen.
	NoticeMs int64 `json:"notice_ms,omitempty"`

	Timestamp time.Time `json:"timestamp,omitempty"`
}

// SearchRequest is handed to the matchmaker when a user starts searching.
type SearchRequest struct {
	UserID string
	Alias  string
}

// TypingStatus is the ephemeral per-user typing document, stored in Redis as
// JSON and interpreted through a freshness window rather than deletion.
type TypingStatus struct {
	UserID    string    `json:"user_id"`
	Alias     string    `json:"alias"`
	IsTyping  bool      `json:"is_typing"`
	Timestamp time.Time `json:"timestamp"`
}
