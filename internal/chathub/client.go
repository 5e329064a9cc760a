package chathub

import "campusmind/backend/internal/models"

// Client is the interface for any connection transport. It abstracts the
// underlying mechanism so the hub can manage different client types
// uniformly.
type Client interface {
	// GetUserID returns the anonymous user id behind the connection.
	GetUserID() string
	// GetAlias returns the display alias generated for this session.
	GetAlias() string

	// GetMatchID returns the id of the active match, or "" when none.
	GetMatchID() string
	// SetMatchID assigns the client to a match. Called by the hub when the
	// session observer adopts a match, cleared again when it ends.
	SetMatchID(string)

	// GetSendChannel returns the channel the hub pushes outbound frames to.
	GetSendChannel() chan<- models.ChatEvent

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts the client down and releases its channels.
	Close()
}
