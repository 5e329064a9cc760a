package config

import "time"

const (
	// Matchmaking
	QueueWriteRetries = 3
	QueueWriteBackoff = 1 * time.Second
	MatchRetryDelay   = 2 * time.Second
	MatchErrorDelay   = 3 * time.Second
	WaitingScanLimit  = 10

	// Messages
	MessageWindowSize = 50

	// Typing signal
	TypingIdleTimeout     = 2 * time.Second
	TypingFreshnessWindow = 5 * time.Second
	// Redis TTL for typing documents; slightly above the freshness window so
	// observers, not expiry, decide staleness.
	TypingDocTTL = 10 * time.Second

	// Crisis notices stay on screen longer than a normal toast.
	CrisisNoticeDuration = 10 * time.Second
)
