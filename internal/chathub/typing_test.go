package chathub_test

import (
	"testing"
	"time"

	"campusmind/backend/internal/chathub"

	"github.com/stretchr/testify/assert"
)

func TestIsFreshTyping(t *testing.T) {
	now := time.Now()

	// A recent true signal is believed.
	assert.True(t, chathub.IsFreshTyping(true, now.Add(-1*time.Second), now))

	// A stale true signal is not: the freshness window substitutes for a
	// stopped-typing signal the sender never got to send.
	assert.False(t, chathub.IsFreshTyping(true, now.Add(-6*time.Second), now))

	// False is false regardless of age.
	assert.False(t, chathub.IsFreshTyping(false, now, now))
	assert.False(t, chathub.IsFreshTyping(false, now.Add(-time.Hour), now))
}
