package models_test

import (
	"testing"

	"campusmind/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestMatchParticipants(t *testing.T) {
	match := &models.Match{
		MatchID:    "match1",
		User1ID:    "user_A",
		User1Alias: "Green Panda 3",
		User2ID:    "user_B",
		User2Alias: "Blue Fox 42",
		Active:     true,
	}

	assert.True(t, match.HasParticipant("user_A"))
	assert.True(t, match.HasParticipant("user_B"))
	assert.False(t, match.HasParticipant("user_C"))

	id, alias, ok := match.PartnerOf("user_A")
	assert.True(t, ok)
	assert.Equal(t, "user_B", id)
	assert.Equal(t, "Blue Fox 42", alias)

	id, alias, ok = match.PartnerOf("user_B")
	assert.True(t, ok)
	assert.Equal(t, "user_A", id)
	assert.Equal(t, "Green Panda 3", alias)

	_, _, ok = match.PartnerOf("user_C")
	assert.False(t, ok)

	assert.Equal(t, "Green Panda 3", match.AliasOf("user_A"))
	assert.Empty(t, match.AliasOf("user_C"))
}
