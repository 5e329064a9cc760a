package chathub

import (
	"log"
	"time"

	"campusmind/backend/internal/config"
	"campusmind/backend/internal/models"
	"campusmind/backend/internal/storage"
)

// IsFreshTyping interprets a typing signal at observation time: a stored
// true is only believed while it is younger than the freshness window. This
// substitutes for an explicit stopped-typing signal and tolerates a missed
// final false, e.g. an ungraceful tab close.
func IsFreshTyping(isTyping bool, stamped, now time.Time) bool {
	if !isTyping {
		return false
	}
	return now.Sub(stamped) < config.TypingFreshnessWindow
}

// handleTyping upserts the caller's typing document and fans the signal out
// to the match. A true signal arms the idle timer; false or expiry writes the
// document back to false.
func (m *ManagerService) handleTyping(ev models.ChatEvent) {
	sess, ok := m.sessions[ev.SenderID]
	if !ok || sess.Status() != StatusConnected {
		return
	}
	matchID := sess.MatchID()

	if ev.IsTyping {
		m.armTypingTimer(ev.SenderID, matchID, ev.Alias)
	} else {
		m.stopTypingTimer(ev.SenderID)
	}

	m.writeTypingStatus(matchID, ev.SenderID, ev.Alias, ev.IsTyping)
}

// writeTypingStatus is best effort on both legs: a lost typing signal only
// costs a stale indicator, which the freshness window already bounds.
func (m *ManagerService) writeTypingStatus(matchID, userID, userAlias string, isTyping bool) {
	status := models.TypingStatus{
		UserID:    userID,
		Alias:     userAlias,
		IsTyping:  isTyping,
		Timestamp: time.Now(),
	}

	if err := m.Storage.SetTypingStatus(matchID, status, config.TypingDocTTL); err != nil {
		log.Printf("Failed to update typing status for %s: %v", userID, err)
	}

	err := m.Storage.PublishEvent(storage.MatchChannel(matchID), models.ChatEvent{
		Type:      models.EventTyping,
		MatchID:   matchID,
		SenderID:  userID,
		Alias:     userAlias,
		IsTyping:  isTyping,
		Timestamp: status.Timestamp,
	})
	if err != nil {
		log.Printf("Failed to publish typing status for %s: %v", userID, err)
	}
}

// armTypingTimer (re)starts the idle timer; when it fires the user is
// reported as no longer typing without needing an explicit signal.
func (m *ManagerService) armTypingTimer(userID, matchID, userAlias string) {
	if t, ok := m.typingTimers[userID]; ok {
		t.Stop()
	}
	m.typingTimers[userID] = time.AfterFunc(config.TypingIdleTimeout, func() {
		m.writeTypingStatus(matchID, userID, userAlias, false)
	})
}

func (m *ManagerService) stopTypingTimer(userID string) {
	if t, ok := m.typingTimers[userID]; ok {
		t.Stop()
		delete(m.typingTimers, userID)
	}
}

// clearTyping writes a final not-typing document for a user leaving a match
// or disconnecting. Best effort.
func (m *ManagerService) clearTyping(matchID, userID, userAlias string) {
	m.stopTypingTimer(userID)
	if matchID == "" {
		return
	}
	m.writeTypingStatus(matchID, userID, userAlias, false)
}
