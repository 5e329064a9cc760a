package chathub

import (
	"errors"
	"log"
	"sync"
	"time"

	"campusmind/backend/internal/config"
	"campusmind/backend/internal/models"
	"campusmind/backend/internal/storage"

	"github.com/oklog/ulid/v2"
)

// MatcherService pairs waiting users into matches. Each search is a
// self-rescheduling task guarded by a generation token: StopSearching (or a
// successful match) bumps the token, so a retry scheduled moments earlier
// finds itself stale and stops instead of racing the new state.
type MatcherService struct {
	Hub     *ManagerService
	Storage storage.Storage

	mu          sync.Mutex
	generations map[string]uint64
}

func NewMatcherService(hub *ManagerService, s storage.Storage) *MatcherService {
	return &MatcherService{
		Hub:         hub,
		Storage:     s,
		generations: make(map[string]uint64),
	}
}

// Run consumes search and cancel requests from the hub.
func (m *MatcherService) Run() {
	log.Println("Matcher Service started.")

	for {
		select {
		case req := <-m.Hub.MatchRequestCh:
			m.StartSearching(req)
		case userID := <-m.Hub.CancelSearchCh:
			m.StopSearching(userID)
		}
	}
}

// StartSearching registers the user in the waiting queue and kicks off the
// match task. The generation bump happens before returning, so a cancel
// arriving right behind the search invalidates it; the queue write itself
// runs in its own goroutine and never stalls the matcher loop.
func (m *MatcherService) StartSearching(req models.SearchRequest) {
	gen := m.bump(req.UserID)
	go m.enqueue(req, gen)
}

// enqueue writes the waiting entry with a bounded retry (backoff between
// attempts, not after the last), then starts matching.
func (m *MatcherService) enqueue(req models.SearchRequest, gen uint64) {
	var err error
	for attempt := 0; attempt < config.QueueWriteRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(config.QueueWriteBackoff)
		}
		err = m.Storage.UpsertWaitingEntry(&models.WaitingEntry{
			UserID:  req.UserID,
			Alias:   req.Alias,
			Looking: true,
		})
		if err == nil {
			break
		}
	}
	if err != nil {
		log.Printf("Failed to enqueue %s after %d attempts: %v", req.UserID, config.QueueWriteRetries, err)
		m.invalidate(req.UserID)
		m.publishSearchFailed(req.UserID)
		return
	}

	m.tryToMatch(req, gen)
}

// StopSearching invalidates any scheduled retries and removes the waiting
// entry. The delete is best effort: the caller's local state is already idle.
func (m *MatcherService) StopSearching(userID string) {
	m.invalidate(userID)
	if err := m.Storage.DeleteWaitingEntry(userID); err != nil {
		log.Printf("Failed to remove %s from waiting queue: %v", userID, err)
	}
}

// tryToMatch scans the waiting queue for a partner. First found wins: no
// fairness or latency ordering, a deliberate simplicity trade-off. With no
// candidate it reschedules after 2s, after an error 3s, for as long as the
// search generation stays valid.
func (m *MatcherService) tryToMatch(req models.SearchRequest, gen uint64) {
	if !m.current(req.UserID, gen) {
		return
	}

	entries, err := m.Storage.GetWaitingEntries(config.WaitingScanLimit)
	if err != nil {
		log.Printf("Waiting queue scan failed for %s: %v", req.UserID, err)
		m.reschedule(req, gen, config.MatchErrorDelay)
		return
	}

	var partner *models.WaitingEntry
	for i := range entries {
		if entries[i].UserID != req.UserID {
			partner = &entries[i]
			break
		}
	}
	if partner == nil {
		m.reschedule(req, gen, config.MatchRetryDelay)
		return
	}

	match := &models.Match{
		MatchID:    ulid.Make().String(),
		User1ID:    req.UserID,
		User1Alias: req.Alias,
		User2ID:    partner.UserID,
		User2Alias: partner.Alias,
		Active:     true,
	}

	if err := m.Storage.CreateMatch(match); err != nil {
		if errors.Is(err, storage.ErrAlreadyMatched) {
			log.Printf("Match contention for %s and %s, retrying", req.UserID, partner.UserID)
		} else {
			log.Printf("Error creating match: %v", err)
		}
		m.reschedule(req, gen, config.MatchErrorDelay)
		return
	}

	// Both searches are over; stale retries for either side stop here.
	m.invalidate(req.UserID)
	m.invalidate(partner.UserID)

	// Best effort queue cleanup. The match is already the source of truth, a
	// leftover entry only costs one failed create for the next matchmaker.
	if err := m.Storage.DeleteWaitingEntry(req.UserID); err != nil {
		log.Printf("Queue cleanup error for %s: %v", req.UserID, err)
	}
	if err := m.Storage.DeleteWaitingEntry(partner.UserID); err != nil {
		log.Printf("Queue cleanup error for %s: %v", partner.UserID, err)
	}

	m.announce(match)
	log.Printf("Match found: %s and %s in match %s", req.UserID, partner.UserID, match.MatchID)
}

// announce publishes a tailored match_found event to each participant's
// lifecycle channel; the hub's observer side adopts the match from there.
func (m *MatcherService) announce(match *models.Match) {
	pairs := []struct{ to, partnerID, partnerAlias string }{
		{match.User1ID, match.User2ID, match.User2Alias},
		{match.User2ID, match.User1ID, match.User1Alias},
	}
	for _, p := range pairs {
		err := m.Storage.PublishEvent(storage.UserChannel(p.to), models.ChatEvent{
			Type:         models.EventMatchFound,
			MatchID:      match.MatchID,
			SenderID:     p.partnerID,
			PartnerAlias: p.partnerAlias,
		})
		if err != nil {
			log.Printf("Failed to announce match %s to %s: %v", match.MatchID, p.to, err)
		}
	}
}

// publishSearchFailed tells a user's observer the search could not be
// started, returning them to idle.
func (m *MatcherService) publishSearchFailed(userID string) {
	err := m.Storage.PublishEvent(storage.UserChannel(userID), models.ChatEvent{
		Type: models.EventSearchFailed,
	})
	if err != nil {
		log.Printf("Failed to publish search failure for %s: %v", userID, err)
	}
}

func (m *MatcherService) reschedule(req models.SearchRequest, gen uint64, delay time.Duration) {
	time.AfterFunc(delay, func() {
		m.tryToMatch(req, gen)
	})
}

func (m *MatcherService) bump(userID string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generations[userID]++
	return m.generations[userID]
}

func (m *MatcherService) invalidate(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generations[userID]++
}

func (m *MatcherService) current(userID string, gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generations[userID] == gen
}
