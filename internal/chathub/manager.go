// Package chathub coordinates live chat sessions: it registers client
// connections, runs the matchmaking queue, applies the moderation pipeline to
// outgoing messages, and fans events out through Redis pub/sub.
package chathub

import (
	"errors"
	"log"
	"strings"
	"time"

	"campusmind/backend/internal/config"
	"campusmind/backend/internal/models"
	"campusmind/backend/internal/moderation"
	"campusmind/backend/internal/storage"

	"github.com/oklog/ulid/v2"
)

// ErrMessageBlocked is returned when a message exceeds the inappropriate
// content threshold and must not be persisted.
var ErrMessageBlocked = errors.New("message blocked by content policy")

// ErrNotConnected is returned for message operations outside an active match.
var ErrNotConnected = errors.New("no active chat session")

// ReviewPublisher queues flagged messages for moderator review.
type ReviewPublisher interface {
	PublishReview(rec *models.MessageRecord) error
}

// CrisisNotifier escalates crisis-flagged messages to the counsellor duty
// channel.
type CrisisNotifier interface {
	NotifyCrisis(rec *models.MessageRecord)
}

// Fanout is a pub/sub event together with the channel it arrived on.
type Fanout struct {
	Channel string
	Event   models.ChatEvent
}

// ManagerService is the hub. All mutable state (clients, sessions, typing
// timers) is owned by the Run goroutine; other goroutines talk to it through
// the channels.
type ManagerService struct {
	Clients map[string]Client

	IncomingCh     chan models.ChatEvent
	MatchRequestCh chan models.SearchRequest
	CancelSearchCh chan string

	RegisterCh   chan Client
	UnregisterCh chan Client

	Storage storage.Storage
	Review  ReviewPublisher
	Alerts  CrisisNotifier

	PubSubCh chan Fanout

	sessions     map[string]*Session
	typingTimers map[string]*time.Timer
}

func NewManagerService(s storage.Storage) *ManagerService {
	return &ManagerService{
		Clients:        make(map[string]Client),
		IncomingCh:     make(chan models.ChatEvent),
		MatchRequestCh: make(chan models.SearchRequest, 16),
		CancelSearchCh: make(chan string, 16),
		RegisterCh:     make(chan Client),
		UnregisterCh:   make(chan Client),
		Storage:        s,
		PubSubCh:       make(chan Fanout, 64),
		sessions:       make(map[string]*Session),
		typingTimers:   make(map[string]*time.Timer),
	}
}

// Run is the hub's main loop.
func (m *ManagerService) Run() {
	m.startPubSubListener()

	for {
		select {
		case client := <-m.RegisterCh:
			m.handleRegister(client)
		case client := <-m.UnregisterCh:
			m.handleUnregister(client)
		case ev := <-m.IncomingCh:
			m.handleIncoming(ev)
		case f := <-m.PubSubCh:
			m.handleFanout(f)
		}
	}
}

// handleRegister admits a client and plays the session observer's first tick:
// if the user already has an active match (reconnect, second tab), adopt it;
// otherwise report idle.
func (m *ManagerService) handleRegister(client Client) {
	userID := client.GetUserID()
	m.Clients[userID] = client
	m.sessions[userID] = NewSession()

	match, err := m.Storage.GetActiveMatchForUser(userID)
	if err != nil {
		m.sendError(userID, models.ErrCodeUnavailable, "Connection lost. Trying to reconnect...")
		return
	}
	if match != nil {
		partnerID, partnerAlias, _ := match.PartnerOf(userID)
		if err := m.sessions[userID].Connect(match.MatchID, partnerID, partnerAlias); err == nil {
			client.SetMatchID(match.MatchID)
		}
	}
	m.sendStatus(userID)
	log.Printf("Client %s registered (status %s)", userID, m.sessions[userID].Status())
}

func (m *ManagerService) handleUnregister(client Client) {
	userID := client.GetUserID()
	current, ok := m.Clients[userID]
	if !ok || current != client {
		return // a newer connection already replaced this one
	}

	if sess := m.sessions[userID]; sess != nil && sess.Status() == StatusConnected {
		m.clearTyping(sess.MatchID(), userID, client.GetAlias())
	} else {
		m.stopTypingTimer(userID)
	}

	delete(m.Clients, userID)
	delete(m.sessions, userID)
	client.Close()
	log.Printf("Client %s unregistered", userID)
}

func (m *ManagerService) handleIncoming(ev models.ChatEvent) {
	switch ev.Type {
	case models.EventSearch:
		m.handleSearch(ev)
	case models.EventStopSearch:
		m.handleStopSearch(ev)
	case models.EventLeave:
		m.handleLeave(ev)
	case models.EventMessage:
		m.handleMessage(ev)
	case models.EventTyping:
		m.handleTyping(ev)
	case models.EventAddPeer:
		m.handleAddPeer(ev)
	default:
		log.Printf("Unknown event type %q from %s", ev.Type, ev.SenderID)
	}
}

func (m *ManagerService) handleSearch(ev models.ChatEvent) {
	userID := ev.SenderID
	client, ok := m.Clients[userID]
	if !ok {
		return
	}
	sess := m.sessions[userID]

	banned, err := m.Storage.IsUserBanned(userID)
	if err != nil {
		log.Printf("Ban check failed for %s: %v", userID, err)
	}
	if banned {
		m.sendError(userID, models.ErrCodePermissionDenied, "You don't have permission to use the chat system")
		return
	}

	if err := sess.StartSearching(); err != nil {
		m.sendStatus(userID) // already searching or connected; just restate
		return
	}
	m.sendStatus(userID)
	m.MatchRequestCh <- models.SearchRequest{UserID: userID, Alias: client.GetAlias()}
}

// handleStopSearch returns the caller to idle unconditionally; the queue
// cleanup is the matchmaker's problem and may fail without affecting the
// local state.
func (m *ManagerService) handleStopSearch(ev models.ChatEvent) {
	userID := ev.SenderID
	sess, ok := m.sessions[userID]
	if !ok {
		return
	}
	if err := sess.StopSearching(); err != nil {
		return
	}
	m.CancelSearchCh <- userID
	m.sendStatus(userID)
}

// handleLeave soft-closes the match. The caller's state is cleared even when
// the remote update fails; the partner transitions once the lifecycle event
// reaches their observer.
func (m *ManagerService) handleLeave(ev models.ChatEvent) {
	userID := ev.SenderID
	sess, ok := m.sessions[userID]
	if !ok || sess.Status() != StatusConnected {
		return
	}
	matchID := sess.MatchID()
	partnerID := sess.PartnerID()

	m.clearTyping(matchID, userID, ev.Alias)

	if err := m.Storage.CloseMatch(matchID, userID); err != nil {
		log.Printf("Failed to close match %s: %v", matchID, err)
		m.sendError(userID, models.ErrCodeOperationFailed, "Error leaving chat, but you've been disconnected")
	}

	sess.End()
	if client, ok := m.Clients[userID]; ok {
		client.SetMatchID("")
	}
	m.sendStatus(userID)

	err := m.Storage.PublishEvent(storage.UserChannel(partnerID), models.ChatEvent{
		Type:    models.EventChatEnded,
		MatchID: matchID,
	})
	if err != nil {
		log.Printf("Failed to publish chat end for match %s: %v", matchID, err)
	}
}

func (m *ManagerService) handleMessage(ev models.ChatEvent) {
	userID := ev.SenderID
	sess, ok := m.sessions[userID]
	if !ok || sess.Status() != StatusConnected {
		m.sendError(userID, models.ErrCodeOperationFailed, "You are not in an active chat")
		return
	}
	matchID := sess.MatchID()
	senderAlias := m.Clients[userID].GetAlias()

	rec, notice, err := m.prepareMessage(matchID, userID, senderAlias, ev.Text)
	if err != nil {
		switch {
		case errors.Is(err, ErrMessageBlocked):
			m.sendError(userID, models.ErrCodeContentBlocked, "Your message contains inappropriate content and cannot be sent.")
		default:
			m.sendError(userID, models.ErrCodeValidation, err.Error())
		}
		return
	}

	// Crisis notices are shown alongside sending, never instead of it.
	if notice != nil {
		m.send(userID, models.ChatEvent{
			Type:     models.EventCrisis,
			Notice:   notice,
			NoticeMs: config.CrisisNoticeDuration.Milliseconds(),
		})
	}

	// Optimistic echo: the sender sees the filtered text immediately; the
	// echo is resolved when the persisted message returns via pub/sub, or
	// failed with the text restored.
	tempID := "temp_" + rec.MessageID
	m.send(userID, sess.Outbox().Echo(tempID, userID, senderAlias, rec.Text))

	out, published, err := m.persistAndPublish(rec, tempID)
	if err != nil {
		text, _ := sess.Outbox().Fail(tempID)
		m.send(userID, models.ChatEvent{
			Type:   models.EventError,
			Code:   models.ErrCodeUnavailable,
			Text:   text,
			TempID: tempID,
		})
		return
	}
	if !published {
		// Persisted but the fan-out leg failed: resolve the echo with the
		// stored message directly so no pending echo outlives its send.
		sess.Outbox().Confirm(tempID)
		m.send(userID, out)
	}
}

// prepareMessage runs validation and the content policy, returning the record
// to persist and an optional crisis notice for the sender.
func (m *ManagerService) prepareMessage(channelID, senderID, senderAlias, rawText string) (*models.MessageRecord, *moderation.CrisisNotice, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return nil, nil, errors.New("Message cannot be empty")
	}

	if v := moderation.ValidateMessage(text); !v.IsValid {
		return nil, nil, errors.New(v.Errors[0])
	}

	check := moderation.CheckContent(text)
	if moderation.ShouldBlock(check) {
		return nil, nil, ErrMessageBlocked
	}

	filtered := moderation.FilterMessage(text)

	rec := &models.MessageRecord{
		MessageID:        ulid.Make().String(),
		ChannelID:        channelID,
		SenderID:         senderID,
		Alias:            senderAlias,
		Text:             filtered,
		Flagged:          moderation.ShouldFlagForReview(check),
		HasInappropriate: check.HasInappropriateContent,
		HasCrisis:        check.HasCrisisContent,
		HasPersonalInfo:  check.HasPersonalInfo,
		FlaggedWords:     check.FlaggedWords,
		CrisisKeywords:   check.CrisisKeywords,
		PersonalInfo:     check.PersonalInfoFound,
	}
	if filtered != text {
		rec.OriginalText = &text
	}

	var notice *moderation.CrisisNotice
	if check.HasCrisisContent {
		n := moderation.CrisisResources()
		notice = &n
	}
	return rec, notice, nil
}

// persistAndPublish writes the record and fans it out, returning the outbound
// frame. published reports whether the fan-out leg succeeded; on a publish
// failure the message is still persisted and the caller must resolve any
// local echo itself. Review-queue and crisis escalation are best effort: the
// message itself is already the source of truth.
func (m *ManagerService) persistAndPublish(rec *models.MessageRecord, tempID string) (out models.ChatEvent, published bool, err error) {
	if err := m.Storage.SaveMessage(rec); err != nil {
		return models.ChatEvent{}, false, err
	}

	out = models.ChatEvent{
		Type:      models.EventMessage,
		MatchID:   rec.ChannelID,
		MessageID: rec.MessageID,
		TempID:    tempID,
		SenderID:  rec.SenderID,
		Alias:     rec.Alias,
		Text:      rec.Text,
		Flagged:   rec.Flagged,
		Timestamp: time.Now(),
	}

	published = true
	if err := m.Storage.PublishEvent(storage.MatchChannel(rec.ChannelID), out); err != nil {
		log.Printf("Failed to publish message %s: %v", rec.MessageID, err)
		published = false
	}

	if rec.Flagged && m.Review != nil {
		if err := m.Review.PublishReview(rec); err != nil {
			log.Printf("Failed to queue message %s for review: %v", rec.MessageID, err)
		}
	}
	if rec.HasCrisis && m.Alerts != nil {
		m.Alerts.NotifyCrisis(rec)
	}
	return out, published, nil
}

// SendRoomMessage runs the same moderation pipeline for a group chatroom
// message. No optimistic echo: room history is pulled over REST.
func (m *ManagerService) SendRoomMessage(roomID, senderID, senderAlias, rawText string) (*models.MessageRecord, *moderation.CrisisNotice, error) {
	rec, notice, err := m.prepareMessage(roomID, senderID, senderAlias, rawText)
	if err != nil {
		return nil, nil, err
	}
	if _, _, err := m.persistAndPublish(rec, ""); err != nil {
		return nil, notice, err
	}
	return rec, notice, nil
}

func (m *ManagerService) handleAddPeer(ev models.ChatEvent) {
	userID := ev.SenderID
	sess, ok := m.sessions[userID]
	if !ok || sess.Status() != StatusConnected {
		m.sendError(userID, models.ErrCodeOperationFailed, "No partner to add")
		return
	}

	err := m.Storage.SavePeer(&models.Peer{
		UserID:    userID,
		PeerID:    sess.PartnerID(),
		PeerAlias: sess.PartnerAlias(),
		FromMatch: sess.MatchID(),
	})
	if err != nil {
		m.sendError(userID, models.ErrCodeOperationFailed, "Failed to add as peer")
		return
	}
	m.send(userID, models.ChatEvent{Type: models.EventAddPeer, Alias: sess.PartnerAlias()})
}

// handleFanout routes a pub/sub event to the hub's local clients. Lifecycle
// events on user channels drive the session observer; match-channel events
// reach everyone currently in that match.
func (m *ManagerService) handleFanout(f Fanout) {
	switch {
	case strings.HasPrefix(f.Channel, "user:"):
		m.handleLifecycleEvent(strings.TrimPrefix(f.Channel, "user:"), f.Event)
	case strings.HasPrefix(f.Channel, "match:"):
		m.handleMatchEvent(strings.TrimPrefix(f.Channel, "match:"), f.Event)
	}
}

func (m *ManagerService) handleLifecycleEvent(userID string, ev models.ChatEvent) {
	sess, ok := m.sessions[userID]
	if !ok {
		return // user is connected to a different instance, or gone
	}

	switch ev.Type {
	case models.EventMatchFound:
		if err := sess.Connect(ev.MatchID, ev.SenderID, ev.PartnerAlias); err != nil {
			// Already connected elsewhere: the adopted match wins, the
			// duplicate stays closed-over by the transactional create.
			log.Printf("Ignoring match %s for %s: %v", ev.MatchID, userID, err)
			return
		}
		if client, ok := m.Clients[userID]; ok {
			client.SetMatchID(ev.MatchID)
		}
		m.send(userID, models.ChatEvent{
			Type:         models.EventMatchFound,
			MatchID:      ev.MatchID,
			PartnerAlias: ev.PartnerAlias,
		})
		m.sendStatus(userID)

	case models.EventSearchFailed:
		if sess.Status() != StatusSearching {
			return
		}
		if err := sess.StopSearching(); err == nil {
			m.sendError(userID, models.ErrCodeOperationFailed, "Failed to start searching. Please check your connection.")
			m.sendStatus(userID)
		}

	case models.EventChatEnded:
		if !sess.InMatch(ev.MatchID) {
			return // stale event for a session we already left
		}
		wasConnected := sess.End()
		if client, ok := m.Clients[userID]; ok {
			client.SetMatchID("")
		}
		m.stopTypingTimer(userID)
		if wasConnected {
			m.send(userID, models.ChatEvent{Type: models.EventChatEnded, MatchID: ev.MatchID})
			m.sendStatus(userID)
		}
	}
}

func (m *ManagerService) handleMatchEvent(channelID string, ev models.ChatEvent) {
	for userID, client := range m.Clients {
		sess := m.sessions[userID]
		if sess == nil || !sess.InMatch(channelID) {
			continue
		}

		switch ev.Type {
		case models.EventMessage:
			if userID == ev.SenderID {
				sess.Outbox().Confirm(ev.TempID)
			}
			m.deliver(client, ev)

		case models.EventTyping:
			if userID == ev.SenderID {
				continue
			}
			out := ev
			out.IsTyping = IsFreshTyping(ev.IsTyping, ev.Timestamp, time.Now())
			m.deliver(client, out)
		}
	}
}

func (m *ManagerService) sendStatus(userID string) {
	sess, ok := m.sessions[userID]
	if !ok {
		return
	}
	m.send(userID, models.ChatEvent{
		Type:         models.EventStatus,
		Status:       sess.Status().String(),
		MatchID:      sess.MatchID(),
		PartnerAlias: sess.PartnerAlias(),
	})
}

func (m *ManagerService) sendError(userID, code, message string) {
	m.send(userID, models.ChatEvent{Type: models.EventError, Code: code, Text: message})
}

func (m *ManagerService) send(userID string, ev models.ChatEvent) {
	client, ok := m.Clients[userID]
	if !ok {
		return
	}
	m.deliver(client, ev)
}

// deliver pushes a frame without blocking the hub; a client that cannot keep
// up is dropped.
func (m *ManagerService) deliver(client Client, ev models.ChatEvent) {
	select {
	case client.GetSendChannel() <- ev:
	default:
		log.Printf("Client %s send buffer full, dropping connection", client.GetUserID())
		go func() { m.UnregisterCh <- client }()
	}
}
