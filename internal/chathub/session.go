package chathub

import (
	"errors"
	"time"

	"campusmind/backend/internal/models"
)

// Status is a participant's chat state. It is a closed enum with explicit
// transitions so an illegal move (e.g. searching while connected) is an error
// instead of a silent conditional.
type Status int

const (
	StatusIdle Status = iota
	StatusSearching
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusSearching:
		return "searching"
	case StatusConnected:
		return "connected"
	default:
		return "idle"
	}
}

var ErrBadTransition = errors.New("illegal session transition")

// Session tracks one connected user's place in the
// idle -> searching -> connected -> idle cycle, plus the pending optimistic
// message echoes awaiting confirmation. It is owned by the hub goroutine and
// needs no locking.
type Session struct {
	status       Status
	matchID      string
	partnerID    string
	partnerAlias string

	outbox *Outbox
}

func NewSession() *Session {
	return &Session{status: StatusIdle, outbox: NewOutbox()}
}

func (s *Session) Status() Status       { return s.status }
func (s *Session) MatchID() string      { return s.matchID }
func (s *Session) PartnerID() string    { return s.partnerID }
func (s *Session) PartnerAlias() string { return s.partnerAlias }
func (s *Session) Outbox() *Outbox      { return s.outbox }

// StartSearching moves idle -> searching.
func (s *Session) StartSearching() error {
	if s.status != StatusIdle {
		return ErrBadTransition
	}
	s.status = StatusSearching
	return nil
}

// StopSearching moves searching -> idle.
func (s *Session) StopSearching() error {
	if s.status != StatusSearching {
		return ErrBadTransition
	}
	s.status = StatusIdle
	return nil
}

// Connect adopts a match from any non-connected state. Entering from idle is
// legal: the observer may learn about an active match before (or without) the
// local search, e.g. on reconnect.
func (s *Session) Connect(matchID, partnerID, partnerAlias string) error {
	if s.status == StatusConnected {
		if s.matchID == matchID {
			return nil // duplicate notification for the adopted match
		}
		return ErrBadTransition
	}
	s.status = StatusConnected
	s.matchID = matchID
	s.partnerID = partnerID
	s.partnerAlias = partnerAlias
	return nil
}

// End clears the session back to idle. The return value reports whether the
// caller was connected, i.e. whether a "chat ended" notice is due; ending an
// idle or searching session is a quiet no-op, covering the normal
// still-searching ticks.
func (s *Session) End() bool {
	wasConnected := s.status == StatusConnected
	s.status = StatusIdle
	s.matchID = ""
	s.partnerID = ""
	s.partnerAlias = ""
	s.outbox = NewOutbox()
	return wasConnected
}

// InMatch reports whether the session is connected to the given match.
func (s *Session) InMatch(matchID string) bool {
	return s.status == StatusConnected && s.matchID == matchID
}

// Outbox reconciles optimistic local echoes against the persisted messages
// arriving back through the subscription. Every pending echo is resolved by
// exactly one of Confirm (remote write landed) or Fail (remote write failed,
// text is returned so the sender's input can be restored).
type Outbox struct {
	pending map[string]string // temp id -> filtered text
}

func NewOutbox() *Outbox {
	return &Outbox{pending: make(map[string]string)}
}

// Echo registers a local echo and returns the frame to show the sender
// immediately, marked as still sending.
func (o *Outbox) Echo(tempID, senderID, senderAlias, text string) models.ChatEvent {
	o.pending[tempID] = text
	return models.ChatEvent{
		Type:      models.EventMessage,
		MessageID: tempID,
		TempID:    tempID,
		Sending:   true,
		SenderID:  senderID,
		Alias:     senderAlias,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// Confirm resolves a pending echo once the persisted message arrives.
func (o *Outbox) Confirm(tempID string) bool {
	if _, ok := o.pending[tempID]; !ok {
		return false
	}
	delete(o.pending, tempID)
	return true
}

// Fail resolves a pending echo after a persistence failure, returning the
// filtered text to restore into the sender's input.
func (o *Outbox) Fail(tempID string) (string, bool) {
	text, ok := o.pending[tempID]
	if ok {
		delete(o.pending, tempID)
	}
	return text, ok
}

// Pending reports the number of unresolved echoes.
func (o *Outbox) Pending() int { return len(o.pending) }
