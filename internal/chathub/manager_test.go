package chathub_test

import (
	"errors"
	"testing"
	"time"

	"campusmind/backend/internal/chathub"
	"campusmind/backend/internal/config"
	"campusmind/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestHub(storageMock *MockStorage) *chathub.ManagerService {
	storageMock.On("SubscribeAll").Return(nil)
	hub := chathub.NewManagerService(storageMock)
	go hub.Run()
	return hub
}

func TestManager_RegisterUnregister(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetActiveMatchForUser", "user_A").Return(nil, nil)
	hub := newTestHub(storageMock)

	clientA := newMockClient("user_A", "Green Panda 3")

	hub.RegisterCh <- clientA
	time.Sleep(100 * time.Millisecond)
	assert.Contains(t, hub.Clients, "user_A")

	events := clientA.DrainEvents()
	status := eventOfType(events, models.EventStatus)
	if assert.NotNil(t, status) {
		assert.Equal(t, "idle", status.Status)
	}

	hub.UnregisterCh <- clientA
	time.Sleep(100 * time.Millisecond)
	assert.NotContains(t, hub.Clients, "user_A")
}

func TestManager_RegisterAdoptsActiveMatch(t *testing.T) {
	storageMock := new(MockStorage)
	match := &models.Match{
		MatchID:    "match1",
		User1ID:    "user_A",
		User1Alias: "Green Panda 3",
		User2ID:    "user_B",
		User2Alias: "Blue Fox 42",
		Active:     true,
	}
	storageMock.On("GetActiveMatchForUser", "user_A").Return(match, nil)
	hub := newTestHub(storageMock)

	clientA := newMockClient("user_A", "Green Panda 3")
	hub.RegisterCh <- clientA
	time.Sleep(100 * time.Millisecond)

	status := eventOfType(clientA.DrainEvents(), models.EventStatus)
	if assert.NotNil(t, status) {
		assert.Equal(t, "connected", status.Status)
		assert.Equal(t, "match1", status.MatchID)
		assert.Equal(t, "Blue Fox 42", status.PartnerAlias)
	}
}

func TestManager_Search(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetActiveMatchForUser", "user_A").Return(nil, nil)
	storageMock.On("IsUserBanned", "user_A").Return(false, nil)
	hub := newTestHub(storageMock)

	clientA := newMockClient("user_A", "Green Panda 3")
	hub.RegisterCh <- clientA
	time.Sleep(100 * time.Millisecond)
	clientA.DrainEvents()

	hub.IncomingCh <- models.ChatEvent{Type: models.EventSearch, SenderID: "user_A"}
	time.Sleep(100 * time.Millisecond)

	status := eventOfType(clientA.DrainEvents(), models.EventStatus)
	if assert.NotNil(t, status) {
		assert.Equal(t, "searching", status.Status)
	}

	select {
	case req := <-hub.MatchRequestCh:
		assert.Equal(t, "user_A", req.UserID)
		assert.Equal(t, "Green Panda 3", req.Alias)
	default:
		t.Error("search was not handed to the matchmaker")
	}
}

func TestManager_SearchBannedUser(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetActiveMatchForUser", "user_A").Return(nil, nil)
	storageMock.On("IsUserBanned", "user_A").Return(true, nil)
	hub := newTestHub(storageMock)

	clientA := newMockClient("user_A", "Green Panda 3")
	hub.RegisterCh <- clientA
	time.Sleep(100 * time.Millisecond)
	clientA.DrainEvents()

	hub.IncomingCh <- models.ChatEvent{Type: models.EventSearch, SenderID: "user_A"}
	time.Sleep(100 * time.Millisecond)

	errEv := eventOfType(clientA.DrainEvents(), models.EventError)
	if assert.NotNil(t, errEv) {
		assert.Equal(t, models.ErrCodePermissionDenied, errEv.Code)
	}

	select {
	case <-hub.MatchRequestCh:
		t.Error("banned user must not reach the matchmaker")
	default:
	}
}

func TestManager_MatchFoundLifecycle(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetActiveMatchForUser", "user_A").Return(nil, nil)
	storageMock.On("IsUserBanned", "user_A").Return(false, nil)
	hub := newTestHub(storageMock)

	clientA := newMockClient("user_A", "Green Panda 3")
	hub.RegisterCh <- clientA
	time.Sleep(100 * time.Millisecond)

	hub.IncomingCh <- models.ChatEvent{Type: models.EventSearch, SenderID: "user_A"}
	time.Sleep(100 * time.Millisecond)
	clientA.DrainEvents()

	// The matchmaker's announcement arrives on the user's lifecycle channel.
	hub.PubSubCh <- chathub.Fanout{
		Channel: "user:user_A",
		Event: models.ChatEvent{
			Type:         models.EventMatchFound,
			MatchID:      "match1",
			SenderID:     "user_B",
			PartnerAlias: "Blue Fox 42",
		},
	}
	time.Sleep(100 * time.Millisecond)

	events := clientA.DrainEvents()
	found := eventOfType(events, models.EventMatchFound)
	if assert.NotNil(t, found) {
		assert.Equal(t, "match1", found.MatchID)
		assert.Equal(t, "Blue Fox 42", found.PartnerAlias)
	}
	status := eventOfType(events, models.EventStatus)
	if assert.NotNil(t, status) {
		assert.Equal(t, "connected", status.Status)
	}
}

func TestManager_MessagePipeline(t *testing.T) {
	storageMock := new(MockStorage)
	match := &models.Match{
		MatchID: "match1", User1ID: "user_A", User1Alias: "Green Panda 3",
		User2ID: "user_B", User2Alias: "Blue Fox 42", Active: true,
	}
	storageMock.On("GetActiveMatchForUser", "user_A").Return(match, nil)
	storageMock.On("SaveMessage", mock.AnythingOfType("*models.MessageRecord")).Return(nil)
	storageMock.On("PublishEvent", "match:match1", mock.AnythingOfType("models.ChatEvent")).Return(nil)
	hub := newTestHub(storageMock)

	clientA := newMockClient("user_A", "Green Panda 3")
	hub.RegisterCh <- clientA
	time.Sleep(100 * time.Millisecond)
	clientA.DrainEvents()

	hub.IncomingCh <- models.ChatEvent{Type: models.EventMessage, SenderID: "user_A", Text: "hello there"}
	time.Sleep(100 * time.Millisecond)

	// The sender sees an optimistic echo before the persisted copy returns.
	echo := eventOfType(clientA.DrainEvents(), models.EventMessage)
	if assert.NotNil(t, echo) {
		assert.True(t, echo.Sending)
		assert.NotEmpty(t, echo.TempID)
		assert.Equal(t, "hello there", echo.Text)
	}

	storageMock.AssertCalled(t, "SaveMessage", mock.MatchedBy(func(rec *models.MessageRecord) bool {
		return rec.ChannelID == "match1" && rec.Text == "hello there" && !rec.Flagged
	}))
	storageMock.AssertCalled(t, "PublishEvent", "match:match1", mock.AnythingOfType("models.ChatEvent"))
}

func TestManager_MessagePublishFailureResolvesEcho(t *testing.T) {
	storageMock := new(MockStorage)
	match := &models.Match{
		MatchID: "match1", User1ID: "user_A", User1Alias: "Green Panda 3",
		User2ID: "user_B", User2Alias: "Blue Fox 42", Active: true,
	}
	storageMock.On("GetActiveMatchForUser", "user_A").Return(match, nil)
	storageMock.On("SaveMessage", mock.AnythingOfType("*models.MessageRecord")).Return(nil)
	storageMock.On("PublishEvent", "match:match1", mock.AnythingOfType("models.ChatEvent")).
		Return(errors.New("connection refused"))
	hub := newTestHub(storageMock)

	clientA := newMockClient("user_A", "Green Panda 3")
	hub.RegisterCh <- clientA
	time.Sleep(100 * time.Millisecond)
	clientA.DrainEvents()

	hub.IncomingCh <- models.ChatEvent{Type: models.EventMessage, SenderID: "user_A", Text: "hello there"}
	time.Sleep(100 * time.Millisecond)

	events := clientA.DrainEvents()

	// The message is persisted, so the echo must resolve into the stored
	// copy instead of dangling as pending forever or failing.
	var echo, resolved *models.ChatEvent
	for i := range events {
		if events[i].Type != models.EventMessage {
			continue
		}
		if events[i].Sending {
			echo = &events[i]
		} else {
			resolved = &events[i]
		}
	}
	if assert.NotNil(t, echo) && assert.NotNil(t, resolved) {
		assert.Equal(t, echo.TempID, resolved.TempID)
		assert.NotEqual(t, resolved.MessageID, resolved.TempID)
		assert.Equal(t, "hello there", resolved.Text)
	}
	assert.Nil(t, eventOfType(events, models.EventError))
}

func TestManager_MessageBlocked(t *testing.T) {
	storageMock := new(MockStorage)
	match := &models.Match{
		MatchID: "match1", User1ID: "user_A", User1Alias: "Green Panda 3",
		User2ID: "user_B", User2Alias: "Blue Fox 42", Active: true,
	}
	storageMock.On("GetActiveMatchForUser", "user_A").Return(match, nil)
	hub := newTestHub(storageMock)

	clientA := newMockClient("user_A", "Green Panda 3")
	hub.RegisterCh <- clientA
	time.Sleep(100 * time.Millisecond)
	clientA.DrainEvents()

	hub.IncomingCh <- models.ChatEvent{Type: models.EventMessage, SenderID: "user_A", Text: "idiot idiot idiot"}
	time.Sleep(100 * time.Millisecond)

	errEv := eventOfType(clientA.DrainEvents(), models.EventError)
	if assert.NotNil(t, errEv) {
		assert.Equal(t, models.ErrCodeContentBlocked, errEv.Code)
	}
	storageMock.AssertNotCalled(t, "SaveMessage", mock.Anything)
}

func TestManager_CrisisMessageDelivered(t *testing.T) {
	storageMock := new(MockStorage)
	match := &models.Match{
		MatchID: "match1", User1ID: "user_A", User1Alias: "Green Panda 3",
		User2ID: "user_B", User2Alias: "Blue Fox 42", Active: true,
	}
	storageMock.On("GetActiveMatchForUser", "user_A").Return(match, nil)
	storageMock.On("SaveMessage", mock.AnythingOfType("*models.MessageRecord")).Return(nil)
	storageMock.On("PublishEvent", "match:match1", mock.AnythingOfType("models.ChatEvent")).Return(nil)
	hub := newTestHub(storageMock)

	clientA := newMockClient("user_A", "Green Panda 3")
	hub.RegisterCh <- clientA
	time.Sleep(100 * time.Millisecond)
	clientA.DrainEvents()

	hub.IncomingCh <- models.ChatEvent{Type: models.EventMessage, SenderID: "user_A", Text: "I want to hurt myself"}
	time.Sleep(100 * time.Millisecond)

	events := clientA.DrainEvents()

	// Crisis content is never blocked: the message goes out and the sender
	// additionally receives support resources.
	crisis := eventOfType(events, models.EventCrisis)
	if assert.NotNil(t, crisis) && assert.NotNil(t, crisis.Notice) {
		assert.NotEmpty(t, crisis.Notice.Resources)
		assert.Equal(t, config.CrisisNoticeDuration.Milliseconds(), crisis.NoticeMs)
	}
	assert.NotNil(t, eventOfType(events, models.EventMessage))

	storageMock.AssertCalled(t, "SaveMessage", mock.MatchedBy(func(rec *models.MessageRecord) bool {
		return rec.HasCrisis && rec.Flagged
	}))
}

func TestManager_LeaveEndsBothSides(t *testing.T) {
	storageMock := new(MockStorage)
	match := &models.Match{
		MatchID: "match1", User1ID: "user_A", User1Alias: "Green Panda 3",
		User2ID: "user_B", User2Alias: "Blue Fox 42", Active: true,
	}
	storageMock.On("GetActiveMatchForUser", "user_A").Return(match, nil)
	storageMock.On("GetActiveMatchForUser", "user_B").Return(match, nil)
	storageMock.On("SetTypingStatus", "match1", mock.AnythingOfType("models.TypingStatus"), mock.AnythingOfType("time.Duration")).Return(nil)
	storageMock.On("PublishEvent", mock.AnythingOfType("string"), mock.AnythingOfType("models.ChatEvent")).Return(nil)
	storageMock.On("CloseMatch", "match1", "user_A").Return(nil)
	hub := newTestHub(storageMock)

	clientA := newMockClient("user_A", "Green Panda 3")
	clientB := newMockClient("user_B", "Blue Fox 42")
	hub.RegisterCh <- clientA
	hub.RegisterCh <- clientB
	time.Sleep(100 * time.Millisecond)
	clientA.DrainEvents()
	clientB.DrainEvents()

	hub.IncomingCh <- models.ChatEvent{Type: models.EventLeave, SenderID: "user_A", Alias: "Green Panda 3"}
	time.Sleep(100 * time.Millisecond)

	// The leaver is back to idle immediately.
	status := eventOfType(clientA.DrainEvents(), models.EventStatus)
	if assert.NotNil(t, status) {
		assert.Equal(t, "idle", status.Status)
	}
	storageMock.AssertCalled(t, "CloseMatch", "match1", "user_A")
	storageMock.AssertCalled(t, "PublishEvent", "user:user_B", mock.MatchedBy(func(ev models.ChatEvent) bool {
		return ev.Type == models.EventChatEnded && ev.MatchID == "match1"
	}))

	// The partner transitions once the lifecycle event loops back through
	// the subscription.
	hub.PubSubCh <- chathub.Fanout{
		Channel: "user:user_B",
		Event:   models.ChatEvent{Type: models.EventChatEnded, MatchID: "match1"},
	}
	time.Sleep(100 * time.Millisecond)

	events := clientB.DrainEvents()
	assert.NotNil(t, eventOfType(events, models.EventChatEnded))
	statusB := eventOfType(events, models.EventStatus)
	if assert.NotNil(t, statusB) {
		assert.Equal(t, "idle", statusB.Status)
	}
}

func TestManager_StaleChatEndedIgnored(t *testing.T) {
	storageMock := new(MockStorage)
	match := &models.Match{
		MatchID: "match2", User1ID: "user_A", User1Alias: "Green Panda 3",
		User2ID: "user_C", User2Alias: "Red Owl 7", Active: true,
	}
	storageMock.On("GetActiveMatchForUser", "user_A").Return(match, nil)
	hub := newTestHub(storageMock)

	clientA := newMockClient("user_A", "Green Panda 3")
	hub.RegisterCh <- clientA
	time.Sleep(100 * time.Millisecond)
	clientA.DrainEvents()

	// An end notice for a match the session already left changes nothing.
	hub.PubSubCh <- chathub.Fanout{
		Channel: "user:user_A",
		Event:   models.ChatEvent{Type: models.EventChatEnded, MatchID: "match1"},
	}
	time.Sleep(100 * time.Millisecond)

	assert.Empty(t, clientA.DrainEvents())
}

func TestManager_StaleTypingRewritten(t *testing.T) {
	storageMock := new(MockStorage)
	match := &models.Match{
		MatchID: "match1", User1ID: "user_A", User1Alias: "Green Panda 3",
		User2ID: "user_B", User2Alias: "Blue Fox 42", Active: true,
	}
	storageMock.On("GetActiveMatchForUser", "user_B").Return(match, nil)
	hub := newTestHub(storageMock)

	clientB := newMockClient("user_B", "Blue Fox 42")
	hub.RegisterCh <- clientB
	time.Sleep(100 * time.Millisecond)
	clientB.DrainEvents()

	// A typing=true signal older than the freshness window is delivered as
	// not typing.
	hub.PubSubCh <- chathub.Fanout{
		Channel: "match:match1",
		Event: models.ChatEvent{
			Type:      models.EventTyping,
			MatchID:   "match1",
			SenderID:  "user_A",
			Alias:     "Green Panda 3",
			IsTyping:  true,
			Timestamp: time.Now().Add(-10 * time.Second),
		},
	}
	time.Sleep(100 * time.Millisecond)

	typing := eventOfType(clientB.DrainEvents(), models.EventTyping)
	if assert.NotNil(t, typing) {
		assert.False(t, typing.IsTyping)
	}
}
