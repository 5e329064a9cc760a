package chathub_test

import (
	"sync"
	"time"

	"campusmind/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

// MockStorage is a mock implementation of the storage.Storage interface.
// It uses testify/mock to allow flexible expectation setting in tests.
type MockStorage struct {
	mock.Mock
}

// User operations
func (m *MockStorage) SaveUser(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockStorage) GetUserByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) IsUserBanned(userID string) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) BanUser(userID string, duration time.Duration) error {
	args := m.Called(userID, duration)
	return args.Error(0)
}

func (m *MockStorage) UnbanUser(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

// Waiting queue operations
func (m *MockStorage) UpsertWaitingEntry(entry *models.WaitingEntry) error {
	args := m.Called(entry)
	return args.Error(0)
}

func (m *MockStorage) DeleteWaitingEntry(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockStorage) GetWaitingEntries(limit int) ([]models.WaitingEntry, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WaitingEntry), args.Error(1)
}

// Match operations
func (m *MockStorage) CreateMatch(match *models.Match) error {
	args := m.Called(match)
	return args.Error(0)
}

func (m *MockStorage) CloseMatch(matchID, endedBy string) error {
	args := m.Called(matchID, endedBy)
	return args.Error(0)
}

func (m *MockStorage) GetMatchByID(matchID string) (*models.Match, error) {
	args := m.Called(matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockStorage) GetActiveMatchForUser(userID string) (*models.Match, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

// Message operations
func (m *MockStorage) SaveMessage(rec *models.MessageRecord) error {
	args := m.Called(rec)
	return args.Error(0)
}

func (m *MockStorage) GetMessageWindow(channelID string, limit int) ([]models.MessageRecord, error) {
	args := m.Called(channelID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MessageRecord), args.Error(1)
}

func (m *MockStorage) GetFlaggedMessages(limit int) ([]models.MessageRecord, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MessageRecord), args.Error(1)
}

func (m *MockStorage) MarkMessageReviewed(messageID string) error {
	args := m.Called(messageID)
	return args.Error(0)
}

// Typing operations
func (m *MockStorage) SetTypingStatus(channelID string, status models.TypingStatus, ttl time.Duration) error {
	args := m.Called(channelID, status, ttl)
	return args.Error(0)
}

func (m *MockStorage) GetTypingStatus(channelID, userID string) (*models.TypingStatus, error) {
	args := m.Called(channelID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TypingStatus), args.Error(1)
}

// Pub/sub operations
func (m *MockStorage) PublishEvent(channel string, ev models.ChatEvent) error {
	args := m.Called(channel, ev)
	return args.Error(0)
}

func (m *MockStorage) Subscribe(channels ...string) *redis.PubSub {
	args := m.Called(channels)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*redis.PubSub)
}

func (m *MockStorage) SubscribeAll() *redis.PubSub {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*redis.PubSub)
}

// Peer operations
func (m *MockStorage) SavePeer(peer *models.Peer) error {
	args := m.Called(peer)
	return args.Error(0)
}

func (m *MockStorage) ListPeers(userID string) ([]models.Peer, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Peer), args.Error(1)
}

// Room operations
func (m *MockStorage) SaveRoom(room *models.GroupRoom) error {
	args := m.Called(room)
	return args.Error(0)
}

func (m *MockStorage) GetRoomByID(roomID string) (*models.GroupRoom, error) {
	args := m.Called(roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GroupRoom), args.Error(1)
}

func (m *MockStorage) ListRooms() ([]models.GroupRoom, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.GroupRoom), args.Error(1)
}

func (m *MockStorage) JoinRoom(roomID, userID, userAlias string) error {
	args := m.Called(roomID, userID, userAlias)
	return args.Error(0)
}

// MockClient is a test double for the chathub.Client interface. The send
// channel is buffered so the hub never trips its slow-client path in tests.
type MockClient struct {
	userID  string
	alias   string
	matchID string
	send    chan models.ChatEvent

	closeOnce sync.Once
	closed    bool
}

func newMockClient(id, alias string) *MockClient {
	return &MockClient{
		userID: id,
		alias:  alias,
		send:   make(chan models.ChatEvent, 32),
	}
}

func (c *MockClient) GetUserID() string    { return c.userID }
func (c *MockClient) GetAlias() string     { return c.alias }
func (c *MockClient) GetMatchID() string   { return c.matchID }
func (c *MockClient) SetMatchID(id string) { c.matchID = id }

func (c *MockClient) GetSendChannel() chan<- models.ChatEvent { return c.send }

func (c *MockClient) Run() {}

func (c *MockClient) Close() {
	c.closeOnce.Do(func() { c.closed = true })
}

// DrainEvents empties the send channel for inspection.
func (c *MockClient) DrainEvents() []models.ChatEvent {
	var events []models.ChatEvent
	for {
		select {
		case ev := <-c.send:
			events = append(events, ev)
		default:
			return events
		}
	}
}

// eventOfType returns the first event with the given type, or nil.
func eventOfType(events []models.ChatEvent, eventType string) *models.ChatEvent {
	for i := range events {
		if events[i].Type == eventType {
			return &events[i]
		}
	}
	return nil
}
