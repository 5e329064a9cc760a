package storage

import (
	"encoding/json"
	"errors"
	"time"

	"campusmind/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// SetTypingStatus upserts the typing document for one user in one channel.
// The TTL only garbage-collects the key; staleness is decided by observers
// through the freshness window, never by expiry.
func (s *Service) SetTypingStatus(channelID string, status models.TypingStatus, ttl time.Duration) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	key := "typing:" + channelID + ":" + status.UserID
	return s.Redis.Set(s.Ctx, key, payload, ttl).Err()
}

// GetTypingStatus reads a typing document. Returns nil without error when the
// document does not exist (treated as not typing).
func (s *Service) GetTypingStatus(channelID, userID string) (*models.TypingStatus, error) {
	key := "typing:" + channelID + ":" + userID
	payload, err := s.Redis.Get(s.Ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var status models.TypingStatus
	if err := json.Unmarshal([]byte(payload), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// PublishEvent publishes a chat event to a Redis pub/sub channel.
func (s *Service) PublishEvent(channel string, ev models.ChatEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, channel, payload).Err()
}

// Subscribe opens a subscription on the given pub/sub channels.
func (s *Service) Subscribe(channels ...string) *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, channels...)
}

// SubscribeAll opens a pattern subscription covering every match and user
// channel; the hub fans incoming events out to its local clients.
func (s *Service) SubscribeAll() *redis.PubSub {
	return s.Redis.PSubscribe(s.Ctx, "match:*", "user:*")
}
