// Package storage persists chat state in PostgreSQL and keeps the ephemeral
// concerns (typing documents, pub/sub fan-out, ban flags) in Redis.
package storage

import (
	"context"
	"errors"
	"log"
	"time"

	"campusmind/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ErrAlreadyMatched is returned by CreateMatch when either participant is
// already in an active match. The matchmaker treats it as contention.
var ErrAlreadyMatched = errors.New("participant already has an active match")

type Storage interface {
	SaveUser(user *models.User) error
	GetUserByID(id string) (*models.User, error)
	IsUserBanned(userID string) (bool, error)
	BanUser(userID string, duration time.Duration) error
	UnbanUser(userID string) error

	UpsertWaitingEntry(entry *models.WaitingEntry) error
	DeleteWaitingEntry(userID string) error
	GetWaitingEntries(limit int) ([]models.WaitingEntry, error)

	CreateMatch(match *models.Match) error
	CloseMatch(matchID, endedBy string) error
	GetMatchByID(matchID string) (*models.Match, error)
	GetActiveMatchForUser(userID string) (*models.Match, error)

	SaveMessage(rec *models.MessageRecord) error
	GetMessageWindow(channelID string, limit int) ([]models.MessageRecord, error)
	GetFlaggedMessages(limit int) ([]models.MessageRecord, error)
	MarkMessageReviewed(messageID string) error

	SetTypingStatus(channelID string, status models.TypingStatus, ttl time.Duration) error
	GetTypingStatus(channelID, userID string) (*models.TypingStatus, error)

	PublishEvent(channel string, ev models.ChatEvent) error
	Subscribe(channels ...string) *redis.PubSub
	SubscribeAll() *redis.PubSub

	SavePeer(peer *models.Peer) error
	ListPeers(userID string) ([]models.Peer, error)

	SaveRoom(room *models.GroupRoom) error
	GetRoomByID(roomID string) (*models.GroupRoom, error)
	ListRooms() ([]models.GroupRoom, error)
	JoinRoom(roomID, userID, userAlias string) error
}

// MatchChannel is the pub/sub channel carrying message and typing events for
// one match or group room.
func MatchChannel(channelID string) string { return "match:" + channelID }

// UserChannel is the pub/sub channel carrying match lifecycle events for one
// user; this is how a peer's leave becomes visible to the other side.
func UserChannel(userID string) string { return "user:" + userID }

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

func (s *Service) SaveUser(user *models.User) error {
	return s.DB.Save(user).Error
}

func (s *Service) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// IsUserBanned checks the ban flag in Redis.
func (s *Service) IsUserBanned(userID string) (bool, error) {
	status, err := s.Redis.Get(s.Ctx, "ban:"+userID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status != "", nil
}

// BanUser sets the ban flag; duration 0 bans indefinitely.
func (s *Service) BanUser(userID string, duration time.Duration) error {
	return s.Redis.Set(s.Ctx, "ban:"+userID, "active", duration).Err()
}

func (s *Service) UnbanUser(userID string) error {
	return s.Redis.Del(s.Ctx, "ban:"+userID).Err()
}

// UpsertWaitingEntry writes the caller's waiting entry. Keyed by user id, so
// a repeated search overwrites rather than duplicates.
func (s *Service) UpsertWaitingEntry(entry *models.WaitingEntry) error {
	return s.DB.Save(entry).Error
}

func (s *Service) DeleteWaitingEntry(userID string) error {
	return s.DB.Delete(&models.WaitingEntry{}, "user_id = ?", userID).Error
}

// GetWaitingEntries returns up to limit users currently looking for a match,
// oldest first.
func (s *Service) GetWaitingEntries(limit int) ([]models.WaitingEntry, error) {
	var entries []models.WaitingEntry
	err := s.DB.Where("looking = ?", true).
		Order("created_at asc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// participantLockOrder returns both participant ids in a fixed order, so
// concurrent CreateMatch calls sharing a participant acquire their advisory
// locks in the same sequence and cannot deadlock.
func participantLockOrder(a, b string) []string {
	if b < a {
		a, b = b, a
	}
	return []string{a, b}
}

// CreateMatch creates the match inside a transaction that re-checks both
// participants for an existing active match, so two concurrent matchmakers
// cannot pair the same user twice. A plain count-then-insert is not enough
// under READ COMMITTED; per-participant advisory locks serialize the check
// and the insert against any concurrent create touching either user.
func (s *Service) CreateMatch(match *models.Match) error {
	ids := participantLockOrder(match.User1ID, match.User2ID)
	return s.DB.Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", id).Error; err != nil {
				return err
			}
		}

		var count int64
		err := tx.Model(&models.Match{}).
			Where("active = ?", true).
			Where("user1_id IN ? OR user2_id IN ?", ids, ids).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyMatched
		}
		return tx.Create(match).Error
	})
}

// CloseMatch soft-closes a match: active=false plus end metadata. Last write
// wins if both participants leave at nearly the same time; both writes
// converge on the same terminal state.
func (s *Service) CloseMatch(matchID, endedBy string) error {
	return s.DB.Model(&models.Match{}).
		Where("match_id = ?", matchID).
		Updates(map[string]interface{}{
			"active":   false,
			"ended_at": gorm.Expr("NOW()"),
			"ended_by": endedBy,
		}).Error
}

func (s *Service) GetMatchByID(matchID string) (*models.Match, error) {
	var match models.Match
	err := s.DB.First(&match, "match_id = ?", matchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New("match not found")
	}
	if err != nil {
		log.Printf("ERROR: Failed to get match %s: %v", matchID, err)
		return nil, err
	}
	return &match, nil
}

// GetActiveMatchForUser finds the active match the user participates in.
// Returns nil without error when the user has none.
func (s *Service) GetActiveMatchForUser(userID string) (*models.Match, error) {
	var match models.Match
	err := s.DB.Where("active = ?", true).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		First(&match).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Printf("ERROR: Failed to find active match for user %s: %v", userID, err)
		return nil, err
	}
	return &match, nil
}

func (s *Service) SaveMessage(rec *models.MessageRecord) error {
	if err := s.DB.Create(rec).Error; err != nil {
		log.Printf("ERROR: Failed to save message for channel %s: %v", rec.ChannelID, err)
		return err
	}
	return nil
}

// GetMessageWindow returns the most recent limit messages of a channel in
// ascending timestamp order. Internally reads descending and reverses, so the
// window is bounded by recency rather than age.
func (s *Service) GetMessageWindow(channelID string, limit int) ([]models.MessageRecord, error) {
	var records []models.MessageRecord
	err := s.DB.Where("channel_id = ?", channelID).
		Order("created_at desc").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		log.Printf("ERROR: Failed to get messages for channel %s: %v", channelID, err)
		return nil, err
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// GetFlaggedMessages returns unreviewed flagged messages, newest first.
func (s *Service) GetFlaggedMessages(limit int) ([]models.MessageRecord, error) {
	var records []models.MessageRecord
	err := s.DB.Where("flagged = ? AND reviewed = ?", true, false).
		Order("created_at desc").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Service) MarkMessageReviewed(messageID string) error {
	return s.DB.Model(&models.MessageRecord{}).
		Where("message_id = ?", messageID).
		Update("reviewed", true).Error
}
