package storage

import (
	"errors"

	"campusmind/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SavePeer records a saved chat partner. Saving the same peer twice is a
// no-op rather than an error.
func (s *Service) SavePeer(peer *models.Peer) error {
	return s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(peer).Error
}

func (s *Service) ListPeers(userID string) ([]models.Peer, error) {
	var peers []models.Peer
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&peers).Error
	if err != nil {
		return nil, err
	}
	return peers, nil
}

func (s *Service) SaveRoom(room *models.GroupRoom) error {
	return s.DB.Save(room).Error
}

func (s *Service) GetRoomByID(roomID string) (*models.GroupRoom, error) {
	var room models.GroupRoom
	err := s.DB.First(&room, "room_id = ?", roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New("room not found")
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Service) ListRooms() ([]models.GroupRoom, error) {
	var rooms []models.GroupRoom
	if err := s.DB.Order("name asc").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

// JoinRoom adds the user to a room's membership and bumps the member count.
// Rejoining an already-joined room changes nothing.
func (s *Service) JoinRoom(roomID, userID, userAlias string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.RoomMembership{
			RoomID: roomID,
			UserID: userID,
			Alias:  userAlias,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&models.GroupRoom{}).
			Where("room_id = ?", roomID).
			Update("member_count", gorm.Expr("member_count + 1")).Error
	})
}
