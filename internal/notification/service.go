package notification

import (
	"errors"
	"time"

	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("notification not found")

type ListFilter struct {
	Read   string
	Type   string
	Limit  int
	Offset int
}

func List(userID uint, f ListFilter) ([]models.Notification, int64, error) {
	q := database.DB.Model(&models.Notification{}).Where("user_id = ?", userID)
	switch f.Read {
	case "true":
		q = q.Where("read_at IS NOT NULL")
	case "false":
		q = q.Where("read_at IS NULL")
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []models.Notification
	err := q.Order("created_at DESC").Order("id DESC").Limit(f.Limit).Offset(f.Offset).Find(&list).Error
	return list, total, err
}

func UnreadCount(userID uint) (int64, error) {
	var count int64
	err := database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).Count(&count).Error
	return count, err
}

func find(userID, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := database.DB.Where("user_id = ?", userID).First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// MarkRead keeps the first read timestamp.
func MarkRead(userID, id uint) (*models.Notification, error) {
	n, err := find(userID, id)
	if err != nil {
		return nil, err
	}
	if n.ReadAt == nil {
		now := time.Now().UTC()
		if err := database.DB.Model(n).Update("read_at", now).Error; err != nil {
			return nil, err
		}
		n.ReadAt = &now
	}
	return n, nil
}

func MarkAllRead(userID uint) (int64, error) {
	res := database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", time.Now().UTC())
	return res.RowsAffected, res.Error
}

func Delete(userID, id uint) error {
	n, err := find(userID, id)
	if err != nil {
		return err
	}
	return database.DB.Delete(n).Error
}
