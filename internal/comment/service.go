package comment

import (
	"errors"

	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/request"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("comment not found")
	ErrForbidden = errors.New("unauthorized")
)

func List(actor *models.User, requestID uint) ([]models.Comment, error) {
	if _, err := request.Accessible(actor, requestID); err != nil {
		return nil, err
	}

	var comments []models.Comment
	err := database.DB.Preload("User").
		Where("entity_type = ? AND entity_id = ?", models.EntityRequest, requestID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	return comments, err
}

func Create(actor *models.User, requestID uint, content string) (*models.Comment, error) {
	if _, err := request.Accessible(actor, requestID); err != nil {
		return nil, err
	}

	cm := models.Comment{
		EntityType: models.EntityRequest,
		EntityID:   requestID,
		UserID:     actor.ID,
		Content:    content,
	}
	if err := database.DB.Create(&cm).Error; err != nil {
		return nil, err
	}
	database.DB.Preload("User").First(&cm, cm.ID)
	return &cm, nil
}

func find(id uint) (*models.Comment, error) {
	var cm models.Comment
	if err := database.DB.First(&cm, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cm, nil
}

// Update is limited to the author.
func Update(actor *models.User, id uint, content string) (*models.Comment, error) {
	cm, err := find(id)
	if err != nil {
		return nil, err
	}
	if cm.UserID != actor.ID {
		return nil, ErrForbidden
	}

	if err := database.DB.Model(cm).Update("content", content).Error; err != nil {
		return nil, err
	}
	database.DB.Preload("User").First(cm, cm.ID)
	return cm, nil
}

// Delete is allowed to the author and to admins.
func Delete(actor *models.User, id uint) error {
	cm, err := find(id)
	if err != nil {
		return err
	}
	if cm.UserID != actor.ID && !actor.IsAdmin() {
		return ErrForbidden
	}
	return database.DB.Delete(cm).Error
}
