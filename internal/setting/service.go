package setting

import (
	"encoding/json"
	"errors"

	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("setting not found")

// All returns every setting keyed by its key.
func All() (map[string]models.Setting, error) {
	var list []models.Setting
	if err := database.DB.Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Find(&list).Error; err != nil {
		return nil, err
	}
	out := make(map[string]models.Setting, len(list))
	for _, s := range list {
		out[s.Key] = s
	}
	return out, nil
}

func Get(key string) (*models.Setting, error) {
	var s models.Setting
	if err := database.DB.Where(&models.Setting{Key: key}).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Set upserts key. A nil description keeps the stored one.
func Set(key string, value json.RawMessage, description *string) (*models.Setting, error) {
	row := models.Setting{Key: key, Value: datatypes.JSON(value)}
	cols := []string{"value", "updated_at"}
	if description != nil {
		row.Description = *description
		cols = append(cols, "description")
	}

	err := database.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}
	return Get(key)
}
