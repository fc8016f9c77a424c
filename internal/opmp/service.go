package opmp

import (
	"encoding/json"
	"errors"

	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("opmp not found")

func Find(businessID uint) (*models.Opmp, error) {
	var plan models.Opmp
	if err := database.DB.Preload("Updater").Where("business_id = ?", businessID).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// Save upserts the business's plan and appends a version row in the same transaction.
// It returns the plan as it was before the write, nil when it did not exist.
func Save(actor *models.User, businessID uint, data json.RawMessage) (before, after *models.Opmp, err error) {
	if prev, ferr := Find(businessID); ferr == nil {
		before = prev
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		plan := models.Opmp{
			BusinessID: businessID,
			Data:       datatypes.JSON(data),
			UpdatedBy:  &actor.ID,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "business_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_by", "updated_at"}),
		}).Create(&plan).Error; err != nil {
			return err
		}

		if err := tx.Where("business_id = ?", businessID).First(&plan).Error; err != nil {
			return err
		}
		return tx.Create(&models.OpmpVersion{
			OpmpID:    plan.ID,
			Data:      datatypes.JSON(data),
			UpdatedBy: &actor.ID,
		}).Error
	})
	if err != nil {
		return nil, nil, err
	}

	after, err = Find(businessID)
	return before, after, err
}

// Versions lists the plan history, newest first.
func Versions(businessID uint, limit, offset int) ([]models.OpmpVersion, int64, error) {
	plan, err := Find(businessID)
	if err != nil {
		return nil, 0, err
	}

	q := database.DB.Model(&models.OpmpVersion{}).Where("opmp_id = ?", plan.ID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []models.OpmpVersion
	err = q.Preload("Updater").Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}
