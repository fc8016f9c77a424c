package business

import (
	"encoding/json"
	"errors"

	"github.com/Kyz7/requestdesk/internal/access"
	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/events"
	"github.com/Kyz7/requestdesk/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("business not found")
	ErrForbidden     = errors.New("unauthorized")
	ErrInvalidOwner  = errors.New("the selected owner_user_id is invalid")
	ErrInvalidMember = errors.New("the selected user_id is invalid")
	ErrOwnerMember   = errors.New("the owner is already part of the business")
)

type CreateInput struct {
	Name        string                 `json:"name" validate:"required,max=255"`
	Industry    string                 `json:"industry" validate:"max=255"`
	Description string                 `json:"description"`
	SocialLinks map[string]interface{} `json:"social_links"`
	OwnerUserID *uint                  `json:"owner_user_id"`
}

type UpdateInput struct {
	Name        *string                `json:"name" validate:"omitempty,min=1,max=255"`
	Industry    *string                `json:"industry" validate:"omitempty,max=255"`
	Description *string                `json:"description"`
	SocialLinks map[string]interface{} `json:"social_links"`
	Status      *string                `json:"status" validate:"omitempty,oneof=active suspended inactive"`
}

func jsonValue(v map[string]interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func Find(id uint) (*models.Business, error) {
	var b models.Business
	if err := database.DB.Preload("Owner").Preload("Members.User").First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// List returns owned and member businesses, or every business for admins.
func List(actor *models.User, status string, limit, offset int) ([]models.Business, int64, error) {
	q := database.DB.Model(&models.Business{}).Scopes(access.ScopeBusinesses(database.DB, actor))
	if status != "" {
		q = q.Where("businesses.status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []models.Business
	err := q.Preload("Owner").Order("businesses.created_at DESC").Order("businesses.id DESC").
		Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}

// Create makes actor the owner unless an admin names another owner. BusinessCreated is
// published after the insert.
func Create(actor *models.User, in CreateInput) (*models.Business, error) {
	if !actor.IsClient() && !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	ownerID := actor.ID
	if actor.IsAdmin() && in.OwnerUserID != nil {
		var count int64
		database.DB.Model(&models.User{}).Where("id = ?", *in.OwnerUserID).Count(&count)
		if count == 0 {
			return nil, ErrInvalidOwner
		}
		ownerID = *in.OwnerUserID
	}

	b := models.Business{
		OwnerUserID: ownerID,
		Name:        in.Name,
		Industry:    in.Industry,
		Description: in.Description,
		SocialLinks: jsonValue(in.SocialLinks),
		Status:      models.BusinessStatusActive,
	}
	if err := database.DB.Create(&b).Error; err != nil {
		return nil, err
	}

	events.Publish(events.NewBusinessCreated(&b))
	return Find(b.ID)
}

func Update(actor *models.User, id uint, in UpdateInput) (*models.Business, *models.Business, error) {
	before, err := Find(id)
	if err != nil {
		return nil, nil, err
	}
	if !access.CanManageBusiness(actor, before) {
		return nil, nil, ErrForbidden
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Industry != nil {
		updates["industry"] = *in.Industry
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.SocialLinks != nil {
		updates["social_links"] = jsonValue(in.SocialLinks)
	}
	if in.Status != nil {
		updates["status"] = *in.Status
	}
	if len(updates) > 0 {
		if err := database.DB.Model(&models.Business{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, nil, err
		}
	}

	after, err := Find(id)
	return before, after, err
}

func Delete(actor *models.User, id uint) (*models.Business, error) {
	b, err := Find(id)
	if err != nil {
		return nil, err
	}
	if !access.CanManageBusiness(actor, b) {
		return nil, ErrForbidden
	}
	if err := database.DB.Delete(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

// AddMember attaches a user to the business pivot, updating the role when already attached.
func AddMember(actor *models.User, businessID, userID uint, role string) (*models.BusinessUser, error) {
	b, err := Find(businessID)
	if err != nil {
		return nil, err
	}
	if !access.CanManageBusiness(actor, b) {
		return nil, ErrForbidden
	}
	if userID == b.OwnerUserID {
		return nil, ErrOwnerMember
	}

	var u models.User
	if err := database.DB.First(&u, userID).Error; err != nil {
		return nil, ErrInvalidMember
	}
	if role == "" {
		role = "member"
	}

	var member models.BusinessUser
	err = database.DB.Where(models.BusinessUser{BusinessID: businessID, UserID: userID}).
		Assign(models.BusinessUser{RoleInBusiness: role}).
		FirstOrCreate(&member).Error
	if err != nil {
		return nil, err
	}
	member.User = &u
	return &member, nil
}

func RemoveMember(actor *models.User, businessID, userID uint) error {
	b, err := Find(businessID)
	if err != nil {
		return err
	}
	if !access.CanManageBusiness(actor, b) {
		return ErrForbidden
	}

	res := database.DB.Where("business_id = ? AND user_id = ?", businessID, userID).Delete(&models.BusinessUser{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidMember
	}
	return nil
}
