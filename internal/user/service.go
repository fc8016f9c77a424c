package user

import (
	"errors"
	"strings"

	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already taken")
	ErrSelf       = errors.New("cannot modify own account")
)

type CreateInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin staff client"`
	Phone    string `json:"phone" validate:"omitempty,max=30"`
}

type UpdateInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email" validate:"omitempty,email,max=100"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin staff client"`
	Status   *string `json:"status" validate:"omitempty,oneof=active suspended"`
	Phone    *string `json:"phone" validate:"omitempty,max=30"`
}

type ListFilter struct {
	Role   string
	Status string
	Query  string
	Limit  int
	Offset int
}

func emailTaken(db *gorm.DB, email string, exceptID uint) bool {
	var count int64
	db.Model(&models.User{}).Where("email = ? AND id <> ?", email, exceptID).Count(&count)
	return count > 0
}

func CreateUser(db *gorm.DB, in CreateInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if emailTaken(db, email, 0) {
		return nil, ErrEmailTaken
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := models.User{
		Name:     in.Name,
		Email:    email,
		Password: hash,
		Provider: "local",
		Role:     in.Role,
		Status:   models.UserStatusActive,
		Phone:    in.Phone,
	}
	if err := db.Create(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// EnsureAdmin creates the bootstrap admin unless a user with that email exists.
func EnsureAdmin(db *gorm.DB, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	var existing models.User
	if err := db.Where("email = ?", strings.ToLower(email)).First(&existing).Error; err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	u, err := CreateUser(db, CreateInput{
		Name:     "Administrator",
		Email:    email,
		Password: password,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return err
	}
	logging.Component("user").WithField("email", u.Email).Info("Seeded admin user")
	return nil
}

func Find(id uint) (*models.User, error) {
	var u models.User
	if err := database.DB.Preload("Teams").First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func List(f ListFilter) ([]models.User, int64, error) {
	q := database.DB.Model(&models.User{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		p := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", p, p)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := q.Order("created_at DESC").Order("id DESC").Limit(f.Limit).Offset(f.Offset).Find(&users).Error
	return users, total, err
}

// Update applies in to user id. Admins cannot demote or suspend themselves.
func Update(actor *models.User, id uint, in UpdateInput) (before, after *models.User, err error) {
	u, err := Find(id)
	if err != nil {
		return nil, nil, err
	}
	prev := *u

	if u.ID == actor.ID {
		if (in.Role != nil && *in.Role != u.Role) || (in.Status != nil && *in.Status != u.Status) {
			return nil, nil, ErrSelf
		}
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email != u.Email {
			if emailTaken(database.DB, email, u.ID) {
				return nil, nil, ErrEmailTaken
			}
			updates["email"] = email
		}
	}
	if in.Password != nil {
		hash, err := utils.HashPassword(*in.Password)
		if err != nil {
			return nil, nil, err
		}
		updates["password"] = hash
	}
	if in.Role != nil {
		updates["role"] = *in.Role
	}
	if in.Status != nil {
		updates["status"] = *in.Status
	}
	if in.Phone != nil {
		updates["phone"] = *in.Phone
	}

	if len(updates) > 0 {
		if err := database.DB.Model(u).Updates(updates).Error; err != nil {
			return nil, nil, err
		}
	}
	if in.Password != nil || (in.Status != nil && *in.Status == models.UserStatusSuspended) {
		if err := utils.RevokeRefreshTokens(u.ID); err != nil {
			logging.Component("user").WithError(err).WithField("user_id", u.ID).Warn("Failed to revoke refresh tokens")
		}
	}

	after, err = Find(id)
	return &prev, after, err
}

func Delete(actor *models.User, id uint) (*models.User, error) {
	if id == actor.ID {
		return nil, ErrSelf
	}
	u, err := Find(id)
	if err != nil {
		return nil, err
	}
	if err := database.DB.Delete(u).Error; err != nil {
		return nil, err
	}
	if err := utils.RevokeRefreshTokens(u.ID); err != nil {
		logging.Component("user").WithError(err).WithField("user_id", u.ID).Warn("Failed to revoke refresh tokens")
	}
	return u, nil
}
