package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	BusinessStatusActive    = "active"
	BusinessStatusSuspended = "suspended"
	BusinessStatusInactive  = "inactive"
)

type Business struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	OwnerUserID uint           `gorm:"index;not null" json:"owner_user_id"`
	Owner       *User          `gorm:"foreignKey:OwnerUserID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
	Name        string         `gorm:"size:255;not null" json:"name"`
	Industry    string         `gorm:"size:255" json:"industry,omitempty"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	SocialLinks datatypes.JSON `json:"social_links,omitempty"`
	Status      string         `gorm:"size:20;default:'active'" json:"status"`
	Members     []BusinessUser `gorm:"foreignKey:BusinessID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// BusinessUser is the secondary-membership pivot.
type BusinessUser struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	BusinessID     uint      `gorm:"uniqueIndex:idx_business_user;not null" json:"business_id"`
	UserID         uint      `gorm:"uniqueIndex:idx_business_user;not null" json:"user_id"`
	User           *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	RoleInBusiness string    `gorm:"size:50;default:'member'" json:"role_in_business"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
