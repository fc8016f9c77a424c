package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleClient = "client"

	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
)

func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleStaff || role == RoleClient
}

type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:100" json:"name"`
	Email     string         `gorm:"uniqueIndex;size:100" json:"email"`
	Password  string         `gorm:"size:255" json:"-"`
	Provider  string         `gorm:"size:50" json:"provider,omitempty"`
	Role      string         `gorm:"size:20;default:'client';index" json:"role"`
	Status    string         `gorm:"size:20;default:'active'" json:"status"`
	Phone     string         `gorm:"size:30" json:"phone,omitempty"`
	Teams     []Team         `gorm:"many2many:team_users" json:"teams,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) IsAdmin() bool  { return u != nil && u.Role == RoleAdmin }
func (u *User) IsStaff() bool  { return u != nil && u.Role == RoleStaff }
func (u *User) IsClient() bool { return u != nil && u.Role == RoleClient }
