package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	McpStatusDraft         = "draft"
	McpStatusInPreparation = "in-preparation"
	McpStatusReady         = "ready"
	McpStatusPublished     = "published"

	PostStatusDraft         = "draft"
	PostStatusInPreparation = "in-preparation"
	PostStatusScheduled     = "scheduled"
	PostStatusPublished     = "published"
)

func IsValidPostStatus(s string) bool {
	switch s {
	case PostStatusDraft, PostStatusInPreparation, PostStatusScheduled, PostStatusPublished:
		return true
	}
	return false
}

// Mcp is a monthly content plan; Month is formatted YYYY-MM.
type Mcp struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BusinessID uint      `gorm:"uniqueIndex:idx_mcp_business_month;not null" json:"business_id"`
	Business   *Business `gorm:"foreignKey:BusinessID;constraint:OnDelete:CASCADE" json:"business,omitempty"`
	Month      string    `gorm:"size:7;uniqueIndex:idx_mcp_business_month;not null" json:"month"`
	Status     string    `gorm:"size:30;default:'draft'" json:"status"`
	Posts      []McpPost `gorm:"foreignKey:McpID;constraint:OnDelete:CASCADE" json:"posts,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type McpPost struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	McpID        uint           `gorm:"index;not null" json:"mcp_id"`
	Title        string         `gorm:"size:255;not null" json:"title"`
	Platform     string         `gorm:"size:50" json:"platform,omitempty"`
	Caption      string         `gorm:"type:text" json:"caption,omitempty"`
	Status       string         `gorm:"size:30;default:'draft'" json:"status"`
	ScheduledAt  *time.Time     `json:"scheduled_at"`
	PublishedAt  *time.Time     `json:"published_at"`
	AssignedTo   *uint          `gorm:"index" json:"assigned_to"`
	AssignedUser *User          `gorm:"foreignKey:AssignedTo;constraint:OnDelete:SET NULL" json:"assigned_user,omitempty"`
	Metadata     datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Opmp is the one-page marketing plan, one per business.
type Opmp struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	BusinessID uint           `gorm:"uniqueIndex;not null" json:"business_id"`
	Data       datatypes.JSON `json:"data"`
	UpdatedBy  *uint          `json:"updated_by"`
	Updater    *User          `gorm:"foreignKey:UpdatedBy;constraint:OnDelete:SET NULL" json:"updater,omitempty"`
	Versions   []OpmpVersion  `gorm:"foreignKey:OpmpID;constraint:OnDelete:CASCADE" json:"versions,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type OpmpVersion struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	OpmpID    uint           `gorm:"index;not null" json:"opmp_id"`
	Data      datatypes.JSON `json:"data"`
	UpdatedBy *uint          `json:"updated_by"`
	Updater   *User          `gorm:"foreignKey:UpdatedBy;constraint:OnDelete:SET NULL" json:"updater,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
