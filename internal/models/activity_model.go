package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EntityKind tags the owner of a comment or attachment.
type EntityKind string

const EntityRequest EntityKind = "request"

func (k EntityKind) Valid() bool {
	return k == EntityRequest
}

type Comment struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	EntityType EntityKind     `gorm:"size:50;index:idx_comment_entity;not null" json:"entity_type"`
	EntityID   uint           `gorm:"index:idx_comment_entity;not null" json:"entity_id"`
	UserID     uint           `gorm:"index;not null" json:"user_id"`
	User       *User          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

type Attachment struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	EntityType EntityKind     `gorm:"size:50;index:idx_attachment_entity;not null" json:"entity_type"`
	EntityID   uint           `gorm:"index:idx_attachment_entity;not null" json:"entity_id"`
	UploadedBy uint           `gorm:"index;not null" json:"uploaded_by"`
	Uploader   *User          `gorm:"foreignKey:UploadedBy;constraint:OnDelete:CASCADE" json:"uploader,omitempty"`
	FilePath   string         `gorm:"size:500;not null" json:"file_path"`
	FileName   string         `gorm:"size:255" json:"file_name"`
	MimeType   string         `gorm:"size:100" json:"mime_type"`
	Size       int64          `json:"size"`
	Disk       string         `gorm:"size:20" json:"disk"`
	URL        string         `gorm:"-" json:"url,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// AuditLog rows are append-only.
type AuditLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ActorID    *uint          `gorm:"index" json:"actor_id"`
	Actor      *User          `gorm:"foreignKey:ActorID;constraint:OnDelete:SET NULL" json:"actor,omitempty"`
	Action     string         `gorm:"size:100;index;not null" json:"action"`
	EntityType string         `gorm:"size:50;index:idx_audit_entity" json:"entity_type"`
	EntityID   *uint          `gorm:"index:idx_audit_entity" json:"entity_id"`
	Before     datatypes.JSON `json:"before,omitempty"`
	After      datatypes.JSON `json:"after,omitempty"`
	IPAddress  string         `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent  string         `gorm:"size:500" json:"user_agent,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

type Notification struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"index;not null" json:"user_id"`
	Type      string         `gorm:"size:100;index" json:"type"`
	Data      datatypes.JSON `json:"data"`
	ReadAt    *time.Time     `json:"read_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type Feedback struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Subject   string    `gorm:"size:255;not null" json:"subject"`
	Category  string    `gorm:"size:255" json:"category,omitempty"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Rating    *int      `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Setting struct {
	Key         string         `gorm:"primaryKey;size:100" json:"key"`
	Value       datatypes.JSON `json:"value"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
