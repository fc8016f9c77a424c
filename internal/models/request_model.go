package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RequestStatus string

const (
	StatusNew           RequestStatus = "new"
	StatusDraft         RequestStatus = "draft"
	StatusInPreparation RequestStatus = "in-preparation"
	StatusReady         RequestStatus = "ready"
	StatusScheduled     RequestStatus = "scheduled"
	StatusPublished     RequestStatus = "published"
	StatusNeedsReview   RequestStatus = "needs-review"
	StatusCompleted     RequestStatus = "completed"
	StatusInProgress    RequestStatus = "in-progress"
	StatusWaiting       RequestStatus = "waiting"
	StatusOverdue       RequestStatus = "overdue"
)

var requestStatuses = []RequestStatus{
	StatusNew, StatusDraft, StatusInPreparation, StatusReady, StatusScheduled, StatusPublished,
	StatusNeedsReview, StatusCompleted, StatusInProgress, StatusWaiting, StatusOverdue,
}

func RequestStatuses() []RequestStatus {
	out := make([]RequestStatus, len(requestStatuses))
	copy(out, requestStatuses)
	return out
}

func (s RequestStatus) Valid() bool {
	for _, st := range requestStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// IsTerminal reports statuses excluded from active and overdue counts.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusPublished
}

func TerminalStatuses() []RequestStatus {
	return []RequestStatus{StatusCompleted, StatusPublished}
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Request struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	RequestTypeID  uint                `gorm:"index;not null" json:"request_type_id"`
	RequestType    *RequestType        `gorm:"foreignKey:RequestTypeID;constraint:OnDelete:RESTRICT" json:"request_type,omitempty"`
	BusinessID     uint                `gorm:"index;not null" json:"business_id"`
	Business       *Business           `gorm:"foreignKey:BusinessID;constraint:OnDelete:CASCADE" json:"business,omitempty"`
	CreatedBy      uint                `gorm:"index;not null" json:"created_by"`
	Creator        *User               `gorm:"foreignKey:CreatedBy;constraint:OnDelete:RESTRICT" json:"creator,omitempty"`
	AssignedTeamID *uint               `gorm:"index" json:"assigned_team_id"`
	AssignedTeam   *Team               `gorm:"foreignKey:AssignedTeamID;constraint:OnDelete:SET NULL" json:"assigned_team,omitempty"`
	AssignedUserID *uint               `gorm:"index" json:"assigned_user_id"`
	AssignedUser   *User               `gorm:"foreignKey:AssignedUserID;constraint:OnDelete:SET NULL" json:"assigned_user,omitempty"`
	Status         RequestStatus       `gorm:"size:30;default:'new';index" json:"status"`
	Priority       Priority            `gorm:"size:20;default:'medium'" json:"priority"`
	DueAt          *time.Time          `gorm:"index" json:"due_at"`
	FieldValues    []RequestFieldValue `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"field_values,omitempty"`
	Comments       []Comment           `gorm:"-" json:"comments,omitempty"`
	Attachments    []Attachment        `gorm:"-" json:"attachments,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	DeletedAt      gorm.DeletedAt      `gorm:"index" json:"-"`
}

// RequestFieldValue holds one answer: ValueText for plain strings, ValueJSON for everything else.
type RequestFieldValue struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RequestID uint           `gorm:"uniqueIndex:idx_request_field_key;not null" json:"request_id"`
	FieldKey  string         `gorm:"size:100;uniqueIndex:idx_request_field_key;not null" json:"field_key"`
	ValueText *string        `gorm:"type:text" json:"value_text"`
	ValueJSON datatypes.JSON `gorm:"column:value_json" json:"value_json"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
