package models

import (
	"time"

	"gorm.io/datatypes"
)

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryDead      DeliveryStatus = "dead"
	DeliverySkipped   DeliveryStatus = "skipped"
)

// WebhookDelivery is one outbound event in the webhook outbox.
type WebhookDelivery struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	EventID        string         `gorm:"size:36;uniqueIndex;not null" json:"event_id"`
	Event          string         `gorm:"size:100;index;not null" json:"event"`
	Payload        datatypes.JSON `json:"payload"`
	Status         DeliveryStatus `gorm:"size:20;default:'pending';index:idx_delivery_due" json:"status"`
	Attempts       int            `gorm:"default:0" json:"attempts"`
	NextAttemptAt  time.Time      `gorm:"index:idx_delivery_due" json:"next_attempt_at"`
	LastError      string         `gorm:"type:text" json:"last_error,omitempty"`
	ResponseStatus int            `json:"response_status,omitempty"`
	DeliveredAt    *time.Time     `json:"delivered_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
