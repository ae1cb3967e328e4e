package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeAutoMod NotificationType = "automod"
	NotificationTypeError   NotificationType = "error"
)

// Notification is the stored copy of an event sent to the notification sink.
type Notification struct {
	ID        string           `gorm:"primaryKey" json:"id"`
	TenantID  string           `gorm:"index" json:"tenant_id"`
	ActorID   string           `json:"actor_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return
}
