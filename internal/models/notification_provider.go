package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationProvider is a shoutrrr destination configured by a tenant.
type NotificationProvider struct {
	ID       string `gorm:"primaryKey" json:"id"`
	TenantID string `gorm:"index" json:"tenant_id"`
	Name     string `json:"name"`
	Type     string `json:"type"` // discord, slack, gotify, telegram, generic
	URL      string `json:"url"`  // The shoutrrr URL or a discord webhook URL
	Enabled  bool   `json:"enabled"`

	// Notification Preferences
	NotifyWarnings bool `json:"notify_warnings" gorm:"default:true"`
	NotifyAutoMod  bool `json:"notify_automod" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (n *NotificationProvider) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return
}
