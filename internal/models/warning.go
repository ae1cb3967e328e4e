package models

import "time"

// Warning is a single recorded infraction. Rows are never edited; they are
// only hard deleted individually or in bulk per (tenant, actor).
type Warning struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ActorID     string    `json:"actor_id" gorm:"index:idx_warnings_tenant_actor;not null"`
	TenantID    string    `json:"tenant_id" gorm:"index:idx_warnings_tenant_actor;not null"`
	ModeratorID string    `json:"moderator_id" gorm:"not null"`
	Reason      *string   `json:"reason"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}
