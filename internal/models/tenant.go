package models

import "time"

// Tenant is an isolated community (server) under which members, warnings
// and auto-moderation rules are partitioned.
type Tenant struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
