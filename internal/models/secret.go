package models

import "time"

// Secret holds a user-supplied provider credential. Token is always a vault
// token once written by the service; plaintext values only exist in rows
// written before encryption was introduced and are migrated on read.
type Secret struct {
	OwnerID   string    `json:"owner_id" gorm:"primaryKey"`
	Token     string    `json:"-" gorm:"not null"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Endpoint  string    `json:"endpoint"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
