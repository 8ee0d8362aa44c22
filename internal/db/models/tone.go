package models

import "time"

// Tone is a per-portal writing-style preset. The default tone's description is
// appended to the email system prompt as tonal guidance.
type Tone struct {
	ID          string `gorm:"primaryKey" json:"id"` // UUID
	PortalID    string `gorm:"index" json:"portal_id"`
	Title       string `gorm:"size:150" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	IsDefault   bool   `gorm:"default:false" json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
