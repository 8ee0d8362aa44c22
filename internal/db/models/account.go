package models

import "time"

// HubSpotAccount stores the OAuth credential pair for one linked portal.
// AccessToken is never empty once the row exists; only the token manager's
// refresh path mutates the token columns.
type HubSpotAccount struct {
	ID              string `gorm:"primaryKey"` // UUID
	PortalID        string `gorm:"uniqueIndex"`
	Email           string
	AccountType     string
	AccessToken     string `gorm:"type:text"`
	RefreshToken    string `gorm:"type:text"`
	LastRefreshedAt time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
