package models

import "time"

// ProviderConfig is one portal's settings for a single AI vendor.
// At most one config per portal has IsActive=true; activation goes through
// db.ActivateProviderConfig which clears and sets inside one transaction.
type ProviderConfig struct {
	ID            string `gorm:"primaryKey" json:"id"` // UUID
	PortalID      string `gorm:"index:idx_portal_vendor,unique" json:"portal_id"`
	VendorKey     string `gorm:"index:idx_portal_vendor,unique" json:"vendor_key"` // OPENAI | DEEPSEEK | GROK | CLAUDE
	DisplayName   string `json:"display_name"`
	SecretKey     string `json:"-"` // empty means not configured
	TokenBudget   int    `gorm:"default:0" json:"token_budget"` // 0 means use category default
	SelectedModel int    `gorm:"default:0" json:"selected_model"` // index into the vendor preset's model list
	IsActive      bool   `gorm:"default:false" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
