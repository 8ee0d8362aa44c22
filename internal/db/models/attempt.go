package models

import "time"

// Attempt categories.
const (
	CategoryEmail = "email"
	CategoryChat  = "chat"
)

// Attempt operations.
const (
	OperationGenerateEmail = "generate_email"
	OperationSaveTemplate  = "save_template"
	OperationChat          = "chat"
	OperationGenerateTone  = "generate_tone"
)

// Attempt statuses. Transitions are pending→success or pending→failed, once.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// GenerationAttempt is one append-only audit row per generation attempt.
// Rows reference a ProviderConfig but do not own it.
type GenerationAttempt struct {
	ID          string `gorm:"primaryKey" json:"id"` // UUID
	PortalID    string `gorm:"index" json:"portal_id"`
	Category    string `gorm:"size:20;index" json:"category"`
	Operation   string `gorm:"size:50;index" json:"operation"`
	VendorKey   string `gorm:"size:50" json:"vendor_key"`
	Model       string `gorm:"size:100" json:"model"`
	TokenBudget int    `gorm:"default:0" json:"token_budget"`
	Status      string `gorm:"size:20;default:'pending'" json:"status"`
	ErrorDetail string `gorm:"type:text" json:"error_detail,omitempty"`
	DurationMs  *int64 `json:"duration_ms,omitempty"`
	ConfigID    string `gorm:"index" json:"config_id,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UsageStats holds aggregated ledger counters for one portal.
type UsageStats struct {
	TotalTokenBudget int64 `json:"total_token_budget"`
	TotalAttempts    int64 `json:"total_attempts"`
	SuccessCount     int64 `json:"success_count"`
	FailureCount     int64 `json:"failure_count"`
}
