// Package ledger keeps the durable audit trail of generation attempts. It is
// a passive record: callers bracket every generation with Open and Close, and
// the ledger never calls the gateway or adapters.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hubbridge/internal/db/models"
	"hubbridge/internal/util"
)

// DefaultPageSize limits Query results when the caller passes no limit.
const DefaultPageSize = 50

// ErrUnavailable marks a ledger store failure.
var ErrUnavailable = errors.New("attempt ledger unavailable")

// Service reads and writes GenerationAttempt rows.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(database *gorm.DB) *Service {
	return &Service{db: database, now: time.Now}
}

// NewServiceWithClock lets tests pin attempt timestamps.
func NewServiceWithClock(database *gorm.DB, now func() time.Time) *Service {
	return &Service{db: database, now: now}
}

// OpenParams describes the attempt being started.
type OpenParams struct {
	PortalID    string
	Category    string
	Operation   string
	VendorKey   string
	Model       string
	TokenBudget int
	ConfigID    string
}

// Open inserts a pending attempt row and returns its id.
func (s *Service) Open(ctx context.Context, params OpenParams) (string, error) {
	attempt := models.GenerationAttempt{
		ID:          uuid.New().String(),
		PortalID:    params.PortalID,
		Category:    params.Category,
		Operation:   params.Operation,
		VendorKey:   params.VendorKey,
		Model:       params.Model,
		TokenBudget: params.TokenBudget,
		ConfigID:    params.ConfigID,
		Status:      models.StatusPending,
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&attempt).Error; err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return attempt.ID, nil
}

// Close records the attempt's terminal status. Closing twice is a caller bug:
// the second write wins but is logged as a warning. errorDetail is truncated
// before storage so one huge vendor payload cannot bloat the ledger.
func (s *Service) Close(ctx context.Context, attemptID, status, errorDetail string, durationMs *int64) error {
	if status != models.StatusSuccess && status != models.StatusFailed {
		return fmt.Errorf("invalid terminal status %q", status)
	}

	var current models.GenerationAttempt
	if err := s.db.WithContext(ctx).First(&current, "id = ?", attemptID).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if current.Status != models.StatusPending {
		log.Printf("⚠️ Attempt %s closed more than once (was %s, now %s)", attemptID, current.Status, status)
	}

	updates := map[string]interface{}{
		"status":       status,
		"error_detail": util.TruncateLog(errorDetail, util.DefaultLogMaxLen),
		"updated_at":   s.now(),
	}
	if durationMs != nil {
		updates["duration_ms"] = *durationMs
	}
	if err := s.db.WithContext(ctx).Model(&models.GenerationAttempt{}).
		Where("id = ?", attemptID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Filter narrows Query results. Zero values mean "no constraint".
type Filter struct {
	Category  string
	Operation string
	From      time.Time
	To        time.Time
}

// Query returns a portal's attempts newest first, plus the unpaginated total.
func (s *Service) Query(ctx context.Context, portalID string, filter Filter, limit, offset int) ([]models.GenerationAttempt, int64, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	query := s.db.WithContext(ctx).Model(&models.GenerationAttempt{}).Where("portal_id = ?", portalID)
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Operation != "" {
		query = query.Where("operation = ?", filter.Operation)
	}
	if !filter.From.IsZero() {
		query = query.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("created_at <= ?", filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var attempts []models.GenerationAttempt
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&attempts).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return attempts, total, nil
}

// UsageStats aggregates a portal's ledger, optionally bounded by a date range.
func (s *Service) UsageStats(ctx context.Context, portalID string, from, to time.Time) (models.UsageStats, error) {
	scoped := func() *gorm.DB {
		query := s.db.WithContext(ctx).Model(&models.GenerationAttempt{}).Where("portal_id = ?", portalID)
		if !from.IsZero() {
			query = query.Where("created_at >= ?", from)
		}
		if !to.IsZero() {
			query = query.Where("created_at <= ?", to)
		}
		return query
	}

	var stats models.UsageStats
	row := struct {
		TotalTokenBudget *int64
		TotalAttempts    int64
	}{}
	if err := scoped().
		Select("SUM(token_budget) AS total_token_budget, COUNT(*) AS total_attempts").
		Scan(&row).Error; err != nil {
		return stats, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if row.TotalTokenBudget != nil {
		stats.TotalTokenBudget = *row.TotalTokenBudget
	}
	stats.TotalAttempts = row.TotalAttempts

	if err := scoped().
		Where("status = ?", models.StatusSuccess).
		Count(&stats.SuccessCount).Error; err != nil {
		return stats, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := scoped().
		Where("status = ?", models.StatusFailed).
		Count(&stats.FailureCount).Error; err != nil {
		return stats, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return stats, nil
}
