package db

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hubbridge/internal/db/models"
	"hubbridge/internal/providers/catalog"
)

// SeedProviderConfigs creates one ProviderConfig per known vendor for a portal.
// Idempotent: existing (portal, vendor) rows are left untouched.
func SeedProviderConfigs(database *gorm.DB, portalID string) error {
	for _, preset := range catalog.Presets() {
		var count int64
		if err := database.Model(&models.ProviderConfig{}).
			Where("portal_id = ? AND vendor_key = ?", portalID, preset.VendorKey).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		cfg := models.ProviderConfig{
			ID:          uuid.New().String(),
			PortalID:    portalID,
			VendorKey:   preset.VendorKey,
			DisplayName: preset.DisplayName,
		}
		if err := database.Create(&cfg).Error; err != nil {
			return err
		}
	}
	log.Printf("🌱 Seeded provider configs for portal %s", portalID)
	return nil
}

// ActiveProviderConfig returns the single active config for a portal, or
// gorm.ErrRecordNotFound when the portal has none.
func ActiveProviderConfig(database *gorm.DB, portalID string) (*models.ProviderConfig, error) {
	var cfg models.ProviderConfig
	if err := database.Where("portal_id = ? AND is_active = ?", portalID, true).First(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ListProviderConfigs returns all of a portal's configs, newest first.
func ListProviderConfigs(database *gorm.DB, portalID string) ([]models.ProviderConfig, error) {
	var configs []models.ProviderConfig
	err := database.Where("portal_id = ?", portalID).Order("created_at DESC").Find(&configs).Error
	return configs, err
}

// ActivateProviderConfig marks one config active and every other config of the
// same portal inactive. Clear-all-then-set-one runs in a single transaction so
// the at-most-one-active invariant holds even under concurrent activations.
func ActivateProviderConfig(database *gorm.DB, portalID, configID string) error {
	return database.Transaction(func(tx *gorm.DB) error {
		var cfg models.ProviderConfig
		if err := tx.Where("id = ? AND portal_id = ?", configID, portalID).First(&cfg).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ProviderConfig{}).
			Where("portal_id = ?", portalID).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.ProviderConfig{}).
			Where("id = ?", cfg.ID).
			Update("is_active", true).Error
	})
}

// ProviderConfigUpdate carries the mutable settings of a ProviderConfig.
// Nil fields are left unchanged.
type ProviderConfigUpdate struct {
	SecretKey     *string `json:"secret_key"`
	TokenBudget   *int    `json:"token_budget"`
	SelectedModel *int    `json:"selected_model"`
}

// UpdateProviderConfig applies an update to one config after validating the
// numeric fields are non-negative.
func UpdateProviderConfig(database *gorm.DB, portalID, configID string, update ProviderConfigUpdate) (*models.ProviderConfig, error) {
	if update.TokenBudget != nil && *update.TokenBudget < 0 {
		return nil, fmt.Errorf("token_budget must be >= 0")
	}
	if update.SelectedModel != nil && *update.SelectedModel < 0 {
		return nil, fmt.Errorf("selected_model must be >= 0")
	}

	var cfg models.ProviderConfig
	if err := database.Where("id = ? AND portal_id = ?", configID, portalID).First(&cfg).Error; err != nil {
		return nil, err
	}

	if update.SecretKey != nil {
		cfg.SecretKey = *update.SecretKey
	}
	if update.TokenBudget != nil {
		cfg.TokenBudget = *update.TokenBudget
	}
	if update.SelectedModel != nil {
		cfg.SelectedModel = *update.SelectedModel
	}

	if err := database.Save(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}
