package db

import (
	"gorm.io/gorm"

	"hubbridge/internal/db/models"
)

// ListTones returns a portal's tones oldest first. When the portal has tones
// but none is marked default, the first one is promoted so the email prompt
// always has tonal guidance to fall back on.
func ListTones(database *gorm.DB, portalID string) ([]models.Tone, error) {
	var tones []models.Tone
	if err := database.Where("portal_id = ?", portalID).Order("created_at ASC").Find(&tones).Error; err != nil {
		return nil, err
	}
	if len(tones) == 0 {
		return tones, nil
	}

	hasDefault := false
	for _, t := range tones {
		if t.IsDefault {
			hasDefault = true
			break
		}
	}
	if !hasDefault {
		if err := database.Model(&models.Tone{}).Where("id = ?", tones[0].ID).Update("is_default", true).Error; err != nil {
			return nil, err
		}
		tones[0].IsDefault = true
	}
	return tones, nil
}

// DefaultTone returns the portal's default tone, or nil when there is none.
func DefaultTone(database *gorm.DB, portalID string) (*models.Tone, error) {
	var tone models.Tone
	err := database.Where("portal_id = ? AND is_default = ?", portalID, true).First(&tone).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tone, nil
}

// SetDefaultTone makes one tone the portal default, clearing the previous
// default inside the same transaction.
func SetDefaultTone(database *gorm.DB, portalID, toneID string) error {
	return database.Transaction(func(tx *gorm.DB) error {
		var tone models.Tone
		if err := tx.Where("id = ? AND portal_id = ?", toneID, portalID).First(&tone).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Tone{}).
			Where("portal_id = ?", portalID).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.Tone{}).Where("id = ?", tone.ID).Update("is_default", true).Error
	})
}
