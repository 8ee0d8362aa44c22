package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"hubbridge/internal/db"
	"hubbridge/internal/db/models"
)

type toneRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ListTonesHandler returns a portal's tone presets.
func ListTonesHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portalID := portalIDFromRequest(r)
		if portalID == "" {
			writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "portalId query parameter is required")
			return
		}
		tones, err := db.ListTones(database, portalID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tones)
	}
}

// CreateToneHandler adds a tone preset.
func CreateToneHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portalID := portalIDFromRequest(r)
		if portalID == "" {
			writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "portalId query parameter is required")
			return
		}
		var body toneRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Title == "" {
			writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "title is required")
			return
		}

		tone := models.Tone{
			ID:          uuid.New().String(),
			PortalID:    portalID,
			Title:       body.Title,
			Description: body.Description,
		}
		if err := database.Create(&tone).Error; err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, tone)
	}
}

// UpdateToneHandler edits a tone's title/description.
func UpdateToneHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portalID := portalIDFromRequest(r)
		toneID := chi.URLParam(r, "id")
		var body toneRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}

		var tone models.Tone
		if err := database.Where("id = ? AND portal_id = ?", toneID, portalID).First(&tone).Error; err != nil {
			writeError(w, err)
			return
		}
		if body.Title != "" {
			tone.Title = body.Title
		}
		if body.Description != "" {
			tone.Description = body.Description
		}
		if err := database.Save(&tone).Error; err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tone)
	}
}

// DeleteToneHandler removes a tone preset.
func DeleteToneHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portalID := portalIDFromRequest(r)
		toneID := chi.URLParam(r, "id")

		result := database.Where("id = ? AND portal_id = ?", toneID, portalID).Delete(&models.Tone{})
		if result.Error != nil {
			writeError(w, result.Error)
			return
		}
		if result.RowsAffected == 0 {
			writeErrorMessage(w, http.StatusNotFound, "not_found", "tone not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// SetDefaultToneHandler marks one tone as the portal's default.
func SetDefaultToneHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portalID := portalIDFromRequest(r)
		toneID := chi.URLParam(r, "id")

		if err := db.SetDefaultTone(database, portalID, toneID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
