package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"hubbridge/internal/db"
	"hubbridge/internal/providers/catalog"
)

// ListProvidersHandler returns a portal's provider configs together with the
// preset model lists the SelectedModel indices point into.
func ListProvidersHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portalID := portalIDFromRequest(r)
		if portalID == "" {
			writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "portalId query parameter is required")
			return
		}

		configs, err := db.ListProviderConfigs(database, portalID)
		if err != nil {
			writeError(w, err)
			return
		}

		type configView struct {
			ID            string   `json:"id"`
			VendorKey     string   `json:"vendor_key"`
			DisplayName   string   `json:"display_name"`
			HasSecretKey  bool     `json:"has_secret_key"`
			TokenBudget   int      `json:"token_budget"`
			SelectedModel int      `json:"selected_model"`
			IsActive      bool     `json:"is_active"`
			Models        []string `json:"models"`
		}
		views := make([]configView, 0, len(configs))
		for _, cfg := range configs {
			view := configView{
				ID:            cfg.ID,
				VendorKey:     cfg.VendorKey,
				DisplayName:   cfg.DisplayName,
				HasSecretKey:  cfg.SecretKey != "",
				TokenBudget:   cfg.TokenBudget,
				SelectedModel: cfg.SelectedModel,
				IsActive:      cfg.IsActive,
			}
			if preset, ok := catalog.Get(cfg.VendorKey); ok {
				view.Models = preset.Models
			}
			views = append(views, view)
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// UpdateProviderHandler changes one config's key, budget or model index.
func UpdateProviderHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portalID := portalIDFromRequest(r)
		configID := chi.URLParam(r, "id")
		if portalID == "" || configID == "" {
			writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "portalId and config id are required")
			return
		}

		var update db.ProviderConfigUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}

		cfg, err := db.UpdateProviderConfig(database, portalID, configID, update)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

// SelectProviderHandler activates one config, deactivating the portal's rest.
func SelectProviderHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portalID := portalIDFromRequest(r)
		configID := chi.URLParam(r, "id")
		if portalID == "" || configID == "" {
			writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "portalId and config id are required")
			return
		}

		if err := db.ActivateProviderConfig(database, portalID, configID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
