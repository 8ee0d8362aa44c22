package httpapi

import (
	"encoding/json"
	"net/http"

	"hubbridge/internal/db/models"
	"hubbridge/internal/gateway"
	"hubbridge/internal/ledger"
	"hubbridge/internal/upstream"
)

type chatRequest struct {
	PortalID  string          `json:"portal_id"`
	ContactID string          `json:"contact_id"`
	Messages  []upstream.Turn `json:"messages"`
}

// ChatHandler runs a contact-scoped chat generation, recorded in the ledger.
func ChatHandler(gw *gateway.Gateway, led *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
		if body.PortalID == "" {
			writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "portal_id is required")
			return
		}

		ctx := r.Context()
		plan, err := gw.Plan(ctx, body.PortalID, models.CategoryChat)
		if err != nil {
			writeError(w, err)
			return
		}

		text, err := runRecorded(ctx, led, ledger.OpenParams{
			PortalID:    body.PortalID,
			Category:    models.CategoryChat,
			Operation:   models.OperationChat,
			VendorKey:   plan.VendorKey,
			Model:       plan.Model,
			TokenBudget: plan.TokenBudget,
			ConfigID:    plan.ConfigID,
		}, func() (string, error) {
			return gw.GeneratePlanned(ctx, plan, body.PortalID, models.CategoryChat, body.ContactID, body.Messages)
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"text": text})
	}
}

type emailRequest struct {
	Content string `json:"content"`
}

// GenerateEmailHandler drafts email content under the portal's active
// provider, recorded in the ledger. ?save=true records the save_template
// operation instead (template persistence itself is CRM-side).
func GenerateEmailHandler(gw *gateway.Gateway, led *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portalID := portalIDFromRequest(r)
		if portalID == "" {
			writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "portalId query parameter is required")
			return
		}

		var body emailRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Content == "" {
			writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "content is required")
			return
		}

		operation := models.OperationGenerateEmail
		if r.URL.Query().Get("save") == "true" {
			operation = models.OperationSaveTemplate
		}

		ctx := r.Context()
		plan, err := gw.Plan(ctx, portalID, models.CategoryEmail)
		if err != nil {
			writeError(w, err)
			return
		}

		text, err := runRecorded(ctx, led, ledger.OpenParams{
			PortalID:    portalID,
			Category:    models.CategoryEmail,
			Operation:   operation,
			VendorKey:   plan.VendorKey,
			Model:       plan.Model,
			TokenBudget: plan.TokenBudget,
			ConfigID:    plan.ConfigID,
		}, func() (string, error) {
			return gw.GeneratePlanned(ctx, plan, portalID, models.CategoryEmail, body.Content, nil)
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"text": text})
	}
}

type toneGenRequest struct {
	Description string `json:"description"`
}

// GenerateToneHandler asks the active provider to draft a tone description
// from a short instruction, recorded as the generate_tone operation.
func GenerateToneHandler(gw *gateway.Gateway, led *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portalID := portalIDFromRequest(r)
		if portalID == "" {
			writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "portalId query parameter is required")
			return
		}

		var body toneGenRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Description == "" {
			writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "description is required")
			return
		}

		ctx := r.Context()
		plan, err := gw.Plan(ctx, portalID, models.CategoryEmail)
		if err != nil {
			writeError(w, err)
			return
		}

		instruction := "Write a reusable tone-of-voice description for outbound emails based on: " + body.Description
		text, err := runRecorded(ctx, led, ledger.OpenParams{
			PortalID:    portalID,
			Category:    models.CategoryEmail,
			Operation:   models.OperationGenerateTone,
			VendorKey:   plan.VendorKey,
			Model:       plan.Model,
			TokenBudget: plan.TokenBudget,
			ConfigID:    plan.ConfigID,
		}, func() (string, error) {
			return gw.GeneratePlanned(ctx, plan, portalID, models.CategoryEmail, instruction, nil)
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"text": text})
	}
}
