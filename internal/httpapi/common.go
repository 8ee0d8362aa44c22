// Package httpapi is the application layer over the core: chi handlers that
// validate requests, bracket generations with ledger rows and map the core's
// error taxonomy onto HTTP statuses.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"hubbridge/internal/auth/token"
	"hubbridge/internal/gateway"
	"hubbridge/internal/ledger"
	"hubbridge/internal/upstream"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeErrorMessage(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"message": message,
			"type":    errType,
		},
	})
}

// writeError maps the core error taxonomy onto HTTP statuses. Callers never
// see raw vendor stack traces, only the typed message.
func writeError(w http.ResponseWriter, err error) {
	var vendorErr *upstream.VendorError

	switch {
	case errors.Is(err, gateway.ErrNoActiveProvider):
		writeErrorMessage(w, http.StatusNotFound, "no_active_provider", err.Error())
	case errors.Is(err, gateway.ErrMissingCredential):
		writeErrorMessage(w, http.StatusBadRequest, "missing_credential", err.Error())
	case errors.Is(err, token.ErrRefreshFailed):
		writeErrorMessage(w, http.StatusBadRequest, "credential_refresh_failed", err.Error())
	case errors.Is(err, upstream.ErrTimeout):
		writeErrorMessage(w, http.StatusGatewayTimeout, "vendor_timeout", err.Error())
	case errors.Is(err, upstream.ErrEmptyResponse):
		writeErrorMessage(w, http.StatusBadGateway, "vendor_empty_response", err.Error())
	case errors.As(err, &vendorErr):
		writeErrorMessage(w, http.StatusBadGateway, "vendor_error", vendorErr.Error())
	case errors.Is(err, ledger.ErrUnavailable):
		writeErrorMessage(w, http.StatusServiceUnavailable, "ledger_unavailable", err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		writeErrorMessage(w, http.StatusNotFound, "not_found", "record not found")
	default:
		writeErrorMessage(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// portalIDFromRequest accepts the portal id as a query parameter.
func portalIDFromRequest(r *http.Request) string {
	return r.URL.Query().Get("portalId")
}
