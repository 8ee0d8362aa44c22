package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"hubbridge/internal/ledger"
)

func parseTimeParam(r *http.Request, name string) time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t
	}
	return time.Time{}
}

func parseIntParam(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

// ActivitiesHandler pages through a portal's generation attempts, newest first.
func ActivitiesHandler(led *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portalID := portalIDFromRequest(r)
		if portalID == "" {
			writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "portalId query parameter is required")
			return
		}

		filter := ledger.Filter{
			Category:  r.URL.Query().Get("category"),
			Operation: r.URL.Query().Get("operation"),
			From:      parseTimeParam(r, "from"),
			To:        parseTimeParam(r, "to"),
		}

		attempts, total, err := led.Query(r.Context(), portalID, filter, parseIntParam(r, "limit"), parseIntParam(r, "offset"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"activities": attempts,
			"total":      total,
		})
	}
}

// UsageHandler returns the portal's aggregated ledger counters.
func UsageHandler(led *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portalID := portalIDFromRequest(r)
		if portalID == "" {
			writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "portalId query parameter is required")
			return
		}

		stats, err := led.UsageStats(r.Context(), portalID, parseTimeParam(r, "from"), parseTimeParam(r, "to"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
