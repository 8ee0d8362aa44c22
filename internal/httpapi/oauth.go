package httpapi

import (
	"net/http"

	"hubbridge/internal/auth/token"
)

// InstallHandler redirects the browser to HubSpot's consent page.
func InstallHandler(tokenMgr *token.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, tokenMgr.AuthorizeURL("install"), http.StatusFound)
	}
}

// OAuthCallbackHandler exchanges the authorization code, links the portal and
// seeds its provider configs.
func OAuthCallbackHandler(tokenMgr *token.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "missing authorization code")
			return
		}

		tok, err := tokenMgr.ExchangeCode(r.Context(), code)
		if err != nil {
			writeError(w, err)
			return
		}

		account, err := tokenMgr.SyncAccount(r.Context(), tok.AccessToken, tok.RefreshToken)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"portal_id":    account.PortalID,
			"email":        account.Email,
			"account_type": account.AccountType,
		})
	}
}
