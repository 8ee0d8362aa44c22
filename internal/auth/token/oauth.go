package token

import (
	"os"

	"golang.org/x/oauth2"

	"hubbridge/internal/hubspot"
)

// AuthorizeURL is HubSpot's OAuth consent page.
const AuthorizeURL = "https://app.hubspot.com/oauth/authorize"

// Development app credentials, overridable via environment.
const (
	DefaultClientID     = "daa63ac0-8181-44b8-a832-fce2f51c88a7"
	DefaultClientSecret = "2e1bdcf2-0df8-4048-a6f2-b31aa668c194"
	DefaultRedirectURI  = "https://127.0.0.1:8386/oauth"
)

// Scopes requested on install.
var Scopes = []string{
	"crm.objects.contacts.read",
	"oauth",
}

// AppConfig holds the HubSpot app's OAuth credentials.
type AppConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// AppConfigFromEnv reads the app credentials, falling back to the built-in
// development values.
func AppConfigFromEnv() AppConfig {
	cfg := AppConfig{
		ClientID:     os.Getenv("HUBSPOT_CLIENT_ID"),
		ClientSecret: os.Getenv("HUBSPOT_CLIENT_SECRET"),
		RedirectURI:  os.Getenv("HUBSPOT_REDIRECT_URI"),
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = DefaultClientSecret
	}
	if cfg.RedirectURI == "" {
		cfg.RedirectURI = DefaultRedirectURI
	}
	return cfg
}

// OAuthConfig returns the oauth2 config used for the install link and the
// authorization-code exchange. The refresh grant does not go through oauth2
// because HubSpot requires redirect_uri on refresh as well, which the library
// does not send; see Manager.refreshLocked.
func (c AppConfig) OAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   AuthorizeURL,
			TokenURL:  hubspot.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
