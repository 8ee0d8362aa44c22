// Package hubspot wraps the HubSpot platform endpoints the core needs: the
// OAuth token endpoint, account/user lookups used when a portal is linked, and
// the contact read that feeds chat context into the gateway.
package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	BaseURL  = "https://api.hubapi.com"
	TokenURL = BaseURL + "/oauth/v1/token"

	accountDetailsPath = "/account-info/v3/details"
	usersPath          = "/settings/v3/users"
	contactsPath       = "/crm/v3/objects/contacts"

	defaultTimeout = 15 * time.Second
)

// contactProperties is the fixed property set requested for chat context.
var contactProperties = []string{
	"hs_object_id", "createdate", "lastmodifieddate", "firstname", "lastname",
	"email", "phone", "mobilephone", "fax", "jobtitle", "company", "website",
	"salutation", "address", "address2", "city", "state", "zip", "country",
	"lifecyclestage", "hs_lead_status", "hubspot_owner_id", "hubspot_owner_assigneddate",
	"hubspot_team_id", "notes_last_contacted", "notes_last_updated",
	"notes_next_activity_date", "first_conversion_date", "first_conversion_event_name",
	"recent_conversion_date", "recent_conversion_event_name", "num_conversion_events",
	"num_unique_conversion_events", "num_associated_deals", "num_notes",
	"hs_analytics_source", "hs_analytics_source_data_1", "hs_analytics_source_data_2",
	"ip_city", "ip_state", "ip_country", "ip_country_code", "ip_state_code",
	"ip_timezone", "ip_zipcode", "industry", "numberofemployees", "timezone",
	"hs_language",
}

// Client calls the HubSpot REST API with a caller-supplied bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient() *Client {
	return NewClientWith(BaseURL, nil)
}

// NewClientWith allows tests to point the client at a fake server and inject
// an *http.Client.
func NewClientWith(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// AccountDetails is the subset of account-info/v3/details the core uses.
type AccountDetails struct {
	PortalID    json.Number `json:"portalId"`
	AccountType string      `json:"accountType"`
}

// UserProfile is one entry of settings/v3/users.
type UserProfile struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// FetchAccountDetails reads the portal id and account type for a token.
func (c *Client) FetchAccountDetails(ctx context.Context, accessToken string) (*AccountDetails, error) {
	var details AccountDetails
	if err := c.getJSON(ctx, accountDetailsPath, accessToken, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// FetchPrimaryUser returns the first user of the portal's user list.
func (c *Client) FetchPrimaryUser(ctx context.Context, accessToken string) (*UserProfile, error) {
	var payload struct {
		Results []UserProfile `json:"results"`
	}
	if err := c.getJSON(ctx, usersPath, accessToken, &payload); err != nil {
		return nil, err
	}
	if len(payload.Results) == 0 {
		return nil, fmt.Errorf("hubspot users endpoint returned no results")
	}
	return &payload.Results[0], nil
}

// FetchContact reads one contact with the full chat-context property set and
// returns the raw JSON property bag.
func (c *Client) FetchContact(ctx context.Context, accessToken, contactID string) (string, error) {
	query := url.Values{}
	query.Set("archived", "false")
	for _, p := range contactProperties {
		query.Add("properties", p)
	}
	path := fmt.Sprintf("%s/%s?%s", contactsPath, url.PathEscape(contactID), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("hubspot contact read returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}

func (c *Client) getJSON(ctx context.Context, path, accessToken string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("hubspot %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
