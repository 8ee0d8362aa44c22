// Package token owns the portal credential lifecycle: handing out a valid
// HubSpot access token per portal and refreshing it against the platform's
// token endpoint once it goes stale.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"hubbridge/internal/db"
	"hubbridge/internal/db/models"
	"hubbridge/internal/hubspot"
)

// RefreshThreshold is how old a credential may be before the next request for
// it triggers a refresh call.
const RefreshThreshold = 25 * time.Minute

const refreshTimeout = 15 * time.Second

// ErrRefreshFailed marks a failed token refresh. The stored credential is left
// untouched; retrying is only useful after operator intervention since the
// refresh token itself may be invalid.
var ErrRefreshFailed = errors.New("hubspot token refresh failed")

// Manager hands out valid access tokens per portal, refreshing stale ones.
type Manager struct {
	db         *gorm.DB
	app        AppConfig
	tokenURL   string
	httpClient *http.Client
	crm        *hubspot.Client
	now        func() time.Time

	mu          sync.Mutex
	portalLocks map[string]*sync.Mutex
}

// Option customizes a Manager; used by tests to inject clock, HTTP client and
// a fake token endpoint.
type Option func(*Manager)

func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) { m.httpClient = client }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithTokenURL(tokenURL string) Option {
	return func(m *Manager) { m.tokenURL = tokenURL }
}

func WithHubSpotClient(client *hubspot.Client) Option {
	return func(m *Manager) { m.crm = client }
}

func NewManager(database *gorm.DB, app AppConfig, opts ...Option) *Manager {
	m := &Manager{
		db:          database,
		app:         app,
		tokenURL:    hubspot.TokenURL,
		httpClient:  &http.Client{Timeout: refreshTimeout},
		crm:         hubspot.NewClient(),
		now:         time.Now,
		portalLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ShouldRefresh reports whether a credential last refreshed at the given time
// is stale. Pure so the staleness rule is testable without network or store.
func ShouldRefresh(now, lastRefreshedAt time.Time, threshold time.Duration) bool {
	return now.Sub(lastRefreshedAt) > threshold
}

// AccessToken returns a currently-valid access token for the portal. A portal
// with no linked account yields an empty token and no error; the caller
// decides whether that is fatal. Refreshes are serialized per portal.
func (m *Manager) AccessToken(ctx context.Context, portalID string) (string, error) {
	lock := m.portalLock(portalID)
	lock.Lock()
	defer lock.Unlock()

	var account models.HubSpotAccount
	err := m.db.Where("portal_id = ?", portalID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	if !ShouldRefresh(m.now(), account.LastRefreshedAt, RefreshThreshold) {
		return account.AccessToken, nil
	}
	return m.refreshLocked(ctx, &account)
}

// refreshLocked exchanges the stored refresh token for a new access token and
// persists the result. On any failure the stored row is left untouched.
func (m *Manager) refreshLocked(ctx context.Context, account *models.HubSpotAccount) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", m.app.ClientID)
	form.Set("client_secret", m.app.ClientSecret)
	form.Set("redirect_uri", m.app.RedirectURI)
	form.Set("refresh_token", account.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrRefreshFailed, resp.StatusCode)
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrRefreshFailed, err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: response missing access_token", ErrRefreshFailed)
	}

	account.AccessToken = payload.AccessToken
	if payload.RefreshToken != "" && payload.RefreshToken != account.RefreshToken {
		log.Printf("🔄 Rotating refresh token for portal %s", account.PortalID)
		account.RefreshToken = payload.RefreshToken
	}
	account.LastRefreshedAt = m.now()
	if err := m.db.Save(account).Error; err != nil {
		return "", fmt.Errorf("%w: persist refreshed credential: %v", ErrRefreshFailed, err)
	}

	log.Printf("✅ Refreshed access token for portal %s", account.PortalID)
	return account.AccessToken, nil
}

// ExchangeCode trades an authorization code for a token pair on install.
func (m *Manager) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	cfg := m.app.OAuthConfig()
	cfg.Endpoint.TokenURL = m.tokenURL
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("exchange authorization code: response missing access_token")
	}
	return tok, nil
}

// AuthorizeURL returns the install link for the configured app.
func (m *Manager) AuthorizeURL(state string) string {
	return m.app.OAuthConfig().AuthCodeURL(state)
}

// SyncAccount upserts the portal's credential row from a fresh token pair and
// seeds one ProviderConfig per known vendor. Idempotent per portal.
func (m *Manager) SyncAccount(ctx context.Context, accessToken, refreshToken string) (*models.HubSpotAccount, error) {
	details, err := m.crm.FetchAccountDetails(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch account details: %w", err)
	}
	portalID := details.PortalID.String()

	var email string
	if user, err := m.crm.FetchPrimaryUser(ctx, accessToken); err != nil {
		log.Printf("⚠️ Could not fetch portal user profile: %v", err)
	} else {
		email = user.Email
	}

	lock := m.portalLock(portalID)
	lock.Lock()
	defer lock.Unlock()

	var account models.HubSpotAccount
	err = m.db.Where("portal_id = ?", portalID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		account = models.HubSpotAccount{
			ID:       uuid.New().String(),
			PortalID: portalID,
		}
	} else if err != nil {
		return nil, err
	}

	account.AccountType = details.AccountType
	account.AccessToken = accessToken
	account.RefreshToken = refreshToken
	if email != "" {
		account.Email = email
	}
	account.LastRefreshedAt = m.now()
	if err := m.db.Save(&account).Error; err != nil {
		return nil, err
	}

	if err := db.SeedProviderConfigs(m.db, portalID); err != nil {
		return nil, err
	}

	log.Printf("🔗 Linked portal %s (%s)", portalID, account.AccountType)
	return &account, nil
}

// StartRefreshSweep schedules a periodic pass that refreshes every stale
// credential, so portals stay warm even between user requests.
func (m *Manager) StartRefreshSweep(spec string) (*cron.Cron, error) {
	if spec == "" {
		spec = "@every 15m"
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, m.refreshStaleAccounts); err != nil {
		return nil, err
	}
	c.Start()
	log.Printf("🔄 Credential refresh sweep scheduled (%s)", spec)
	return c, nil
}

func (m *Manager) refreshStaleAccounts() {
	cutoff := m.now().Add(-RefreshThreshold)

	var accounts []models.HubSpotAccount
	if err := m.db.Where("last_refreshed_at < ?", cutoff).Find(&accounts).Error; err != nil {
		log.Printf("⚠️ Refresh sweep query failed: %v", err)
		return
	}

	for _, account := range accounts {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		if _, err := m.AccessToken(ctx, account.PortalID); err != nil {
			log.Printf("⚠️ Sweep refresh failed for portal %s: %v", account.PortalID, err)
		}
		cancel()
	}
}

func (m *Manager) portalLock(portalID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.portalLocks[portalID]
	if !ok {
		lock = &sync.Mutex{}
		m.portalLocks[portalID] = lock
	}
	return lock
}
