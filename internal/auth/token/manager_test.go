package token

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"hubbridge/internal/db/models"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(r *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    r,
	}
}

func newTestTokenDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token_test.db")
	database, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := database.AutoMigrate(&models.HubSpotAccount{}, &models.ProviderConfig{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func seedAccount(t *testing.T, database *gorm.DB, portalID string, lastRefreshed time.Time) models.HubSpotAccount {
	t.Helper()
	account := models.HubSpotAccount{
		ID:              "acc-" + portalID,
		PortalID:        portalID,
		Email:           "owner@example.com",
		AccountType:     "STANDARD",
		AccessToken:     "access-old",
		RefreshToken:    "refresh-old",
		LastRefreshedAt: lastRefreshed,
	}
	if err := database.Create(&account).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

func testAppConfig() AppConfig {
	return AppConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://127.0.0.1:8386/oauth",
	}
}

func TestShouldRefresh(t *testing.T) {
	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{name: "fresh", age: time.Minute, want: false},
		{name: "just under threshold", age: 25*time.Minute - time.Second, want: false},
		{name: "exactly at threshold", age: 25 * time.Minute, want: false},
		{name: "just over threshold", age: 25*time.Minute + time.Second, want: true},
		{name: "very stale", age: 48 * time.Hour, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldRefresh(base, base.Add(-tt.age), RefreshThreshold)
			if got != tt.want {
				t.Fatalf("ShouldRefresh(age=%s) = %v, want %v", tt.age, got, tt.want)
			}
		})
	}
}

func TestAccessToken_FreshCredentialSkipsRefresh(t *testing.T) {
	database := newTestTokenDB(t)
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	seedAccount(t, database, "100", now.Add(-(24*time.Minute + 59*time.Second)))

	var calls int32
	client := &http.Client{
		Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			atomic.AddInt32(&calls, 1)
			return nil, errors.New("token endpoint must not be called for a fresh credential")
		}),
	}

	mgr := NewManager(database, testAppConfig(),
		WithHTTPClient(client),
		WithClock(func() time.Time { return now }),
	)

	got, err := mgr.AccessToken(context.Background(), "100")
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if got != "access-old" {
		t.Fatalf("expected stored token, got %q", got)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("expected 0 refresh calls, got %d", n)
	}
}

func TestAccessToken_StaleCredentialRefreshesOnce(t *testing.T) {
	database := newTestTokenDB(t)
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	seedAccount(t, database, "100", now.Add(-(25*time.Minute + time.Second)))

	var calls int32
	client := &http.Client{
		Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			atomic.AddInt32(&calls, 1)
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			for key, want := range map[string]string{
				"grant_type":    "refresh_token",
				"client_id":     "client-id",
				"client_secret": "client-secret",
				"redirect_uri":  "https://127.0.0.1:8386/oauth",
				"refresh_token": "refresh-old",
			} {
				if got := r.PostForm.Get(key); got != want {
					t.Errorf("form %s = %q, want %q", key, got, want)
				}
			}
			return jsonResponse(r, http.StatusOK, `{"access_token":"access-new","refresh_token":"refresh-new","expires_in":1800}`), nil
		}),
	}

	mgr := NewManager(database, testAppConfig(),
		WithHTTPClient(client),
		WithClock(func() time.Time { return now }),
	)

	got, err := mgr.AccessToken(context.Background(), "100")
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if got != "access-new" {
		t.Fatalf("expected refreshed token, got %q", got)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected exactly 1 refresh call, got %d", n)
	}

	var account models.HubSpotAccount
	if err := database.Where("portal_id = ?", "100").First(&account).Error; err != nil {
		t.Fatalf("reload account: %v", err)
	}
	if account.AccessToken != "access-new" {
		t.Errorf("stored access token = %q, want access-new", account.AccessToken)
	}
	if account.RefreshToken != "refresh-new" {
		t.Errorf("stored refresh token = %q, want rotated refresh-new", account.RefreshToken)
	}
	if !account.LastRefreshedAt.Equal(now) {
		t.Errorf("LastRefreshedAt = %v, want %v", account.LastRefreshedAt, now)
	}
}

func TestAccessToken_FailedRefreshLeavesCredentialUnchanged(t *testing.T) {
	database := newTestTokenDB(t)
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	before := seedAccount(t, database, "100", now.Add(-time.Hour))

	client := &http.Client{
		Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(r, http.StatusBadRequest, `{"status":"BAD_REFRESH_TOKEN"}`), nil
		}),
	}

	mgr := NewManager(database, testAppConfig(),
		WithHTTPClient(client),
		WithClock(func() time.Time { return now }),
	)

	_, err := mgr.AccessToken(context.Background(), "100")
	if !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("expected ErrRefreshFailed, got %v", err)
	}

	var after models.HubSpotAccount
	if err := database.Where("portal_id = ?", "100").First(&after).Error; err != nil {
		t.Fatalf("reload account: %v", err)
	}
	if after.AccessToken != before.AccessToken {
		t.Errorf("access token changed after failed refresh: %q", after.AccessToken)
	}
	if after.RefreshToken != before.RefreshToken {
		t.Errorf("refresh token changed after failed refresh: %q", after.RefreshToken)
	}
	if !after.LastRefreshedAt.Equal(before.LastRefreshedAt) {
		t.Errorf("LastRefreshedAt changed after failed refresh: %v", after.LastRefreshedAt)
	}
}

func TestAccessToken_MissingResponseTokenFails(t *testing.T) {
	database := newTestTokenDB(t)
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	seedAccount(t, database, "100", now.Add(-time.Hour))

	client := &http.Client{
		Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(r, http.StatusOK, `{"token_type":"bearer"}`), nil
		}),
	}

	mgr := NewManager(database, testAppConfig(),
		WithHTTPClient(client),
		WithClock(func() time.Time { return now }),
	)

	_, err := mgr.AccessToken(context.Background(), "100")
	if !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("expected ErrRefreshFailed for missing access_token, got %v", err)
	}
}

func TestAccessToken_UnknownPortalYieldsEmptyToken(t *testing.T) {
	database := newTestTokenDB(t)

	mgr := NewManager(database, testAppConfig(),
		WithHTTPClient(&http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return nil, errors.New("no network call expected")
		})}),
	)

	got, err := mgr.AccessToken(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty token for unknown portal, got %q", got)
	}
}

func TestAccessToken_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	database := newTestTokenDB(t)
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	seedAccount(t, database, "100", now.Add(-time.Hour))

	client := &http.Client{
		Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(r, http.StatusOK, `{"access_token":"access-new"}`), nil
		}),
	}

	mgr := NewManager(database, testAppConfig(),
		WithHTTPClient(client),
		WithClock(func() time.Time { return now }),
	)

	if _, err := mgr.AccessToken(context.Background(), "100"); err != nil {
		t.Fatalf("AccessToken: %v", err)
	}

	var account models.HubSpotAccount
	if err := database.Where("portal_id = ?", "100").First(&account).Error; err != nil {
		t.Fatalf("reload account: %v", err)
	}
	if account.RefreshToken != "refresh-old" {
		t.Fatalf("refresh token rotated without replacement: %q", account.RefreshToken)
	}
}
