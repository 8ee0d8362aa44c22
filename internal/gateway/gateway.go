// Package gateway resolves which vendor, model and token budget apply to a
// portal and dispatches canonical generation requests to the matching adapter.
// It never retries and never writes the ledger; both are the caller's job.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"hubbridge/internal/auth/token"
	"hubbridge/internal/db"
	"hubbridge/internal/db/models"
	"hubbridge/internal/hubspot"
	"hubbridge/internal/logging"
	"hubbridge/internal/providers/catalog"
	"hubbridge/internal/upstream"
)

// Hard misconfigurations. Never substituted with defaults.
var (
	ErrNoActiveProvider  = errors.New("no active AI provider configured for portal")
	ErrMissingCredential = errors.New("active provider has no API key configured")
)

// Category token budget defaults, applied when a config's budget is 0.
const (
	DefaultChatBudget  = 150
	DefaultEmailBudget = 300
)

// Gateway is the single entry point for vendor-neutral text generation.
type Gateway struct {
	db       *gorm.DB
	adapters upstream.AdapterSet
	tokens   *token.Manager
	crm      *hubspot.Client
	now      func() time.Time
}

func New(database *gorm.DB, adapters upstream.AdapterSet, tokens *token.Manager, crm *hubspot.Client) *Gateway {
	return &Gateway{
		db:       database,
		adapters: adapters,
		tokens:   tokens,
		crm:      crm,
		now:      time.Now,
	}
}

// Plan is the resolved dispatch decision for one generation: which vendor and
// model will run and under what budget. Callers use it to open a ledger row
// before generating; the secret key never leaves the gateway.
type Plan struct {
	ConfigID    string
	VendorKey   string
	Model       string
	TokenBudget int

	secretKey string
}

// Plan resolves the portal's active provider config into a dispatch plan.
// Soft settings (model index, budget) are defaulted locally; missing provider
// or missing key are surfaced as hard errors before any network call.
func (g *Gateway) Plan(ctx context.Context, portalID, category string) (Plan, error) {
	cfg, err := db.ActiveProviderConfig(g.db.WithContext(ctx), portalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Plan{}, ErrNoActiveProvider
	}
	if err != nil {
		return Plan{}, err
	}
	if cfg.SecretKey == "" {
		return Plan{}, ErrMissingCredential
	}

	budget := cfg.TokenBudget
	if budget <= 0 {
		budget = categoryBudget(category)
	}

	return Plan{
		ConfigID:    cfg.ID,
		VendorKey:   cfg.VendorKey,
		Model:       catalog.ResolveModel(cfg.VendorKey, cfg.SelectedModel),
		TokenBudget: budget,
		secretKey:   cfg.SecretKey,
	}, nil
}

func categoryBudget(category string) int {
	if category == models.CategoryEmail {
		return DefaultEmailBudget
	}
	return DefaultChatBudget
}

// Generate is the single-call contract: resolve the portal's plan, build the
// canonical request for the category and dispatch it. For EMAIL, content is
// the user's instruction; for CHAT, content is the contact id used to fetch
// prompt context and turns may override the default question.
func (g *Gateway) Generate(ctx context.Context, portalID, category, content string, turns []upstream.Turn) (string, error) {
	plan, err := g.Plan(ctx, portalID, category)
	if err != nil {
		return "", err
	}
	return g.GeneratePlanned(ctx, plan, portalID, category, content, turns)
}

// GeneratePlanned runs a generation under an already-resolved plan.
func (g *Gateway) GeneratePlanned(ctx context.Context, plan Plan, portalID, category, content string, turns []upstream.Turn) (string, error) {
	adapter, ok := g.adapters.Get(plan.VendorKey)
	if !ok {
		return "", fmt.Errorf("no adapter for vendor %s", plan.VendorKey)
	}

	req := upstream.Request{
		Model:     plan.Model,
		MaxTokens: plan.TokenBudget,
	}

	switch category {
	case models.CategoryEmail:
		req.SystemPrompt = g.emailPrompt(ctx, portalID)
		req.Turns = []upstream.Turn{{Role: "user", Content: content}}
	case models.CategoryChat:
		req.SystemPrompt = g.chatPrompt(ctx, portalID, content)
		if len(turns) > 0 {
			req.Turns = turns
		} else {
			req.Turns = []upstream.Turn{{Role: "user", Content: defaultChatQuestion}}
		}
	default:
		return "", fmt.Errorf("unknown generation category %q", category)
	}

	result, err := adapter.Generate(ctx, plan.secretKey, req)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// emailPrompt loads the portal's default tone for tonal guidance. Tone lookup
// failures degrade to the plain email prompt.
func (g *Gateway) emailPrompt(ctx context.Context, portalID string) string {
	tone, err := db.DefaultTone(g.db.WithContext(ctx), portalID)
	if err != nil {
		log.Printf("⚠️ [%s] Default tone lookup failed for portal %s: %v", logging.GetRequestID(ctx), portalID, err)
		return buildEmailPrompt("")
	}
	if tone == nil {
		return buildEmailPrompt("")
	}
	return buildEmailPrompt(tone.Description)
}

// chatPrompt fetches the contact record using the portal's CRM credential.
// CRM read failures are non-fatal: the chat proceeds with a generic prompt,
// but the degradation is logged at warning level rather than swallowed.
func (g *Gateway) chatPrompt(ctx context.Context, portalID, contactID string) string {
	if contactID == "" {
		return buildChatPrompt("", g.now())
	}

	accessToken, err := g.tokens.AccessToken(ctx, portalID)
	if err != nil || accessToken == "" {
		log.Printf("⚠️ [%s] No CRM credential for portal %s, chatting without contact context (err=%v)",
			logging.GetRequestID(ctx), portalID, err)
		return buildChatPrompt("", g.now())
	}

	contactInfo, err := g.crm.FetchContact(ctx, accessToken, contactID)
	if err != nil {
		log.Printf("⚠️ [%s] Contact fetch failed for portal %s contact %s, degrading to generic prompt: %v",
			logging.GetRequestID(ctx), portalID, contactID, err)
		return buildChatPrompt("", g.now())
	}
	return buildChatPrompt(contactInfo, g.now())
}
