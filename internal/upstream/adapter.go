// Package upstream contains one adapter per AI vendor. Each adapter owns its
// vendor's endpoint, wire payload shape, auth headers and response extraction;
// callers only ever see the canonical request/result types and the fixed error
// taxonomy in errors.go.
package upstream

import (
	"context"
	"net/http"
	"time"

	"hubbridge/internal/providers/catalog"
)

// CallTimeout is the fixed upper bound for one vendor call.
const CallTimeout = 30 * time.Second

// Turn is one conversation message in canonical form.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the canonical, vendor-neutral generation request. Model and
// MaxTokens are resolved by the gateway; adapters never choose models.
type Request struct {
	SystemPrompt string
	Turns        []Turn
	Model        string
	MaxTokens    int
}

// Result is the canonical generation result.
type Result struct {
	Text string
}

// Adapter translates a canonical request into one vendor's wire format and the
// vendor's response back. The api key is per-portal and passed per call.
type Adapter interface {
	VendorKey() string
	Generate(ctx context.Context, apiKey string, req Request) (Result, error)
}

// AdapterSet is the closed, statically keyed set of vendor adapters.
type AdapterSet map[string]Adapter

// NewAdapterSet builds adapters for every known vendor. A nil httpClient gets
// a default client with CallTimeout; tests inject fake transports.
func NewAdapterSet(httpClient *http.Client) AdapterSet {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: CallTimeout}
	}
	return AdapterSet{
		catalog.VendorOpenAI:   NewOpenAIAdapter(httpClient),
		catalog.VendorDeepSeek: NewDeepSeekAdapter(httpClient),
		catalog.VendorGrok:     NewGrokAdapter(httpClient),
		catalog.VendorClaude:   NewClaudeAdapter(httpClient),
	}
}

// Get returns the adapter for a vendor key.
func (s AdapterSet) Get(vendorKey string) (Adapter, bool) {
	a, ok := s[vendorKey]
	return a, ok
}
