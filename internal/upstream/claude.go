package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"hubbridge/internal/providers/catalog"
)

const (
	claudeEndpoint = "https://api.anthropic.com/v1/messages"
	// anthropicVersion is the pinned API version header value.
	anthropicVersion = "2023-06-01"
)

// claudeAdapter speaks Anthropic's messages API: x-api-key auth plus a version
// header, the system prompt as a top-level field, text in content[0].text.
type claudeAdapter struct {
	httpClient *http.Client
}

func NewClaudeAdapter(httpClient *http.Client) Adapter {
	return &claudeAdapter{httpClient: httpClient}
}

func (a *claudeAdapter) VendorKey() string { return catalog.VendorClaude }

func (a *claudeAdapter) Generate(ctx context.Context, apiKey string, req Request) (Result, error) {
	messages := make([]chatMessage, 0, len(req.Turns))
	for _, turn := range req.Turns {
		messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Content})
	}

	payload := struct {
		Model     string        `json:"model"`
		MaxTokens int           `json:"max_tokens"`
		System    string        `json:"system"`
		Messages  []chatMessage `json:"messages"`
	}{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		System:    req.SystemPrompt,
		Messages:  messages,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal claude payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeEndpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build claude request: %w", err)
	}
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, translateTransportError(catalog.VendorClaude, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, translateTransportError(catalog.VendorClaude, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, translateErrorBody(catalog.VendorClaude, resp.StatusCode, resp.Status, respBody)
	}

	var completion struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return Result{}, fmt.Errorf("decode claude response: %w", err)
	}
	if len(completion.Content) == 0 || completion.Content[0].Text == "" {
		return Result{}, fmt.Errorf("%s: %w", catalog.VendorClaude, ErrEmptyResponse)
	}
	return Result{Text: completion.Content[0].Text}, nil
}
