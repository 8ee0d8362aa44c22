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

// Vendor completion endpoints (chat-completions wire format).
const (
	openAIEndpoint   = "https://api.openai.com/v1/chat/completions"
	deepSeekEndpoint = "https://api.deepseek.com/chat/completions"
	grokEndpoint     = "https://api.x.ai/v1/chat/completions"
)

// chatCompletionsAdapter serves the vendors speaking the OpenAI
// chat-completions wire format with bearer auth. Each vendor instance owns its
// endpoint and sampling defaults.
type chatCompletionsAdapter struct {
	vendorKey   string
	endpoint    string
	temperature float64
	// extraTuning adds OpenAI's full sampling block (top_p, penalties).
	extraTuning bool
	httpClient  *http.Client
}

// NewOpenAIAdapter calls api.openai.com with conservative sampling defaults.
func NewOpenAIAdapter(httpClient *http.Client) Adapter {
	return &chatCompletionsAdapter{
		vendorKey:   catalog.VendorOpenAI,
		endpoint:    openAIEndpoint,
		temperature: 0.2,
		extraTuning: true,
		httpClient:  httpClient,
	}
}

// NewDeepSeekAdapter calls api.deepseek.com.
func NewDeepSeekAdapter(httpClient *http.Client) Adapter {
	return &chatCompletionsAdapter{
		vendorKey:   catalog.VendorDeepSeek,
		endpoint:    deepSeekEndpoint,
		temperature: 0.3,
		httpClient:  httpClient,
	}
}

// NewGrokAdapter calls api.x.ai.
func NewGrokAdapter(httpClient *http.Client) Adapter {
	return &chatCompletionsAdapter{
		vendorKey:   catalog.VendorGrok,
		endpoint:    grokEndpoint,
		temperature: 0.4,
		httpClient:  httpClient,
	}
}

func (a *chatCompletionsAdapter) VendorKey() string { return a.vendorKey }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsPayload struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	MaxTokens        int           `json:"max_tokens"`
	Temperature      float64       `json:"temperature"`
	Stream           bool          `json:"stream"`
	TopP             *float64      `json:"top_p,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
}

func (a *chatCompletionsAdapter) Generate(ctx context.Context, apiKey string, req Request) (Result, error) {
	messages := make([]chatMessage, 0, len(req.Turns)+1)
	messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	for _, turn := range req.Turns {
		messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Content})
	}

	payload := chatCompletionsPayload{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: a.temperature,
	}
	if a.extraTuning {
		one, zero := 1.0, 0.0
		payload.TopP = &one
		payload.PresencePenalty = &zero
		payload.FrequencyPenalty = &zero
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal %s payload: %w", a.vendorKey, err)
	}

	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build %s request: %w", a.vendorKey, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, translateTransportError(a.vendorKey, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, translateTransportError(a.vendorKey, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, translateErrorBody(a.vendorKey, resp.StatusCode, resp.Status, respBody)
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return Result{}, fmt.Errorf("decode %s response: %w", a.vendorKey, err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return Result{}, fmt.Errorf("%s: %w", a.vendorKey, ErrEmptyResponse)
	}
	return Result{Text: completion.Choices[0].Message.Content}, nil
}
