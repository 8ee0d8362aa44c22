package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"hubbridge/internal/providers/catalog"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestChatCompletions_RequestShape(t *testing.T) {
	var capturedAuth string
	var capturedURL string
	var capturedPayload map[string]any

	client := &http.Client{
		Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			capturedAuth = r.Header.Get("Authorization")
			capturedURL = r.URL.String()
			body, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(body, &capturedPayload); err != nil {
				t.Errorf("unmarshal payload: %v", err)
			}
			return jsonResponse(http.StatusOK, `{"choices":[{"message":{"content":"hello"}}]}`), nil
		}),
	}

	adapter := NewOpenAIAdapter(client)
	result, err := adapter.Generate(context.Background(), "sk-test", Request{
		SystemPrompt: "system prompt",
		Turns:        []Turn{{Role: "user", Content: "hi"}},
		Model:        "gpt-4o-mini",
		MaxTokens:    150,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Text != "hello" {
		t.Fatalf("result text = %q, want hello", result.Text)
	}

	if capturedAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want Bearer sk-test", capturedAuth)
	}
	if capturedURL != openAIEndpoint {
		t.Errorf("URL = %q, want %q", capturedURL, openAIEndpoint)
	}
	if capturedPayload["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", capturedPayload["model"])
	}
	if capturedPayload["max_tokens"] != float64(150) {
		t.Errorf("max_tokens = %v, want 150", capturedPayload["max_tokens"])
	}
	if capturedPayload["temperature"] != 0.2 {
		t.Errorf("temperature = %v, want 0.2", capturedPayload["temperature"])
	}
	if capturedPayload["top_p"] != float64(1) {
		t.Errorf("top_p = %v, want 1", capturedPayload["top_p"])
	}

	messages, ok := capturedPayload["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("expected 2 messages (system + user), got %v", capturedPayload["messages"])
	}
	first := messages[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "system prompt" {
		t.Errorf("first message = %v, want system prompt", first)
	}
}

func TestChatCompletions_VendorTuningDefaults(t *testing.T) {
	tests := []struct {
		name        string
		build       func(*http.Client) Adapter
		vendorKey   string
		endpoint    string
		temperature float64
		wantTopP    bool
	}{
		{name: "openai", build: NewOpenAIAdapter, vendorKey: catalog.VendorOpenAI, endpoint: openAIEndpoint, temperature: 0.2, wantTopP: true},
		{name: "deepseek", build: NewDeepSeekAdapter, vendorKey: catalog.VendorDeepSeek, endpoint: deepSeekEndpoint, temperature: 0.3},
		{name: "grok", build: NewGrokAdapter, vendorKey: catalog.VendorGrok, endpoint: grokEndpoint, temperature: 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload map[string]any
			client := &http.Client{
				Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
					if r.URL.String() != tt.endpoint {
						t.Errorf("URL = %q, want %q", r.URL.String(), tt.endpoint)
					}
					body, _ := io.ReadAll(r.Body)
					if err := json.Unmarshal(body, &payload); err != nil {
						t.Errorf("unmarshal payload: %v", err)
					}
					return jsonResponse(http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`), nil
				}),
			}

			adapter := tt.build(client)
			if adapter.VendorKey() != tt.vendorKey {
				t.Fatalf("VendorKey() = %q, want %q", adapter.VendorKey(), tt.vendorKey)
			}
			if _, err := adapter.Generate(context.Background(), "key", Request{Model: "m", MaxTokens: 10}); err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if payload["temperature"] != tt.temperature {
				t.Errorf("temperature = %v, want %v", payload["temperature"], tt.temperature)
			}
			_, hasTopP := payload["top_p"]
			if hasTopP != tt.wantTopP {
				t.Errorf("top_p present = %v, want %v", hasTopP, tt.wantTopP)
			}
		})
	}
}

func TestChatCompletions_EmptyContentIsError(t *testing.T) {
	bodies := []string{
		`{"choices":[]}`,
		`{"choices":[{"message":{"content":""}}]}`,
		`{}`,
	}
	for _, body := range bodies {
		client := &http.Client{
			Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, body), nil
			}),
		}
		adapter := NewDeepSeekAdapter(client)
		_, err := adapter.Generate(context.Background(), "key", Request{Model: "m", MaxTokens: 10})
		if !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("body %s: expected ErrEmptyResponse, got %v", body, err)
		}
	}
}

func TestChatCompletions_VendorErrorEnvelope(t *testing.T) {
	client := &http.Client{
		Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided"}}`), nil
		}),
	}

	adapter := NewOpenAIAdapter(client)
	_, err := adapter.Generate(context.Background(), "bad-key", Request{Model: "m", MaxTokens: 10})

	var vendorErr *VendorError
	if !errors.As(err, &vendorErr) {
		t.Fatalf("expected *VendorError, got %v", err)
	}
	if vendorErr.Vendor != catalog.VendorOpenAI {
		t.Errorf("Vendor = %q, want %q", vendorErr.Vendor, catalog.VendorOpenAI)
	}
	if vendorErr.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", vendorErr.Status)
	}
	if vendorErr.Message != "Incorrect API key provided" {
		t.Errorf("Message = %q", vendorErr.Message)
	}
	if vendorErr.IsRetryable() {
		t.Error("401 should not be retryable")
	}
}

func TestChatCompletions_RetryableStatuses(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway} {
		client := &http.Client{
			Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				return jsonResponse(status, `{"message":"overloaded"}`), nil
			}),
		}
		adapter := NewGrokAdapter(client)
		_, err := adapter.Generate(context.Background(), "key", Request{Model: "m", MaxTokens: 10})

		var vendorErr *VendorError
		if !errors.As(err, &vendorErr) {
			t.Fatalf("status %d: expected *VendorError, got %v", status, err)
		}
		if !vendorErr.IsRetryable() {
			t.Errorf("status %d should be retryable", status)
		}
	}
}

func TestChatCompletions_TimeoutMapsToErrTimeout(t *testing.T) {
	client := &http.Client{
		Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return nil, context.DeadlineExceeded
		}),
	}

	adapter := NewOpenAIAdapter(client)
	_, err := adapter.Generate(context.Background(), "key", Request{Model: "m", MaxTokens: 10})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestTranslateErrorBody_FallsBackToRawBody(t *testing.T) {
	err := translateErrorBody("OPENAI", 500, "500 Internal Server Error", []byte("upstream exploded"))
	var vendorErr *VendorError
	if !errors.As(err, &vendorErr) {
		t.Fatalf("expected *VendorError, got %v", err)
	}
	if vendorErr.Message != "upstream exploded" {
		t.Errorf("Message = %q, want raw body", vendorErr.Message)
	}

	err = translateErrorBody("OPENAI", 502, "502 Bad Gateway", nil)
	if !errors.As(err, &vendorErr) {
		t.Fatalf("expected *VendorError, got %v", err)
	}
	if vendorErr.Message != "502 Bad Gateway" {
		t.Errorf("Message = %q, want status text", vendorErr.Message)
	}
}

func TestNewAdapterSet_CoversAllVendors(t *testing.T) {
	set := NewAdapterSet(nil)
	for _, vendor := range []string{catalog.VendorOpenAI, catalog.VendorDeepSeek, catalog.VendorGrok, catalog.VendorClaude} {
		adapter, ok := set.Get(vendor)
		if !ok {
			t.Fatalf("missing adapter for %s", vendor)
		}
		if adapter.VendorKey() != vendor {
			t.Errorf("adapter key mismatch: %q != %q", adapter.VendorKey(), vendor)
		}
	}
	if _, ok := set.Get("GEMINI"); ok {
		t.Error("unexpected adapter for unknown vendor")
	}
}
