package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"hubbridge/internal/util"
)

// Sentinel errors shared by all adapters.
var (
	// ErrTimeout marks a vendor call that hit the fixed call deadline.
	ErrTimeout = errors.New("vendor request timed out")
	// ErrEmptyResponse marks a 2xx vendor response whose extracted text was
	// empty. Never returned to callers as an empty success.
	ErrEmptyResponse = errors.New("vendor returned empty response")
)

// VendorError is a non-2xx vendor response translated at the adapter boundary,
// so upper layers never inspect vendor-specific error shapes.
type VendorError struct {
	Vendor  string
	Status  int
	Message string
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Vendor, e.Status, e.Message)
}

// IsRetryable reports whether the failure is transient from the vendor side.
// The core never retries; this informs the calling layer's policy.
func (e *VendorError) IsRetryable() bool {
	return e.Status >= 500 || e.Status == 429
}

// translateTransportError maps http.Client errors into the taxonomy.
func translateTransportError(vendor string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %w", vendor, ErrTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s request canceled: %w", vendor, err)
	}
	return &VendorError{Vendor: vendor, Status: 0, Message: err.Error()}
}

// translateErrorBody turns a non-2xx body into a VendorError, preferring the
// vendor's own error envelope over the raw body or status text.
func translateErrorBody(vendor string, status int, statusText string, body []byte) error {
	message := extractErrorMessage(body)
	if message == "" && len(body) > 0 {
		message = util.TruncateBytes(body)
	}
	if strings.TrimSpace(message) == "" {
		message = strings.TrimSpace(statusText)
	}
	return &VendorError{Vendor: vendor, Status: status, Message: message}
}

// extractErrorMessage reads {"error":{"message":...}} or {"message":...},
// which covers all four vendors' error envelopes.
func extractErrorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return envelope.Message
}
