package httpapi

import (
	"context"
	"log"
	"time"

	"hubbridge/internal/db/models"
	"hubbridge/internal/ledger"
	"hubbridge/internal/logging"
)

// ledgerCloseTimeout bounds the terminal write even when the request context
// is already gone.
const ledgerCloseTimeout = 5 * time.Second

// runRecorded brackets one generation with a ledger row: open before, close
// with the outcome after, and close as failed from the deferred guard when the
// generation panics or the caller abandons the request. A ledger write failure
// is logged but never masks the generation's own result.
func runRecorded(ctx context.Context, led *ledger.Service, params ledger.OpenParams, generate func() (string, error)) (string, error) {
	attemptID, err := led.Open(ctx, params)
	if err != nil {
		log.Printf("⚠️ [%s] Ledger open failed, generation will not be audited: %v", logging.GetRequestID(ctx), err)
	}

	start := time.Now()
	closed := false
	defer func() {
		if closed || attemptID == "" {
			return
		}
		// Reached only when generate never returned (panic / runtime exit):
		// the row must not stay pending forever.
		durationMs := time.Since(start).Milliseconds()
		closeAttempt(ctx, led, attemptID, models.StatusFailed, "generation aborted before completion", durationMs)
	}()

	text, genErr := generate()
	durationMs := time.Since(start).Milliseconds()

	if attemptID != "" {
		if genErr != nil {
			closeAttempt(ctx, led, attemptID, models.StatusFailed, genErr.Error(), durationMs)
		} else {
			closeAttempt(ctx, led, attemptID, models.StatusSuccess, "", durationMs)
		}
	}
	closed = true

	return text, genErr
}

// closeAttempt writes the terminal status on a fresh context so a disconnected
// client cannot leave the row pending.
func closeAttempt(ctx context.Context, led *ledger.Service, attemptID, status, errorDetail string, durationMs int64) {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerCloseTimeout)
	defer cancel()
	if err := led.Close(closeCtx, attemptID, status, errorDetail, &durationMs); err != nil {
		log.Printf("⚠️ [%s] Ledger close failed for attempt %s: %v", logging.GetRequestID(ctx), attemptID, err)
	}
}
