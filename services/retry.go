package services

import (
	"context"
	"log"
	"time"
)

const retryBackoff = 500 * time.Millisecond

// withRetry runs fn, retrying exactly once after a short backoff. External
// provider calls get at most one retry; there is no infinite retry anywhere.
func withRetry(ctx context.Context, operation string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}

	log.Printf("[WARN] %s failed, retrying once: %v", operation, err)

	select {
	case <-time.After(retryBackoff):
	case <-ctx.Done():
		return ctx.Err()
	}

	return fn()
}
