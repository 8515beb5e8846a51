package client

import (
	"context"
	"time"
)

const retryBackoff = 2 * time.Second

// doWithRetry runs call and retries it exactly once after a short backoff.
// Every outbound network call crosses an unreliable boundary, so the budget
// is small and bounded rather than open-ended.
func doWithRetry(ctx context.Context, call func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	body, err := call(ctx)
	if err == nil {
		return body, nil
	}

	select {
	case <-time.After(retryBackoff):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return call(ctx)
}
