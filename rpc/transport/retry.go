package transport

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// initialBackoff is the pause after the first failed attempt. It doubles after every further failure.
const initialBackoff = 50 * time.Millisecond

// Retry calls send up to attempts times (at least once) with exponential backoff
// and a small random jitter (+-10%) between the attempts.
// It stops early if ctx is done and returns the last error of send otherwise.
func Retry(ctx context.Context, attempts int, send func(attempt int) ([]byte, error)) ([]byte, error) {
	if attempts < 1 {
		attempts = 1
	}

	backoff := initialBackoff
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}

		data, err := send(i)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if i == attempts-1 {
			break
		}

		jitter := time.Duration(float64(backoff) * (0.9 + 0.2*rand.Float64()))
		timer := time.NewTimer(jitter)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
		backoff *= 2
	}

	return nil, fmt.Errorf("failed to send request after %d attempts: %w", attempts, lastErr)
}
