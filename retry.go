package paygate

import (
	"time"
)

const (
	rpcRetryAttempts  = 3
	rpcRetryBaseDelay = 2 * time.Second
)

// withRetry runs op up to maxAttempts times, sleeping baseDelay doubled after
// each failure. A nil isRetryable retries every error; otherwise the first
// error isRetryable rejects is returned as-is without further attempts.
func withRetry(op func() error, maxAttempts int, baseDelay time.Duration, isRetryable func(error) bool) error {
	var err error
	delay := baseDelay
	for i := 0; i < maxAttempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		if isRetryable != nil && !isRetryable(err) {
			return err
		}
		if i < maxAttempts-1 {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return err
}
