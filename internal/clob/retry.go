package clob

import (
	"github.com/rewired-gh/polyflip/internal/logger"
)

// Retry runs fn up to maxRetries+1 times with no delay between attempts.
// Fatal errors (see IsFatal) are re-raised immediately: they indicate
// misconfiguration, not transient load.
func Retry[T any](operation string, maxRetries int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			if attempt > 0 {
				logger.Info("%s succeeded on retry attempt %d", operation, attempt)
			}
			return result, nil
		}
		lastErr = err

		if IsFatal(err) {
			return zero, err
		}

		if attempt < maxRetries {
			logger.Warn("%s failed (attempt %d/%d), retrying instantly: %v",
				operation, attempt+1, maxRetries+1, err)
		} else {
			logger.Error("%s failed after %d attempts: %v", operation, maxRetries+1, err)
		}
	}

	return zero, lastErr
}
