// Package retry computes delays between attempts of queued work.
package retry

import "time"

// MaxDelay caps any computed backoff.
const MaxDelay = time.Minute

// ExponentialBackoff returns base * 2^attempt, capped at MaxDelay.
// Negative attempts are treated as the first attempt.
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		return MaxDelay
	}
	d := base * (1 << attempt)
	if d > MaxDelay || d < 0 {
		return MaxDelay
	}
	return d
}
