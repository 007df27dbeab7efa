package orchestrator

import "time"

// RetryPolicy bounds how often a crawl task is re-attempted after an
// infrastructure failure and how long to wait between attempts.
type RetryPolicy struct {
	// MaxAttempts is the total number of executions including the first.
	MaxAttempts int
	// Backoff returns the delay before the given attempt (1-based) is
	// re-published. A nil Backoff means no delay.
	Backoff func(attempt int) time.Duration
}

// DefaultRetryPolicy retries up to five times with a linearly growing
// delay: 10s after the first failure, 20s after the second, and so on.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * 10 * time.Second
		},
	}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff(attempt)
}
