package worker

import (
	"crypto/rand"
	"errors"
	"math/big"
	"time"
)

// Backoff implements exponential backoff with jitter. worker.go uses it,
// together with isRetryable, for the report-failure retry; lease polling
// uses isRetryable with a flat interval instead.
type Backoff struct {
	minDelay time.Duration
	maxDelay time.Duration
	current  time.Duration
}

// NewBackoff creates a Backoff with provided min and max delays.
func NewBackoff(minDelay, maxDelay time.Duration) *Backoff {
	if minDelay <= 0 {
		minDelay = 1 * time.Second
	}
	if maxDelay <= 0 {
		maxDelay = 5 * time.Minute
	}
	return &Backoff{minDelay: minDelay, maxDelay: maxDelay, current: minDelay}
}

// Next returns the next backoff duration with ±25% jitter and doubles the current delay.
func (b *Backoff) Next() time.Duration {
	// Add jitter ±25% using crypto/rand for deterministic linting
	limit := new(big.Int).Lsh(big.NewInt(1), 53) // 2^53
	n, err := rand.Int(rand.Reader, limit)
	var frac float64
	if err == nil {
		frac = float64(n.Int64()) / float64(1<<53) // [0,1)
	} else {
		frac = 0.5
	}
	jitter := (frac - 0.5) * 0.5
	d := float64(b.current) * (1 + jitter)

	// Prepare next delay
	next := b.current * 2
	if next > b.maxDelay {
		next = b.maxDelay
	}
	b.current = next

	// Ensure returned duration is at least 0
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Reset sets backoff to its minimum delay.
func (b *Backoff) Reset() {
	b.current = b.minDelay
}

// isRetryable classifies an error from a coordinator call: 5xx and 429
// responses warrant a backoff-and-retry, other API errors (auth, bad
// request) do not, and network-level errors (no APIError at all) are
// treated as transient.
func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 500 && apiErr.StatusCode < 600 {
			return true
		}
		return apiErr.StatusCode == 429
	}
	return true
}
