// Package worker implements the worker-side runtime of spec.md §4.6-4.7:
// the lease/verify/report control loop and the parallel verification
// pipeline it drives.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Worker orchestrates leasing batches from the coordinator, verifying
// them in parallel, and reporting results back.
type Worker struct {
	client *Client
	config *Config
	units  int
}

// NewWorker constructs a Worker. cfg must not be nil.
func NewWorker(cfg *Config) *Worker {
	if cfg == nil {
		panic("worker: nil configuration provided")
	}
	return &Worker{
		client: NewClient(cfg),
		config: cfg,
		units:  cfg.ExecutionUnits(),
	}
}

// leasePollInterval is the fixed backoff applied after an empty or closed
// lease response, per spec.md §4.6 step 2.
const leasePollInterval = 10 * time.Second

// confirmRetryAttempts/confirmRetryBackoff govern the confirm-found retry
// loop after a successful report, per spec.md §4.6 step 4.
const (
	confirmRetryAttempts = 5
	confirmRetryBackoff  = 5 * time.Second
	confirmFallbackTries = 3
	confirmFallbackDelay = 10 * time.Second
)

// Run starts the lease -> verify -> report loop. It returns when ctx is
// canceled, the latch is observed set (password found, by this worker or
// another), or a fatal auth error occurs.
func (w *Worker) Run(ctx context.Context) error {
	log.Printf("worker: starting with %d execution units, id=%s", w.units, w.config.WorkerID)
	backoff := NewBackoff(w.config.LeaseBackoffMin, w.config.LeaseBackoffMax)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("worker: %w", ctx.Err())
		default:
		}

		lease, err := w.client.RequestLease(ctx, w.units)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				return fmt.Errorf("worker: lease failed: %w", err)
			}
			if !isRetryable(err) {
				return fmt.Errorf("worker: lease failed (non-retryable): %w", err)
			}
			log.Printf("worker: lease request failed, retrying in %s: %v", leasePollInterval, err)
			if !sleep(ctx, leasePollInterval) {
				return fmt.Errorf("worker: %w", ctx.Err())
			}
			continue
		}

		if lease.PasswordFound {
			log.Println("worker: coordinator reports password already found, stopping")
			return nil
		}

		if len(lease.Passwords) == 0 {
			if !sleep(ctx, leasePollInterval) {
				return fmt.Errorf("worker: %w", ctx.Err())
			}
			continue
		}

		log.Printf("worker: leased batch %s with %d candidates", lease.BatchID, len(lease.Passwords))
		backoff.Reset()

		match := runBatch(ctx, lease.Passwords, lease.Descriptor, w.units)

		if match != "" {
			log.Printf("worker: match found for batch %s", lease.BatchID)
			if err := w.reportAndConfirm(ctx, lease.BatchID, match, lease.Passwords); err != nil {
				return err
			}
			return nil
		}

		if err := w.reportFailureWithRetry(ctx, lease.BatchID, lease.Passwords, backoff); err != nil {
			if errors.Is(err, ErrUnauthorized) {
				return fmt.Errorf("worker: report failed: %w", err)
			}
			log.Printf("worker: report failed, continuing: %v", err)
		}
	}
}

// reportFailureWithRetry submits a failure report, retrying with the
// shared backoff on transient errors per spec.md §4.7's "retry-on-report-
// failure" policy.
func (w *Worker) reportFailureWithRetry(ctx context.Context, batchID string, passwords []string, backoff *Backoff) error {
	err := w.client.ReportFailure(ctx, batchID, passwords)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnauthorized) {
		return err
	}
	if !isRetryable(err) {
		return fmt.Errorf("worker: report failed (non-retryable): %w", err)
	}
	delay := backoff.Next()
	log.Printf("worker: report-failure error, retrying in %s: %v", delay, err)
	if !sleep(ctx, delay) {
		return ctx.Err()
	}
	return w.client.ReportFailure(ctx, batchID, passwords)
}

// reportAndConfirm submits the success report and then drives the
// confirm-found retry loop described in spec.md §4.6 step 4: up to 5
// attempts with a 5s backoff, then up to 3 further attempts at a flat
// 10s interval before giving up.
func (w *Worker) reportAndConfirm(ctx context.Context, batchID, match string, passwords []string) error {
	if err := w.client.ReportSuccess(ctx, batchID, match, passwords); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return fmt.Errorf("worker: success report failed: %w", err)
		}
		log.Printf("worker: success report failed (will still attempt confirm): %v", err)
	}

	for attempt := 1; attempt <= confirmRetryAttempts; attempt++ {
		err := w.client.ConfirmFound(ctx, match)
		if err == nil {
			log.Println("worker: found confirmed, stopping")
			return nil
		}
		if errors.Is(err, ErrUnauthorized) {
			return fmt.Errorf("worker: confirm-found failed: %w", err)
		}
		log.Printf("worker: confirm-found attempt %d/%d failed: %v", attempt, confirmRetryAttempts, err)
		if !sleep(ctx, confirmRetryBackoff) {
			return ctx.Err()
		}
	}

	for attempt := 1; attempt <= confirmFallbackTries; attempt++ {
		if !sleep(ctx, confirmFallbackDelay) {
			return ctx.Err()
		}
		err := w.client.ConfirmFound(ctx, match)
		if err == nil {
			log.Println("worker: found confirmed on fallback retry, stopping")
			return nil
		}
		if errors.Is(err, ErrUnauthorized) {
			return fmt.Errorf("worker: confirm-found failed: %w", err)
		}
		log.Printf("worker: confirm-found fallback attempt %d/%d failed: %v", attempt, confirmFallbackTries, err)
	}

	log.Println("worker: confirm-found exhausted all retries, exiting")
	return fmt.Errorf("worker: confirm-found exhausted retries for password %q", match)
}

// sleep waits for d or ctx cancellation, returning false if ctx won.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
