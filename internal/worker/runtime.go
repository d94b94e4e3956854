package worker

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/luchenqun/lucky-dog/internal/verify"
	"github.com/luchenqun/lucky-dog/internal/wallet"
)

// partition splits passwords into n contiguous chunks of ceil(len/n),
// per spec.md §4.6 step 3. n is clamped to at least 1; empty input yields
// no chunks.
func partition(passwords []string, n int) [][]string {
	if n < 1 {
		n = 1
	}
	total := len(passwords)
	if total == 0 {
		return nil
	}
	chunkSize := (total + n - 1) / n

	chunks := make([][]string, 0, n)
	for start := 0; start < total; start += chunkSize {
		end := start + chunkSize
		if end > total {
			end = total
		}
		chunks = append(chunks, passwords[start:end])
	}
	return chunks
}

// runBatch fans a leased passphrase list out across w execution units and
// runs the verification pipeline (internal/verify) against each candidate.
// It returns the matching passphrase, or "" if none matched. Execution
// units cancel cooperatively via a shared "found" flag checked between
// trials (spec.md §4.6): a unit that finds a match stops immediately, and
// peers observe the flag and stop starting new trials but may finish a
// trial already in flight.
func runBatch(ctx context.Context, passwords []string, d *wallet.Descriptor, units int) string {
	chunks := partition(passwords, units)
	if len(chunks) == 0 {
		return ""
	}

	var found atomic.Bool
	var result atomic.Value // string
	var trials atomic.Uint64

	var wg sync.WaitGroup
	for _, chunk := range chunks {
		wg.Add(1)
		go func(chunk []string) {
			defer wg.Done()
			for _, pwd := range chunk {
				if found.Load() {
					return
				}
				select {
				case <-ctx.Done():
					return
				default:
				}

				if verify.Try(pwd, d) {
					result.Store(pwd)
					found.Store(true)
					return
				}

				n := trials.Add(1)
				if n%1000 == 0 {
					log.Printf("worker: %d trials completed", n)
				}
			}
		}(chunk)
	}
	wg.Wait()

	if v, ok := result.Load().(string); ok {
		return v
	}
	return ""
}
