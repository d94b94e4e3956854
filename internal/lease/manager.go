// Package lease implements the lease state machine over the candidate
// store: batch reservation with a derived batch_id, report-driven
// CHECKED transitions, and stale-lease reclamation.
package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/luchenqun/lucky-dog/internal/database"
)

// StaleLeaseAge is the server-side lease timeout: a CHECKING row older
// than this is eligible for reclamation.
const StaleLeaseAge = 3600 * time.Second

// MinBatchSize is the floor applied to the batch-size clamp regardless of
// cpu_count.
const MinBatchSize = 100

// Batch is a lease's id_set delivered to a worker, together with the
// batch_id that names the lease.
type Batch struct {
	BatchID string
	Records []database.Record
}

// Manager encapsulates the lease state machine operations over the
// candidate store.
type Manager struct {
	db *database.Queries
}

// New constructs a new Manager with the provided database queries.
func New(db *database.Queries) *Manager {
	return &Manager{db: db}
}

// Insert idempotently inserts passphrases into the store.
func (m *Manager) Insert(ctx context.Context, pwds []string) (int64, error) {
	return m.db.Insert(ctx, pwds, nowUnix())
}

// BatchSize clamps a worker-supplied cpu_count into a reservation size:
// n = max(100, cpu_count*100). A cpu_count <= 0 is treated as 1.
func BatchSize(cpuCount int) int {
	if cpuCount <= 0 {
		cpuCount = 1
	}
	n := cpuCount * 100
	if n < MinBatchSize {
		n = MinBatchSize
	}
	return n
}

// Reserve leases up to BatchSize(cpuCount) UNCHECKED candidates to
// workerID, returning the batch_id and the reserved records. An empty
// Records slice (with a non-empty BatchID) signals store exhaustion; the
// caller is expected to distinguish an empty lease before calling Reserve
// by checking the terminal latch first.
func (m *Manager) Reserve(ctx context.Context, workerID string, cpuCount int) (Batch, error) {
	now := time.Now()
	records, err := m.db.ReserveBatch(ctx, BatchSize(cpuCount), now.Unix())
	if err != nil {
		return Batch{}, fmt.Errorf("reserve batch: %w", err)
	}
	return Batch{
		BatchID: fmt.Sprintf("%s-%d", workerID, now.UnixMilli()),
		Records: records,
	}, nil
}

// ReportSuccess marks every passphrase in the leased set CHECKED. Called
// regardless of which single passphrase matched: the whole leased set was
// tested.
func (m *Manager) ReportSuccess(ctx context.Context, pwds []string) error {
	return m.db.MarkCheckedByPassphrase(ctx, pwds, nowUnix())
}

// ReportFailure marks every passphrase in the leased set CHECKED. Reports
// are idempotent: a passphrase already CHECKED is left untouched.
func (m *Manager) ReportFailure(ctx context.Context, pwds []string) error {
	return m.db.MarkCheckedByPassphrase(ctx, pwds, nowUnix())
}

// Sweep reclaims CHECKING rows older than StaleLeaseAge back to UNCHECKED,
// returning the count reclaimed.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	return m.db.ReclaimStale(ctx, int64(StaleLeaseAge.Seconds()), nowUnix())
}

// ResetAll flips every row back to UNCHECKED. Callers must apply the
// sample-store policy gate before calling this.
func (m *Manager) ResetAll(ctx context.Context) (int64, error) {
	return m.db.ResetAll(ctx, nowUnix())
}

// Stats returns the current status-bucket counts.
func (m *Manager) Stats(ctx context.Context) (database.Stats, error) {
	return m.db.CountByStatus(ctx, nowUnix())
}

func nowUnix() int64 {
	return time.Now().Unix()
}
