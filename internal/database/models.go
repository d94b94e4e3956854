package database

// Status values for the records table, per the candidate lease state
// machine: UNCHECKED --ReserveBatch--> CHECKING --MarkChecked--> CHECKED,
// with CHECKING --ReclaimStale--> UNCHECKED and ResetAll returning every
// row to UNCHECKED.
const (
	StatusUnchecked int64 = 0
	StatusChecking  int64 = 1
	StatusChecked   int64 = 2
)

// Record is a single candidate passphrase row.
type Record struct {
	ID        int64
	Pwd       string
	Status    int64
	UpdatedAt int64
}

// Stats is the single-scan aggregation produced by CountByStatus.
type Stats struct {
	Unchecked int64
	Checking  int64
	Checked   int64
	Timeout   int64
	Total     int64

	// Progress is Checked/Total expressed as a percentage formatted to two
	// decimal places (e.g. "100.00"), per spec.md §3's stats snapshot.
	// "0.00" when Total is zero.
	Progress string
}
