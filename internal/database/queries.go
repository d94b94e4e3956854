package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, matching the sqlc-generated
// convention the teacher's query layer follows.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries wraps a database handle and exposes the candidate store
// operations from the coordination engine.
type Queries struct {
	db *sql.DB
}

// New constructs a Queries bound to a *sql.DB. Transactional operations
// open their own *sql.Tx internally rather than accepting DBTX, since every
// multi-statement operation here must be atomic by construction.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// Insert idempotently inserts passphrases; duplicates are silently ignored.
// Applied as a single atomic transaction.
func (q *Queries) Insert(ctx context.Context, pwds []string, now int64) (int64, error) {
	if len(pwds) == 0 {
		return 0, nil
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO records (pwd, status, updated_at) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, pwd := range pwds {
		res, err := stmt.ExecContext(ctx, pwd, StatusUnchecked, now)
		if err != nil {
			return 0, fmt.Errorf("insert candidate: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert tx: %w", err)
	}
	return inserted, nil
}

// ReserveBatch selects up to n UNCHECKED rows ordered by ascending id and,
// in the same transaction, flips them to CHECKING. The SELECT and UPDATE
// run inside one *sql.Tx so the operation is serializable with respect to
// concurrent reservations: no id can appear in two concurrent results.
//
// The UPDATE uses a parameterized `WHERE id IN (?, ?, ...)` built with one
// placeholder per selected id, never string-interpolated — the "prepared
// multi-row statement" spec.md's design notes call out as the alternative
// to a naively-built dynamic IN clause.
func (q *Queries) ReserveBatch(ctx context.Context, n int, now int64) ([]Record, error) {
	if n <= 0 {
		return nil, nil
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reserve tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx,
		`SELECT id, pwd, status, updated_at FROM records WHERE status = ? ORDER BY id ASC LIMIT ?`,
		StatusUnchecked, n)
	if err != nil {
		return nil, fmt.Errorf("select unchecked: %w", err)
	}

	var selected []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Pwd, &r.Status, &r.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		selected = append(selected, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	rows.Close()

	if len(selected) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit empty reserve tx: %w", err)
		}
		return nil, nil
	}

	placeholders := make([]string, len(selected))
	args := make([]any, 0, len(selected)+2)
	args = append(args, StatusChecking, now)
	for i, r := range selected {
		placeholders[i] = "?"
		args = append(args, r.ID)
	}

	query := fmt.Sprintf(`UPDATE records SET status = ?, updated_at = ? WHERE id IN (%s)`,
		strings.Join(placeholders, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("reserve batch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reserve tx: %w", err)
	}

	for i := range selected {
		selected[i].Status = StatusChecking
		selected[i].UpdatedAt = now
	}
	return selected, nil
}

// MarkCheckedByPassphrase flips rows whose pwd is in pwds to CHECKED.
// Unknown passphrases and rows already CHECKED are no-ops. Executed as one
// transaction.
func (q *Queries) MarkCheckedByPassphrase(ctx context.Context, pwds []string, now int64) error {
	if len(pwds) == 0 {
		return nil
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mark-checked tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	placeholders := make([]string, len(pwds))
	args := make([]any, 0, len(pwds)+3)
	args = append(args, StatusChecked, now, StatusChecked)
	for i, p := range pwds {
		placeholders[i] = "?"
		args = append(args, p)
	}

	query := fmt.Sprintf(`UPDATE records SET status = ?, updated_at = ? WHERE status != ? AND pwd IN (%s)`,
		strings.Join(placeholders, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark checked: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mark-checked tx: %w", err)
	}
	return nil
}

// ReclaimStale flips all CHECKING rows older than ageSeconds back to
// UNCHECKED and returns the count reclaimed.
func (q *Queries) ReclaimStale(ctx context.Context, ageSeconds, now int64) (int64, error) {
	cutoff := now - ageSeconds
	res, err := q.db.ExecContext(ctx,
		`UPDATE records SET status = ?, updated_at = ? WHERE status = ? AND updated_at < ?`,
		StatusUnchecked, now, StatusChecking, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// ResetAll flips every row to UNCHECKED and returns the count affected.
// Callers are responsible for the sample-store policy gate (§4.5).
func (q *Queries) ResetAll(ctx context.Context, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE records SET status = ?, updated_at = ?`, StatusUnchecked, now)
	if err != nil {
		return 0, fmt.Errorf("reset all: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// CountByStatus produces the §3 stats snapshot fields, including the
// derived progress% (operational metadata is layered on top by the
// server package). timeout additionally counts CHECKING rows older
// than 3600s.
func (q *Queries) CountByStatus(ctx context.Context, now int64) (Stats, error) {
	var s Stats
	row := q.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? AND updated_at < ? THEN 1 ELSE 0 END), 0),
			COUNT(*)
		FROM records`,
		StatusUnchecked, StatusChecking, StatusChecked, StatusChecking, now-3600)
	if err := row.Scan(&s.Unchecked, &s.Checking, &s.Checked, &s.Timeout, &s.Total); err != nil {
		return Stats{}, fmt.Errorf("count by status: %w", err)
	}
	if s.Total == 0 {
		s.Progress = "0.00"
	} else {
		s.Progress = fmt.Sprintf("%.2f", float64(s.Checked)/float64(s.Total)*100)
	}
	return s, nil
}

// GetByID returns a single record. Returns sql.ErrNoRows if absent.
func (q *Queries) GetByID(ctx context.Context, id int64) (Record, error) {
	var r Record
	row := q.db.QueryRowContext(ctx, `SELECT id, pwd, status, updated_at FROM records WHERE id = ?`, id)
	if err := row.Scan(&r.ID, &r.Pwd, &r.Status, &r.UpdatedAt); err != nil {
		return Record{}, err
	}
	return r, nil
}

// GetByPassphrase returns a single record by its passphrase. Returns
// sql.ErrNoRows if absent.
func (q *Queries) GetByPassphrase(ctx context.Context, pwd string) (Record, error) {
	var r Record
	row := q.db.QueryRowContext(ctx, `SELECT id, pwd, status, updated_at FROM records WHERE pwd = ?`, pwd)
	if err := row.Scan(&r.ID, &r.Pwd, &r.Status, &r.UpdatedAt); err != nil {
		return Record{}, err
	}
	return r, nil
}

// GetRandom returns any single row. Returns sql.ErrNoRows if the store is
// empty.
func (q *Queries) GetRandom(ctx context.Context) (Record, error) {
	var r Record
	row := q.db.QueryRowContext(ctx, `SELECT id, pwd, status, updated_at FROM records ORDER BY RANDOM() LIMIT 1`)
	if err := row.Scan(&r.ID, &r.Pwd, &r.Status, &r.UpdatedAt); err != nil {
		return Record{}, err
	}
	return r, nil
}
