package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/probecheck/internal/harness"
)

// SaveRun records a run report and its verdicts in one transaction.
// Uses ON CONFLICT DO NOTHING for idempotency - saving the same run ID
// twice leaves the first record in place.
func (s *Store) SaveRun(ctx context.Context, engine string, r *harness.RunReport) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save run: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	c := r.Counts
	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, fingerprint, engine, started_at, elapsed_ms, pass, mismatch, timeout, execution_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.RunID,
		r.Fingerprint,
		engine,
		formatTime(r.StartedAt),
		r.Elapsed.Milliseconds(),
		c.Pass,
		c.Mismatch,
		c.Timeout,
		c.ExecutionError,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tx.Commit()
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO verdicts
		(run_id, position, probe, category, outcome, duration_ms, exit_code, cause, diff,
		 div_offset, div_window_start, div_expected, div_actual, div_expected_len, div_actual_len)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save run: prepare verdicts: %w", err)
	}
	defer stmt.Close()

	for i, v := range r.Verdicts {
		var offset, windowStart, expectedLen, actualLen sql.NullInt64
		var expected, actual []byte
		if d := v.Divergence; d != nil {
			offset = sql.NullInt64{Int64: int64(d.Offset), Valid: true}
			windowStart = sql.NullInt64{Int64: int64(d.WindowStart), Valid: true}
			expectedLen = sql.NullInt64{Int64: int64(d.ExpectedLen), Valid: true}
			actualLen = sql.NullInt64{Int64: int64(d.ActualLen), Valid: true}
			expected = nonNil(d.ExpectedWindow)
			actual = nonNil(d.ActualWindow)
		}

		if _, err := stmt.ExecContext(ctx,
			r.RunID,
			i,
			v.Probe,
			string(v.Category),
			string(v.Outcome),
			v.Duration.Milliseconds(),
			v.ExitCode,
			v.Cause,
			v.Diff,
			offset,
			windowStart,
			expected,
			actual,
			expectedLen,
			actualLen,
		); err != nil {
			return fmt.Errorf("save run: verdict %q: %w", v.Probe, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save run: commit: %w", err)
	}
	return nil
}

// DeleteRun removes a run and its verdicts. Deleting a missing run is not an error.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

// timeLayout is fixed-width so that started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// nonNil keeps empty windows distinguishable from absent ones (SQL NULL).
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
