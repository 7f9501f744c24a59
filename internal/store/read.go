package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/probecheck/internal/harness"
	"github.com/roach88/probecheck/internal/oracle"
	"github.com/roach88/probecheck/internal/probe"
)

// ErrRunNotFound is returned when a run ID is not in the history.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID          string
	Fingerprint string
	Engine      string
	StartedAt   time.Time
	Elapsed     time.Duration
	Counts      harness.Counts
}

// Succeeded reports whether every probe in the run passed.
func (r RunSummary) Succeeded() bool {
	return r.Counts.Pass == r.Counts.Total()
}

// ProbeRecord is one probe's verdict in a past run.
type ProbeRecord struct {
	RunID     string
	StartedAt time.Time
	Outcome   oracle.Outcome
	Duration  time.Duration
	Cause     string
}

// ListRuns returns up to limit runs, newest first. A limit <= 0 returns all runs.
//
// Returns an empty slice (not nil) if the history is empty.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fingerprint, engine, started_at, elapsed_ms, pass, mismatch, timeout, execution_error
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LoadRun reconstructs a saved report with verdicts in registry order.
func (s *Store) LoadRun(ctx context.Context, id string) (*harness.RunReport, RunSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, fingerprint, engine, started_at, elapsed_ms, pass, mismatch, timeout, execution_error
		FROM runs
		WHERE id = ?
	`, id)
	summary, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, RunSummary{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, RunSummary{}, err
	}

	verdicts, err := s.loadVerdicts(ctx, id)
	if err != nil {
		return nil, RunSummary{}, err
	}

	report := &harness.RunReport{
		RunID:       summary.ID,
		Fingerprint: summary.Fingerprint,
		StartedAt:   summary.StartedAt,
		Elapsed:     summary.Elapsed,
		Verdicts:    verdicts,
		Counts:      summary.Counts,
	}
	return report, summary, nil
}

func (s *Store) loadVerdicts(ctx context.Context, runID string) ([]oracle.Verdict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT probe, category, outcome, duration_ms, exit_code, cause, diff,
		       div_offset, div_window_start, div_expected, div_actual, div_expected_len, div_actual_len
		FROM verdicts
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	verdicts := []oracle.Verdict{}
	for rows.Next() {
		var (
			v                                           oracle.Verdict
			category, outcome                           string
			durationMS                                  int64
			offset, windowStart, expectedLen, actualLen sql.NullInt64
			expected, actual                            []byte
		)
		if err := rows.Scan(&v.Probe, &category, &outcome, &durationMS, &v.ExitCode, &v.Cause, &v.Diff,
			&offset, &windowStart, &expected, &actual, &expectedLen, &actualLen); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		v.Category = probe.Category(category)
		v.Outcome = oracle.Outcome(outcome)
		v.Duration = time.Duration(durationMS) * time.Millisecond
		if offset.Valid {
			v.Divergence = &oracle.Divergence{
				Offset:         int(offset.Int64),
				WindowStart:    int(windowStart.Int64),
				ExpectedWindow: nonNil(expected),
				ActualWindow:   nonNil(actual),
				ExpectedLen:    int(expectedLen.Int64),
				ActualLen:      int(actualLen.Int64),
			}
		}
		verdicts = append(verdicts, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdicts: %w", err)
	}
	return verdicts, nil
}

// ProbeHistory returns up to limit past verdicts of one probe, newest first.
func (s *Store) ProbeHistory(ctx context.Context, name string, limit int) ([]ProbeRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.started_at, v.outcome, v.duration_ms, v.cause
		FROM verdicts v
		JOIN runs r ON v.run_id = r.id
		WHERE v.probe = ?
		ORDER BY r.started_at DESC, r.id COLLATE BINARY DESC
		LIMIT ?
	`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("query probe history: %w", err)
	}
	defer rows.Close()

	records := []ProbeRecord{}
	for rows.Next() {
		var (
			rec        ProbeRecord
			startedAt  string
			outcome    string
			durationMS int64
		)
		if err := rows.Scan(&rec.RunID, &startedAt, &outcome, &durationMS, &rec.Cause); err != nil {
			return nil, fmt.Errorf("scan probe history: %w", err)
		}
		if rec.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		rec.Outcome = oracle.Outcome(outcome)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate probe history: %w", err)
	}
	return records, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunSummary, error) {
	var (
		run       RunSummary
		startedAt string
		elapsedMS int64
	)
	err := row.Scan(&run.ID, &run.Fingerprint, &run.Engine, &startedAt, &elapsedMS,
		&run.Counts.Pass, &run.Counts.Mismatch, &run.Counts.Timeout, &run.Counts.ExecutionError)
	if errors.Is(err, sql.ErrNoRows) {
		return RunSummary{}, err
	}
	if err != nil {
		return RunSummary{}, fmt.Errorf("scan run: %w", err)
	}
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return RunSummary{}, err
	}
	run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return run, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
