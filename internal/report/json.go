package report

import (
	"fmt"
	"io"
	"time"

	"github.com/roach88/probecheck/internal/canon"
	"github.com/roach88/probecheck/internal/harness"
	"github.com/roach88/probecheck/internal/oracle"
)

// Document converts a report to the generic form serialized by WriteJSON.
// Durations are integer milliseconds and timestamps RFC 3339 in UTC.
func Document(r *harness.RunReport) map[string]any {
	verdicts := make([]map[string]any, len(r.Verdicts))
	for i, v := range r.Verdicts {
		verdicts[i] = verdictDocument(v)
	}

	c := r.Counts
	return map[string]any{
		"run_id":      r.RunID,
		"fingerprint": r.Fingerprint,
		"started_at":  r.StartedAt.UTC().Format(time.RFC3339Nano),
		"elapsed_ms":  r.Elapsed.Milliseconds(),
		"succeeded":   r.Succeeded(),
		"counts": map[string]any{
			"pass":            c.Pass,
			"mismatch":        c.Mismatch,
			"timeout":         c.Timeout,
			"execution_error": c.ExecutionError,
			"total":           c.Total(),
		},
		"verdicts": verdicts,
	}
}

func verdictDocument(v oracle.Verdict) map[string]any {
	doc := map[string]any{
		"probe":       v.Probe,
		"category":    string(v.Category),
		"outcome":     string(v.Outcome),
		"duration_ms": v.Duration.Milliseconds(),
		"exit_code":   v.ExitCode,
	}
	if v.Cause != "" {
		doc["cause"] = v.Cause
	}
	if d := v.Divergence; d != nil {
		doc["divergence"] = map[string]any{
			"offset":          d.Offset,
			"window_start":    d.WindowStart,
			"expected_window": string(d.ExpectedWindow),
			"actual_window":   string(d.ActualWindow),
			"expected_len":    d.ExpectedLen,
			"actual_len":      d.ActualLen,
		}
	}
	if v.Diff != "" {
		doc["diff"] = v.Diff
	}
	return doc
}

// WriteJSON writes the report as canonical JSON followed by a newline.
func WriteJSON(w io.Writer, r *harness.RunReport) error {
	data, err := canon.Marshal(Document(r))
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
