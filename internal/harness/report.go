package harness

import (
	"time"

	"github.com/roach88/probecheck/internal/oracle"
)

// Counts aggregates verdict outcomes.
type Counts struct {
	Pass           int
	Mismatch       int
	Timeout        int
	ExecutionError int
}

// Total is the number of verdicts counted.
func (c Counts) Total() int {
	return c.Pass + c.Mismatch + c.Timeout + c.ExecutionError
}

// Of returns the count for one outcome.
func (c Counts) Of(o oracle.Outcome) int {
	switch o {
	case oracle.OutcomePass:
		return c.Pass
	case oracle.OutcomeMismatch:
		return c.Mismatch
	case oracle.OutcomeTimeout:
		return c.Timeout
	case oracle.OutcomeExecutionError:
		return c.ExecutionError
	default:
		return 0
	}
}

func (c *Counts) add(o oracle.Outcome) {
	switch o {
	case oracle.OutcomePass:
		c.Pass++
	case oracle.OutcomeMismatch:
		c.Mismatch++
	case oracle.OutcomeTimeout:
		c.Timeout++
	default:
		c.ExecutionError++
	}
}

// CountVerdicts tallies outcomes.
func CountVerdicts(verdicts []oracle.Verdict) Counts {
	var c Counts
	for _, v := range verdicts {
		c.add(v.Outcome)
	}
	return c
}

// RunReport is the ordered result of one batch run.
type RunReport struct {
	RunID string

	// Fingerprint identifies the probe definitions that were run.
	Fingerprint string

	StartedAt time.Time
	Elapsed   time.Duration

	// Verdicts are in the order the probes were given, not completion order.
	Verdicts []oracle.Verdict
	Counts   Counts
}

// Succeeded reports whether every verdict passed. An empty run succeeds.
func (r *RunReport) Succeeded() bool {
	return r.Counts.Pass == len(r.Verdicts)
}

// Failed returns the verdicts that did not pass, in report order.
func (r *RunReport) Failed() []oracle.Verdict {
	var failed []oracle.Verdict
	for _, v := range r.Verdicts {
		if !v.Passed() {
			failed = append(failed, v)
		}
	}
	return failed
}
