package oracle

import (
	"time"

	"github.com/roach88/probecheck/internal/adapter"
	"github.com/roach88/probecheck/internal/probe"
)

// WindowSize is the number of context bytes kept on each side of a divergence.
const WindowSize = 40

// Outcome is the classification of one probe in a run.
type Outcome string

const (
	OutcomePass           Outcome = "pass"
	OutcomeMismatch       Outcome = "mismatch"
	OutcomeTimeout        Outcome = "timeout"
	OutcomeExecutionError Outcome = "execution_error"
)

// Outcomes lists every outcome in report order.
var Outcomes = []Outcome{OutcomePass, OutcomeMismatch, OutcomeTimeout, OutcomeExecutionError}

// Divergence locates the first differing byte between expected and actual output.
type Divergence struct {
	// Offset is the index of the first differing byte, or the length of
	// the shorter sequence when one is a strict prefix of the other.
	Offset int

	// WindowStart is the offset of the first byte of both windows.
	WindowStart int

	ExpectedWindow []byte
	ActualWindow   []byte
	ExpectedLen    int
	ActualLen      int
}

// Verdict is the per-probe result of a run.
type Verdict struct {
	Probe    string
	Category probe.Category
	Outcome  Outcome
	Duration time.Duration
	ExitCode int

	// Cause carries the adapter's explanation for Timeout and
	// ExecutionError verdicts.
	Cause string

	// Divergence and Diff are set for Mismatch only.
	Divergence *Divergence
	Diff       string
}

// Passed reports whether the verdict is a pass.
func (v Verdict) Passed() bool {
	return v.Outcome == OutcomePass
}

// Compare classifies an execution result against the probe's expectation.
func Compare(res adapter.ExecutionResult, p probe.Probe) Verdict {
	v := Verdict{
		Probe:    p.Name,
		Category: p.Category,
		Duration: res.Duration,
		ExitCode: res.ExitCode,
	}

	switch res.Status {
	case adapter.StatusCompleted:
	case adapter.StatusTimedOut:
		v.Outcome = OutcomeTimeout
		v.Cause = res.Cause
		return v
	case adapter.StatusCrashedNonZeroExit, adapter.StatusAdapterError:
		v.Outcome = OutcomeExecutionError
		v.Cause = res.Cause
		return v
	default:
		v.Outcome = OutcomeExecutionError
		v.Cause = "unknown execution status " + string(res.Status)
		return v
	}

	expected := p.Expect.Bytes()
	d := Diverge(expected, res.Stdout)
	if d == nil && res.Truncated {
		// The engine wrote past the capture cap, so its output differs
		// from the transcript at the cap even when the prefix matches.
		d = divergeAt(expected, res.Stdout, len(res.Stdout))
	}
	if d == nil {
		v.Outcome = OutcomePass
		return v
	}

	v.Outcome = OutcomeMismatch
	v.Cause = res.Cause
	v.Divergence = d
	v.Diff = LineDiff(string(expected), string(res.Stdout))
	return v
}

// Diverge returns the first divergence between expected and actual, or
// nil when they are identical.
func Diverge(expected, actual []byte) *Divergence {
	n := min(len(expected), len(actual))
	k := 0
	for k < n && expected[k] == actual[k] {
		k++
	}
	if k == n && len(expected) == len(actual) {
		return nil
	}
	return divergeAt(expected, actual, k)
}

// divergeAt builds the divergence record for offset k.
func divergeAt(expected, actual []byte, k int) *Divergence {
	start := max(0, k-WindowSize)
	return &Divergence{
		Offset:         k,
		WindowStart:    start,
		ExpectedWindow: window(expected, start, k+WindowSize),
		ActualWindow:   window(actual, start, k+WindowSize),
		ExpectedLen:    len(expected),
		ActualLen:      len(actual),
	}
}

// window copies b[start:end] clamped to len(b).
func window(b []byte, start, end int) []byte {
	end = min(end, len(b))
	if start >= end {
		return []byte{}
	}
	out := make([]byte, end-start)
	copy(out, b[start:end])
	return out
}
