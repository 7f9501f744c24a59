package adapter

import (
	"context"
	"time"

	"github.com/roach88/probecheck/internal/probe"
)

// Status is the terminal state of one execution.
type Status string

const (
	StatusCompleted          Status = "completed"
	StatusTimedOut           Status = "timed_out"
	StatusCrashedNonZeroExit Status = "crashed_non_zero_exit"
	StatusAdapterError       Status = "adapter_error"
)

// ExecutionResult is the captured outcome of running one probe.
// It is created once by an Adapter and never modified afterwards.
type ExecutionResult struct {
	Probe    string
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
	Status   Status

	// Truncated is set when stdout exceeded the capture cap; Stdout then
	// holds only the retained prefix.
	Truncated bool

	// Cause explains any status other than StatusCompleted.
	Cause string
}

// Adapter executes a probe's unit against an engine.
//
// Run must return within roughly budget of being called (a non-positive
// budget means no per-probe limit) and must honor cancellation of ctx.
// All transient resources are released before Run returns.
type Adapter interface {
	Run(ctx context.Context, p probe.Probe, budget time.Duration) ExecutionResult
}

// withBudget derives the per-probe context. The returned cancel must be called.
func withBudget(ctx context.Context, budget time.Duration) (context.Context, context.CancelFunc) {
	if budget <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, budget)
}

// interruption classifies why probeCtx ended: a run-level cancellation of
// parent is an adapter error, the probe's own deadline is a timeout.
func interruption(parent, probeCtx context.Context, budget time.Duration) (Status, string) {
	if parent.Err() != nil {
		return StatusAdapterError, "run cancelled: " + parent.Err().Error()
	}
	if probeCtx.Err() == context.DeadlineExceeded {
		return StatusTimedOut, "exceeded budget of " + budget.String()
	}
	return StatusAdapterError, "execution interrupted: " + probeCtx.Err().Error()
}
