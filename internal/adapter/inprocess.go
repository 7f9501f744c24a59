package adapter

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/probecheck/internal/probe"
)

// Program is an in-process engine for one probe. It writes the probe's
// standard output to stdout and returns the exit code. Programs must
// return promptly once ctx is done.
type Program func(ctx context.Context, stdout io.Writer) (exitCode int, err error)

// InProcess runs Go functions registered by probe name with the same
// budget, cancellation and partial-output semantics as ProcessAdapter.
type InProcess struct {
	programs  map[string]Program
	maxOutput int
	logger    zerolog.Logger
}

// NewInProcess creates an adapter over the given programs.
func NewInProcess(programs map[string]Program, logger zerolog.Logger) *InProcess {
	copied := make(map[string]Program, len(programs))
	for name, prog := range programs {
		copied[name] = prog
	}
	return &InProcess{
		programs: copied,
		logger:   logger.With().Str("component", "adapter").Logger(),
	}
}

// WithMaxOutput caps retained stdout bytes.
func (a *InProcess) WithMaxOutput(n int) *InProcess {
	a.maxOutput = n
	return a
}

type programExit struct {
	code int
	err  error
}

// Run executes the program registered for p.Name. See Adapter.
func (a *InProcess) Run(ctx context.Context, p probe.Probe, budget time.Duration) ExecutionResult {
	start := time.Now()
	res := ExecutionResult{Probe: p.Name, ExitCode: -1}

	prog, ok := a.programs[p.Name]
	if !ok {
		res.Status = StatusAdapterError
		res.Cause = fmt.Sprintf("no in-process program registered for probe %q", p.Name)
		res.Duration = time.Since(start)
		return res
	}
	if err := ctx.Err(); err != nil {
		res.Status = StatusAdapterError
		res.Cause = "run cancelled: " + err.Error()
		res.Duration = time.Since(start)
		return res
	}

	probeCtx, cancel := withBudget(ctx, budget)
	defer cancel()

	stdout := newCappedBuffer(a.maxOutput)
	done := make(chan programExit, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- programExit{code: 2, err: fmt.Errorf("panic: %v", r)}
			}
		}()
		code, err := prog(probeCtx, stdout)
		done <- programExit{code: code, err: err}
	}()

	a.logger.Debug().Str("probe", p.Name).Dur("budget", budget).Msg("Starting in-process program")

	var exit programExit
	interrupted := false
	select {
	case <-probeCtx.Done():
		interrupted = true
	case exit = <-done:
		// A program that fails because its context ended was interrupted,
		// even if the select saw its return first.
		interrupted = exit.err != nil && probeCtx.Err() != nil
	}

	if interrupted {
		res.Status, res.Cause = interruption(ctx, probeCtx, budget)
		res.Stdout = stdout.Snapshot()
		res.Duration = time.Since(start)
		return res
	}

	res.Stdout = stdout.Snapshot()
	res.Duration = time.Since(start)
	res.ExitCode = exit.code
	switch {
	case exit.err != nil:
		if res.ExitCode == 0 {
			res.ExitCode = 1
		}
		res.Status = StatusCrashedNonZeroExit
		res.Cause = exit.err.Error()
	case exit.code != 0:
		res.Status = StatusCrashedNonZeroExit
		res.Cause = fmt.Sprintf("exit status %d", exit.code)
	default:
		res.Status = StatusCompleted
	}
	if stdout.Truncated() {
		res.Truncated = true
		res.Cause = joinCause(res.Cause, fmt.Sprintf("stdout truncated at %d bytes", len(res.Stdout)))
	}
	return res
}
