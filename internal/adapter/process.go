package adapter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/rs/zerolog"

	"github.com/roach88/probecheck/internal/probe"
)

// UnitPlaceholder in an engine argument is replaced with the unit path.
// Without a placeholder the unit path is appended as the last argument.
const UnitPlaceholder = "{unit}"

// DefaultWaitDelay bounds how long Run waits for output pipes after the
// engine exits or is killed.
const DefaultWaitDelay = 2 * time.Second

// ProcessAdapter runs each probe as `Engine Args... <unit>` in a child
// process with its own process group.
type ProcessAdapter struct {
	// Engine is the executable under test.
	Engine string

	// Args are passed before the unit path (see UnitPlaceholder).
	Args []string

	// Dir is the engine's working directory. Empty means the current one.
	Dir string

	// Env replaces the engine environment when non-nil.
	Env []string

	// TempDir is where inline-source units are materialized.
	// Empty means os.TempDir().
	TempDir string

	// MaxOutput caps retained stdout and stderr bytes (DefaultMaxOutput if zero).
	MaxOutput int

	// WaitDelay overrides DefaultWaitDelay.
	WaitDelay time.Duration

	logger zerolog.Logger
}

// NewProcessAdapter creates an adapter for the given engine command.
func NewProcessAdapter(engine string, args []string, logger zerolog.Logger) *ProcessAdapter {
	return &ProcessAdapter{
		Engine: engine,
		Args:   args,
		logger: logger.With().Str("component", "adapter").Logger(),
	}
}

// Run executes the probe's unit. See Adapter.
func (a *ProcessAdapter) Run(ctx context.Context, p probe.Probe, budget time.Duration) ExecutionResult {
	start := time.Now()
	res := ExecutionResult{Probe: p.Name, ExitCode: -1}
	fail := func(cause string) ExecutionResult {
		res.Status = StatusAdapterError
		res.Cause = cause
		res.Duration = time.Since(start)
		a.logger.Warn().Str("probe", p.Name).Str("cause", cause).Msg("Engine launch failed")
		return res
	}

	if a.Engine == "" {
		return fail("no engine configured")
	}
	if err := ctx.Err(); err != nil {
		return fail("run cancelled: " + err.Error())
	}

	unitPath, cleanup, err := a.materialize(p)
	if err != nil {
		return fail(err.Error())
	}
	defer cleanup()

	if _, err := os.Stat(unitPath); err != nil {
		return fail(fmt.Sprintf("unit not accessible: %v", err))
	}

	argv := a.argv(unitPath)
	a.logger.Debug().
		Str("probe", p.Name).
		Str("command", shellescape.QuoteCommand(append([]string{a.Engine}, argv...))).
		Dur("budget", budget).
		Msg("Starting engine")

	probeCtx, cancel := withBudget(ctx, budget)
	defer cancel()

	stdout := newCappedBuffer(a.MaxOutput)
	stderr := newCappedBuffer(a.MaxOutput)

	cmd := exec.Command(a.Engine, argv...)
	cmd.Dir = a.Dir
	cmd.Env = a.Env
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = a.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return fail(fmt.Sprintf("failed to start engine: %v", err))
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var waitErr error
	select {
	case <-probeCtx.Done():
		killProcessGroup(cmd)
		<-done
		res.Status, res.Cause = interruption(ctx, probeCtx, budget)
		res.Stdout = stdout.Snapshot()
		res.Stderr = stderr.Snapshot()
		res.Duration = time.Since(start)
		a.logger.Warn().
			Str("probe", p.Name).
			Str("status", string(res.Status)).
			Int("partial_bytes", len(res.Stdout)).
			Msg("Engine killed")
		return res
	case waitErr = <-done:
	}

	res.Duration = time.Since(start)
	res.Stdout = stdout.Snapshot()
	res.Stderr = stderr.Snapshot()

	switch {
	case waitErr == nil, errors.Is(waitErr, exec.ErrWaitDelay):
		res.ExitCode = cmd.ProcessState.ExitCode()
	default:
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return fail(fmt.Sprintf("failed to execute engine: %v", waitErr))
		}
		res.ExitCode = exitErr.ExitCode()
	}

	if res.ExitCode == 0 {
		res.Status = StatusCompleted
	} else {
		res.Status = StatusCrashedNonZeroExit
		res.Cause = crashCause(cmd.ProcessState.String(), res.Stderr)
	}
	if stdout.Truncated() {
		res.Truncated = true
		res.Cause = joinCause(res.Cause, fmt.Sprintf("stdout truncated at %d bytes", len(res.Stdout)))
	}

	a.logger.Debug().
		Str("probe", p.Name).
		Int("exit_code", res.ExitCode).
		Int("stdout_bytes", len(res.Stdout)).
		Dur("duration", res.Duration).
		Msg("Engine finished")
	return res
}

// materialize returns a path to the runnable unit. Inline sources are
// written into a fresh temporary directory which cleanup removes.
func (a *ProcessAdapter) materialize(p probe.Probe) (string, func(), error) {
	if p.Unit.Source == "" {
		return p.Unit.Path, func() {}, nil
	}

	dir, err := os.MkdirTemp(a.TempDir, "probecheck-"+p.Name+"-")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create unit directory: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			a.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to remove unit directory")
		}
	}

	name := p.Unit.Filename
	if name == "" {
		name = p.Name
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, []byte(p.Unit.Source), 0644); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to write unit source: %w", err)
	}
	return path, cleanup, nil
}

func (a *ProcessAdapter) argv(unitPath string) []string {
	argv := make([]string, 0, len(a.Args)+1)
	substituted := false
	for _, arg := range a.Args {
		if strings.Contains(arg, UnitPlaceholder) {
			arg = strings.ReplaceAll(arg, UnitPlaceholder, unitPath)
			substituted = true
		}
		argv = append(argv, arg)
	}
	if !substituted {
		argv = append(argv, unitPath)
	}
	return argv
}

// crashCause describes an abnormal exit, with the tail of stderr when present.
func crashCause(state string, stderr []byte) string {
	const maxTail = 200
	tail := strings.TrimSpace(string(stderr))
	if tail == "" {
		return state
	}
	if len(tail) > maxTail {
		tail = "..." + tail[len(tail)-maxTail:]
	}
	return fmt.Sprintf("%s; stderr: %s", state, tail)
}

func joinCause(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
