package testutil

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/probecheck/internal/adapter"
	"github.com/roach88/probecheck/internal/probe"
)

// Step scripts how the ScriptedEngine behaves for one probe.
type Step struct {
	// Stdout is written before any delay.
	Stdout string

	// Delay is slept (honoring cancellation) before exiting.
	Delay time.Duration

	// Hang blocks until the execution is cancelled or times out.
	Hang bool

	ExitCode int

	// Panic makes Run itself panic, simulating a broken adapter.
	Panic bool
}

// ScriptedEngine is an adapter.Adapter whose per-probe behavior is
// scripted. It records call order and peak concurrency.
type ScriptedEngine struct {
	steps  map[string]Step
	inner  *adapter.InProcess
	active atomic.Int64
	peak   atomic.Int64

	mu       sync.Mutex
	calls    []string
	finished []string
}

// NewScriptedEngine creates an engine from steps keyed by probe name.
// Probes without a step produce an adapter error.
func NewScriptedEngine(steps map[string]Step) *ScriptedEngine {
	programs := make(map[string]adapter.Program, len(steps))
	for name, step := range steps {
		programs[name] = stepProgram(step)
	}
	return &ScriptedEngine{
		steps: steps,
		inner: adapter.NewInProcess(programs, zerolog.Nop()),
	}
}

func stepProgram(step Step) adapter.Program {
	return func(ctx context.Context, w io.Writer) (int, error) {
		if _, err := io.WriteString(w, step.Stdout); err != nil {
			return 1, err
		}
		if step.Hang {
			<-ctx.Done()
			return 0, ctx.Err()
		}
		if step.Delay > 0 {
			timer := time.NewTimer(step.Delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}
		return step.ExitCode, nil
	}
}

// Run implements adapter.Adapter.
func (e *ScriptedEngine) Run(ctx context.Context, p probe.Probe, budget time.Duration) adapter.ExecutionResult {
	e.mu.Lock()
	e.calls = append(e.calls, p.Name)
	e.mu.Unlock()

	n := e.active.Add(1)
	for {
		peak := e.peak.Load()
		if n <= peak || e.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	defer func() {
		e.active.Add(-1)
		e.mu.Lock()
		e.finished = append(e.finished, p.Name)
		e.mu.Unlock()
	}()

	if e.steps[p.Name].Panic {
		panic("scripted panic in " + p.Name)
	}
	return e.inner.Run(ctx, p, budget)
}

// Calls returns probe names in the order Run was entered.
func (e *ScriptedEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// Finished returns probe names in completion order.
func (e *ScriptedEngine) Finished() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.finished...)
}

// PeakConcurrency is the largest number of simultaneous Run calls observed.
func (e *ScriptedEngine) PeakConcurrency() int {
	return int(e.peak.Load())
}
