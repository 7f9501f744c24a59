package harness

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/probecheck/internal/adapter"
	"github.com/roach88/probecheck/internal/oracle"
	"github.com/roach88/probecheck/internal/probe"
)

// DefaultBudget applies to probes that do not declare their own.
const DefaultBudget = 10 * time.Second

// CauseNotStarted is the cause of verdicts for probes skipped because the
// run was cancelled first.
const CauseNotStarted = "run cancelled before start"

// Recorder observes a run as it progresses. Implementations must be safe
// for concurrent use.
type Recorder interface {
	ProbeStarted(p probe.Probe)
	ProbeFinished(v oracle.Verdict)
	RunFinished(r *RunReport)
}

type nopRecorder struct{}

func (nopRecorder) ProbeStarted(probe.Probe)     {}
func (nopRecorder) ProbeFinished(oracle.Verdict) {}
func (nopRecorder) RunFinished(*RunReport)       {}

// Runner executes batches of probes through an Adapter.
type Runner struct {
	adapter       adapter.Adapter
	concurrency   int
	defaultBudget time.Duration
	logger        zerolog.Logger
	recorder      Recorder
	clock         Clock
	ids           IDGenerator
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency bounds the number of probes in flight. Values below 1
// mean runtime.NumCPU().
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		r.concurrency = n
	}
}

// WithDefaultBudget sets the budget for probes without one.
func WithDefaultBudget(d time.Duration) Option {
	return func(r *Runner) {
		r.defaultBudget = d
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithRecorder(rec Recorder) Option {
	return func(r *Runner) {
		r.recorder = rec
	}
}

func WithClock(c Clock) Option {
	return func(r *Runner) {
		r.clock = c
	}
}

func WithIDGenerator(g IDGenerator) Option {
	return func(r *Runner) {
		r.ids = g
	}
}

// NewRunner creates a runner over the given adapter.
func NewRunner(a adapter.Adapter, opts ...Option) *Runner {
	r := &Runner{
		adapter:       a,
		defaultBudget: DefaultBudget,
		logger:        zerolog.Nop(),
		recorder:      nopRecorder{},
		clock:         SystemClock{},
		ids:           UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.concurrency < 1 {
		r.concurrency = runtime.NumCPU()
	}
	if r.defaultBudget <= 0 {
		r.defaultBudget = DefaultBudget
	}
	r.logger = r.logger.With().Str("component", "runner").Logger()
	return r
}

// Concurrency returns the effective worker limit.
func (r *Runner) Concurrency() int {
	return r.concurrency
}

// RunAll executes every probe and returns the verdicts in input order.
// It always returns a report with exactly one verdict per probe.
func (r *Runner) RunAll(ctx context.Context, probes []probe.Probe) *RunReport {
	report := &RunReport{
		RunID:       r.ids.Generate(),
		Fingerprint: probe.MustFingerprint(probes),
		StartedAt:   r.clock.Now(),
	}

	r.logger.Info().
		Str("run_id", report.RunID).
		Int("probes", len(probes)).
		Int("concurrency", r.concurrency).
		Msg("Starting run")

	verdicts := make([]oracle.Verdict, len(probes))

	// Plain Group: a failing probe must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, p := range probes {
		g.Go(func() error {
			verdicts[i] = r.runOne(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	report.Verdicts = verdicts
	report.Counts = CountVerdicts(verdicts)
	report.Elapsed = r.clock.Now().Sub(report.StartedAt)
	r.recorder.RunFinished(report)

	r.logger.Info().
		Str("run_id", report.RunID).
		Int("pass", report.Counts.Pass).
		Int("mismatch", report.Counts.Mismatch).
		Int("timeout", report.Counts.Timeout).
		Int("execution_error", report.Counts.ExecutionError).
		Dur("elapsed", report.Elapsed).
		Msg("Run finished")
	return report
}

// runOne executes and judges one probe. Panics become ExecutionError verdicts.
func (r *Runner) runOne(ctx context.Context, p probe.Probe) (v oracle.Verdict) {
	if err := ctx.Err(); err != nil {
		v = oracle.Verdict{
			Probe:    p.Name,
			Category: p.Category,
			Outcome:  oracle.OutcomeExecutionError,
			ExitCode: -1,
			Cause:    CauseNotStarted,
		}
		r.recorder.ProbeFinished(v)
		return v
	}

	r.recorder.ProbeStarted(p)
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			v = oracle.Verdict{
				Probe:    p.Name,
				Category: p.Category,
				Outcome:  oracle.OutcomeExecutionError,
				Duration: time.Since(start),
				ExitCode: -1,
				Cause:    fmt.Sprintf("panic: %v", rec),
			}
			r.logger.Error().Str("probe", p.Name).Interface("panic", rec).Msg("Probe panicked")
		}
		r.recorder.ProbeFinished(v)
	}()

	budget := p.Budget
	if budget <= 0 {
		budget = r.defaultBudget
	}

	res := r.adapter.Run(ctx, p, budget)
	v = oracle.Compare(res, p)

	event := r.logger.Debug()
	if !v.Passed() {
		event = r.logger.Warn().Str("cause", v.Cause)
	}
	event.Str("probe", p.Name).
		Str("outcome", string(v.Outcome)).
		Dur("duration", v.Duration).
		Msg("Probe finished")
	return v
}
