// Package harness runs a batch of probes against an engine and assembles
// the verdicts into a RunReport.
//
// Runner executes up to a fixed number of probes at once. Each probe gets
// its own adapter invocation and comparison; one probe timing out,
// crashing or panicking never aborts or delays its siblings. Verdicts are
// written into a slice indexed by the probe's position in the input, so the
// report is in registry order no matter which probe finished first.
//
// Run-level cancellation (for example SIGINT in the CLI) propagates through
// the context to every in-flight adapter call. Probes that had not started
// when the run was cancelled still get a verdict, so the report always
// has one line per probe.
//
// Example:
//
//	runner := harness.NewRunner(adapter,
//	    harness.WithConcurrency(4),
//	    harness.WithLogger(logger),
//	)
//	report := runner.RunAll(ctx, registry.List())
//	if !report.Succeeded() {
//	    os.Exit(1)
//	}
package harness
