// Package adapter is the only place probecheck touches the engine under test.
//
// An Adapter takes one probe, runs its unit within a time budget and
// returns an ExecutionResult holding everything the engine wrote to
// standard output, its exit code, the wall time and a terminal status:
//
//	Completed           the engine exited 0
//	CrashedNonZeroExit  the engine exited non-zero or was killed by a signal
//	TimedOut            the budget elapsed; the engine was killed
//	AdapterError        the execution could not be launched or was cancelled
//
// Adapters never return a bare error. Launch failures and cancellation are
// reported as AdapterError results with a descriptive Cause, and partial
// output captured before a timeout is kept for diagnosis.
//
// ProcessAdapter runs an external engine binary. InProcess runs Go
// functions and is used for the reference model and for tests.
package adapter
