// Package reference is an in-process model of the built-in probe
// programs.
//
// Each program reproduces, in Go, the observable stdout of the compiled
// probe it models: 32-bit two's-complement integer arithmetic, truncating
// division, a 20-byte union reinterpreted through its last write,
// realloc-style growth that preserves the existing prefix, and the
// Fibonacci/LCG accumulator folded to 32 bits.
//
// The model backs the "builtin" engine, which lets the whole pipeline be
// exercised without an external engine, and its output is checked against
// the frozen transcripts in tests so the two cannot drift apart silently.
package reference
