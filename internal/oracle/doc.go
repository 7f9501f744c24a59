// Package oracle decides whether a probe's captured output matches its
// frozen expectation.
//
// Comparison is exact: bytes, not lines or numbers. A completed execution
// whose stdout equals the expected bytes passes; anything else is a
// mismatch reported with the first differing offset and up to WindowSize
// bytes of context on each side from both sequences. Executions that did
// not complete are classified from their status without looking at
// their output.
//
// Compare is a pure function of its inputs.
package oracle
