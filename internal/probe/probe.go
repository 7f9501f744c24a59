package probe

import (
	"strconv"
	"time"
)

// Category classifies what slice of execution semantics a probe exercises.
type Category string

const (
	CategoryArithmetic  Category = "arithmetic"
	CategoryMemory      Category = "memory"
	CategoryControlFlow Category = "control-flow"
	CategoryLayout      Category = "layout"
	CategoryMixed       Category = "mixed"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryArithmetic,
	CategoryMemory,
	CategoryControlFlow,
	CategoryLayout,
	CategoryMixed,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Unit is the runnable form of a probe handed to the execution engine.
// Exactly one of Path and Source is set.
type Unit struct {
	// Path locates a program file the engine can execute directly.
	Path string

	// Source is inline program text. The adapter materializes it in a
	// temporary file for the duration of one execution.
	Source string

	// Filename names the temporary file for inline sources.
	// Defaults to the probe name.
	Filename string
}

// ExpectKind tells how a probe's expected output is specified.
type ExpectKind string

const (
	// ExpectTranscript is a literal stdout transcript.
	ExpectTranscript ExpectKind = "transcript"

	// ExpectValue is a single unsigned accumulator printed as one decimal line.
	ExpectValue ExpectKind = "value"
)

// Expectation is the frozen oracle for a probe.
type Expectation struct {
	Kind ExpectKind

	// Transcript is the exact stdout for ExpectTranscript.
	Transcript string

	// Value and Bits describe an ExpectValue accumulator. Value must be
	// representable in Bits (8, 16, 32 or 64).
	Value uint64
	Bits  int
}

// Transcript returns an expectation for a literal stdout transcript.
func Transcript(s string) Expectation {
	return Expectation{Kind: ExpectTranscript, Transcript: s}
}

// Value returns an expectation for a single decimal accumulator of the given width.
func Value(v uint64, bits int) Expectation {
	return Expectation{Kind: ExpectValue, Value: v, Bits: bits}
}

// Bytes renders the expectation as the exact bytes the engine must write.
// Value expectations render as the decimal value followed by a newline,
// matching a "%llu\n" style print.
func (e Expectation) Bytes() []byte {
	switch e.Kind {
	case ExpectTranscript:
		return []byte(e.Transcript)
	case ExpectValue:
		return append(strconv.AppendUint(nil, e.Value, 10), '\n')
	default:
		return nil
	}
}

// Probe is a named program with a frozen expected output.
type Probe struct {
	Name        string
	Category    Category
	Description string
	Unit        Unit

	// Expect is the oracle the comparator checks stdout against.
	Expect Expectation

	// Budget caps wall time for one execution. Zero means the runner default.
	Budget time.Duration
}
