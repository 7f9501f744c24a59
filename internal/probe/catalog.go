package probe

import (
	"path/filepath"
	"strings"
	"time"
)

// Frozen transcripts recorded from the canonical reference run
// (rv64 user-space, glibc-style printf). Trailing spaces are part of
// the output of the "%d " loops and are significant.
var (
	binaryTranscript = lines(
		"Addition: 42 + 73 = 115",
		"Subtraction: 73 - 42 = 31",
		"Multiplication: 42 * 73 = 3066",
		"Division: 73 / 42 = 1",
		"Bitwise AND: 42 & 73 = 8",
		"Bitwise OR: 42 | 73 = 107",
		"Bitwise XOR: 42 ^ 73 = 99",
		"Bitwise NOT: ~42 = -43",
		"Left shift: 42 << 2 = 168",
		"Right shift: 73 >> 2 = 18",
		"Counting from 1 to 5:",
		"1 2 3 4 5 ",
		"Array elements: 10 20 30 40 50 ",
	)

	advancedTranscript = lines(
		"Testing recursion (factorial):",
		"Factorial of 5 is 120",
		"Testing nested loops:",
		"(0, 0) (0, 1) (0, 2) ",
		"(1, 0) (1, 1) (1, 2) ",
		"(2, 0) (2, 1) (2, 2) ",
		"Testing switch statement:",
		"You chose 2",
		"Testing structs:",
		"Point coordinates: (10, 20)",
		"Testing unions:",
		"data.i: 10",
		"data.f: 220.50",
		"C Programming",
		"Testing floating-point operations:",
		"10.50 * 5.20 = 54.60",
		"Testing complex pointer operations:",
		"1 2 3 ",
		"4 5 6 ",
		"Testing inline assembly:",
		"Sum calculated using inline assembly: 30",
	)

	mallocTranscript = lines(
		"Testing dynamic memory allocation:",
		"Dynamic array contents: 0 10 20 30 40 ",
		"Reallocating memory:",
		"Resized array contents: 0 10 20 30 40 50 60 70 80 90 ",
		"Testing pointer arithmetic:",
		"Array contents using pointer: 10 20 30 40 50 ",
		"Testing function pointer:",
		"This is printed using a function pointer",
		"Testing bit manipulation:",
		"Original number: 170",
		"After setting bit 2: 174",
		"After clearing bit 4: 174",
		"After toggling bit 6: 238",
	)
)

// FibHeavyValue is the final 32-bit accumulator of the fib_heavy probe.
const FibHeavyValue = 717296428

// BuiltinSource labels registries built from the built-in catalog.
const BuiltinSource = "builtin"

// BuiltinProbes returns the built-in catalog with units resolved under unitDir.
// Units are the compiled probe programs, named after the probe with no extension.
func BuiltinProbes(unitDir string) []Probe {
	unit := func(name string) Unit {
		return Unit{Path: filepath.Join(unitDir, name)}
	}
	return []Probe{
		{
			Name:        "binary",
			Category:    CategoryArithmetic,
			Description: "integer add/sub/mul/div, bitwise and/or/xor/not, shifts, loop, array",
			Unit:        unit("binary"),
			Expect:      Transcript(binaryTranscript),
		},
		{
			Name:        "advanced_c",
			Category:    CategoryMixed,
			Description: "recursive factorial, nested loops, switch, struct, union aliasing, float, 2D pointers, inline asm",
			Unit:        unit("advanced_c"),
			Expect:      Transcript(advancedTranscript),
		},
		{
			Name:        "malloc",
			Category:    CategoryMemory,
			Description: "malloc and realloc growth, pointer walk, function pointer, bit set/clear/toggle",
			Unit:        unit("malloc"),
			Expect:      Transcript(mallocTranscript),
		},
		{
			Name:        "fib_heavy",
			Category:    CategoryArithmetic,
			Description: "1000 rounds of iterative Fibonacci(i % 50) folded through a 32-bit LCG",
			Unit:        unit("fib_heavy"),
			Expect:      Value(FibHeavyValue, 32),
			Budget:      30 * time.Second,
		},
	}
}

// Builtin returns a registry over the built-in catalog.
func Builtin(unitDir string) (*Registry, error) {
	return NewRegistry(BuiltinSource, BuiltinProbes(unitDir))
}

// lines joins ls with newlines and terminates the last line.
func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}
