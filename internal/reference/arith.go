package reference

// FibHeavyIterations is the number of rounds the fib_heavy probe runs.
const FibHeavyIterations = 1000

// LCG constants of the fib_heavy accumulator.
const (
	lcgMultiplier = 1103515245
	lcgIncrement  = 12345
)

// Factorial computes n! recursively with 64-bit wraparound.
func Factorial(n uint32) uint64 {
	if n <= 1 {
		return 1
	}
	return uint64(n) * Factorial(n-1)
}

// Fibonacci computes F(n) iteratively with 64-bit wraparound.
func Fibonacci(n uint32) uint64 {
	if n <= 1 {
		return uint64(n)
	}
	var a, b uint64 = 0, 1
	for i := uint32(2); i <= n; i++ {
		a, b = b, a+b
	}
	return b
}

// FibHeavyStep folds one round into the accumulator: add F(i mod 50),
// apply the LCG and keep the low 32 bits.
func FibHeavyStep(acc uint64, i uint32) uint64 {
	acc += Fibonacci(i % 50)
	acc *= lcgMultiplier
	acc += lcgIncrement
	return acc & 0xFFFFFFFF
}

// FibHeavy runs the accumulator for the given number of rounds.
func FibHeavy(iterations uint32) uint64 {
	var acc uint64
	for i := uint32(0); i < iterations; i++ {
		acc = FibHeavyStep(acc, i)
	}
	return acc
}
