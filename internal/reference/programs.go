package reference

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/roach88/probecheck/internal/adapter"
)

// printer writes formatted output and keeps the first write error, so a
// program body can print freely and check once at the end.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) print(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *printer) printf(format string, args ...any) {
	p.print(fmt.Sprintf(format, args...))
}

func (p *printer) exit() (int, error) {
	if p.err != nil {
		return 1, p.err
	}
	return 0, nil
}

// Binary models the "binary" probe: 32-bit arithmetic, bitwise operators
// and shifts on 42 and 73, a counting loop and an array walk.
func Binary(ctx context.Context, w io.Writer) (int, error) {
	p := &printer{w: w}
	var a, b int32 = 42, 73

	p.printf("Addition: %d + %d = %d\n", a, b, a+b)
	p.printf("Subtraction: %d - %d = %d\n", b, a, b-a)
	p.printf("Multiplication: %d * %d = %d\n", a, b, a*b)
	p.printf("Division: %d / %d = %d\n", b, a, b/a)
	p.printf("Bitwise AND: %d & %d = %d\n", a, b, a&b)
	p.printf("Bitwise OR: %d | %d = %d\n", a, b, a|b)
	p.printf("Bitwise XOR: %d ^ %d = %d\n", a, b, a^b)
	p.printf("Bitwise NOT: ~%d = %d\n", a, ^a)
	p.printf("Left shift: %d << 2 = %d\n", a, a<<2)
	p.printf("Right shift: %d >> 2 = %d\n", b, b>>2)

	p.print("Counting from 1 to 5:\n")
	for i := int32(1); i <= 5; i++ {
		p.printf("%d ", i)
	}
	p.print("\n")

	arr := [5]int32{10, 20, 30, 40, 50}
	p.print("Array elements: ")
	for _, v := range arr {
		p.printf("%d ", v)
	}
	p.print("\n")

	return p.exit()
}

type point struct {
	x, y int32
}

// AdvancedC models the "advanced_c" probe.
func AdvancedC(ctx context.Context, w io.Writer) (int, error) {
	p := &printer{w: w}

	p.print("Testing recursion (factorial):\n")
	n := uint32(5)
	p.printf("Factorial of %d is %d\n", n, Factorial(n))

	p.print("Testing nested loops:\n")
	for i := int32(0); i < 3; i++ {
		for j := int32(0); j < 3; j++ {
			p.printf("(%d, %d) ", i, j)
		}
		p.print("\n")
	}

	p.print("Testing switch statement:\n")
	switch choice := 2; choice {
	case 1:
		p.print("You chose 1\n")
	case 2:
		p.print("You chose 2\n")
	case 3:
		p.print("You chose 3\n")
	default:
		p.print("Invalid choice\n")
	}

	p.print("Testing structs:\n")
	p1 := point{x: 10, y: 20}
	p.printf("Point coordinates: (%d, %d)\n", p1.x, p1.y)

	p.print("Testing unions:\n")
	var data Union
	data.SetInt(10)
	p.printf("data.i: %d\n", data.Int())
	data.SetFloat(220.5)
	p.printf("data.f: %.2f\n", float64(data.Float()))
	if err := data.SetString("C Programming"); err != nil {
		return 1, err
	}
	p.print(data.String())
	p.print("\n")

	p.print("Testing floating-point operations:\n")
	var f1, f2 float32 = 10.5, 5.2
	product := f1 * f2
	p.printf("%.2f * %.2f = %.2f\n", float64(f1), float64(f2), float64(product))

	p.print("Testing complex pointer operations:\n")
	// int arr[2][3] walked through a row pointer: element (i, j) lives at i*3+j.
	const cols = 3
	arr := [2 * cols]int32{1, 2, 3, 4, 5, 6}
	for i := 0; i < 2; i++ {
		row := arr[i*cols : (i+1)*cols]
		for j := 0; j < cols; j++ {
			p.printf("%d ", row[j])
		}
		p.print("\n")
	}

	p.print("Testing inline assembly:\n")
	var x, y int32 = 10, 20
	p.printf("Sum calculated using inline assembly: %d\n", x+y)

	return p.exit()
}

// Malloc models the "malloc" probe.
func Malloc(ctx context.Context, w io.Writer) (int, error) {
	p := &printer{w: w}

	p.print("Testing dynamic memory allocation:\n")
	block := Alloc(5)
	for i := 0; i < 5; i++ {
		if err := block.Set(i, int32(i*10)); err != nil {
			return 1, err
		}
	}
	p.print("Dynamic array contents: ")
	if err := printCells(p, block); err != nil {
		return 1, err
	}
	p.print("\n")

	p.print("Reallocating memory:\n")
	block.Realloc(10)
	for i := 5; i < 10; i++ {
		if err := block.Set(i, int32(i*10)); err != nil {
			return 1, err
		}
	}
	p.print("Resized array contents: ")
	if err := printCells(p, block); err != nil {
		return 1, err
	}
	p.print("\n")

	p.print("Testing pointer arithmetic:\n")
	arr := [5]int32{10, 20, 30, 40, 50}
	p.print("Array contents using pointer: ")
	for ptr := 0; ptr < len(arr); ptr++ {
		p.printf("%d ", arr[ptr])
	}
	p.print("\n")

	p.print("Testing function pointer:\n")
	printFunc := p.print
	printFunc("This is printed using a function pointer\n")

	p.print("Testing bit manipulation:\n")
	num := uint32(0b10101010)
	p.printf("Original number: %d\n", num)
	num |= 1 << 2
	p.printf("After setting bit 2: %d\n", num)
	num &^= 1 << 4
	p.printf("After clearing bit 4: %d\n", num)
	num ^= 1 << 6
	p.printf("After toggling bit 6: %d\n", num)

	return p.exit()
}

func printCells(p *printer, g *GrowableInts) error {
	for i := 0; i < g.Len(); i++ {
		v, err := g.Get(i)
		if err != nil {
			return err
		}
		p.printf("%d ", v)
	}
	return nil
}

// FibHeavyProgram models the "fib_heavy" probe. It stops early when ctx
// is done.
func FibHeavyProgram(ctx context.Context, w io.Writer) (int, error) {
	var acc uint64
	for i := uint32(0); i < FibHeavyIterations; i++ {
		if err := ctx.Err(); err != nil {
			return 1, err
		}
		acc = FibHeavyStep(acc, i)
	}
	p := &printer{w: w}
	p.printf("%d\n", acc)
	return p.exit()
}

// Programs returns the model of every built-in probe keyed by probe name.
func Programs() map[string]adapter.Program {
	return map[string]adapter.Program{
		"binary":     Binary,
		"advanced_c": AdvancedC,
		"malloc":     Malloc,
		"fib_heavy":  FibHeavyProgram,
	}
}

// NewAdapter returns an in-process adapter running the reference model.
func NewAdapter(logger zerolog.Logger) *adapter.InProcess {
	return adapter.NewInProcess(Programs(), logger)
}
