package reference

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrOutOfBounds is returned for accesses outside an allocation.
var ErrOutOfBounds = errors.New("index out of bounds")

// GrowableInts models a heap block of 32-bit integers obtained with
// malloc and resized with realloc.
type GrowableInts struct {
	cells []int32
}

// Alloc returns a block of n zeroed cells.
func Alloc(n int) *GrowableInts {
	return &GrowableInts{cells: make([]int32, n)}
}

// Realloc resizes the block to n cells. The first min(old, n) cells keep
// their values; new cells are zero.
func (g *GrowableInts) Realloc(n int) {
	resized := make([]int32, n)
	copy(resized, g.cells)
	g.cells = resized
}

func (g *GrowableInts) Len() int {
	return len(g.cells)
}

func (g *GrowableInts) Get(i int) (int32, error) {
	if i < 0 || i >= len(g.cells) {
		return 0, fmt.Errorf("get %d of %d: %w", i, len(g.cells), ErrOutOfBounds)
	}
	return g.cells[i], nil
}

func (g *GrowableInts) Set(i int, v int32) error {
	if i < 0 || i >= len(g.cells) {
		return fmt.Errorf("set %d of %d: %w", i, len(g.cells), ErrOutOfBounds)
	}
	g.cells[i] = v
	return nil
}

// UnionSize is the storage size of Union: the largest member, char[20].
const UnionSize = 20

// Union models
//
//	union Data { int i; float f; char str[20]; };
//
// with little-endian storage. Every member aliases the same bytes, so a
// read returns the bytes of the last write reinterpreted as that member.
type Union struct {
	b [UnionSize]byte
}

func (u *Union) SetInt(v int32) {
	binary.LittleEndian.PutUint32(u.b[:4], uint32(v))
}

func (u *Union) Int() int32 {
	return int32(binary.LittleEndian.Uint32(u.b[:4]))
}

func (u *Union) SetFloat(f float32) {
	binary.LittleEndian.PutUint32(u.b[:4], math.Float32bits(f))
}

func (u *Union) Float() float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(u.b[:4]))
}

// SetString copies s and a terminating NUL, like strcpy.
func (u *Union) SetString(s string) error {
	if len(s)+1 > UnionSize {
		return fmt.Errorf("string of %d bytes does not fit in %d: %w", len(s), UnionSize, ErrOutOfBounds)
	}
	n := copy(u.b[:], s)
	u.b[n] = 0
	return nil
}

// String reads up to the first NUL.
func (u *Union) String() string {
	for i, c := range u.b {
		if c == 0 {
			return string(u.b[:i])
		}
	}
	return string(u.b[:])
}
