package probe

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCatalog(t *testing.T) {
	reg, err := Builtin("/opt/probes")
	require.NoError(t, err)

	list := reg.List()
	require.Len(t, list, 4)
	assert.Equal(t, "binary", list[0].Name)
	assert.Equal(t, "advanced_c", list[1].Name)
	assert.Equal(t, "malloc", list[2].Name)
	assert.Equal(t, "fib_heavy", list[3].Name)

	for _, p := range list {
		assert.Equal(t, filepath.Join("/opt/probes", p.Name), p.Unit.Path)
		assert.NotEmpty(t, p.Description)
	}
	assert.Equal(t, 30*time.Second, list[3].Budget)
}

func TestBuiltinTranscriptsEncodeProbeSemantics(t *testing.T) {
	reg, err := Builtin("units")
	require.NoError(t, err)

	get := func(name string) string {
		p, ok := reg.Get(name)
		require.True(t, ok)
		return string(p.Expect.Bytes())
	}

	binary := get("binary")
	assert.Contains(t, binary, "Bitwise AND: 42 & 73 = 8\n")
	assert.Contains(t, binary, "Bitwise XOR: 42 ^ 73 = 99\n")
	assert.Contains(t, binary, "Bitwise NOT: ~42 = -43\n")
	assert.Contains(t, binary, "Division: 73 / 42 = 1\n")

	advanced := get("advanced_c")
	assert.Contains(t, advanced, "Factorial of 5 is 120\n")
	assert.Contains(t, advanced, "data.i: 10\ndata.f: 220.50\nC Programming\n")

	malloc := get("malloc")
	assert.Contains(t, malloc, "Resized array contents: 0 10 20 30 40 50 60 70 80 90 \n")

	assert.Equal(t, "717296428\n", get("fib_heavy"))
}

func TestBuiltinTranscriptsEndWithNewline(t *testing.T) {
	for _, p := range BuiltinProbes("") {
		out := string(p.Expect.Bytes())
		assert.True(t, strings.HasSuffix(out, "\n"), p.Name)
	}
}

func TestBuiltinFingerprintIncludesUnitLocation(t *testing.T) {
	a, err := Fingerprint(BuiltinProbes("units"))
	require.NoError(t, err)
	b, err := Fingerprint(BuiltinProbes("elsewhere"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "unit location is part of the probe definition")
}
