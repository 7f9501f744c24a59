//go:build unix

package adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/probecheck/internal/probe"
)

func shAdapter(t *testing.T) *ProcessAdapter {
	t.Helper()
	a := NewProcessAdapter("/bin/sh", nil, zerolog.Nop())
	a.TempDir = t.TempDir()
	return a
}

func scriptProbe(name, script string) probe.Probe {
	return probe.Probe{
		Name:     name,
		Category: probe.CategoryMixed,
		Unit:     probe.Unit{Source: script},
		Expect:   probe.Transcript(""),
	}
}

func TestProcessAdapter_Completed(t *testing.T) {
	a := shAdapter(t)

	res := a.Run(context.Background(), scriptProbe("hello", "printf 'hello\\n'\n"), 5*time.Second)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "hello\n", string(res.Stdout))
	assert.Equal(t, 0, res.ExitCode)
	assert.Empty(t, res.Cause)
	assert.Equal(t, "hello", res.Probe)
}

func TestProcessAdapter_NonZeroExitKeepsOutput(t *testing.T) {
	a := shAdapter(t)

	res := a.Run(context.Background(), scriptProbe("crash", "echo out\necho boom >&2\nexit 3\n"), 5*time.Second)

	assert.Equal(t, StatusCrashedNonZeroExit, res.Status)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out\n", string(res.Stdout))
	assert.Equal(t, "boom\n", string(res.Stderr))
	assert.Contains(t, res.Cause, "exit status 3")
	assert.Contains(t, res.Cause, "stderr: boom")
}

func TestProcessAdapter_TimeoutKillsProcessGroup(t *testing.T) {
	defer goleak.VerifyNone(t)
	a := shAdapter(t)

	// The background sleep holds stdout open; only a group kill releases it.
	script := "printf partial\nsleep 30 &\nsleep 30\n"
	start := time.Now()
	res := a.Run(context.Background(), scriptProbe("spin", script), 300*time.Millisecond)

	assert.Equal(t, StatusTimedOut, res.Status)
	assert.Equal(t, "partial", string(res.Stdout))
	assert.Contains(t, res.Cause, "exceeded budget of 300ms")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestProcessAdapter_RunCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)
	a := shAdapter(t)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	res := a.Run(ctx, scriptProbe("spin", "sleep 30\n"), 10*time.Second)

	assert.Equal(t, StatusAdapterError, res.Status)
	assert.Contains(t, res.Cause, "run cancelled")
}

func TestProcessAdapter_AlreadyCancelled(t *testing.T) {
	a := shAdapter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := a.Run(ctx, scriptProbe("never", "echo hi\n"), time.Second)

	assert.Equal(t, StatusAdapterError, res.Status)
	assert.Contains(t, res.Cause, "run cancelled")
	assert.Empty(t, res.Stdout)
}

func TestProcessAdapter_LaunchFailures(t *testing.T) {
	dir := t.TempDir()
	unit := filepath.Join(dir, "unit")
	require.NoError(t, os.WriteFile(unit, []byte("echo hi\n"), 0644))

	tests := []struct {
		name   string
		engine string
		probe  probe.Probe
		want   string
	}{
		{
			name:   "no engine",
			engine: "",
			probe:  probe.Probe{Name: "p", Unit: probe.Unit{Path: unit}},
			want:   "no engine configured",
		},
		{
			name:   "engine not found",
			engine: filepath.Join(dir, "missing-engine"),
			probe:  probe.Probe{Name: "p", Unit: probe.Unit{Path: unit}},
			want:   "failed to start engine",
		},
		{
			name:   "unit missing",
			engine: "/bin/sh",
			probe:  probe.Probe{Name: "p", Unit: probe.Unit{Path: filepath.Join(dir, "nope")}},
			want:   "unit not accessible",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewProcessAdapter(tt.engine, nil, zerolog.Nop())

			res := a.Run(context.Background(), tt.probe, time.Second)

			assert.Equal(t, StatusAdapterError, res.Status)
			assert.Contains(t, res.Cause, tt.want)
		})
	}
}

func TestProcessAdapter_UnitPlaceholder(t *testing.T) {
	a := NewProcessAdapter("/bin/sh", []string{"-c", `printf '%s' "$(basename "$0")"`, "{unit}"}, zerolog.Nop())
	a.TempDir = t.TempDir()

	p := scriptProbe("named", "ignored")
	p.Unit.Filename = "named.elf"
	res := a.Run(context.Background(), p, 5*time.Second)

	require.Equal(t, StatusCompleted, res.Status, res.Cause)
	assert.Equal(t, "named.elf", string(res.Stdout))
}

func TestProcessAdapter_UnitAppendedWithoutPlaceholder(t *testing.T) {
	a := NewProcessAdapter("/bin/sh", []string{"-e"}, zerolog.Nop())
	a.TempDir = t.TempDir()

	assert.Equal(t, []string{"-e", "/tmp/u"}, a.argv("/tmp/u"))
}

func TestProcessAdapter_RemovesInlineUnit(t *testing.T) {
	a := shAdapter(t)

	res := a.Run(context.Background(), scriptProbe("tidy", "echo ok\n"), 5*time.Second)
	require.Equal(t, StatusCompleted, res.Status)

	res = a.Run(context.Background(), scriptProbe("tidy", "sleep 30\n"), 100*time.Millisecond)
	require.Equal(t, StatusTimedOut, res.Status)

	entries, err := os.ReadDir(a.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessAdapter_TruncatesOutput(t *testing.T) {
	a := shAdapter(t)
	a.MaxOutput = 4

	res := a.Run(context.Background(), scriptProbe("loud", "printf 123456789\n"), 5*time.Second)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "1234", string(res.Stdout))
	assert.True(t, res.Truncated)
	assert.Contains(t, res.Cause, "stdout truncated at 4 bytes")
}
