package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/probecheck/internal/adapter"
	"github.com/roach88/probecheck/internal/probe"
)

func TestScriptedEngine(t *testing.T) {
	engine := NewScriptedEngine(map[string]Step{
		"ok":    {Stdout: "hi\n"},
		"crash": {Stdout: "x", ExitCode: 4},
		"hang":  {Stdout: "partial", Hang: true},
	})
	ctx := context.Background()

	res := engine.Run(ctx, TranscriptProbe("ok", probe.CategoryMixed, "hi\n"), time.Second)
	assert.Equal(t, adapter.StatusCompleted, res.Status)
	assert.Equal(t, "hi\n", string(res.Stdout))

	res = engine.Run(ctx, TranscriptProbe("crash", probe.CategoryMixed, ""), time.Second)
	assert.Equal(t, adapter.StatusCrashedNonZeroExit, res.Status)
	assert.Equal(t, 4, res.ExitCode)

	res = engine.Run(ctx, TranscriptProbe("hang", probe.CategoryMixed, ""), 20*time.Millisecond)
	assert.Equal(t, adapter.StatusTimedOut, res.Status)
	assert.Equal(t, "partial", string(res.Stdout))

	res = engine.Run(ctx, TranscriptProbe("missing", probe.CategoryMixed, ""), time.Second)
	assert.Equal(t, adapter.StatusAdapterError, res.Status)

	assert.Equal(t, []string{"ok", "crash", "hang", "missing"}, engine.Calls())
	assert.Equal(t, 1, engine.PeakConcurrency())
}

func TestScriptedEngine_Panic(t *testing.T) {
	engine := NewScriptedEngine(map[string]Step{"boom": {Panic: true}})

	assert.PanicsWithValue(t, "scripted panic in boom", func() {
		engine.Run(context.Background(), TranscriptProbe("boom", probe.CategoryMixed, ""), time.Second)
	})
	assert.Equal(t, []string{"boom"}, engine.Finished())
}
