package oracle

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffContext is the number of unchanged lines shown around each change.
const DiffContext = 2

type lineOp struct {
	kind byte // ' ', '-' or '+'
	text string
}

// LineDiff renders a line-oriented diff of expected against actual.
// Removed lines are prefixed "-", added lines "+", context lines " ".
// Runs of unchanged lines beyond DiffContext are collapsed to "...".
// Identical inputs produce an empty string.
func LineDiff(expected, actual string) string {
	if expected == actual {
		return ""
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	a, b, lineArray := dmp.DiffLinesToChars(expected, actual)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var ops []lineOp
	for _, d := range diffs {
		kind := byte(' ')
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			kind = '-'
		case diffmatchpatch.DiffInsert:
			kind = '+'
		}
		for _, line := range splitLines(d.Text) {
			ops = append(ops, lineOp{kind: kind, text: line})
		}
	}

	keep := make([]bool, len(ops))
	for i, op := range ops {
		if op.kind == ' ' {
			continue
		}
		for j := max(0, i-DiffContext); j <= min(len(ops)-1, i+DiffContext); j++ {
			keep[j] = true
		}
	}

	var sb strings.Builder
	skipped := false
	for i, op := range ops {
		if !keep[i] {
			skipped = true
			continue
		}
		if skipped {
			sb.WriteString("...\n")
			skipped = false
		}
		sb.WriteByte(op.kind)
		sb.WriteString(op.text)
		sb.WriteByte('\n')
	}
	if skipped {
		sb.WriteString("...\n")
	}
	return sb.String()
}

// splitLines splits text after each newline. A final line without a
// newline is marked so that a missing trailing newline stays visible.
func splitLines(text string) []string {
	var lines []string
	for text != "" {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			lines = append(lines, text+" (no newline at end)")
			break
		}
		lines = append(lines, text[:i])
		text = text[i+1:]
	}
	return lines
}
