package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/roach88/probecheck/internal/harness"
	"github.com/roach88/probecheck/internal/oracle"
)

// TextOptions controls WriteText.
type TextOptions struct {
	// Color enables ANSI colors for outcome labels.
	Color bool

	// Verbose adds per-probe durations, the run header and line diffs.
	Verbose bool
}

var labels = map[oracle.Outcome]string{
	oracle.OutcomePass:           "PASS",
	oracle.OutcomeMismatch:       "MISMATCH",
	oracle.OutcomeTimeout:        "TIMEOUT",
	oracle.OutcomeExecutionError: "EXECUTION_ERROR",
}

// Label returns the report label for an outcome.
func Label(o oracle.Outcome) string {
	if l, ok := labels[o]; ok {
		return l
	}
	return strings.ToUpper(string(o))
}

type palette struct {
	pass, fail, warn, dim *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		pass: color.New(color.FgGreen, color.Bold),
		fail: color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow, color.Bold),
		dim:  color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{p.pass, p.fail, p.warn, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) outcome(o oracle.Outcome) *color.Color {
	switch o {
	case oracle.OutcomePass:
		return p.pass
	case oracle.OutcomeTimeout:
		return p.warn
	default:
		return p.fail
	}
}

// WriteText writes the human-readable report.
func WriteText(w io.Writer, r *harness.RunReport, opts TextOptions) error {
	pal := newPalette(opts.Color)
	var sb strings.Builder

	if opts.Verbose {
		fmt.Fprintf(&sb, "Run %s (fingerprint %s)\n", r.RunID, shortFingerprint(r.Fingerprint))
	}

	labelWidth, nameWidth, categoryWidth := columnWidths(r.Verdicts)
	for _, v := range r.Verdicts {
		fields := []string{
			pal.outcome(v.Outcome).Sprint(pad(Label(v.Outcome), labelWidth)),
			pad(v.Probe, nameWidth),
			pad(string(v.Category), categoryWidth),
		}
		if d := detail(v); d != "" {
			fields = append(fields, d)
		}
		if opts.Verbose {
			fields = append(fields, pal.dim.Sprintf("(%s)", v.Duration.Round(time.Millisecond)))
		}
		sb.WriteString(strings.TrimRight(strings.Join(fields, "  "), " "))
		sb.WriteByte('\n')

		for _, line := range contextLines(v, opts.Verbose) {
			sb.WriteString("    ")
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}

	c := r.Counts
	fmt.Fprintf(&sb, "Summary: %d pass, %d mismatch, %d timeout, %d execution_error (%d total)\n",
		c.Pass, c.Mismatch, c.Timeout, c.ExecutionError, c.Total())

	_, err := io.WriteString(w, sb.String())
	return err
}

func detail(v oracle.Verdict) string {
	switch v.Outcome {
	case oracle.OutcomePass:
		return ""
	case oracle.OutcomeMismatch:
		if v.Divergence == nil {
			return "output differs"
		}
		return fmt.Sprintf("first divergence at byte %d", v.Divergence.Offset)
	default:
		return v.Cause
	}
}

func contextLines(v oracle.Verdict, verbose bool) []string {
	if v.Outcome != oracle.OutcomeMismatch || v.Divergence == nil {
		return nil
	}
	d := v.Divergence
	lines := []string{
		fmt.Sprintf("expected: %s (%d bytes)", strconv.Quote(string(d.ExpectedWindow)), d.ExpectedLen),
		fmt.Sprintf("actual:   %s (%d bytes)", strconv.Quote(string(d.ActualWindow)), d.ActualLen),
	}
	if d.WindowStart > 0 {
		lines = append(lines, fmt.Sprintf("window starts at byte %d", d.WindowStart))
	}
	if v.Cause != "" {
		lines = append(lines, "note: "+v.Cause)
	}
	if verbose && v.Diff != "" {
		lines = append(lines, "diff (-expected +actual):")
		for _, dl := range strings.Split(strings.TrimSuffix(v.Diff, "\n"), "\n") {
			lines = append(lines, "  "+dl)
		}
	}
	return lines
}

func columnWidths(verdicts []oracle.Verdict) (label, name, category int) {
	for _, v := range verdicts {
		label = max(label, len(Label(v.Outcome)))
		name = max(name, len(v.Probe))
		category = max(category, len(v.Category))
	}
	return label, name, category
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
