package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/probecheck/internal/config"
	"github.com/roach88/probecheck/internal/report"
	"github.com/roach88/probecheck/internal/store"
)

// DefaultHistoryLimit bounds history listings.
const DefaultHistoryLimit = 20

// RunInfo is one run in a history listing.
type RunInfo struct {
	ID          string         `json:"id"`
	Fingerprint string         `json:"fingerprint"`
	Engine      string         `json:"engine"`
	StartedAt   string         `json:"started_at"`
	ElapsedMS   int64          `json:"elapsed_ms"`
	Succeeded   bool           `json:"succeeded"`
	Counts      map[string]int `json:"counts"`
}

// ProbeRunInfo is one probe verdict in a probe's history.
type ProbeRunInfo struct {
	RunID      string `json:"run_id"`
	StartedAt  string `json:"started_at"`
	Outcome    string `json:"outcome"`
	DurationMS int64  `json:"duration_ms"`
	Cause      string `json:"cause,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs",
		Long: `Show runs recorded with "run --history".

Without arguments, lists the most recent runs. With a run ID, prints that
run's report. With --probe, lists one probe's verdicts across runs.`,
		Args:          usageArgs(cobra.MaximumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, cmd, args)
		},
	}

	cmd.Flags().String(config.KeyHistory, "", "SQLite database written by run --history")
	cmd.Flags().Int("limit", DefaultHistoryLimit, "maximum entries to list (0 for all)")
	cmd.Flags().String("probe", "", "list this probe's verdicts instead of runs")

	return cmd
}

func runHistory(opts *RootOptions, cmd *cobra.Command, args []string) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		return outputCommandError(formatter, ErrCodeConfig, err)
	}
	if cfg.History == "" {
		return outputCommandError(formatter, ErrCodeConfig,
			errors.New("no history database (set --history, PROBECHECK_HISTORY or history in the config file)"))
	}
	// Opening creates the file; a typo must not yield an empty history.
	if _, statErr := os.Stat(cfg.History); statErr != nil {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Errorf("history database: %w", statErr))
	}

	limit, _ := cmd.Flags().GetInt("limit")
	probeName, _ := cmd.Flags().GetString("probe")

	st, err := store.Open(cfg.History)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStore, err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			opts.Logger.Error().Err(closeErr).Msg("Failed to close history")
		}
	}()

	ctx := cmd.Context()

	switch {
	case len(args) == 1:
		rep, summary, err := st.LoadRun(ctx, args[0])
		if errors.Is(err, store.ErrRunNotFound) {
			return outputCommandError(formatter, ErrCodeRunNotFound, err)
		}
		if err != nil {
			return outputCommandError(formatter, ErrCodeStore, err)
		}
		formatter.VerboseLog("Run %s against engine %s", summary.ID, summary.Engine)
		if formatter.Format == "json" {
			return report.WriteJSON(formatter.Writer, rep)
		}
		return report.WriteText(formatter.Writer, rep, report.TextOptions{Verbose: opts.Verbose})

	case probeName != "":
		records, err := st.ProbeHistory(ctx, probeName, limit)
		if err != nil {
			return outputCommandError(formatter, ErrCodeStore, err)
		}
		infos := make([]ProbeRunInfo, len(records))
		for i, r := range records {
			infos[i] = ProbeRunInfo{
				RunID:      r.RunID,
				StartedAt:  r.StartedAt.UTC().Format(time.RFC3339Nano),
				Outcome:    string(r.Outcome),
				DurationMS: r.Duration.Milliseconds(),
				Cause:      r.Cause,
			}
		}
		if formatter.Format == "json" {
			return formatter.Success(infos)
		}
		for i, r := range records {
			line := fmt.Sprintf("%s  %s  %-15s  %s  %s", r.RunID, infos[i].StartedAt,
				report.Label(r.Outcome), r.Duration.Round(time.Millisecond), r.Cause)
			fmt.Fprintln(formatter.Writer, strings.TrimRight(line, " "))
		}
		fmt.Fprintf(formatter.Writer, "%d verdict(s) for %s\n", len(records), probeName)
		return nil

	default:
		runs, err := st.ListRuns(ctx, limit)
		if err != nil {
			return outputCommandError(formatter, ErrCodeStore, err)
		}
		infos := make([]RunInfo, len(runs))
		for i, r := range runs {
			infos[i] = runInfo(r)
		}
		if formatter.Format == "json" {
			return formatter.Success(infos)
		}
		for i, r := range runs {
			status := "FAIL"
			if r.Succeeded() {
				status = "OK"
			}
			fmt.Fprintf(formatter.Writer, "%s  %s  %-4s  %d/%d passed  %s  %s\n",
				r.ID, infos[i].StartedAt, status, r.Counts.Pass, r.Counts.Total(),
				r.Elapsed.Round(time.Millisecond), r.Engine)
		}
		fmt.Fprintf(formatter.Writer, "%d run(s)\n", len(runs))
		return nil
	}
}

func runInfo(r store.RunSummary) RunInfo {
	return RunInfo{
		ID:          r.ID,
		Fingerprint: r.Fingerprint,
		Engine:      r.Engine,
		StartedAt:   r.StartedAt.UTC().Format(time.RFC3339Nano),
		ElapsedMS:   r.Elapsed.Milliseconds(),
		Succeeded:   r.Succeeded(),
		Counts: map[string]int{
			"pass":            r.Counts.Pass,
			"mismatch":        r.Counts.Mismatch,
			"timeout":         r.Counts.Timeout,
			"execution_error": r.Counts.ExecutionError,
			"total":           r.Counts.Total(),
		},
	}
}
