package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/probecheck/internal/adapter"
	"github.com/roach88/probecheck/internal/config"
	"github.com/roach88/probecheck/internal/harness"
	"github.com/roach88/probecheck/internal/metrics"
	"github.com/roach88/probecheck/internal/probe"
	"github.com/roach88/probecheck/internal/reference"
	"github.com/roach88/probecheck/internal/report"
	"github.com/roach88/probecheck/internal/store"
)

// BuiltinEngine selects the in-process reference model instead of an
// external executable.
const BuiltinEngine = "builtin"

// RunOptions holds run-command state that is not a flag.
type RunOptions struct {
	*RootOptions

	// IDGenerator overrides the run ID source (for testing).
	IDGenerator harness.IDGenerator

	// Clock overrides the wall clock (for testing).
	Clock harness.Clock
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [filter]",
		Short: "Run probes against an engine",
		Long: `Run the selected probes against an engine and report one verdict per probe.

The engine is invoked as "<engine> [engine-args...] <unit>" for every probe.
An engine argument equal to {unit} is replaced by the unit path instead.
--engine builtin runs the in-process reference model.

The filter is a comma-separated list of categories or name substrings.

Exit codes: 0 when every selected probe passes, 1 when any probe does not,
2 for harness errors.`,
		Args:          usageArgs(cobra.MaximumNArgs(1)),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbes(opts, cmd, args)
		},
	}

	cmd.Flags().String(config.KeyEngine, "", `engine executable, or "builtin" for the reference model`)
	cmd.Flags().StringArray(config.FlagEngineArg, nil, "argument passed to the engine before the unit (repeatable)")
	cmd.Flags().Int(config.KeyConcurrency, runtime.NumCPU(), "maximum probes in flight")
	cmd.Flags().Duration(config.KeyTimeout, harness.DefaultBudget, "default per-probe budget")
	cmd.Flags().Int(config.KeyMaxOutput, adapter.DefaultMaxOutput, "bytes of stdout and stderr retained per probe")
	cmd.Flags().String(config.KeyUnits, "tests", "directory holding the built-in probe units")
	cmd.Flags().String(config.KeyManifest, "", "probe manifest (.yaml or .cue) replacing the built-in catalog")
	cmd.Flags().String(config.KeyFilter, "", "probe filter (overridden by the positional argument)")
	cmd.Flags().String(config.KeyHistory, "", "SQLite database to record the run in")
	cmd.Flags().String(config.KeyMetricsFile, "", "write Prometheus metrics to this textfile")
	cmd.Flags().Bool(config.KeyColor, false, "colorize outcome labels")

	return cmd
}

func runProbes(opts *RunOptions, cmd *cobra.Command, args []string) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger

	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return outputCommandError(formatter, ErrCodeConfig, err)
	}
	if len(args) == 1 {
		cfg.Filter = args[0]
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return registryError(formatter, err)
	}
	probes := reg.Select(cfg.Filter)
	formatter.VerboseLog("Selected %d of %d probe(s) from %s", len(probes), reg.Len(), reg.Source())

	a, err := newAdapter(cfg, logger)
	if err != nil {
		return outputCommandError(formatter, ErrCodeConfig, err)
	}

	runnerOpts := []harness.Option{
		harness.WithConcurrency(cfg.Concurrency),
		harness.WithDefaultBudget(cfg.Timeout),
		harness.WithLogger(logger),
	}
	if opts.IDGenerator != nil {
		runnerOpts = append(runnerOpts, harness.WithIDGenerator(opts.IDGenerator))
	}
	if opts.Clock != nil {
		runnerOpts = append(runnerOpts, harness.WithClock(opts.Clock))
	}
	var m *metrics.Metrics
	if cfg.MetricsFile != "" {
		m = metrics.New()
		runnerOpts = append(runnerOpts, harness.WithRecorder(m))
	}
	runner := harness.NewRunner(a, runnerOpts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("engine", cfg.Engine).
		Str("source", reg.Source()).
		Str("filter", cfg.Filter).
		Dur("default_budget", cfg.Timeout).
		Msg("Engine selected")

	rep := runner.RunAll(ctx, probes)

	if err := writeRunReport(opts.RootOptions, cmd, cfg, rep); err != nil {
		return outputCommandError(formatter, ErrCodeWriteFailed, err)
	}

	// Recording happens even after an interrupt so the partial run is kept.
	if cfg.History != "" {
		if err := recordRun(context.WithoutCancel(ctx), cfg, rep, logger); err != nil {
			return outputCommandError(formatter, ErrCodeStore, err)
		}
	}
	if m != nil {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, err)
		}
	}

	if !rep.Succeeded() {
		return NewExitError(ExitFailure,
			fmt.Sprintf("%d of %d probe(s) did not pass", len(rep.Failed()), len(rep.Verdicts)))
	}
	return nil
}

// loadConfig resolves flags, environment and config file for cmd.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (config.Config, error) {
	v := config.New()
	used, err := config.ReadFile(v, opts.ConfigFile)
	if err != nil {
		return config.Config{}, err
	}
	if used != "" {
		opts.Logger.Debug().Str("path", used).Msg("Loaded config file")
	}
	if err := config.BindFlags(v, cmd); err != nil {
		return config.Config{}, err
	}
	return config.Load(v)
}

// loadRegistry returns the manifest's registry, or the built-in catalog.
func loadRegistry(cfg config.Config) (*probe.Registry, error) {
	if cfg.Manifest != "" {
		return probe.LoadManifest(cfg.Manifest)
	}
	return probe.Builtin(cfg.Units)
}

func newAdapter(cfg config.Config, logger zerolog.Logger) (adapter.Adapter, error) {
	switch cfg.Engine {
	case "":
		return nil, errors.New("no engine configured (set --engine, PROBECHECK_ENGINE or engine in the config file)")
	case BuiltinEngine:
		return reference.NewAdapter(logger).WithMaxOutput(cfg.MaxOutput), nil
	}
	a := adapter.NewProcessAdapter(cfg.Engine, cfg.EngineArgs, logger)
	a.MaxOutput = cfg.MaxOutput
	return a, nil
}

func writeRunReport(opts *RootOptions, cmd *cobra.Command, cfg config.Config, rep *harness.RunReport) error {
	if opts.Format == "json" {
		return report.WriteJSON(cmd.OutOrStdout(), rep)
	}
	return report.WriteText(cmd.OutOrStdout(), rep, report.TextOptions{
		Color:   cfg.Color,
		Verbose: opts.Verbose,
	})
}

func recordRun(ctx context.Context, cfg config.Config, rep *harness.RunReport, logger zerolog.Logger) (err error) {
	st, err := store.Open(cfg.History)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close history: %w", closeErr)
		}
	}()

	if err := st.SaveRun(ctx, cfg.Engine, rep); err != nil {
		return err
	}
	logger.Debug().Str("run_id", rep.RunID).Str("history", cfg.History).Msg("Recorded run in history")
	return nil
}

// registryError maps a registry load failure to an exit error. Invalid
// definitions are reported with every issue.
func registryError(formatter *OutputFormatter, err error) error {
	var defErr *probe.DefinitionError
	if errors.As(err, &defErr) {
		issues := make([]string, len(defErr.Issues))
		for i, issue := range defErr.Issues {
			issues[i] = issue.String()
		}
		_ = formatter.Error(ErrCodeDefinition, err.Error(), issues)
		return WrapExitError(ExitCommandError, "refusing to run", err)
	}
	code := ErrCodeGeneric
	if errors.Is(err, os.ErrNotExist) {
		code = ErrCodeNotFound
	}
	return outputCommandError(formatter, code, err)
}

// outputCommandError reports a harness error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code string, err error) error {
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, code, err)
}
