package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/probecheck/internal/config"
	"github.com/roach88/probecheck/internal/probe"
)

// ProbeInfo describes one registered probe.
type ProbeInfo struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Unit        string `json:"unit"`
	Expect      string `json:"expect"`
	BudgetMS    int64  `json:"budget_ms,omitempty"`
	Description string `json:"description,omitempty"`
}

// ListResult is the JSON payload of the list command.
type ListResult struct {
	Source      string      `json:"source"`
	Fingerprint string      `json:"fingerprint"`
	Probes      []ProbeInfo `json:"probes"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [filter]",
		Short: "List the probes a run would execute",
		Long: `List the registered probes, in run order, without executing anything.

Uses the built-in catalog under --units, or --manifest when given.`,
		Args:          usageArgs(cobra.MaximumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd, args)
		},
	}

	cmd.Flags().String(config.KeyUnits, "tests", "directory holding the built-in probe units")
	cmd.Flags().String(config.KeyManifest, "", "probe manifest (.yaml or .cue) replacing the built-in catalog")
	cmd.Flags().String(config.KeyFilter, "", "probe filter (overridden by the positional argument)")

	return cmd
}

func runList(opts *RootOptions, cmd *cobra.Command, args []string) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts, cmd)
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
	selected := reg.Select(cfg.Filter)

	fp, err := probe.Fingerprint(selected)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err)
	}

	result := ListResult{
		Source:      reg.Source(),
		Fingerprint: fp,
		Probes:      make([]ProbeInfo, len(selected)),
	}
	for i, p := range selected {
		result.Probes[i] = probeInfo(p)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	writeProbeTable(formatter, result.Probes)
	fmt.Fprintf(formatter.Writer, "%d probe(s) from %s\n", len(result.Probes), result.Source)
	return nil
}

func probeInfo(p probe.Probe) ProbeInfo {
	info := ProbeInfo{
		Name:        p.Name,
		Category:    string(p.Category),
		Unit:        p.Unit.Path,
		Expect:      string(p.Expect.Kind),
		BudgetMS:    p.Budget.Milliseconds(),
		Description: p.Description,
	}
	if info.Unit == "" {
		name := p.Unit.Filename
		if name == "" {
			name = p.Name
		}
		info.Unit = fmt.Sprintf("<inline %s>", name)
	}
	return info
}

func writeProbeTable(formatter *OutputFormatter, probes []ProbeInfo) {
	var nameW, catW, unitW int
	for _, p := range probes {
		nameW = max(nameW, len(p.Name))
		catW = max(catW, len(p.Category))
		unitW = max(unitW, len(p.Unit))
	}
	for _, p := range probes {
		line := fmt.Sprintf("%-*s  %-*s  %-*s  %s", nameW, p.Name, catW, p.Category, unitW, p.Unit, p.Expect)
		fmt.Fprintln(formatter.Writer, strings.TrimRight(line, " "))
		if formatter.Verbose && p.Description != "" {
			fmt.Fprintf(formatter.Writer, "    %s\n", p.Description)
		}
	}
}
