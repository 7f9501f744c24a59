package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/probecheck/internal/probe"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Manifest    string   `json:"manifest"`
	Probes      int      `json:"probes,omitempty"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Issues      []string `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Validate a probe manifest without running it",
		Long: `Load a YAML or CUE probe manifest and report every definition defect.

Checks names, categories, units, expectations, value widths and budgets,
and that every transcript_file is readable. Nothing is executed.`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	reg, err := probe.LoadManifest(path)
	if err != nil {
		var defErr *probe.DefinitionError
		if errors.As(err, &defErr) {
			return outputValidationIssues(formatter, path, defErr)
		}
		code := ErrCodeGeneric
		if errors.Is(err, os.ErrNotExist) {
			code = ErrCodeNotFound
		}
		return outputCommandError(formatter, code, err)
	}

	formatter.VerboseLog("Loaded %d probe(s) from %s", reg.Len(), path)

	fp, err := reg.Fingerprint()
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{
			Valid:       true,
			Manifest:    path,
			Probes:      reg.Len(),
			Fingerprint: fp,
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ %s valid: %d probe(s), fingerprint %s\n", path, reg.Len(), fp)
	return nil
}

// outputValidationIssues reports every definition defect (exit code 1).
func outputValidationIssues(formatter *OutputFormatter, path string, defErr *probe.DefinitionError) error {
	issues := make([]string, len(defErr.Issues))
	for i, issue := range defErr.Issues {
		issues[i] = issue.String()
	}
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d issue(s)", len(issues)))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:    false,
				Manifest: path,
				Issues:   issues,
			},
			Error: &CLIError{
				Code:    ErrCodeDefinition,
				Message: probe.ErrInvalidProbeDefinition.Error(),
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintf(formatter.Writer, "✗ %s: validation failed\n", path)
	fmt.Fprintln(formatter.Writer)
	for _, issue := range issues {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", ErrCodeDefinition, issue)
	}

	return failure
}
