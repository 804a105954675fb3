package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ValidationIssue is one problem found in a scenario file.
type ValidationIssue struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Scenarios int               `json:"scenarios"`
	Errors    []ValidationIssue `json:"errors,omitempty"`
}

// WriteText renders the validation result.
func (r ValidationResult) WriteText(w io.Writer) {
	for _, issue := range r.Errors {
		fmt.Fprintf(w, "✗ %s\n  %s\n", issue.File, issue.Message)
	}
	if r.Valid {
		fmt.Fprintf(w, "✓ %d scenario(s) valid\n", r.Scenarios)
		return
	}
	fmt.Fprintf(w, "%d error(s) in %d scenario(s)\n", len(r.Errors), r.Scenarios)
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "validate <scenarios-dir>",
		Short: "Validate scenario files without running them",
		Long: `Validate every scenario file under a directory.

Checks each file against the scenario schema (unknown fields, types,
reject codes, assertion types) and the rules the schema cannot express,
and reports scenario names used by more than one file.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], filter, cmd)
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runValidate(opts *RootOptions, dir, filter string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	files, err := LoadScenarios(dir, filter)
	if err != nil {
		return loadFailure(formatter, err)
	}
	formatter.VerboseLog("Found %d scenario file(s) in %s", len(files), dir)

	result := ValidationResult{Scenarios: len(files)}
	seen := make(map[string]string)
	for _, file := range files {
		if file.Err != nil {
			result.Errors = append(result.Errors, ValidationIssue{File: file.Path, Message: file.Err.Error()})
			continue
		}
		name := file.Scenario.Name
		if first, dup := seen[name]; dup {
			result.Errors = append(result.Errors, ValidationIssue{
				File:    file.Path,
				Message: fmt.Sprintf("duplicate scenario name %q (also in %s)", name, first),
			})
			continue
		}
		seen[name] = file.Path
		formatter.VerboseLog("Valid: %s (%s)", file.Path, name)
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		return formatter.Failure(result, ErrCodeInvalidScenario, fmt.Sprintf("%d invalid scenario file(s)", len(result.Errors)))
	}
	return formatter.Success(result)
}
