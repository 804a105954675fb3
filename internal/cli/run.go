package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/asyncmock/internal/demo"
	"github.com/roach88/asyncmock/internal/harness"
	"github.com/roach88/asyncmock/internal/mocker"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Update   bool   // regenerate golden files
	Filter   string // scenario filter (doublestar glob)
	Watch    bool   // rerun on file changes
	MaxSteps int    // step budget override; negative means unset
	Metrics  bool   // print Prometheus metrics after each run

	// Installer registers the methods scenarios may call.
	// If nil, defaults to demo.Install.
	Installer harness.Installer

	// Debounce is the watch mode quiet period. Zero uses DefaultDebounce.
	Debounce time.Duration
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Steps  int      `json:"steps"`
	Golden string   `json:"golden,omitempty"` // "matched", "updated" or "mismatch"
	Errors []string `json:"errors,omitempty"`

	// Calls counts trace events per method.
	Calls map[string]int `json:"calls,omitempty"`
}

// RunReport holds the overall run result.
type RunReport struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// WriteText renders the report as one line per scenario plus a summary.
func (r RunReport) WriteText(w io.Writer) {
	if r.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}
	for _, s := range r.Scenarios {
		mark := "✓"
		if !s.Pass {
			mark = "✗"
		}
		suffix := ""
		if s.Golden == "updated" {
			suffix = " (golden updated)"
		}
		fmt.Fprintf(w, "%s %s%s\n", mark, s.Name, suffix)
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenarios-dir>",
		Short: "Run scenarios against the demo services",
		Long: `Run every scenario file under a directory.

Each scenario executes in a fresh simulated environment. Its outcome is
checked against want and its assertions, and its snapshot against
golden/<file>.golden when that file exists.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, bad filter, etc.)

Examples:
  asyncmock run ./scenarios
  asyncmock run ./scenarios --filter "greet_*"
  asyncmock run ./scenarios --update
  asyncmock run ./scenarios --watch
  asyncmock run ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Watch {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return watchScenarios(ctx, opts, args[0], cmd)
			}
			return runScenarios(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "rerun when scenario files change")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", -1, "override every scenario's step budget")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print Prometheus metrics after the run")

	return cmd
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

func runScenarios(opts *RunOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	files, err := LoadScenarios(dir, opts.Filter)
	if err != nil {
		return loadFailure(formatter, err)
	}
	formatter.VerboseLog("Found %d scenario file(s) in %s", len(files), dir)

	reg := prometheus.NewRegistry()
	metrics := mocker.NewMetrics(reg)
	logger := formatter.Logger()

	report := RunReport{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		res := runScenario(file, opts, metrics, logger)
		report.Scenarios = append(report.Scenarios, res)
		if res.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
	}

	if opts.Metrics {
		if err := writeMetrics(formatter.errWriter(), reg); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	if report.Failed > 0 {
		return formatter.Failure(report, ErrCodeScenarioFailed, fmt.Sprintf("%d scenario(s) failed", report.Failed))
	}
	return formatter.Success(report)
}

// runScenario executes one loaded scenario file and checks its golden file.
func runScenario(file ScenarioFile, opts *RunOptions, metrics *mocker.Metrics, logger *slog.Logger) ScenarioResult {
	res := ScenarioResult{Name: filepath.Base(file.Path), File: file.Path}
	if file.Err != nil {
		res.Errors = []string{fmt.Sprintf("failed to load scenario: %v", file.Err)}
		return res
	}
	res.Name = file.Scenario.Name

	install := opts.Installer
	if install == nil {
		install = demo.Install
	}
	runOpts := []harness.RunOption{harness.WithLogger(logger), harness.WithMetrics(metrics)}
	if opts.MaxSteps >= 0 {
		runOpts = append(runOpts, harness.WithMaxSteps(opts.MaxSteps))
	}

	result, err := harness.Run(file.Scenario, install, runOpts...)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return res
	}
	res.Steps = result.Steps
	res.Calls = result.Calls
	res.Pass = result.Pass
	res.Errors = append(res.Errors, result.Errors...)

	snapshot, err := harness.Snapshot(file.Scenario.Name, result)
	if err != nil {
		res.Pass = false
		res.Errors = append(res.Errors, fmt.Sprintf("failed to build snapshot: %v", err))
		return res
	}

	goldenPath := goldenFilePath(file.Path)
	if opts.Update {
		if err := writeGolden(goldenPath, snapshot); err != nil {
			res.Pass = false
			res.Errors = append(res.Errors, err.Error())
			return res
		}
		res.Golden = "updated"
		return res
	}

	golden, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		// No golden file - want and assertions decide
		return res
	}
	if err != nil {
		res.Pass = false
		res.Errors = append(res.Errors, fmt.Sprintf("failed to read golden file: %v", err))
		return res
	}

	if !bytes.Equal(golden, snapshot) {
		res.Pass = false
		res.Golden = "mismatch"
		res.Errors = append(res.Errors, "snapshot does not match golden file (run with --update to regenerate)")
		return res
	}
	res.Golden = "matched"
	return res
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// watchScenarios runs once, then again after every settled change under
// dir, until ctx is cancelled. Failing runs do not stop the watch.
func watchScenarios(ctx context.Context, opts *RunOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, err := FindScenarioFiles(dir, opts.Filter); err != nil {
		return loadFailure(formatter, err)
	}

	interval := opts.Debounce
	if interval == 0 {
		interval = DefaultDebounce
	}
	watcher, err := NewWatcher(dir, interval, formatter.Logger())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start watcher", err)
	}

	var mu sync.Mutex
	rerun := func() {
		mu.Lock()
		defer mu.Unlock()
		if err := runScenarios(opts, dir, cmd); err != nil && GetExitCode(err) == ExitCommandError {
			formatter.VerboseLog("run failed: %v", err)
		}
	}

	rerun()
	err = watcher.Watch(ctx, rerun)

	// Let an in-flight run finish before returning
	mu.Lock()
	defer mu.Unlock()
	return err
}

// loadFailure reports a directory-level load error.
func loadFailure(formatter *OutputFormatter, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		return formatter.Error(le.Code, le.Message, nil)
	}
	return formatter.Error(ErrCodeGeneric, err.Error(), nil)
}
