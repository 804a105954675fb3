package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// ScenarioInfo summarizes one scenario file.
type ScenarioInfo struct {
	Name    string `json:"name"`
	File    string `json:"file"`
	Call    string `json:"call,omitempty"`
	Mocks   int    `json:"mocks"`
	Expects int    `json:"expects"`
	Error   string `json:"error,omitempty"`
}

// ScenarioList is the result of the list command.
type ScenarioList struct {
	Scenarios []ScenarioInfo `json:"scenarios"`
}

// WriteText renders the list as a table.
func (l ScenarioList) WriteText(w io.Writer) {
	if len(l.Scenarios) == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCALL\tMOCKS\tEXPECTS\tFILE")
	for _, s := range l.Scenarios {
		if s.Error != "" {
			fmt.Fprintf(tw, "%s\t(invalid)\t-\t-\t%s\n", s.Name, s.File)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", s.Name, s.Call, s.Mocks, s.Expects, s.File)
	}
	tw.Flush()
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list <scenarios-dir>",
		Short: "List scenarios",
		Long: `List the scenarios under a directory with the method each one calls
and how many mocks and expects it registers. Invalid files are listed
and marked; use validate to see why.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, args[0], filter, cmd)
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runList(opts *RootOptions, dir, filter string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	files, err := LoadScenarios(dir, filter)
	if err != nil {
		return loadFailure(formatter, err)
	}

	list := ScenarioList{Scenarios: make([]ScenarioInfo, 0, len(files))}
	for _, file := range files {
		if file.Err != nil {
			list.Scenarios = append(list.Scenarios, ScenarioInfo{
				Name:  fileStem(file.Path),
				File:  file.Path,
				Error: file.Err.Error(),
			})
			continue
		}
		s := file.Scenario
		list.Scenarios = append(list.Scenarios, ScenarioInfo{
			Name:    s.Name,
			File:    file.Path,
			Call:    s.Call.Method,
			Mocks:   len(s.Mocks),
			Expects: len(s.Expects),
		})
	}

	return formatter.Success(list)
}
