package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Makisuo/confect-plus/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Error  string `json:"error,omitempty"`
	Steps  int    `json:"steps"`
}

// TestResult holds the overall run.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run every scenario YAML file in a directory against a fresh host.

Each scenario runs in isolation with deterministic ids and clocks.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, malformed scenarios)

Examples:
  confect test ./scenarios
  confect test ./scenarios --filter "message-*"
  confect test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by name glob")

	return cmd
}

func runScenarios(opts *TestOptions, dir string, cmd *cobra.Command) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list scenarios", err)
	}

	runner, err := harness.NewRunner(deployment())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build runner", err)
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files))}
	for _, file := range files {
		scenario, err := harness.LoadScenario(file)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("load %s", file), err)
		}
		if opts.Filter != "" {
			if match, _ := filepath.Match(opts.Filter, scenario.Name); !match {
				continue
			}
		}

		sr := ScenarioResult{Name: scenario.Name, Pass: true}
		runResult, runErr := runner.Run(scenario)
		if runResult != nil {
			sr.Steps = len(runResult.Trace)
		}
		if runErr != nil {
			sr.Pass = false
			sr.Error = runErr.Error()
			result.Failed++
		} else {
			result.Passed++
		}
		result.Scenarios = append(result.Scenarios, sr)
	}
	result.Total = len(result.Scenarios)

	if opts.Format == "json" {
		if err := writeJSONSuccess(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		for _, sr := range result.Scenarios {
			status := "PASS"
			if !sr.Pass {
				status = "FAIL"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s (%d steps)\n", status, sr.Name, sr.Steps)
			if sr.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "      %s\n", sr.Error)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d passed, %d failed, %d total\n",
			result.Passed, result.Failed, result.Total)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}
