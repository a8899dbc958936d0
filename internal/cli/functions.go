package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// FunctionInfo is one registered descriptor in listings.
type FunctionInfo struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Visibility string `json:"visibility"`
}

// NewFunctionsCommand creates the functions command.
func NewFunctionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List registered functions",
		Long: `List every registered function with its kind and visibility.

Example:
  confect functions
  confect functions --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listFunctions(rootOpts, cmd)
		},
	}
}

func listFunctions(opts *RootOptions, cmd *cobra.Command) error {
	reg, err := buildRegistry()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register functions", err)
	}

	infos := make([]FunctionInfo, 0)
	for _, name := range reg.Names() {
		desc, ok := reg.Lookup(name)
		if !ok {
			continue
		}
		infos = append(infos, FunctionInfo{
			Name:       desc.Name,
			Kind:       string(desc.Kind),
			Visibility: string(desc.Visibility),
		})
	}

	if opts.Format == "json" {
		return writeJSONSuccess(cmd.OutOrStdout(), infos)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tVISIBILITY")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\n", info.Name, info.Kind, info.Visibility)
	}
	return w.Flush()
}
