package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Makisuo/confect-plus/internal/wire"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Args string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <function>",
		Short: "Validate an argument document against a function's schema",
		Long: `Validate a JSON argument document against a function's argument
schema without invoking it. Internal functions are visible here: this
is a development tool, not the public surface.

Exit codes:
  0 - Document is valid
  1 - Document violates the schema
  2 - Command error (unknown function, malformed JSON)

Example:
  confect validate demo/echo --args '{"message":"hi","count":2}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateArgs(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "{}", "argument document as JSON")

	return cmd
}

func validateArgs(opts *ValidateOptions, name string, cmd *cobra.Command) error {
	reg, err := buildRegistry()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register functions", err)
	}

	desc, ok := reg.Lookup(name)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown function %q", name))
	}

	doc, err := wire.ParseJSON([]byte(opts.Args))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --args JSON", err)
	}

	if err := desc.Args.Validate(doc); err != nil {
		if opts.Format == "json" {
			if werr := writeJSONError(cmd.OutOrStdout(), "invalid_arguments", err.Error()); werr != nil {
				return werr
			}
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "invalid: %v\n", err)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("arguments do not satisfy %s", name))
	}

	if opts.Format == "json" {
		return writeJSONSuccess(cmd.OutOrStdout(), map[string]string{"function": name})
	}
	fmt.Fprintln(cmd.OutOrStdout(), "valid")
	return nil
}
