package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Makisuo/confect-plus/internal/effect"
	"github.com/Makisuo/confect-plus/internal/identity"
	"github.com/Makisuo/confect-plus/internal/local"
	"github.com/Makisuo/confect-plus/internal/platform"
	"github.com/Makisuo/confect-plus/internal/wire"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Args    string
	Subject string
	DataDir string
	Drain   bool
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <function>",
		Short: "Invoke a public function on a local host",
		Long: `Invoke a public function on a local single-process host.

With --data-dir the host's databases persist between invocations, so a
mutation in one run is visible to a query in the next. Without it the
host is ephemeral. --as invokes as an authenticated subject; --drain
runs every due scheduled job after the invocation settles.

Exit codes:
  0 - Invocation settled with a value
  1 - Invocation settled with a typed failure or defect
  2 - Command error

Example:
  confect invoke demo/echo --args '{"message":"hi","count":2}'
  confect invoke demo/sendMessage --as alice --args '{"text":"hello"}' --data-dir ./data`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invokeFunction(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "{}", "invocation arguments as JSON")
	cmd.Flags().StringVar(&opts.Subject, "as", "", "invoke as this authenticated subject")
	cmd.Flags().StringVar(&opts.DataDir, "data-dir", "", "host data directory (default: ephemeral)")
	cmd.Flags().BoolVar(&opts.Drain, "drain", false, "run due scheduled jobs after the invocation")

	return cmd
}

func invokeFunction(opts *InvokeOptions, name string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

	args, err := wire.ParseJSON([]byte(opts.Args))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --args JSON", err)
	}

	dir := opts.DataDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "confect-*")
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create data dir", err)
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	}

	// The dev host trusts --as: the token is the subject.
	token := ""
	var provider identity.Provider
	if opts.Subject != "" {
		token = opts.Subject
		provider = identity.NewStatic("confect-dev").AddToken(opts.Subject, opts.Subject, nil)
	}

	dep := deployment()
	host, err := local.New(local.Config{
		DataDir:       dir,
		Tables:        dep.Tables,
		VectorIndexes: dep.VectorIndexes,
		Identity:      provider,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open host", err)
	}
	defer host.Close()

	if err := dep.Register(host.Registry()); err != nil {
		return WrapExitError(ExitCommandError, "failed to register functions", err)
	}

	out, invokeErr := host.Invoke(cmd.Context(), platform.FuncRef(name), token, args)
	if invokeErr != nil {
		return reportInvokeError(opts, cmd, invokeErr)
	}

	data, err := wire.MarshalCanonical(out)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode result", err)
	}

	if opts.Format == "json" {
		if err := writeJSONSuccess(cmd.OutOrStdout(), string(data)); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	}

	if opts.Drain {
		// Relative schedules anchor on the wall clock; drain past it.
		ran, err := host.RunDueJobs(cmd.Context(), time.Now().Add(time.Hour))
		if err != nil {
			return WrapExitError(ExitFailure, "drain failed", err)
		}
		slog.Info("drained scheduled jobs", "ran", ran)
	}
	return nil
}

func reportInvokeError(opts *InvokeOptions, cmd *cobra.Command, invokeErr error) error {
	code := "DEFECT"
	if f, ok := effect.AsFailure(invokeErr); ok {
		code = string(f.Code)
	}

	if opts.Format == "json" {
		if err := writeJSONError(cmd.OutOrStdout(), code, invokeErr.Error()); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "error [%s]: %v\n", code, invokeErr)
	}
	return NewExitError(ExitFailure, "invocation failed")
}

func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
