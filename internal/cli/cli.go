package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/specialistvlad/paramgrid/internal/app"
	"github.com/spf13/cobra"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// NewRootCmd builds the command tree. Reports go to outW, logs and help
// text for errors to errW.
func NewRootCmd(outW, errW io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "paramgrid",
		Short: "paramgrid - a provenance-tracked parameter derivation engine.",
		Long: `paramgrid seeds a registry with established parameters, runs every
registered unit in dependency order, and reports derived values,
certificates, and self-validation checks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError(fmt.Errorf("unknown command %q for \"paramgrid\"", args[0]))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	root.AddCommand(newRunCmd(outW, errW), newUnitsCmd(outW, errW))
	return root
}

// Execute runs the command tree against args.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	root := NewRootCmd(outW, errW)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// bindCommon registers the flags shared by every subcommand, defaulting to
// the values already read from the environment.
func bindCommon(cmd *cobra.Command, cfg *app.Config) {
	f := cmd.Flags()
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Logging level: 'debug', 'info', 'warn', or 'error'.")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log output format: 'text' or 'json'.")
	f.StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: 'json' or 'yaml'.")
}

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usageError(err)
	}
	return nil
}

// envConfig reads the environment, turning a parse failure into a usage error.
func envConfig() (app.Config, error) {
	cfg, err := app.ConfigFromEnv()
	if err != nil {
		return app.Config{}, usageError(err)
	}
	return cfg, nil
}
