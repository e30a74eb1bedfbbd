package cli

import (
	"io"

	"github.com/specialistvlad/paramgrid/internal/app"
	"github.com/spf13/cobra"
)

func newUnitsCmd(outW, errW io.Writer) *cobra.Command {
	cfg, envErr := envConfig()

	cmd := &cobra.Command{
		Use:   "units",
		Short: "List the registered units and their contracts in execution order.",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if envErr != nil {
				return envErr
			}
			validated, err := app.NewConfig(cfg)
			if err != nil {
				return usageError(err)
			}
			return app.NewApp(outW, errW, validated).Units(cmd.Context())
		},
	}
	bindCommon(cmd, &cfg)
	return cmd
}
