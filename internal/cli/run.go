package cli

import (
	"io"
	"log/slog"

	"github.com/specialistvlad/paramgrid/internal/app"
	"github.com/spf13/cobra"
)

func newRunCmd(outW, errW io.Writer) *cobra.Command {
	cfg, envErr := envConfig()

	cmd := &cobra.Command{
		Use:   "run [SEED_PATH...]",
		Short: "Seed the registry, execute every unit, and print the report.",
		Long: `Loads parameter seeds and certificates from .hcl, .yaml, or .yml files
(directories are walked), executes every registered unit, evaluates
certificates, and writes the report to stdout.

Positional arguments are added to --seeds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return envErr
			}
			raw := cfg
			raw.Seeds = append(append([]string{}, cfg.Seeds...), args...)

			validated, err := app.NewConfig(raw)
			if err != nil {
				return usageError(err)
			}
			slog.Debug("CLI parameter validation complete.", "seeds", validated.Seeds)

			rep, err := app.NewApp(outW, errW, validated).Run(cmd.Context())
			if err != nil {
				return err
			}
			if !rep.OK() {
				return &ExitError{Code: 1, Message: "run finished with failures"}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&cfg.Seeds, "seeds", "s", cfg.Seeds, "Seed files or directories.")
	f.StringSliceVarP(&cfg.Certificates, "certificates", "c", cfg.Certificates, "Certificate files or directories.")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "Number of concurrent workers; 0 uses one per CPU.")
	bindCommon(cmd, &cfg)
	return cmd
}
