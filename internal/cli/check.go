package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/mobilitykit/bootstrap"
	"github.com/kbukum/mobilitykit/config"
	"github.com/kbukum/mobilitykit/logger"
)

// newCheckCmd loads the configuration, builds every static provider, reads
// the dynamic source once and prints the resulting providers.
func newCheckCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and list the providers it yields",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(serviceName, opts.loaderOptions()...)
			if err != nil {
				return err
			}
			cfg.Admin.Enabled = false
			cfg.Source.File.Watch = false

			ctx := cmd.Context()
			app, err := bootstrap.NewApp(ctx, cfg, bootstrap.WithLogger(logger.Nop()))
			if err != nil {
				return err
			}
			defer func() { _ = app.Shutdown(context.Background()) }()

			app.BSS.Registry().Refresh(ctx)
			app.StreetNetwork.Registry().Refresh(ctx)
			app.Summary(0).Display(cmd.OutOrStdout())
			return nil
		},
	}
}
