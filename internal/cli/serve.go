package cli

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/mobilitykit/bootstrap"
	"github.com/kbukum/mobilitykit/config"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the provider registries and the admin server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(serviceName, opts.loaderOptions()...)
			if err != nil {
				return err
			}
			app, err := bootstrap.NewApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}
}
