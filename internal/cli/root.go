// Package cli implements the mobilityd command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/mobilitykit/config"
)

const serviceName = "mobilityd"

type globalOptions struct {
	cfgPath   string
	envPath   string
	envPrefix string
}

func (o globalOptions) loaderOptions() []config.Option {
	opts := []config.Option{config.WithEnvPrefix(o.envPrefix)}
	if o.cfgPath != "" {
		opts = append(opts, config.WithConfigFile(o.cfgPath))
	}
	if o.envPath != "" {
		opts = append(opts, config.WithEnvFile(o.envPath))
	}
	return opts
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Serve bike-share and street-network providers with hot reload",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	fs := root.PersistentFlags()
	fs.StringVarP(&opts.cfgPath, "config", "c", "", "config yaml path (default: ./cmd/mobilityd/config.yml, then ./config.yml)")
	fs.StringVar(&opts.envPath, "env-file", "", ".env file path")
	fs.StringVar(&opts.envPrefix, "env-prefix", config.DefaultEnvPrefix, "environment variable prefix")

	root.AddCommand(newServeCmd(opts), newCheckCmd(opts), newVersionCmd())
	return root
}

// Execute runs the command line with ctx.
func Execute(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
