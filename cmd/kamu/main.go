package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "kamu",
		Short: "Route table server and tooling",
		Long: `kamu serves a YAML route table through a controller router.

Routes are declared in a route file, resolved against registered
controllers and middleware aliases, and can be compiled into a cache
for faster startup. With --watch the route file is reloaded on change
without dropping in-flight requests.

Configuration is read from kamu.yaml (or --config), then KAMU_*
environment variables, then command flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigFile, "Config file")

	cmd.AddCommand(
		serveCmd(&configPath),
		routeCacheCmd(&configPath),
		routeClearCmd(&configPath),
		routeListCmd(&configPath),
		versionCmd(),
	)

	return cmd
}
