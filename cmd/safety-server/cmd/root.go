package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/safety-relay/internal/config"
	"github.com/oshokin/safety-relay/internal/service/server"
	"github.com/oshokin/safety-relay/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// httpAddress overrides the REST and websocket listen address.
	httpAddress string
	// grpcAddress overrides the gRPC listen address.
	grpcAddress string

	// rootCmd represents the base command for running the safety server.
	rootCmd = &cobra.Command{
		Use:   "safety-server",
		Short: "Run the personal-safety alert server.",
		Long: `Starts the safety server that stores alerts and relays live audio.

The REST API and the websocket relay share the HTTP listener; lifecycle actions
are also exposed over gRPC. Alerts are kept in SQLite or PostgreSQL and voice
recordings are archived to the uploads directory.
Listen addresses come from the configuration file unless overridden by flags.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &server.Options{
				ConfigPath:  configPath,
				HTTPAddress: httpAddress,
				GRPCAddress: grpcAddress,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the safety-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&httpAddress, "http-addr", "", "override the HTTP listen address")
	rootCmd.Flags().StringVar(&grpcAddress, "grpc-addr", "", "override the gRPC listen address")
}
