package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/safety-relay/internal/config"
	"github.com/oshokin/safety-relay/internal/domain/alert"
	"github.com/oshokin/safety-relay/internal/service/checker"
	"github.com/oshokin/safety-relay/internal/service/client"
	"github.com/oshokin/safety-relay/internal/service/common"
	"github.com/oshokin/safety-relay/internal/version"
)

var (
	// options are shared by every subcommand.
	options client.Options
	// payload carries action arguments.
	payload alert.Payload
	// wait keeps retrying an action while the server is unreachable.
	wait bool
	// filter narrows the list command.
	filter common.ListFilter
	// until and pollInterval drive the wait command.
	until        string
	pollInterval time.Duration

	// rootCmd represents the base command for operating a safety server.
	rootCmd = &cobra.Command{
		Use:   "safetyctl",
		Short: "Operate a safety server from the command line.",
		Long: `Inspects and advances alerts on a safety server over gRPC.

Every call carries a bearer token. Pass one with --token, or let safetyctl mint
one for --subject and --role from the signing secret in the configuration file.`,
		SilenceUsage: true,
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for --subject and --role.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.IssueToken(cmd.Context(), &options)
		},
	}

	actionCmd = &cobra.Command{
		Use:   "action <alert-id> <assign|acknowledge|in-progress|resolved|escalate>",
		Short: "Apply a lifecycle action to an alert.",
		Args:  cobra.ExactArgs(2), //nolint:mnd // Alert id and action.
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.Apply(cmd.Context(), &options, &client.ActionOptions{
				AlertID: args[0],
				Action:  alert.Action(args[1]),
				Payload: payload,
				Wait:    wait,
			})
		},
	}

	getCmd = &cobra.Command{
		Use:   "get <alert-id>",
		Short: "Print one alert.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.Get(cmd.Context(), &options, args[0])
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List alerts, optionally by reporter, jurisdiction or officer.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.List(cmd.Context(), &options, filter)
		},
	}

	waitCmd = &cobra.Command{
		Use:   "wait <alert-id>",
		Short: "Poll an alert until it reaches a status, resolved by default.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.Wait(cmd.Context(), &options, checker.Options{
				AlertID:      args[0],
				Until:        alert.Status(until),
				PollInterval: pollInterval,
			})
		},
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Follow live-status events published to Redis.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.Watch(cmd.Context(), &options)
		},
	}
)

// Execute runs the safetyctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&options.ServerAddress, "server", "s", "", "override the gRPC server address")
	flags.StringVar(&options.Token, "token", "", "bearer token to send")
	flags.StringVar(&options.Subject, "subject", "", "principal id of a minted token")
	flags.StringVar(&options.Role, "role", string(alert.RolePolice), "principal role of a minted token")

	actionFlags := actionCmd.Flags()
	actionFlags.StringVar(&payload.OfficerID, "officer", "", "assignee on assign, defaults to the caller")
	actionFlags.StringVar(&payload.Station, "station", "", "station recorded on assign")
	actionFlags.StringVar(&payload.Badge, "badge", "", "badge recorded on assign")
	actionFlags.StringVar(&payload.Jurisdiction, "jurisdiction", "", "jurisdiction recorded on assign")
	actionFlags.StringVar(&payload.Reason, "reason", "", "reason recorded on escalate")
	actionFlags.BoolVarP(&wait, "wait", "w", false, "retry while the server is unreachable")

	listFlags := listCmd.Flags()
	listFlags.StringVar(&filter.ReporterID, "reporter", "", "only alerts raised by this reporter")
	listFlags.StringVar(&filter.Jurisdiction, "jurisdiction", "", `only alerts in this jurisdiction, "all" for any`)
	listFlags.StringVar(&filter.OfficerID, "officer", "", "only alerts assigned to this officer")

	waitFlags := waitCmd.Flags()
	waitFlags.StringVar(&until, "until", string(alert.StatusResolved), "status that ends the wait")
	waitFlags.DurationVar(&pollInterval, "interval", checker.DefaultPollInterval, "delay between checks")

	rootCmd.AddCommand(tokenCmd, actionCmd, getCmd, listCmd, waitCmd, watchCmd)
}
