package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newStatusCommand creates the "status" subcommand reporting current health.
func newStatusCommand(opts *Options) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "status <name>",
		Short: "Show deployment health for an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := LoggerFromContext(cmd.Context())

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			client, err := newClientset(cfg)
			if err != nil {
				return err
			}
			poller := newPoller(client, cfg, logger)

			if wait {
				res := poller.Wait(cmd.Context(), args[0])
				if res.Err != nil {
					return res.Err
				}
				printHealth(cmd, args[0], res.Health.ReadyReplicas, res.Health.DesiredReplicas, res.Health.Healthy)
				return nil
			}

			health, err := poller.ReadHealth(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printHealth(cmd, args[0], health.ReadyReplicas, health.DesiredReplicas, health.Healthy)
			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the deployment is healthy or the deadline elapses")
	return cmd
}

func printHealth(cmd *cobra.Command, name string, ready, desired int32, healthy bool) {
	state := "unhealthy"
	if healthy {
		state = "healthy"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/%d ready (%s)\n", name, ready, desired, state)
}
