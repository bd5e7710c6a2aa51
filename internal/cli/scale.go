package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/echoship/shipctl/internal/domain"
)

// newScaleCommand creates the "scale" subcommand adjusting the replica count
// of a deployed application.
func newScaleCommand(opts *Options) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "scale <name> <replicas>",
		Short: "Set the replica count of a deployed application",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := LoggerFromContext(cmd.Context())

			replicas, err := strconv.ParseInt(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("%w: replicas %q is not a number", domain.ErrInvalidSpec, args[1])
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			client, err := newClientset(cfg)
			if err != nil {
				return err
			}

			if err := newApplier(client, cfg, logger).Scale(cmd.Context(), args[0], int32(replicas)); err != nil {
				return err
			}

			if wait {
				res := newPoller(client, cfg, logger).Wait(cmd.Context(), args[0])
				if res.Err != nil {
					return res.Err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the new replica count is healthy")
	return cmd
}
