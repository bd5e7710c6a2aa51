package cli

import (
	"github.com/spf13/cobra"
)

// newDestroyCommand creates the "destroy" subcommand removing an application's
// cluster objects.
func newDestroyCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "destroy <name>",
		Short: "Delete the Deployment and Service for an application",
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

			return newApplier(client, cfg, logger).Delete(cmd.Context(), args[0])
		},
	}
}
