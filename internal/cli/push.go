package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/echoship/shipctl/internal/domain"
)

// newPushCommand creates the "push" subcommand that publishes the previously
// built image to the configured registry.
func newPushCommand(opts *Options) *cobra.Command {
	var image string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push the built image to the configured registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			ref := image
			if ref == "" {
				// The tag is content-derived, so it can be recomputed from the
				// source tree without rebuilding.
				ref, err = imageTagFromSource(cfg)
				if err != nil {
					return err
				}
			}

			publisher := newPublisher(cfg, logger)
			if err := publisher.Login(cmd.Context(), cfg.Credentials()); err != nil {
				return err
			}
			result, err := publisher.Publish(cmd.Context(), domain.BuildResult{ImageTag: ref, Success: true})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Digest)
			return nil
		},
	}

	cmd.Flags().StringVar(&image, "image", "", "Image reference to push (default: recomputed from sourceDir)")
	return cmd
}
