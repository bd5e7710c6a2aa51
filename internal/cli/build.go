package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newBuildCommand creates the "build" subcommand that builds the image with a
// content-derived tag.
func newBuildCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the application image with a content-derived tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			result, err := newBuilder(cfg, logger).Build(cmd.Context(), cfg.SourceDir, cfg.Dockerfile, cfg.ImageName())
			if err != nil {
				return err
			}

			// The tag goes to stdout so scripts can capture it.
			fmt.Fprintln(cmd.OutOrStdout(), result.ImageTag)
			return nil
		},
	}
}
