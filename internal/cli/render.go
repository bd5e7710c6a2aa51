package cli

import (
	"github.com/spf13/cobra"

	"github.com/echoship/shipctl/internal/render"
)

// newRenderCommand creates the "render" subcommand that prints the manifests
// for the configured spec without touching the cluster.
func newRenderCommand(opts *Options) *cobra.Command {
	var image string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render Deployment and Service manifests to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			ref := image
			if ref == "" {
				ref, err = imageTagFromSource(cfg)
				if err != nil {
					return err
				}
			}

			spec, err := cfg.Spec(ref)
			if err != nil {
				return err
			}
			manifests, err := render.Render(spec)
			if err != nil {
				return err
			}
			out, err := manifests.MarshalYAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVar(&image, "image", "", "Image reference to render (default: recomputed from sourceDir)")
	return cmd
}
