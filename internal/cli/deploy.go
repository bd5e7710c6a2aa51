package cli

import (
	"github.com/spf13/cobra"

	"github.com/echoship/shipctl/internal/pipeline"
	"github.com/echoship/shipctl/internal/render"
)

// newDeployCommand creates the "deploy" subcommand running the full
// build, push, render, apply, poll pipeline.
func newDeployCommand(opts *Options) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Build, publish and roll out the application, then wait for health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			if dryRun {
				tag, err := imageTagFromSource(cfg)
				if err != nil {
					return err
				}
				spec, err := cfg.Spec(tag)
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
			}

			client, err := newClientset(cfg)
			if err != nil {
				return err
			}

			p := pipeline.New(
				newBuilder(cfg, logger),
				newPublisher(cfg, logger),
				newApplier(client, cfg, logger),
				newPoller(client, cfg, logger),
				logger,
			)

			res, err := p.Deploy(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			logger.Info("deployment healthy",
				"app", cfg.AppName,
				"image", res.Build.ImageTag,
				"digest", res.Build.Digest,
				"ready", res.Poll.Health.ReadyReplicas,
			)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Render manifests to stdout without building or applying")
	return cmd
}
