package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/echoship/shipctl/internal/docker"
	"github.com/echoship/shipctl/internal/kube"
)

// newDoctorCommand creates the "doctor" subcommand verifying that the build
// backend and the cluster are reachable before a deploy is attempted.
func newDoctorCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that docker and the cluster API are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			failed := false

			if err := docker.NewClient(logger).Version(ctx); err != nil {
				failed = true
				fmt.Fprintf(cmd.OutOrStdout(), "docker: FAIL (%v)\n", err)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "docker: ok")
			}

			if client, err := kube.NewClientset(cfg.Kubeconfig, cfg.Context); err != nil {
				failed = true
				fmt.Fprintf(cmd.OutOrStdout(), "cluster: FAIL (%v)\n", err)
			} else if _, err := client.Discovery().ServerVersion(); err != nil {
				failed = true
				fmt.Fprintf(cmd.OutOrStdout(), "cluster: FAIL (%v)\n", err)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "cluster: ok")
			}

			if failed {
				return fmt.Errorf("environment checks failed")
			}
			return nil
		},
	}
}
