package cli

import (
	"fmt"
	"log/slog"

	"k8s.io/client-go/kubernetes"

	"github.com/echoship/shipctl/internal/apply"
	"github.com/echoship/shipctl/internal/build"
	"github.com/echoship/shipctl/internal/config"
	"github.com/echoship/shipctl/internal/docker"
	"github.com/echoship/shipctl/internal/domain"
	"github.com/echoship/shipctl/internal/kube"
	"github.com/echoship/shipctl/internal/poll"
	"github.com/echoship/shipctl/internal/registry"
)

// loadConfig reads the configuration and applies the global namespace override.
func loadConfig(opts *Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Namespace != "" {
		cfg.Namespace = opts.Namespace
	}
	return cfg, nil
}

// newClientset connects to the cluster selected by the configuration.
func newClientset(cfg config.Config) (kubernetes.Interface, error) {
	client, err := kube.NewClientset(cfg.Kubeconfig, cfg.Context)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrClusterUnreachable, err)
	}
	return client, nil
}

// newBuilder wires a Builder against the real docker binary, bounded by the
// configured build deadline.
func newBuilder(cfg config.Config, logger *slog.Logger) *build.Builder {
	return build.NewBuilder(docker.NewClient(logger), logger).
		WithTimeout(cfg.BuildTimeout())
}

// newPublisher wires a Publisher against the real docker binary, bounded by
// the configured per-attempt push deadline.
func newPublisher(cfg config.Config, logger *slog.Logger) *registry.Publisher {
	return registry.NewPublisher(docker.NewClient(logger), logger).
		WithTimeout(cfg.PushTimeout())
}

// newApplier wires an Applier for the configured namespace.
func newApplier(client kubernetes.Interface, cfg config.Config, logger *slog.Logger) *apply.Applier {
	return apply.NewApplier(client, cfg.Namespace, logger)
}

// newPoller wires a Poller with the configured tick and deadline.
func newPoller(client kubernetes.Interface, cfg config.Config, logger *slog.Logger) *poll.Poller {
	return poll.NewPoller(client, cfg.Namespace, logger).
		WithPolicy(cfg.PollInterval(), cfg.Timeout(), 0)
}

// imageTagFromSource derives the content-addressed image tag without building.
// build and deploy produce the same tag for the same tree, so commands that
// only need the reference can compute it cheaply.
func imageTagFromSource(cfg config.Config) (string, error) {
	fingerprint, err := build.Fingerprint(cfg.SourceDir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrBuildFailure, err)
	}
	return fmt.Sprintf("%s:%s", cfg.ImageName(), build.ShortTag(fingerprint)), nil
}
