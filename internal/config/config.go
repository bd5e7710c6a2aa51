// Package config contains the loader and strongly typed model for shipctl.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	envparse "github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/echoship/shipctl/internal/domain"
	"github.com/echoship/shipctl/internal/env"
	"github.com/echoship/shipctl/internal/registry"
)

// DefaultPath is the default location of the configuration file.
const DefaultPath = "shipctl.yaml"

// Config is the merged configuration for one shipctl invocation. Values come
// from built-in defaults, then shipctl.yaml, then .env files it references,
// then SHIPCTL_* environment variables; later sources win. Nothing here is
// ever hardcoded into rendered manifests except through an explicit spec.
type Config struct {
	// AppName names the application and its cluster objects.
	AppName string `yaml:"appName"`
	// SourceDir is the build context directory.
	SourceDir string `yaml:"sourceDir,omitempty"`
	// Dockerfile overrides the Dockerfile path inside SourceDir.
	Dockerfile string `yaml:"dockerfile,omitempty"`
	// Registry is the target registry host images are pushed to. Empty means
	// the image is tagged bare and pushed to the docker default.
	Registry string `yaml:"registry,omitempty"`
	// Namespace is the cluster namespace objects live in.
	Namespace string `yaml:"namespace,omitempty"`
	// Replicas is the default desired replica count.
	Replicas int32 `yaml:"replicas,omitempty"`
	// ContainerPort is the port the container listens on.
	ContainerPort int32 `yaml:"containerPort,omitempty"`
	// ServiceType selects Service exposure (ClusterIP, NodePort, LoadBalancer).
	ServiceType string `yaml:"serviceType,omitempty"`
	// TimeoutSeconds bounds the post-apply health poll.
	TimeoutSeconds int `yaml:"timeoutSeconds,omitempty"`
	// PollIntervalSeconds is the poll tick interval.
	PollIntervalSeconds int `yaml:"pollIntervalSeconds,omitempty"`
	// BuildTimeoutSeconds bounds one docker build invocation.
	BuildTimeoutSeconds int `yaml:"buildTimeoutSeconds,omitempty"`
	// PushTimeoutSeconds bounds each docker push attempt.
	PushTimeoutSeconds int `yaml:"pushTimeoutSeconds,omitempty"`
	// Kubeconfig is an explicit kubeconfig path; empty selects in-cluster
	// config or the default kubeconfig chain.
	Kubeconfig string `yaml:"kubeconfig,omitempty"`
	// Context selects a kubeconfig context by name.
	Context string `yaml:"context,omitempty"`
	// EnvFiles lists .env files (relative to the config file) loaded before
	// environment overrides are applied.
	EnvFiles []string `yaml:"envFiles,omitempty"`

	// RegistryUsername and RegistryPassword authenticate pushes. They are
	// accepted only from the environment, never from the config file.
	RegistryUsername string `yaml:"-"`
	RegistryPassword string `yaml:"-"`
}

// overrides mirrors Config for the SHIPCTL_* environment variables.
type overrides struct {
	AppName             string `env:"SHIPCTL_APP"`
	SourceDir           string `env:"SHIPCTL_SOURCE_DIR"`
	Dockerfile          string `env:"SHIPCTL_DOCKERFILE"`
	Registry            string `env:"SHIPCTL_REGISTRY"`
	Namespace           string `env:"SHIPCTL_NAMESPACE"`
	Replicas            int32  `env:"SHIPCTL_REPLICAS"`
	ContainerPort       int32  `env:"SHIPCTL_CONTAINER_PORT"`
	ServiceType         string `env:"SHIPCTL_SERVICE_TYPE"`
	TimeoutSeconds      int    `env:"SHIPCTL_TIMEOUT_SECONDS"`
	PollIntervalSeconds int    `env:"SHIPCTL_POLL_INTERVAL_SECONDS"`
	BuildTimeoutSeconds int    `env:"SHIPCTL_BUILD_TIMEOUT_SECONDS"`
	PushTimeoutSeconds  int    `env:"SHIPCTL_PUSH_TIMEOUT_SECONDS"`
	Kubeconfig          string `env:"SHIPCTL_KUBECONFIG"`
	Context             string `env:"SHIPCTL_CONTEXT"`
	RegistryUsername    string `env:"SHIPCTL_REGISTRY_USERNAME"`
	RegistryPassword    string `env:"SHIPCTL_REGISTRY_PASSWORD"`
}

// defaults returns the built-in configuration baseline.
func defaults() Config {
	return Config{
		SourceDir:           ".",
		Namespace:           "default",
		Replicas:            1,
		ContainerPort:       8000,
		ServiceType:         string(domain.ServiceTypeClusterIP),
		TimeoutSeconds:      120,
		PollIntervalSeconds: 2,
		BuildTimeoutSeconds: 600,
		PushTimeoutSeconds:  120,
	}
}

// Load reads the config file at path and layers .env files and SHIPCTL_*
// variables on top of the built-in defaults. A missing file is only an error
// when path points somewhere other than the default location.
func Load(path string) (Config, error) {
	cfg := defaults()

	baseDir := "."
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %q: %w", path, err)
		}
		baseDir = filepath.Dir(path)
	case os.IsNotExist(err) && path == DefaultPath:
		// No config file; defaults plus environment still make a usable config.
	default:
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}

	fileVars, err := env.LoadEnvFiles(baseDir, cfg.EnvFiles)
	if err != nil {
		return Config{}, err
	}
	merged := env.Merge(fileVars, env.FromOS())

	var ov overrides
	if err := envparse.ParseWithOptions(&ov, envparse.Options{Environment: map[string]string(merged)}); err != nil {
		return Config{}, fmt.Errorf("parse environment overrides: %w", err)
	}
	applyOverrides(&cfg, ov)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyOverrides(cfg *Config, ov overrides) {
	if ov.AppName != "" {
		cfg.AppName = ov.AppName
	}
	if ov.SourceDir != "" {
		cfg.SourceDir = ov.SourceDir
	}
	if ov.Dockerfile != "" {
		cfg.Dockerfile = ov.Dockerfile
	}
	if ov.Registry != "" {
		cfg.Registry = ov.Registry
	}
	if ov.Namespace != "" {
		cfg.Namespace = ov.Namespace
	}
	if ov.Replicas > 0 {
		cfg.Replicas = ov.Replicas
	}
	if ov.ContainerPort > 0 {
		cfg.ContainerPort = ov.ContainerPort
	}
	if ov.ServiceType != "" {
		cfg.ServiceType = ov.ServiceType
	}
	if ov.TimeoutSeconds > 0 {
		cfg.TimeoutSeconds = ov.TimeoutSeconds
	}
	if ov.PollIntervalSeconds > 0 {
		cfg.PollIntervalSeconds = ov.PollIntervalSeconds
	}
	if ov.BuildTimeoutSeconds > 0 {
		cfg.BuildTimeoutSeconds = ov.BuildTimeoutSeconds
	}
	if ov.PushTimeoutSeconds > 0 {
		cfg.PushTimeoutSeconds = ov.PushTimeoutSeconds
	}
	if ov.Kubeconfig != "" {
		cfg.Kubeconfig = ov.Kubeconfig
	}
	if ov.Context != "" {
		cfg.Context = ov.Context
	}
	if ov.RegistryUsername != "" {
		cfg.RegistryUsername = ov.RegistryUsername
	}
	if ov.RegistryPassword != "" {
		cfg.RegistryPassword = ov.RegistryPassword
	}
}

func (c Config) validate() error {
	if c.TimeoutSeconds < 1 {
		return fmt.Errorf("%w: timeoutSeconds must be positive, got %d", domain.ErrInvalidSpec, c.TimeoutSeconds)
	}
	if c.PollIntervalSeconds < 1 {
		return fmt.Errorf("%w: pollIntervalSeconds must be positive, got %d", domain.ErrInvalidSpec, c.PollIntervalSeconds)
	}
	if c.BuildTimeoutSeconds < 1 {
		return fmt.Errorf("%w: buildTimeoutSeconds must be positive, got %d", domain.ErrInvalidSpec, c.BuildTimeoutSeconds)
	}
	if c.PushTimeoutSeconds < 1 {
		return fmt.Errorf("%w: pushTimeoutSeconds must be positive, got %d", domain.ErrInvalidSpec, c.PushTimeoutSeconds)
	}
	if _, err := domain.ParseServiceType(c.ServiceType); err != nil {
		return err
	}
	return nil
}

// Timeout returns the poll deadline as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PollInterval returns the poll tick interval as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// BuildTimeout returns the docker build deadline as a duration.
func (c Config) BuildTimeout() time.Duration {
	return time.Duration(c.BuildTimeoutSeconds) * time.Second
}

// PushTimeout returns the per-attempt docker push deadline as a duration.
func (c Config) PushTimeout() time.Duration {
	return time.Duration(c.PushTimeoutSeconds) * time.Second
}

// ImageName returns the untagged image name, prefixed with the registry host
// when one is configured.
func (c Config) ImageName() string {
	if c.Registry == "" {
		return c.AppName
	}
	return c.Registry + "/" + c.AppName
}

// Credentials returns the registry credentials supplied via environment.
func (c Config) Credentials() registry.Credentials {
	return registry.Credentials{
		Host:     c.Registry,
		Username: c.RegistryUsername,
		Password: c.RegistryPassword,
	}
}

// Spec assembles the DeploymentSpec for the given image reference.
func (c Config) Spec(image string) (domain.DeploymentSpec, error) {
	serviceType, err := domain.ParseServiceType(c.ServiceType)
	if err != nil {
		return domain.DeploymentSpec{}, err
	}
	spec := domain.DeploymentSpec{
		AppName:       c.AppName,
		Image:         image,
		Replicas:      c.Replicas,
		ContainerPort: c.ContainerPort,
		ServiceType:   serviceType,
	}
	if err := spec.Validate(); err != nil {
		return domain.DeploymentSpec{}, err
	}
	return spec, nil
}
