package cli

import (
	envparse "github.com/caarlos0/env/v11"

	"github.com/echoship/shipctl/internal/logging"
)

// baseEnv defines root CLI defaults sourced from SHIPCTL_* env vars. Flags
// still win; these only seed the defaults shown in --help and used when a
// flag is not passed.
type baseEnv struct {
	// ConfigPath is the shipctl.yaml path from SHIPCTL_CONFIG.
	ConfigPath string `env:"SHIPCTL_CONFIG"`
	// Namespace is the namespace override from SHIPCTL_NAMESPACE.
	Namespace string `env:"SHIPCTL_NAMESPACE"`
	// LogLevel is the logging level from SHIPCTL_LOG_LEVEL.
	LogLevel string `env:"SHIPCTL_LOG_LEVEL"`
}

// applyBaseEnv seeds root options from the environment before flag parsing.
func applyBaseEnv(opts *Options) {
	var e baseEnv
	if err := envparse.Parse(&e); err != nil {
		return
	}
	if e.ConfigPath != "" {
		opts.ConfigPath = e.ConfigPath
	}
	if e.Namespace != "" {
		opts.Namespace = e.Namespace
	}
	if e.LogLevel != "" {
		opts.LogLevel = logging.ParseLevel(e.LogLevel)
	}
}
