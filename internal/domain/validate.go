package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// appNameRegex matches a valid DNS-1123 label: lowercase alphanumerics and
// hyphens, starting with a letter, at most 63 characters.
var appNameRegex = regexp.MustCompile(`^[a-z]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Validate checks the spec's structural constraints. It must pass before any
// manifest is rendered; a failing spec produces no partial output downstream.
func (s DeploymentSpec) Validate() error {
	if strings.TrimSpace(s.AppName) == "" {
		return fmt.Errorf("%w: appName is required", ErrInvalidSpec)
	}
	if !appNameRegex.MatchString(s.AppName) {
		return fmt.Errorf("%w: appName %q is not a valid DNS label", ErrInvalidSpec, s.AppName)
	}
	if strings.TrimSpace(s.Image) == "" {
		return fmt.Errorf("%w: image is required", ErrInvalidSpec)
	}
	if s.Replicas < 1 {
		return fmt.Errorf("%w: replicas must be at least 1, got %d", ErrInvalidSpec, s.Replicas)
	}
	if s.ContainerPort < 1 || s.ContainerPort > 65535 {
		return fmt.Errorf("%w: containerPort %d is outside [1,65535]", ErrInvalidSpec, s.ContainerPort)
	}
	switch s.ServiceType {
	case ServiceTypeClusterIP, ServiceTypeNodePort, ServiceTypeLoadBalancer:
	default:
		return fmt.Errorf("%w: unknown service type %q", ErrInvalidSpec, s.ServiceType)
	}
	return nil
}
