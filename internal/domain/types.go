// Package domain defines the core types shared by the shipctl pipeline stages.
package domain

import (
	"fmt"
	"time"
)

// ServiceType selects how the rendered Service is exposed.
type ServiceType string

const (
	// ServiceTypeClusterIP exposes the service on a cluster-internal IP.
	ServiceTypeClusterIP ServiceType = "ClusterIP"
	// ServiceTypeNodePort exposes the service on each node's IP at a static port.
	ServiceTypeNodePort ServiceType = "NodePort"
	// ServiceTypeLoadBalancer exposes the service through an external load balancer.
	ServiceTypeLoadBalancer ServiceType = "LoadBalancer"
)

// ParseServiceType converts a textual service type into a ServiceType value.
func ParseServiceType(value string) (ServiceType, error) {
	switch ServiceType(value) {
	case ServiceTypeClusterIP, ServiceTypeNodePort, ServiceTypeLoadBalancer:
		return ServiceType(value), nil
	case "":
		return ServiceTypeClusterIP, nil
	}
	return "", fmt.Errorf("%w: unknown service type %q", ErrInvalidSpec, value)
}

// DeploymentSpec describes the desired state of a single application deployment.
// It is immutable once an apply cycle starts: stages receive it by value.
type DeploymentSpec struct {
	// AppName names the Deployment and Service and seeds their labels.
	AppName string
	// Image is the full image reference to run (registry/name:tag).
	Image string
	// Replicas is the desired pod count, at least 1.
	Replicas int32
	// ContainerPort is the port the container listens on (1-65535).
	ContainerPort int32
	// ServiceType controls Service exposure.
	ServiceType ServiceType
}

// BuildResult carries the outcome of an image build, consumed by the publisher.
type BuildResult struct {
	// ImageTag is the full tagged reference produced by the build.
	ImageTag string
	// Digest is the content digest reported by the registry after a push,
	// empty until the image has been published.
	Digest string
	// Success reports whether the build backend exited cleanly.
	Success bool
	// ErrorDetail holds the tail of the build backend's stderr on failure.
	ErrorDetail string
}

// ObjectKind identifies which manifest object an apply outcome refers to.
type ObjectKind string

const (
	// KindDeployment marks an outcome for the Deployment object.
	KindDeployment ObjectKind = "Deployment"
	// KindService marks an outcome for the Service object.
	KindService ObjectKind = "Service"
)

// ApplyAction describes what the applier did to a single object.
type ApplyAction string

const (
	// ActionCreated means the object did not exist and was created.
	ActionCreated ApplyAction = "Created"
	// ActionUpdated means the object existed and its managed fields changed.
	ActionUpdated ApplyAction = "Updated"
	// ActionUnchanged means the object existed and already matched the desired state.
	ActionUnchanged ApplyAction = "Unchanged"
)

// ApplyOutcome records the per-object result of one apply pass.
type ApplyOutcome struct {
	Kind   ObjectKind
	Action ApplyAction
	Err    error
}

// HealthStatus is a point-in-time view of deployment health. It is recomputed
// on every poll and never persisted.
type HealthStatus struct {
	DesiredReplicas int32
	ReadyReplicas   int32
	Healthy         bool
	LastChecked     time.Time
}

// NewHealthStatus builds a HealthStatus enforcing the ready<=desired invariant
// and deriving Healthy from the replica counts.
func NewHealthStatus(desired, ready int32, at time.Time) HealthStatus {
	if ready > desired {
		ready = desired
	}
	return HealthStatus{
		DesiredReplicas: desired,
		ReadyReplicas:   ready,
		Healthy:         ready == desired,
		LastChecked:     at,
	}
}
