// Package render turns a DeploymentSpec into typed Kubernetes manifests.
// Rendering is pure: no I/O, no clock, identical input yields identical output.
package render

import (
	"bytes"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/yaml"

	"github.com/echoship/shipctl/internal/domain"
)

const (
	// managedByLabel marks objects created by this tool.
	managedByLabel = "app.kubernetes.io/managed-by"
	// managedByValue is the label value identifying shipctl-managed objects.
	managedByValue = "shipctl"
	// servicePort is the stable external port for ClusterIP and LoadBalancer
	// services; traffic is forwarded to the container port.
	servicePort = 80
)

// Manifests holds the ordered pair of objects rendered for one spec.
type Manifests struct {
	Deployment *appsv1.Deployment
	Service    *corev1.Service
}

// Render validates the spec and produces the Deployment and Service objects.
// A validation failure aborts before any object is constructed.
func Render(spec domain.DeploymentSpec) (Manifests, error) {
	if err := spec.Validate(); err != nil {
		return Manifests{}, err
	}

	selector := map[string]string{"app": spec.AppName}
	labels := map[string]string{
		"app":          spec.AppName,
		managedByLabel: managedByValue,
	}

	replicas := spec.Replicas
	deployment := &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   spec.AppName,
			Labels: labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: selector},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: selector},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:  spec.AppName,
							Image: spec.Image,
							Ports: []corev1.ContainerPort{
								{ContainerPort: spec.ContainerPort},
							},
						},
					},
				},
			},
		},
	}

	service := &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   spec.AppName,
			Labels: labels,
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceType(spec.ServiceType),
			Selector: selector,
			Ports:    []corev1.ServicePort{servicePortFor(spec)},
		},
	}

	return Manifests{Deployment: deployment, Service: service}, nil
}

// servicePortFor maps the container port to the externally exposed port.
// ClusterIP and LoadBalancer services expose the stable port 80; NodePort
// services keep the container port so the node port allocation stays obvious.
func servicePortFor(spec domain.DeploymentSpec) corev1.ServicePort {
	port := int32(servicePort)
	if spec.ServiceType == domain.ServiceTypeNodePort {
		port = spec.ContainerPort
	}
	return corev1.ServicePort{
		Port:       port,
		TargetPort: intstr.FromInt32(spec.ContainerPort),
	}
}

// MarshalYAML serializes the manifests as a multi-document YAML stream,
// Deployment first. The output is byte-identical across calls for the same
// spec, so it is safe to diff or commit.
func (m Manifests) MarshalYAML() ([]byte, error) {
	var buf bytes.Buffer

	depYAML, err := yaml.Marshal(m.Deployment)
	if err != nil {
		return nil, fmt.Errorf("marshal deployment: %w", err)
	}
	svcYAML, err := yaml.Marshal(m.Service)
	if err != nil {
		return nil, fmt.Errorf("marshal service: %w", err)
	}

	buf.Write(depYAML)
	buf.WriteString("---\n")
	buf.Write(svcYAML)
	return buf.Bytes(), nil
}
