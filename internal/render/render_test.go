package render

import (
	"bytes"
	"errors"
	"testing"

	"github.com/echoship/shipctl/internal/domain"
)

func exampleSpec() domain.DeploymentSpec {
	return domain.DeploymentSpec{
		AppName:       "exampleapp",
		Image:         "exampleapp:abc123",
		Replicas:      3,
		ContainerPort: 8000,
		ServiceType:   domain.ServiceTypeLoadBalancer,
	}
}

func TestRenderExampleApp(t *testing.T) {
	m, err := Render(exampleSpec())
	if err != nil {
		t.Fatalf("Render() = %v", err)
	}

	dep := m.Deployment
	if dep.Name != "exampleapp" {
		t.Errorf("deployment name = %q", dep.Name)
	}
	if *dep.Spec.Replicas != 3 {
		t.Errorf("replicas = %d, want 3", *dep.Spec.Replicas)
	}
	container := dep.Spec.Template.Spec.Containers[0]
	if container.Image != "exampleapp:abc123" {
		t.Errorf("image = %q", container.Image)
	}
	if container.Ports[0].ContainerPort != 8000 {
		t.Errorf("container port = %d", container.Ports[0].ContainerPort)
	}

	svc := m.Service
	if string(svc.Spec.Type) != "LoadBalancer" {
		t.Errorf("service type = %q", svc.Spec.Type)
	}
	port := svc.Spec.Ports[0]
	if port.Port != 80 {
		t.Errorf("service port = %d, want 80", port.Port)
	}
	if port.TargetPort.IntValue() != 8000 {
		t.Errorf("target port = %d, want 8000", port.TargetPort.IntValue())
	}
	if svc.Spec.Selector["app"] != "exampleapp" {
		t.Errorf("selector = %v", svc.Spec.Selector)
	}
}

func TestRenderSelectorMatchesTemplate(t *testing.T) {
	m, err := Render(exampleSpec())
	if err != nil {
		t.Fatal(err)
	}
	sel := m.Deployment.Spec.Selector.MatchLabels
	tmpl := m.Deployment.Spec.Template.Labels
	for k, v := range sel {
		if tmpl[k] != v {
			t.Errorf("template label %s=%q does not match selector %q", k, tmpl[k], v)
		}
	}
}

func TestRenderNodePortKeepsContainerPort(t *testing.T) {
	spec := exampleSpec()
	spec.ServiceType = domain.ServiceTypeNodePort

	m, err := Render(spec)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Service.Spec.Ports[0].Port; got != 8000 {
		t.Errorf("NodePort service port = %d, want 8000", got)
	}
}

func TestRenderDeterministic(t *testing.T) {
	first, err := Render(exampleSpec())
	if err != nil {
		t.Fatal(err)
	}
	second, err := Render(exampleSpec())
	if err != nil {
		t.Fatal(err)
	}

	a, err := first.MarshalYAML()
	if err != nil {
		t.Fatal(err)
	}
	b, err := second.MarshalYAML()
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(a, b) {
		t.Error("repeated renders are not byte-identical")
	}
	if !bytes.Contains(a, []byte("kind: Deployment")) || !bytes.Contains(a, []byte("kind: Service")) {
		t.Errorf("output missing expected documents:\n%s", a)
	}
}

func TestRenderInvalidSpecNoPartialOutput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.DeploymentSpec)
	}{
		{"zero replicas", func(s *domain.DeploymentSpec) { s.Replicas = 0 }},
		{"negative replicas", func(s *domain.DeploymentSpec) { s.Replicas = -1 }},
		{"port zero", func(s *domain.DeploymentSpec) { s.ContainerPort = 0 }},
		{"port beyond range", func(s *domain.DeploymentSpec) { s.ContainerPort = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := exampleSpec()
			tt.mutate(&spec)

			m, err := Render(spec)
			if !errors.Is(err, domain.ErrInvalidSpec) {
				t.Fatalf("Render() err = %v, want ErrInvalidSpec", err)
			}
			if m.Deployment != nil || m.Service != nil {
				t.Error("partial output produced for invalid spec")
			}
		})
	}
}
