package apply

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
)

// The applier only compares and writes the fields this tool manages. Anything
// the cluster or other controllers own (timestamps, resourceVersion,
// clusterIP, allocated node ports, injected sidecars' fields) is left intact,
// so applying over foreign changes never clobbers them.

// deploymentNeedsUpdate reports whether any managed Deployment field differs.
// Managed fields: replicas, container image and ports of the first container,
// and the labels this tool stamps on the object.
func deploymentNeedsUpdate(existing, desired *appsv1.Deployment) bool {
	if existing.Spec.Replicas == nil || desired.Spec.Replicas == nil {
		return true
	}
	if *existing.Spec.Replicas != *desired.Spec.Replicas {
		return true
	}
	if len(existing.Spec.Template.Spec.Containers) == 0 {
		return true
	}

	have := existing.Spec.Template.Spec.Containers[0]
	want := desired.Spec.Template.Spec.Containers[0]
	if have.Image != want.Image {
		return true
	}
	if !containerPortsEqual(have.Ports, want.Ports) {
		return true
	}
	return !labelsSubset(desired.Labels, existing.Labels)
}

// mergeDeployment writes the managed fields of desired into existing, leaving
// everything else untouched.
func mergeDeployment(existing, desired *appsv1.Deployment) {
	existing.Spec.Replicas = desired.Spec.Replicas
	if len(existing.Spec.Template.Spec.Containers) == 0 {
		existing.Spec.Template = desired.Spec.Template
	} else {
		existing.Spec.Template.Spec.Containers[0].Image = desired.Spec.Template.Spec.Containers[0].Image
		existing.Spec.Template.Spec.Containers[0].Ports = desired.Spec.Template.Spec.Containers[0].Ports
	}
	mergeLabels(&existing.ObjectMeta.Labels, desired.Labels)
}

// serviceNeedsUpdate reports whether any managed Service field differs.
// Managed fields: type, selector, port/targetPort pairs, and labels.
func serviceNeedsUpdate(existing, desired *corev1.Service) bool {
	if existing.Spec.Type != desired.Spec.Type {
		return true
	}
	if !stringMapsEqual(existing.Spec.Selector, desired.Spec.Selector) {
		return true
	}
	if !servicePortsEqual(existing.Spec.Ports, desired.Spec.Ports) {
		return true
	}
	return !labelsSubset(desired.Labels, existing.Labels)
}

// mergeService writes the managed fields of desired into existing. Allocated
// node ports carry over so an update does not reshuffle them, but only while
// the desired type still allocates node ports: the API server forbids a
// nodePort on a ClusterIP service, so a type downgrade must drop them.
func mergeService(existing, desired *corev1.Service) {
	existing.Spec.Type = desired.Spec.Type
	existing.Spec.Selector = desired.Spec.Selector

	ports := make([]corev1.ServicePort, len(desired.Spec.Ports))
	copy(ports, desired.Spec.Ports)
	if allocatesNodePorts(desired.Spec.Type) {
		for i := range ports {
			if ports[i].NodePort == 0 {
				for _, old := range existing.Spec.Ports {
					if old.Port == ports[i].Port {
						ports[i].NodePort = old.NodePort
						break
					}
				}
			}
		}
	} else {
		for i := range ports {
			ports[i].NodePort = 0
		}
	}
	existing.Spec.Ports = ports
	mergeLabels(&existing.ObjectMeta.Labels, desired.Labels)
}

func allocatesNodePorts(t corev1.ServiceType) bool {
	return t == corev1.ServiceTypeNodePort || t == corev1.ServiceTypeLoadBalancer
}

func containerPortsEqual(a, b []corev1.ContainerPort) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ContainerPort != b[i].ContainerPort || a[i].Protocol != b[i].Protocol {
			return false
		}
	}
	return true
}

// servicePortsEqual compares only the port and targetPort pairs; node ports
// and protocols defaulted by the API server are ignored.
func servicePortsEqual(a, b []corev1.ServicePort) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Port != b[i].Port || a[i].TargetPort != b[i].TargetPort {
			return false
		}
	}
	return true
}

func stringMapsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// labelsSubset reports whether every label in want is present in have.
func labelsSubset(want, have map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

func mergeLabels(dst *map[string]string, src map[string]string) {
	if *dst == nil {
		*dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		(*dst)[k] = v
	}
}
