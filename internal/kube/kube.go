// Package kube constructs the Kubernetes API client used by the applier and
// poller. The cluster is always selected explicitly through configuration;
// there is no ambient kubectl context.
package kube

import (
	"fmt"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// NewClientset builds a typed clientset from an explicit kubeconfig path, or
// from the in-cluster service account when the path is empty.
func NewClientset(kubeconfigPath, contextName string) (kubernetes.Interface, error) {
	cfg, err := buildConfig(kubeconfigPath, contextName)
	if err != nil {
		return nil, fmt.Errorf("build cluster config: %w", err)
	}

	cs, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create clientset: %w", err)
	}
	return cs, nil
}

func buildConfig(kubeconfigPath, contextName string) (*rest.Config, error) {
	if kubeconfigPath == "" && contextName == "" {
		if cfg, err := rest.InClusterConfig(); err == nil {
			return cfg, nil
		}
		// Outside a cluster, fall through to the default kubeconfig chain.
	}

	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		rules.ExplicitPath = kubeconfigPath
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: contextName}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
}
