// Package apply submits rendered manifests to the cluster, diffing desired
// state against what already exists so unchanged objects are left alone.
package apply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/echoship/shipctl/internal/domain"
	"github.com/echoship/shipctl/internal/render"
)

// Applier performs read-modify-write applies of Deployment and Service
// objects against a single namespace.
type Applier struct {
	client    kubernetes.Interface
	namespace string
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewApplier constructs an Applier bound to a namespace.
func NewApplier(client kubernetes.Interface, namespace string, logger *slog.Logger) *Applier {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	return &Applier{
		client:    client,
		namespace: namespace,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing operations on one named object.
// Distinct objects apply concurrently; same-name operations never race.
func (a *Applier) lockFor(kind domain.ObjectKind, name string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := string(kind) + "/" + name
	if _, ok := a.locks[key]; !ok {
		a.locks[key] = &sync.Mutex{}
	}
	return a.locks[key]
}

// Apply submits both manifest objects. The Deployment and Service share no
// mutable state, so they are applied concurrently. Outcomes are returned in
// manifest order (Deployment, Service) together with the first error.
func (a *Applier) Apply(ctx context.Context, m render.Manifests) ([]domain.ApplyOutcome, error) {
	var wg sync.WaitGroup
	outcomes := make([]domain.ApplyOutcome, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		outcomes[0] = a.ApplyDeployment(ctx, m.Deployment)
	}()
	go func() {
		defer wg.Done()
		outcomes[1] = a.ApplyService(ctx, m.Service)
	}()
	wg.Wait()

	for _, o := range outcomes {
		if o.Err != nil {
			return outcomes, o.Err
		}
		a.logger.Info("object applied", "kind", o.Kind, "action", o.Action)
	}
	return outcomes, nil
}

// ApplyDeployment creates or updates a single Deployment. Conflicts trigger
// exactly one fresh-read retry before surfacing ApplyConflict.
func (a *Applier) ApplyDeployment(ctx context.Context, desired *appsv1.Deployment) domain.ApplyOutcome {
	lock := a.lockFor(domain.KindDeployment, desired.Name)
	lock.Lock()
	defer lock.Unlock()

	action, err := a.applyDeploymentOnce(ctx, desired)
	if apierrors.IsConflict(err) || apierrors.IsAlreadyExists(err) {
		action, err = a.applyDeploymentOnce(ctx, desired)
	}
	return outcome(domain.KindDeployment, desired.Name, action, err)
}

func (a *Applier) applyDeploymentOnce(ctx context.Context, desired *appsv1.Deployment) (domain.ApplyAction, error) {
	deployments := a.client.AppsV1().Deployments(a.namespace)

	existing, err := deployments.Get(ctx, desired.Name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		_, err = deployments.Create(ctx, desired, metav1.CreateOptions{})
		return domain.ActionCreated, err
	}
	if err != nil {
		return "", err
	}

	if !deploymentNeedsUpdate(existing, desired) {
		return domain.ActionUnchanged, nil
	}

	mergeDeployment(existing, desired)
	_, err = deployments.Update(ctx, existing, metav1.UpdateOptions{})
	return domain.ActionUpdated, err
}

// ApplyService creates or updates a single Service, preserving
// cluster-assigned fields such as clusterIP and allocated node ports.
func (a *Applier) ApplyService(ctx context.Context, desired *corev1.Service) domain.ApplyOutcome {
	lock := a.lockFor(domain.KindService, desired.Name)
	lock.Lock()
	defer lock.Unlock()

	action, err := a.applyServiceOnce(ctx, desired)
	if apierrors.IsConflict(err) || apierrors.IsAlreadyExists(err) {
		action, err = a.applyServiceOnce(ctx, desired)
	}
	return outcome(domain.KindService, desired.Name, action, err)
}

func (a *Applier) applyServiceOnce(ctx context.Context, desired *corev1.Service) (domain.ApplyAction, error) {
	services := a.client.CoreV1().Services(a.namespace)

	existing, err := services.Get(ctx, desired.Name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		_, err = services.Create(ctx, desired, metav1.CreateOptions{})
		return domain.ActionCreated, err
	}
	if err != nil {
		return "", err
	}

	if !serviceNeedsUpdate(existing, desired) {
		return domain.ActionUnchanged, nil
	}

	mergeService(existing, desired)
	_, err = services.Update(ctx, existing, metav1.UpdateOptions{})
	return domain.ActionUpdated, err
}

// Scale sets the replica count of an existing managed Deployment through the
// same conflict-retry path as apply.
func (a *Applier) Scale(ctx context.Context, name string, replicas int32) error {
	if replicas < 1 {
		return fmt.Errorf("%w: replicas must be at least 1, got %d", domain.ErrInvalidSpec, replicas)
	}

	lock := a.lockFor(domain.KindDeployment, name)
	lock.Lock()
	defer lock.Unlock()

	err := a.scaleOnce(ctx, name, replicas)
	if apierrors.IsConflict(err) {
		err = a.scaleOnce(ctx, name, replicas)
	}
	if err != nil {
		return classify(fmt.Errorf("scale %q to %d: %w", name, replicas, err), err)
	}
	a.logger.Info("deployment scaled", "name", name, "replicas", replicas)
	return nil
}

func (a *Applier) scaleOnce(ctx context.Context, name string, replicas int32) error {
	deployments := a.client.AppsV1().Deployments(a.namespace)
	existing, err := deployments.Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return err
	}
	if existing.Spec.Replicas != nil && *existing.Spec.Replicas == replicas {
		return nil
	}
	existing.Spec.Replicas = &replicas
	_, err = deployments.Update(ctx, existing, metav1.UpdateOptions{})
	return err
}

// Delete removes the Deployment and Service pair for an application.
// Objects that are already gone are not an error.
func (a *Applier) Delete(ctx context.Context, name string) error {
	if err := a.client.AppsV1().Deployments(a.namespace).Delete(ctx, name, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
		return classify(fmt.Errorf("delete deployment %q: %w", name, err), err)
	}
	if err := a.client.CoreV1().Services(a.namespace).Delete(ctx, name, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
		return classify(fmt.Errorf("delete service %q: %w", name, err), err)
	}
	a.logger.Info("objects deleted", "name", name, "namespace", a.namespace)
	return nil
}

// outcome wraps the per-object result, classifying the error kind.
func outcome(kind domain.ObjectKind, name string, action domain.ApplyAction, err error) domain.ApplyOutcome {
	if err == nil {
		return domain.ApplyOutcome{Kind: kind, Action: action}
	}
	wrapped := classify(fmt.Errorf("apply %s %q: %w", kind, name, err), err)
	return domain.ApplyOutcome{Kind: kind, Err: wrapped}
}

// classify maps a raw cluster error onto the failure taxonomy: conflicts that
// survived their retry become ApplyConflict, cancellations stay cancellations,
// typed API errors pass through, and transport-level failures become
// ClusterUnreachable.
func classify(wrapped, raw error) error {
	if apierrors.IsConflict(raw) || apierrors.IsAlreadyExists(raw) {
		return fmt.Errorf("%w: %v", domain.ErrApplyConflict, wrapped)
	}
	if errors.Is(raw, context.Canceled) || errors.Is(raw, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrCancelled, wrapped)
	}
	var status apierrors.APIStatus
	if errors.As(raw, &status) {
		// The API server answered; the typed error stands on its own.
		return wrapped
	}
	return fmt.Errorf("%w: %v", domain.ErrClusterUnreachable, wrapped)
}
