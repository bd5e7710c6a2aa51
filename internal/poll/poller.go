// Package poll watches deployment health until it settles in a terminal state.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/echoship/shipctl/internal/domain"
)

// State is the poller's observable state. Polling is the only non-terminal
// state; every other state stops the loop.
type State string

const (
	// StatePolling means the poller is still waiting for health.
	StatePolling State = "Polling"
	// StateHealthy means every desired replica reported ready in time.
	StateHealthy State = "Healthy"
	// StateTimedOut means the deadline elapsed before the deployment healed.
	StateTimedOut State = "TimedOut"
	// StateFailed means the status query itself kept failing.
	StateFailed State = "Failed"
	// StateCancelled means an external cancellation aborted the loop. It is
	// deliberately distinct from TimedOut.
	StateCancelled State = "Cancelled"
)

const (
	defaultInterval         = 2 * time.Second
	defaultDeadline         = 120 * time.Second
	defaultMaxQueryFailures = 3
)

// Result is the terminal outcome of one Wait call.
type Result struct {
	State  State
	Health domain.HealthStatus
	Err    error
}

// Poller repeatedly reads deployment status on a fixed tick.
type Poller struct {
	client    kubernetes.Interface
	namespace string
	logger    *slog.Logger

	interval         time.Duration
	deadline         time.Duration
	maxQueryFailures int
}

// NewPoller constructs a Poller with the default 2s tick and 120s deadline.
func NewPoller(client kubernetes.Interface, namespace string, logger *slog.Logger) *Poller {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	return &Poller{
		client:           client,
		namespace:        namespace,
		logger:           logger,
		interval:         defaultInterval,
		deadline:         defaultDeadline,
		maxQueryFailures: defaultMaxQueryFailures,
	}
}

// WithPolicy overrides tick interval, overall deadline and the consecutive
// query failure budget. Zero values keep the current setting.
func (p *Poller) WithPolicy(interval, deadline time.Duration, maxQueryFailures int) *Poller {
	if interval > 0 {
		p.interval = interval
	}
	if deadline > 0 {
		p.deadline = deadline
	}
	if maxQueryFailures > 0 {
		p.maxQueryFailures = maxQueryFailures
	}
	return p
}

// ReadHealth performs a single status read without entering the poll loop.
func (p *Poller) ReadHealth(ctx context.Context, name string) (domain.HealthStatus, error) {
	dep, err := p.client.AppsV1().Deployments(p.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return domain.HealthStatus{}, fmt.Errorf("get deployment %q: %w", name, err)
	}
	desired := int32(0)
	if dep.Spec.Replicas != nil {
		desired = *dep.Spec.Replicas
	}
	return domain.NewHealthStatus(desired, dep.Status.ReadyReplicas, time.Now()), nil
}

// Wait polls until the deployment is healthy, the deadline elapses, queries
// fail maxQueryFailures times in a row, or the parent context is cancelled.
// The wait between ticks is a cooperative suspension, never a busy loop.
func (p *Poller) Wait(parent context.Context, name string) Result {
	ctx, cancel := context.WithTimeout(parent, p.deadline)
	defer cancel()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var last domain.HealthStatus
	failures := 0

	for {
		health, err := p.ReadHealth(ctx, name)
		switch {
		case err != nil && ctx.Err() != nil:
			// The query failed because the loop is shutting down; fall
			// through to the terminal-state selection below.
		case err != nil:
			failures++
			p.logger.Warn("status query failed", "name", name, "failures", failures, "error", err)
			if failures >= p.maxQueryFailures {
				return Result{
					State:  StateFailed,
					Health: last,
					Err:    fmt.Errorf("%w: %d consecutive status queries failed: %v", domain.ErrPollFailed, failures, err),
				}
			}
		default:
			failures = 0
			last = health
			p.logger.Debug("poll tick", "name", name, "ready", health.ReadyReplicas, "desired", health.DesiredReplicas)
			if health.Healthy {
				p.logger.Info("deployment healthy", "name", name, "replicas", health.DesiredReplicas)
				return Result{State: StateHealthy, Health: health}
			}
		}

		select {
		case <-ctx.Done():
			return p.terminal(parent, name, last)
		case <-ticker.C:
		}
	}
}

// terminal distinguishes external cancellation from the poll deadline.
func (p *Poller) terminal(parent context.Context, name string, last domain.HealthStatus) Result {
	if parent.Err() != nil {
		return Result{
			State:  StateCancelled,
			Health: last,
			Err:    fmt.Errorf("%w: polling %q: %v", domain.ErrCancelled, name, parent.Err()),
		}
	}
	return Result{
		State:  StateTimedOut,
		Health: last,
		Err: fmt.Errorf("%w: %q not healthy after %s (%d/%d ready)",
			domain.ErrPollTimeout, name, p.deadline, last.ReadyReplicas, last.DesiredReplicas),
	}
}

// IsTerminalError reports whether err came from a terminal poll state.
func IsTerminalError(err error) bool {
	return errors.Is(err, domain.ErrPollTimeout) ||
		errors.Is(err, domain.ErrPollFailed) ||
		errors.Is(err, domain.ErrCancelled)
}
