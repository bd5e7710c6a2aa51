// Package pipeline wires the build, publish, render, apply and poll stages
// into one failure-aware deployment flow.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/echoship/shipctl/internal/apply"
	"github.com/echoship/shipctl/internal/build"
	"github.com/echoship/shipctl/internal/config"
	"github.com/echoship/shipctl/internal/domain"
	"github.com/echoship/shipctl/internal/poll"
	"github.com/echoship/shipctl/internal/registry"
	"github.com/echoship/shipctl/internal/render"
)

// Stage identifies which pipeline stage produced an error.
type Stage string

const (
	// StageBuild covers image building.
	StageBuild Stage = "build"
	// StagePush covers publishing to the registry.
	StagePush Stage = "push"
	// StageRender covers spec validation and manifest rendering.
	StageRender Stage = "render"
	// StageApply covers submitting manifests to the cluster.
	StageApply Stage = "apply"
	// StagePoll covers waiting for the deployment to become healthy.
	StagePoll Stage = "poll"
)

// StageError wraps a stage failure so callers can report which stage halted
// the pipeline and classify the underlying kind with errors.Is.
type StageError struct {
	Stage Stage
	Err   error
}

// Error formats the failure with its stage name.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Pipeline executes deployment stages sequentially; each stage is gated on
// the success of the previous one.
type Pipeline struct {
	builder   *build.Builder
	publisher *registry.Publisher
	applier   *apply.Applier
	poller    *poll.Poller
	logger    *slog.Logger
}

// New constructs a Pipeline from its stage implementations.
func New(builder *build.Builder, publisher *registry.Publisher, applier *apply.Applier, poller *poll.Poller, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		builder:   builder,
		publisher: publisher,
		applier:   applier,
		poller:    poller,
		logger:    logger,
	}
}

// DeployResult aggregates the per-stage results of one deploy invocation.
type DeployResult struct {
	Build    domain.BuildResult
	Push     registry.PushResult
	Outcomes []domain.ApplyOutcome
	Poll     poll.Result
}

// Deploy runs build, push, render, apply and poll in order, halting at the
// first unrecovered failure. The returned DeployResult holds whatever stages
// completed before the halt.
func (p *Pipeline) Deploy(ctx context.Context, cfg config.Config) (DeployResult, error) {
	var res DeployResult

	buildResult, err := p.builder.Build(ctx, cfg.SourceDir, cfg.Dockerfile, cfg.ImageName())
	res.Build = buildResult
	if err != nil {
		return res, &StageError{Stage: StageBuild, Err: err}
	}

	if err := p.publisher.Login(ctx, cfg.Credentials()); err != nil {
		return res, &StageError{Stage: StagePush, Err: err}
	}
	pushResult, err := p.publisher.Publish(ctx, buildResult)
	res.Push = pushResult
	if err != nil {
		return res, &StageError{Stage: StagePush, Err: err}
	}
	res.Build.Digest = pushResult.Digest

	spec, err := cfg.Spec(buildResult.ImageTag)
	if err != nil {
		return res, &StageError{Stage: StageRender, Err: err}
	}
	manifests, err := render.Render(spec)
	if err != nil {
		return res, &StageError{Stage: StageRender, Err: err}
	}

	outcomes, err := p.applier.Apply(ctx, manifests)
	res.Outcomes = outcomes
	if err != nil {
		return res, &StageError{Stage: StageApply, Err: err}
	}

	res.Poll = p.poller.Wait(ctx, spec.AppName)
	if res.Poll.State != poll.StateHealthy {
		return res, &StageError{Stage: StagePoll, Err: res.Poll.Err}
	}

	p.logger.Info("deploy complete",
		"app", spec.AppName,
		"image", buildResult.ImageTag,
		"replicas", spec.Replicas,
	)
	return res, nil
}
