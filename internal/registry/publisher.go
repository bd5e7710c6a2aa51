// Package registry publishes built images to a container registry with
// retry-on-transient-failure semantics.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/echoship/shipctl/internal/docker"
	"github.com/echoship/shipctl/internal/domain"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	defaultMaxDelay    = 30 * time.Second
	defaultPushTimeout = 2 * time.Minute
)

// PushResult reports a successful publish: the content digest the registry
// returned and how many attempts it took.
type PushResult struct {
	Digest   string
	Attempts int
}

// Credentials holds registry login data supplied via configuration. Empty
// credentials mean the ambient docker credential store is used as-is.
type Credentials struct {
	Host     string
	Username string
	Password string
}

// Publisher pushes tagged images, retrying transient network and auth errors
// with exponential backoff.
type Publisher struct {
	docker      *docker.Client
	logger      *slog.Logger
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	pushTimeout time.Duration
}

// NewPublisher constructs a Publisher with default retry settings
// (3 attempts, 1s base delay, doubling).
func NewPublisher(client *docker.Client, logger *slog.Logger) *Publisher {
	return &Publisher{
		docker:      client,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
		pushTimeout: defaultPushTimeout,
	}
}

// WithTimeout overrides the per-attempt push deadline. A push that exceeds it
// counts as a failed attempt and is retried like any other transient failure.
// Zero keeps the current value.
func (p *Publisher) WithTimeout(d time.Duration) *Publisher {
	if d > 0 {
		p.pushTimeout = d
	}
	return p
}

// WithRetry overrides the retry policy. Used by tests to avoid real delays.
func (p *Publisher) WithRetry(maxAttempts int, baseDelay, maxDelay time.Duration) *Publisher {
	if maxAttempts > 0 {
		p.maxAttempts = maxAttempts
	}
	if baseDelay > 0 {
		p.baseDelay = baseDelay
	}
	if maxDelay > 0 {
		p.maxDelay = maxDelay
	}
	return p
}

// Login authenticates against the registry when explicit credentials are
// configured. A zero Credentials value is a no-op.
func (p *Publisher) Login(ctx context.Context, creds Credentials) error {
	if creds.Username == "" {
		return nil
	}
	loginCtx, cancel := context.WithTimeout(ctx, p.pushTimeout)
	defer cancel()
	if err := p.docker.Login(loginCtx, creds.Host, creds.Username, creds.Password); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPublishFailure, err)
	}
	return nil
}

// Publish pushes the image reference from the build result. Re-pushing an
// identical digest is a registry-side no-op and reported as success. When all
// attempts fail the last error is surfaced wrapped in ErrPublishFailure.
func (p *Publisher) Publish(ctx context.Context, result domain.BuildResult) (PushResult, error) {
	if !result.Success || result.ImageTag == "" {
		return PushResult{}, fmt.Errorf("%w: no successful build to publish", domain.ErrPublishFailure)
	}

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		digest, err := p.push(ctx, result.ImageTag)
		if err == nil {
			p.logger.Info("image published", "ref", result.ImageTag, "digest", digest, "attempts", attempt)
			return PushResult{Digest: digest, Attempts: attempt}, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return PushResult{Attempts: attempt}, fmt.Errorf("%w: push %q: %v", domain.ErrCancelled, result.ImageTag, ctx.Err())
		}
		if attempt == p.maxAttempts {
			break
		}

		delay := p.backoff(attempt)
		p.logger.Warn("push failed, retrying", "ref", result.ImageTag, "attempt", attempt, "delay", delay, "error", err)
		if err := sleep(ctx, delay); err != nil {
			return PushResult{Attempts: attempt}, fmt.Errorf("%w: push %q: %v", domain.ErrCancelled, result.ImageTag, err)
		}
	}

	return PushResult{Attempts: p.maxAttempts}, fmt.Errorf("%w: push %q after %d attempts: %v",
		domain.ErrPublishFailure, result.ImageTag, p.maxAttempts, lastErr)
}

// push runs one docker push under the per-attempt deadline.
func (p *Publisher) push(ctx context.Context, ref string) (string, error) {
	pushCtx, cancel := context.WithTimeout(ctx, p.pushTimeout)
	defer cancel()
	return p.docker.Push(pushCtx, ref)
}

// backoff returns the delay before the next attempt: baseDelay doubled per
// completed attempt, capped at maxDelay.
func (p *Publisher) backoff(attempt int) time.Duration {
	delay := p.baseDelay << (attempt - 1)
	if delay > p.maxDelay || delay <= 0 {
		delay = p.maxDelay
	}
	return delay
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
