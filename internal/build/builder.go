// Package build produces local image artifacts with content-derived tags.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/echoship/shipctl/internal/docker"
	"github.com/echoship/shipctl/internal/domain"
)

const defaultBuildTimeout = 10 * time.Minute

// Builder turns a source directory into a tagged local image.
type Builder struct {
	docker  *docker.Client
	logger  *slog.Logger
	timeout time.Duration
}

// NewBuilder constructs a Builder on top of the given docker client.
func NewBuilder(client *docker.Client, logger *slog.Logger) *Builder {
	return &Builder{docker: client, logger: logger, timeout: defaultBuildTimeout}
}

// WithTimeout overrides the per-build deadline. Zero keeps the current value.
func (b *Builder) WithTimeout(d time.Duration) *Builder {
	if d > 0 {
		b.timeout = d
	}
	return b
}

// Build fingerprints dir, derives the image tag from the content hash and
// invokes the build backend under the configured deadline, so a hung backend
// cannot stall the pipeline. Build failures are deterministic for fixed
// inputs, so they are surfaced immediately and never retried.
func (b *Builder) Build(ctx context.Context, dir, dockerfile, imageName string) (domain.BuildResult, error) {
	fingerprint, err := Fingerprint(dir)
	if err != nil {
		return domain.BuildResult{}, fmt.Errorf("%w: %v", domain.ErrBuildFailure, err)
	}

	tag := fmt.Sprintf("%s:%s", imageName, ShortTag(fingerprint))
	b.logger.Info("building image", "tag", tag, "dir", dir)

	buildCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := b.docker.Build(buildCtx, dir, dockerfile, tag); err != nil {
		result := domain.BuildResult{
			ImageTag:    tag,
			Success:     false,
			ErrorDetail: err.Error(),
		}
		return result, fmt.Errorf("%w: %v", domain.ErrBuildFailure, err)
	}

	b.logger.Info("image built", "tag", tag)
	return domain.BuildResult{ImageTag: tag, Success: true}, nil
}
