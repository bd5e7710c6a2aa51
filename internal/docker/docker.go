// Package docker wraps invocation of the docker binary used as the build and
// push backend.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"

	"github.com/echoship/shipctl/internal/logging"
)

// Runner executes an external command, wiring the given stdin and output
// writers. It exists so tests can substitute a fake backend.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes the command and waits for it to finish.
func (ExecRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// Client invokes docker subcommands with captured diagnostics.
type Client struct {
	runner Runner
	logger *slog.Logger
}

// NewClient constructs a Client using the real docker binary.
func NewClient(logger *slog.Logger) *Client {
	return NewClientWithRunner(ExecRunner{}, logger)
}

// NewClientWithRunner constructs a Client with a custom Runner.
func NewClientWithRunner(runner Runner, logger *slog.Logger) *Client {
	return &Client{runner: runner, logger: logger}
}

// digestRegex matches the digest docker push prints on success,
// e.g. "abc123: digest: sha256:deadbeef size: 528".
var digestRegex = regexp.MustCompile(`digest:\s*(sha256:[0-9a-f]+)`)

// Build runs docker build for the given context directory and tag.
// On failure the returned error carries the tail of stderr.
func (c *Client) Build(ctx context.Context, dir, dockerfile, tag string) error {
	args := []string{"build", "-t", tag}
	if dockerfile != "" {
		args = append(args, "-f", dockerfile)
	}
	args = append(args, dir)

	var stderr bytes.Buffer
	c.logger.Info("running docker build", "tag", tag, "dir", dir)
	if err := c.runner.Run(ctx, "docker", args, nil, logging.NewWriter(c.logger), &stderr); err != nil {
		return fmt.Errorf("docker build %q: %w: %s", tag, err, tailLines(stderr.String(), 20))
	}
	return nil
}

// Tag applies an additional tag to a local image.
func (c *Client) Tag(ctx context.Context, src, dst string) error {
	var stderr bytes.Buffer
	if err := c.runner.Run(ctx, "docker", []string{"tag", src, dst}, nil, io.Discard, &stderr); err != nil {
		return fmt.Errorf("docker tag %q %q: %w: %s", src, dst, err, tailLines(stderr.String(), 5))
	}
	return nil
}

// Push pushes a tagged image and returns the content digest the registry
// reports. Pushing an already-present digest succeeds like any other push.
func (c *Client) Push(ctx context.Context, ref string) (string, error) {
	var stdout, stderr bytes.Buffer
	c.logger.Info("running docker push", "ref", ref)
	if err := c.runner.Run(ctx, "docker", []string{"push", ref}, nil, &stdout, &stderr); err != nil {
		return "", fmt.Errorf("docker push %q: %w: %s", ref, err, tailLines(stderr.String(), 20))
	}
	if m := digestRegex.FindStringSubmatch(stdout.String()); m != nil {
		return m[1], nil
	}
	if m := digestRegex.FindStringSubmatch(stderr.String()); m != nil {
		return m[1], nil
	}
	// The push went through, only the digest line was missing.
	c.logger.Warn("docker push reported no digest", "ref", ref)
	return "", nil
}

// Login authenticates against a registry host. The password is passed on
// stdin rather than argv so it never shows up in the process list.
func (c *Client) Login(ctx context.Context, host, username, password string) error {
	var stderr bytes.Buffer
	args := []string{"login", host, "--username", username, "--password-stdin"}
	if err := c.runner.Run(ctx, "docker", args, strings.NewReader(password), io.Discard, &stderr); err != nil {
		return fmt.Errorf("docker login %q: %w: %s", host, err, tailLines(stderr.String(), 5))
	}
	return nil
}

// Version checks that the docker binary is present and responding.
func (c *Client) Version(ctx context.Context) error {
	if err := c.runner.Run(ctx, "docker", []string{"version", "--format", "{{.Client.Version}}"}, nil, io.Discard, io.Discard); err != nil {
		return fmt.Errorf("docker is not available: %w", err)
	}
	return nil
}

// tailLines returns at most n trailing non-empty lines of s as one string.
func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, strings.TrimRight(line, "\r"))
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, "\n")
}
