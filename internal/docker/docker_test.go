package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/echoship/shipctl/internal/logging"
)

// scriptedRunner writes canned stdout/stderr for every invocation.
type scriptedRunner struct {
	stdout string
	stderr string
}

func (s scriptedRunner) Run(_ context.Context, _ string, _ []string, _ io.Reader, stdout, stderr io.Writer) error {
	fmt.Fprint(stdout, s.stdout)
	fmt.Fprint(stderr, s.stderr)
	return nil
}

func TestPushParsesDigest(t *testing.T) {
	runner := scriptedRunner{
		stdout: "The push refers to repository [registry.local/exampleapp]\n" +
			"abc123: digest: sha256:4355a46b19d348dc2f57c046f8ef63d4538ebb936000f3c9ee954a27460dd865 size: 528\n",
	}
	logger := logging.NewLogger(io.Discard, logging.LevelError)
	client := NewClientWithRunner(runner, logger)

	digest, err := client.Push(context.Background(), "registry.local/exampleapp:abc123")
	if err != nil {
		t.Fatalf("Push() = %v", err)
	}
	if digest != "sha256:4355a46b19d348dc2f57c046f8ef63d4538ebb936000f3c9ee954a27460dd865" {
		t.Errorf("unexpected digest %q", digest)
	}
}

// A successful push whose output carries no digest line is still a success,
// but the missing digest is called out instead of passing silently.
func TestPushWithoutDigestWarns(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.NewLogger(&logs, logging.LevelWarn)
	client := NewClientWithRunner(scriptedRunner{stdout: "Pushed\n"}, logger)

	digest, err := client.Push(context.Background(), "registry.local/exampleapp:abc123")
	if err != nil {
		t.Fatalf("Push() = %v", err)
	}
	if digest != "" {
		t.Errorf("digest = %q, want empty", digest)
	}
	if !strings.Contains(logs.String(), "no digest") {
		t.Errorf("missing digest was not logged:\n%s", logs.String())
	}
}
