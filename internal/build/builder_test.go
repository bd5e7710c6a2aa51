package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/echoship/shipctl/internal/docker"
	"github.com/echoship/shipctl/internal/domain"
	"github.com/echoship/shipctl/internal/logging"
)

// fakeRunner records docker invocations and replays scripted results.
type fakeRunner struct {
	calls  [][]string
	fail   bool
	stderr string
}

func (f *fakeRunner) Run(_ context.Context, name string, args []string, _ io.Reader, _, stderr io.Writer) error {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.fail {
		fmt.Fprint(stderr, f.stderr)
		return errors.New("exit status 1")
	}
	return nil
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestFingerprintDeterministic(t *testing.T) {
	files := map[string]string{
		"Dockerfile":  "FROM python:3-alpine\n",
		"app/main.py": "print('hello')\n",
		"index.html":  "<h1>hi</h1>\n",
	}
	dirA := writeTree(t, files)
	dirB := writeTree(t, files)

	fpA, err := Fingerprint(dirA)
	if err != nil {
		t.Fatal(err)
	}
	fpA2, err := Fingerprint(dirA)
	if err != nil {
		t.Fatal(err)
	}
	fpB, err := Fingerprint(dirB)
	if err != nil {
		t.Fatal(err)
	}

	if fpA != fpA2 {
		t.Errorf("repeated walks differ: %s vs %s", fpA, fpA2)
	}
	if fpA != fpB {
		t.Errorf("identical trees differ: %s vs %s", fpA, fpB)
	}
}

func TestFingerprintChangesWithContent(t *testing.T) {
	dir := writeTree(t, map[string]string{"index.html": "v1"})
	before, err := Fingerprint(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	after, err := Fingerprint(dir)
	if err != nil {
		t.Fatal(err)
	}

	if before == after {
		t.Error("fingerprint unchanged after content edit")
	}
}

func TestFingerprintChangesWithRename(t *testing.T) {
	dirA := writeTree(t, map[string]string{"a.txt": "same"})
	dirB := writeTree(t, map[string]string{"b.txt": "same"})

	fpA, _ := Fingerprint(dirA)
	fpB, _ := Fingerprint(dirB)
	if fpA == fpB {
		t.Error("fingerprint identical across rename")
	}
}

func TestFingerprintIgnoresGitDir(t *testing.T) {
	dir := writeTree(t, map[string]string{"index.html": "hi"})
	before, _ := Fingerprint(dir)

	gitDir := filepath.Join(dir, ".git")
	if err := os.MkdirAll(gitDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte("ref: refs/heads/main"), 0o644); err != nil {
		t.Fatal(err)
	}
	after, _ := Fingerprint(dir)

	if before != after {
		t.Error(".git contents leaked into fingerprint")
	}
}

func TestBuildSuccess(t *testing.T) {
	dir := writeTree(t, map[string]string{"Dockerfile": "FROM scratch\n"})
	runner := &fakeRunner{}
	logger := logging.NewLogger(io.Discard, logging.LevelError)
	builder := NewBuilder(docker.NewClientWithRunner(runner, logger), logger)

	result, err := builder.Build(context.Background(), dir, "", "exampleapp")
	if err != nil {
		t.Fatalf("Build() = %v", err)
	}
	if !result.Success {
		t.Error("result.Success = false")
	}
	if !strings.HasPrefix(result.ImageTag, "exampleapp:") {
		t.Errorf("unexpected tag %q", result.ImageTag)
	}
	if tag := strings.TrimPrefix(result.ImageTag, "exampleapp:"); len(tag) != 12 {
		t.Errorf("tag %q is not a 12-char fingerprint prefix", tag)
	}
	if len(runner.calls) != 1 || runner.calls[0][1] != "build" {
		t.Errorf("unexpected docker calls: %v", runner.calls)
	}

	// Same tree builds the same tag.
	again, err := builder.Build(context.Background(), dir, "", "exampleapp")
	if err != nil {
		t.Fatal(err)
	}
	if again.ImageTag != result.ImageTag {
		t.Errorf("tag not reproducible: %q vs %q", again.ImageTag, result.ImageTag)
	}
}

// blockingRunner hangs until its context expires, like a wedged daemon.
type blockingRunner struct{}

func (blockingRunner) Run(ctx context.Context, _ string, _ []string, _ io.Reader, _, _ io.Writer) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestBuildTimesOutOnHungBackend(t *testing.T) {
	dir := writeTree(t, map[string]string{"Dockerfile": "FROM scratch\n"})
	logger := logging.NewLogger(io.Discard, logging.LevelError)
	builder := NewBuilder(docker.NewClientWithRunner(blockingRunner{}, logger), logger).
		WithTimeout(20 * time.Millisecond)

	start := time.Now()
	_, err := builder.Build(context.Background(), dir, "", "exampleapp")
	if !errors.Is(err, domain.ErrBuildFailure) {
		t.Fatalf("Build() err = %v, want ErrBuildFailure", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("build deadline not enforced, took %s", elapsed)
	}
}

func TestBuildFailureCarriesStderr(t *testing.T) {
	dir := writeTree(t, map[string]string{"Dockerfile": "FROM nowhere\n"})
	runner := &fakeRunner{fail: true, stderr: "step 1/2 failed\npull access denied\n"}
	logger := logging.NewLogger(io.Discard, logging.LevelError)
	builder := NewBuilder(docker.NewClientWithRunner(runner, logger), logger)

	result, err := builder.Build(context.Background(), dir, "", "exampleapp")
	if !errors.Is(err, domain.ErrBuildFailure) {
		t.Fatalf("Build() err = %v, want ErrBuildFailure", err)
	}
	if result.Success {
		t.Error("result.Success = true on failure")
	}
	if !strings.Contains(result.ErrorDetail, "pull access denied") {
		t.Errorf("ErrorDetail %q missing captured stderr", result.ErrorDetail)
	}
	if len(runner.calls) != 1 {
		t.Errorf("build was retried: %d calls", len(runner.calls))
	}
}
