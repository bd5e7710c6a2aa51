package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	fakeclient "k8s.io/client-go/kubernetes/fake"

	"github.com/echoship/shipctl/internal/apply"
	"github.com/echoship/shipctl/internal/build"
	"github.com/echoship/shipctl/internal/config"
	"github.com/echoship/shipctl/internal/docker"
	"github.com/echoship/shipctl/internal/domain"
	"github.com/echoship/shipctl/internal/logging"
	"github.com/echoship/shipctl/internal/poll"
	"github.com/echoship/shipctl/internal/registry"
)

// scriptedRunner fakes the docker binary: build and push both succeed unless
// told otherwise, and push prints a digest line.
type scriptedRunner struct {
	failBuild bool
	failPush  bool
	commands  []string
}

func (s *scriptedRunner) Run(_ context.Context, _ string, args []string, _ io.Reader, stdout, stderr io.Writer) error {
	s.commands = append(s.commands, args[0])
	switch args[0] {
	case "build":
		if s.failBuild {
			fmt.Fprintln(stderr, "no such base image")
			return errors.New("exit status 1")
		}
	case "push":
		if s.failPush {
			fmt.Fprintln(stderr, "connection reset by peer")
			return errors.New("exit status 1")
		}
		fmt.Fprintln(stdout, "abc: digest: sha256:cafe1234cafe1234cafe1234cafe1234cafe1234cafe1234cafe1234cafe1234 size: 100")
	}
	return nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM python:3-alpine\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "shipctl.yaml")
	content := fmt.Sprintf("appName: exampleapp\nsourceDir: %s\nreplicas: 2\ncontainerPort: 8000\nserviceType: LoadBalancer\ntimeoutSeconds: 2\npollIntervalSeconds: 1\n", dir)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func newTestPipeline(runner docker.Runner, client *fakeclient.Clientset) *Pipeline {
	logger := logging.NewLogger(io.Discard, logging.LevelError)
	dockerClient := docker.NewClientWithRunner(runner, logger)
	return New(
		build.NewBuilder(dockerClient, logger),
		registry.NewPublisher(dockerClient, logger).WithRetry(3, time.Millisecond, 10*time.Millisecond),
		apply.NewApplier(client, "default", logger),
		poll.NewPoller(client, "default", logger).WithPolicy(5*time.Millisecond, time.Second, 3),
		logger,
	)
}

// markReadyWhenCreated simulates the cluster controller: once the deployment
// exists it reports every desired replica as ready.
func markReadyWhenCreated(t *testing.T, client *fakeclient.Clientset, name string) {
	t.Helper()
	go func() {
		deployments := client.AppsV1().Deployments("default")
		for i := 0; i < 200; i++ {
			dep, err := deployments.Get(context.Background(), name, metav1.GetOptions{})
			if err == nil {
				dep.Status.ReadyReplicas = *dep.Spec.Replicas
				if _, err := deployments.UpdateStatus(context.Background(), dep, metav1.UpdateOptions{}); err == nil {
					return
				}
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()
}

func TestDeployHappyPath(t *testing.T) {
	runner := &scriptedRunner{}
	client := fakeclient.NewSimpleClientset()
	p := newTestPipeline(runner, client)
	markReadyWhenCreated(t, client, "exampleapp")

	res, err := p.Deploy(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("Deploy() = %v", err)
	}
	if !res.Build.Success {
		t.Error("build result not successful")
	}
	if res.Build.Digest == "" {
		t.Error("digest not propagated from push")
	}
	if res.Push.Attempts != 1 {
		t.Errorf("push attempts = %d, want 1", res.Push.Attempts)
	}
	if len(res.Outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(res.Outcomes))
	}
	for _, o := range res.Outcomes {
		if o.Action != domain.ActionCreated {
			t.Errorf("%s action = %s, want Created", o.Kind, o.Action)
		}
	}
	if res.Poll.State != poll.StateHealthy {
		t.Errorf("poll state = %s, want Healthy", res.Poll.State)
	}
}

func TestDeployHaltsAtBuildFailure(t *testing.T) {
	runner := &scriptedRunner{failBuild: true}
	client := fakeclient.NewSimpleClientset()
	p := newTestPipeline(runner, client)

	_, err := p.Deploy(context.Background(), testConfig(t))

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("err = %v, want StageError", err)
	}
	if stageErr.Stage != StageBuild {
		t.Errorf("stage = %s, want build", stageErr.Stage)
	}
	if !errors.Is(err, domain.ErrBuildFailure) {
		t.Errorf("err = %v, want ErrBuildFailure", err)
	}

	// Nothing past the build ran: no push, no cluster objects.
	for _, cmd := range runner.commands {
		if cmd == "push" {
			t.Error("push ran after failed build")
		}
	}
	if _, err := client.AppsV1().Deployments("default").Get(context.Background(), "exampleapp", metav1.GetOptions{}); err == nil {
		t.Error("deployment created despite failed build")
	}
}

func TestDeployHaltsAtPushFailure(t *testing.T) {
	runner := &scriptedRunner{failPush: true}
	client := fakeclient.NewSimpleClientset()
	p := newTestPipeline(runner, client)

	_, err := p.Deploy(context.Background(), testConfig(t))

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("err = %v, want StageError", err)
	}
	if stageErr.Stage != StagePush {
		t.Errorf("stage = %s, want push", stageErr.Stage)
	}
	if !errors.Is(err, domain.ErrPublishFailure) {
		t.Errorf("err = %v, want ErrPublishFailure", err)
	}

	pushes := 0
	for _, cmd := range runner.commands {
		if cmd == "push" {
			pushes++
		}
	}
	if pushes != 3 {
		t.Errorf("push attempts = %d, want 3 before giving up", pushes)
	}
}

func TestDeployReportsPollTimeout(t *testing.T) {
	runner := &scriptedRunner{}
	client := fakeclient.NewSimpleClientset()
	p := newTestPipeline(runner, client)
	// No controller marks replicas ready, so the poll must time out.

	res, err := p.Deploy(context.Background(), testConfig(t))

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("err = %v, want StageError", err)
	}
	if stageErr.Stage != StagePoll {
		t.Errorf("stage = %s, want poll", stageErr.Stage)
	}
	if !errors.Is(err, domain.ErrPollTimeout) {
		t.Errorf("err = %v, want ErrPollTimeout", err)
	}
	if res.Poll.State != poll.StateTimedOut {
		t.Errorf("poll state = %s, want TimedOut", res.Poll.State)
	}
	// The apply itself succeeded before the poll gave up.
	if len(res.Outcomes) != 2 {
		t.Errorf("outcomes = %d, want 2", len(res.Outcomes))
	}
}
