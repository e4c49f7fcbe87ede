package docker_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deckhand/pkg/command"
	"deckhand/pkg/config"
	"deckhand/pkg/detector"
	"deckhand/pkg/docker"
)

type fakeRunner struct {
	commands []string
	respond  func(commandLine string) command.Result
}

func (f *fakeRunner) Run(_ context.Context, commandLine string, opts command.Options) command.Result {
	f.commands = append(f.commands, commandLine)
	if f.respond != nil {
		return f.respond(commandLine)
	}
	return command.Result{Success: true, Command: commandLine}
}

func testConfig() *config.ResolvedConfig {
	return &config.ResolvedConfig{
		App: config.AppSection{Name: "shop", Framework: detector.FrameworkAngular},
		Docker: config.DockerSection{
			Repository:  "testorg",
			Image:       "shop",
			Tag:         "v42",
			FullImage:   "testorg/shop:v42",
			LatestImage: "testorg/shop:latest",
		},
		Build: config.BuildSection{NodeVersion: "20", OutputDir: "dist/shop"},
	}
}

func TestGeneratedDockerfile(t *testing.T) {
	repo := t.TempDir()
	runner := &fakeRunner{}

	result := docker.NewRunner(runner, nil).Run(context.Background(), testConfig(), repo)
	if !result.Success {
		t.Fatalf("Container stage failed: %s", result.Error)
	}

	data, err := os.ReadFile(filepath.Join(repo, "Dockerfile"))
	if err != nil {
		t.Fatalf("Expected a generated Dockerfile: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "node:20") {
		t.Errorf("Dockerfile must use the configured node version:\n%s", content)
	}
	if !strings.Contains(content, "dist/shop") {
		t.Errorf("Dockerfile must copy from the build output dir:\n%s", content)
	}
	if !strings.Contains(content, "try_files") {
		t.Error("Angular Dockerfile must configure SPA fallback routing")
	}
}

func TestExistingDockerfileIsReused(t *testing.T) {
	repo := t.TempDir()
	original := "FROM scratch\n"
	if err := os.WriteFile(filepath.Join(repo, "Dockerfile"), []byte(original), 0644); err != nil {
		t.Fatalf("Failed to write Dockerfile: %v", err)
	}

	runner := &fakeRunner{}
	result := docker.NewRunner(runner, nil).Run(context.Background(), testConfig(), repo)
	if !result.Success {
		t.Fatalf("Container stage failed: %s", result.Error)
	}

	data, _ := os.ReadFile(filepath.Join(repo, "Dockerfile"))
	if string(data) != original {
		t.Error("Existing Dockerfile must not be overwritten")
	}
}

func TestCommandSequence(t *testing.T) {
	repo := t.TempDir()
	runner := &fakeRunner{respond: func(c string) command.Result {
		if strings.HasPrefix(c, "docker inspect") {
			return command.Result{Success: true, Stdout: `[{"Size": 52428800}]`, Command: c}
		}
		return command.Result{Success: true, Command: c}
	}}

	result := docker.NewRunner(runner, nil).Run(context.Background(), testConfig(), repo)
	if !result.Success {
		t.Fatalf("Container stage failed: %s", result.Error)
	}

	expectPrefixes := []string{
		"docker build -t testorg/shop:v42",
		"docker inspect testorg/shop:v42",
		"docker tag testorg/shop:v42 testorg/shop:latest",
		"docker push testorg/shop:v42",
		"docker push testorg/shop:latest",
	}
	if len(runner.commands) != len(expectPrefixes) {
		t.Fatalf("Unexpected command sequence: %v", runner.commands)
	}
	for i, prefix := range expectPrefixes {
		if !strings.HasPrefix(runner.commands[i], prefix) {
			t.Errorf("Command %d: expected prefix %q, got %q", i, prefix, runner.commands[i])
		}
	}

	if result.ImageInfo == nil || result.ImageInfo.Size != 52428800 {
		t.Errorf("Expected image size from docker inspect, got %+v", result.ImageInfo)
	}
}

func TestVersionedPushFailureFailsStage(t *testing.T) {
	repo := t.TempDir()
	runner := &fakeRunner{respond: func(c string) command.Result {
		if c == "docker push testorg/shop:v42" {
			return command.Result{Success: false, ExitCode: 1, Stderr: "denied", Command: c}
		}
		return command.Result{Success: true, Command: c}
	}}

	result := docker.NewRunner(runner, nil).Run(context.Background(), testConfig(), repo)

	if result.Success {
		t.Error("Failed versioned push must fail the stage")
	}
	if !strings.Contains(result.Error, "failed to push testorg/shop:v42") {
		t.Errorf("Unexpected error %q", result.Error)
	}
	for _, c := range runner.commands {
		if c == "docker push testorg/shop:latest" {
			t.Error("Latest push must not run after the versioned push fails")
		}
	}
}

func TestLatestPushFailureIsSoft(t *testing.T) {
	repo := t.TempDir()
	runner := &fakeRunner{respond: func(c string) command.Result {
		if c == "docker push testorg/shop:latest" {
			return command.Result{Success: false, ExitCode: 1, Stderr: "denied", Command: c}
		}
		return command.Result{Success: true, Command: c}
	}}

	result := docker.NewRunner(runner, nil).Run(context.Background(), testConfig(), repo)

	if !result.Success {
		t.Errorf("Failed latest push must not fail the stage: %s", result.Error)
	}
	if result.PushResults == nil || result.PushResults.Latest == nil || result.PushResults.Latest.Success {
		t.Error("The failed latest push must still be recorded")
	}
}

func TestMissingImageNameFailsEarly(t *testing.T) {
	cfg := testConfig()
	cfg.Docker.FullImage = ""

	runner := &fakeRunner{}
	result := docker.NewRunner(runner, nil).Run(context.Background(), cfg, t.TempDir())

	if result.Success {
		t.Error("Missing full image name must fail the stage")
	}
	if len(runner.commands) != 0 {
		t.Errorf("No docker commands must run without an image name: %v", runner.commands)
	}
}
