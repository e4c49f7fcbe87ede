package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"deckhand/pkg/build"
	"deckhand/pkg/config"
	"deckhand/pkg/deploy"
	"deckhand/pkg/detector"
	"deckhand/pkg/docker"
	"deckhand/pkg/pipeline"
)

type fakeBuilder struct {
	called bool
	result *build.Result
}

func (f *fakeBuilder) Run(_ context.Context, _ *config.ResolvedConfig, _ string) *build.Result {
	f.called = true
	return f.result
}

type fakeContainerizer struct {
	called bool
	config *config.ResolvedConfig
	result *docker.Result
}

func (f *fakeContainerizer) Run(_ context.Context, cfg *config.ResolvedConfig, _ string) *docker.Result {
	f.called = true
	f.config = cfg
	return f.result
}

type fakeDeployer struct {
	called bool
	result *deploy.Result
}

func (f *fakeDeployer) Run(_ context.Context, _ *config.ResolvedConfig) *deploy.Result {
	f.called = true
	return f.result
}

func createRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	repo := t.TempDir()
	for path, content := range files {
		full := filepath.Join(repo, path)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("Failed to create dir for %s: %v", path, err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
	return repo
}

func angularRepo(t *testing.T) string {
	return createRepo(t, map[string]string{
		"angular.json": "{}",
		"package.json": `{
			"name": "@acme/web_shop",
			"dependencies": {"@angular/core": "^17.0.0", "@angular/cli": "^17.0.0"},
			"scripts": {"build": "ng build", "build:prod": "ng build --configuration production"}
		}`,
		"src/main.ts": "bootstrap()",
	})
}

func newOrchestrator(t *testing.T, opts pipeline.Options) *pipeline.Orchestrator {
	t.Helper()
	if opts.FrameworkRoot == "" {
		opts.FrameworkRoot = filepath.Join(t.TempDir(), "framework")
	}
	if opts.Env == nil {
		opts.Env = func(string) string { return "" }
	}
	return pipeline.New(opts)
}

func TestAnalyzeOnly(t *testing.T) {
	orch := newOrchestrator(t, pipeline.Options{})

	result := orch.AnalyzeOnly(angularRepo(t))
	if !result.Success {
		t.Fatalf("Analysis failed: %s", result.Error)
	}

	if result.Framework != detector.FrameworkAngular {
		t.Errorf("Expected angular, got %q", result.Framework)
	}
	if result.Config == nil {
		t.Fatal("Expected resolved config")
	}
	if result.Config.App.Name != "acme-web-shop" {
		t.Errorf("Expected cleaned package name, got %q", result.Config.App.Name)
	}
	if result.Config.BuildStrategy == nil || result.Config.BuildStrategy.Command != "npm run build:prod" {
		t.Errorf("Expected build strategy in config, got %+v", result.Config.BuildStrategy)
	}
	if result.Config.Docker.FullImage == "" {
		t.Error("Expected a fully resolved image name")
	}
}

func TestAnalyzeMissingRepository(t *testing.T) {
	orch := newOrchestrator(t, pipeline.Options{})

	result := orch.AnalyzeOnly(filepath.Join(t.TempDir(), "missing"))
	if result.Success {
		t.Error("Analysis of a missing repository must fail")
	}
	if result.Error == "" {
		t.Error("Expected an error message")
	}
}

func resolvedConfig(t *testing.T) *config.ResolvedConfig {
	t.Helper()
	orch := newOrchestrator(t, pipeline.Options{})
	analysis := orch.AnalyzeOnly(angularRepo(t))
	if !analysis.Success {
		t.Fatalf("Analysis failed: %s", analysis.Error)
	}
	return analysis.Config
}

func TestProcessRepositoryFailFast(t *testing.T) {
	builder := &fakeBuilder{result: &build.Result{Success: false, Error: "compile error"}}
	containerizer := &fakeContainerizer{result: &docker.Result{Success: true}}

	orch := newOrchestrator(t, pipeline.Options{
		Builder:       builder,
		Containerizer: containerizer,
	})

	result := orch.ProcessRepository(context.Background(), resolvedConfig(t), t.TempDir())

	if result.Success {
		t.Error("A failed build must fail the pipeline")
	}
	if result.Stage != pipeline.StateBuilding {
		t.Errorf("Expected failure at %s, got %s", pipeline.StateBuilding, result.Stage)
	}
	if !builder.called {
		t.Error("Builder must run")
	}
	if containerizer.called {
		t.Error("Containerizer must not run after a failed build")
	}
}

func TestProcessRepositoryPassesOutputDir(t *testing.T) {
	builder := &fakeBuilder{result: &build.Result{
		Success:   true,
		Artifacts: &build.ArtifactsInfo{OutputDir: "dist/acme-web-shop"},
	}}
	containerizer := &fakeContainerizer{result: &docker.Result{Success: true}}

	orch := newOrchestrator(t, pipeline.Options{
		Builder:       builder,
		Containerizer: containerizer,
	})

	cfg := resolvedConfig(t)
	result := orch.ProcessRepository(context.Background(), cfg, t.TempDir())

	if !result.Success {
		t.Fatalf("Pipeline failed: %s", result.Error)
	}
	if result.Stage != pipeline.StateDone {
		t.Errorf("Expected %s, got %s", pipeline.StateDone, result.Stage)
	}
	if containerizer.config == nil || containerizer.config.Build.OutputDir != "dist/acme-web-shop" {
		t.Errorf("Container stage must see the actual output dir, got %+v", containerizer.config)
	}
	if cfg.Build.OutputDir == "dist/acme-web-shop" {
		t.Error("The input config must not be mutated")
	}
}

func TestProcessRepositoryRefusesInvalidConfig(t *testing.T) {
	builder := &fakeBuilder{result: &build.Result{Success: true}}

	orch := newOrchestrator(t, pipeline.Options{Builder: builder})

	cfg := resolvedConfig(t)
	cfg.Validation = &config.Validation{
		Errors: []string{"app.name is required"},
		Valid:  false,
	}

	result := orch.ProcessRepository(context.Background(), cfg, t.TempDir())

	if result.Success {
		t.Error("Invalid config must be refused")
	}
	if result.Stage != pipeline.StateValidating {
		t.Errorf("Expected refusal at %s, got %s", pipeline.StateValidating, result.Stage)
	}
	if builder.called {
		t.Error("No stage must run with an invalid config")
	}
}

func TestProcessRepositoryRequiresImageName(t *testing.T) {
	builder := &fakeBuilder{result: &build.Result{Success: true}}
	orch := newOrchestrator(t, pipeline.Options{Builder: builder})

	cfg := resolvedConfig(t)
	cfg.Docker.FullImage = ""

	result := orch.ProcessRepository(context.Background(), cfg, t.TempDir())

	if result.Success || builder.called {
		t.Error("A config without an image name must be refused before any stage runs")
	}
}

func TestFullPipelineWithDeploy(t *testing.T) {
	builder := &fakeBuilder{result: &build.Result{Success: true}}
	containerizer := &fakeContainerizer{result: &docker.Result{Success: true}}
	deployer := &fakeDeployer{result: &deploy.Result{Success: true}}

	orch := newOrchestrator(t, pipeline.Options{
		Builder:       builder,
		Containerizer: containerizer,
		Deployer:      deployer,
	})

	result := orch.FullPipeline(context.Background(), angularRepo(t), true)

	if !result.Success {
		t.Fatalf("Pipeline failed at %s: %s", result.Stage, result.Error)
	}
	if !deployer.called {
		t.Error("Deploy stage must run when requested")
	}
	if result.Stage != pipeline.StateDone {
		t.Errorf("Expected %s, got %s", pipeline.StateDone, result.Stage)
	}
}

func TestFullPipelineSkipsDeploy(t *testing.T) {
	builder := &fakeBuilder{result: &build.Result{Success: true}}
	containerizer := &fakeContainerizer{result: &docker.Result{Success: true}}
	deployer := &fakeDeployer{result: &deploy.Result{Success: true}}

	orch := newOrchestrator(t, pipeline.Options{
		Builder:       builder,
		Containerizer: containerizer,
		Deployer:      deployer,
	})

	result := orch.FullPipeline(context.Background(), angularRepo(t), false)

	if !result.Success {
		t.Fatalf("Pipeline failed: %s", result.Error)
	}
	if deployer.called {
		t.Error("Deploy stage must not run unless requested")
	}
}

func TestExtractAppName(t *testing.T) {
	orch := newOrchestrator(t, pipeline.Options{
		Env: func(key string) string {
			if key == config.EnvRepositoryName {
				return "Team_Frontend"
			}
			return ""
		},
	})

	scoped := createRepo(t, map[string]string{
		"package.json": `{"name": "@acme/My_Widget"}`,
	})
	if name := orch.ExtractAppName(scoped); name != "acme-my-widget" {
		t.Errorf("Expected cleaned scoped name, got %q", name)
	}

	unnamed := createRepo(t, map[string]string{
		"package.json": `{"version": "1.0.0"}`,
	})
	if name := orch.ExtractAppName(unnamed); name != "team-frontend" {
		t.Errorf("Expected CI repository fallback, got %q", name)
	}
}

func TestExtractAppNameDirectoryFallback(t *testing.T) {
	orch := newOrchestrator(t, pipeline.Options{})

	repo := filepath.Join(t.TempDir(), "My_Project")
	if err := os.MkdirAll(repo, 0755); err != nil {
		t.Fatalf("Failed to create repo dir: %v", err)
	}

	if name := orch.ExtractAppName(repo); name != "my-project" {
		t.Errorf("Expected directory-derived name, got %q", name)
	}
}

func TestArtifactRoundtrip(t *testing.T) {
	orch := newOrchestrator(t, pipeline.Options{})
	original := orch.AnalyzeOnly(angularRepo(t))
	if !original.Success {
		t.Fatalf("Analysis failed: %s", original.Error)
	}

	path := filepath.Join(t.TempDir(), pipeline.ArtifactFileName)
	if err := pipeline.WriteArtifact(path, original); err != nil {
		t.Fatalf("WriteArtifact failed: %v", err)
	}

	loaded, err := pipeline.LoadArtifact(path)
	if err != nil {
		t.Fatalf("LoadArtifact failed: %v", err)
	}

	if loaded.Framework != original.Framework {
		t.Errorf("Framework lost: %q vs %q", loaded.Framework, original.Framework)
	}
	if loaded.Config == nil || loaded.Config.App.Name != original.Config.App.Name {
		t.Errorf("Config lost in roundtrip: %+v", loaded.Config)
	}
	if loaded.Config.Docker.FullImage != original.Config.Docker.FullImage {
		t.Errorf("Image name lost: %q vs %q", loaded.Config.Docker.FullImage, original.Config.Docker.FullImage)
	}
}

func TestLoadArtifactMissingFile(t *testing.T) {
	if _, err := pipeline.LoadArtifact(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("Expected error for a missing artifact file")
	}
}
