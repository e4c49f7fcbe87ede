package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"deckhand/pkg/build"
	"deckhand/pkg/config"
	"deckhand/pkg/deploy"
	"deckhand/pkg/detector"
	"deckhand/pkg/docker"
	"deckhand/pkg/util"

	"go.uber.org/zap"
)

// lowConfidenceThreshold is the detection confidence below which the
// analysis logs a warning about falling back to generic handling.
const lowConfidenceThreshold = 0.3

// Builder runs the build stage.
type Builder interface {
	Run(ctx context.Context, cfg *config.ResolvedConfig, repoPath string) *build.Result
}

// Containerizer runs the image build-and-push stage.
type Containerizer interface {
	Run(ctx context.Context, cfg *config.ResolvedConfig, repoPath string) *docker.Result
}

// Deployer runs the Kubernetes deploy stage.
type Deployer interface {
	Run(ctx context.Context, cfg *config.ResolvedConfig) *deploy.Result
}

// Options configures an Orchestrator. Zero values fall back to the real
// stage runners built from Commands; tests inject fakes.
type Options struct {
	FrameworkRoot string
	Env           func(string) string
	Commands      build.CommandRunner
	Builder       Builder
	Containerizer Containerizer
	Deployer      Deployer
	Logger        *zap.SugaredLogger
}

// Orchestrator drives the pipeline state machine across the analysis,
// build, containerize, and deploy stages. Stages communicate only through
// the resolved configuration; each stage receives its inputs explicitly.
type Orchestrator struct {
	detector      *detector.Detector
	resolver      *config.Resolver
	builder       Builder
	containerizer Containerizer
	deployer      Deployer
	env           func(string) string
	logger        *zap.SugaredLogger
}

func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	env := opts.Env
	if env == nil {
		env = os.Getenv
	}

	o := &Orchestrator{
		detector:      detector.New(logger),
		resolver:      config.NewResolver(opts.FrameworkRoot, env, logger),
		builder:       opts.Builder,
		containerizer: opts.Containerizer,
		deployer:      opts.Deployer,
		env:           env,
		logger:        logger,
	}
	if o.builder == nil && opts.Commands != nil {
		o.builder = build.NewRunner(opts.Commands, logger)
	}
	if o.containerizer == nil && opts.Commands != nil {
		if runner, ok := opts.Commands.(docker.CommandRunner); ok {
			o.containerizer = docker.NewRunner(runner, logger)
		}
	}
	if o.deployer == nil && opts.Commands != nil {
		if runner, ok := opts.Commands.(deploy.CommandRunner); ok {
			o.deployer = deploy.NewRunner(runner, logger)
		}
	}
	return o
}

// AnalyzeOnly runs detection, strategy selection, and configuration
// resolution for the repository. A panic in any step is converted into a
// failed result rather than taking the process down mid-pipeline.
func (o *Orchestrator) AnalyzeOnly(repoPath string) (result *AnalysisResult) {
	start := time.Now()
	result = &AnalysisResult{}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Errorw("analysis panicked", "error", r)
			result.Success = false
			result.Error = fmt.Sprintf("analysis failed: %v", r)
			result.Duration = time.Since(start).Seconds()
		}
	}()

	o.logger.Infow("analyzing repository", "path", repoPath, "state", StateAnalyzing)

	detection, err := o.detector.Detect(repoPath)
	if err != nil {
		result.Error = err.Error()
		result.Duration = time.Since(start).Seconds()
		return result
	}
	if detection.Confidence < lowConfidenceThreshold {
		o.logger.Warnw("low detection confidence, generic handling applies",
			"framework", detection.Framework, "confidence", detection.Confidence)
	}

	strategy := o.detector.DetectBuildStrategy(repoPath, detection.Framework)

	o.logger.Infow("resolving configuration", "state", StateResolving)
	appName := o.ExtractAppName(repoPath)
	base := config.Tree{
		"app": config.Tree{
			"name": appName,
		},
		"detection":      mustTree(detection),
		"build_strategy": mustTree(strategy),
	}
	if source := localSource(repoPath); len(source) > 0 {
		base["source"] = source
	}

	cfg, err := o.resolver.Resolve(base, detection.Framework)
	if err != nil {
		result.Error = err.Error()
		result.Duration = time.Since(start).Seconds()
		return result
	}

	o.logger.Infow("analysis complete",
		"framework", detection.Framework,
		"confidence", detection.Confidence,
		"app", cfg.App.Name,
		"valid", cfg.Validation != nil && cfg.Validation.Valid)

	result.Success = true
	result.Framework = detection.Framework
	result.Confidence = detection.Confidence
	result.Config = cfg
	result.Duration = time.Since(start).Seconds()
	return result
}

// ProcessRepository runs the build and containerize stages against an
// already-resolved configuration. The config must have passed validation;
// a build failure short-circuits before the image stage runs.
func (o *Orchestrator) ProcessRepository(ctx context.Context, cfg *config.ResolvedConfig, repoPath string) *ProcessResult {
	start := time.Now()
	result := &ProcessResult{
		AppName:   cfg.App.Name,
		Framework: cfg.App.Framework,
	}

	if cfg.Validation != nil && !cfg.Validation.Valid {
		result.Stage = StateValidating
		result.Error = fmt.Sprintf("configuration is invalid: %s", strings.Join(cfg.Validation.Errors, "; "))
		result.Duration = time.Since(start).Seconds()
		return result
	}
	if cfg.App.Name == "" || cfg.Docker.FullImage == "" {
		result.Stage = StateValidating
		result.Error = "configuration is missing app.name or docker.full_image"
		result.Duration = time.Since(start).Seconds()
		return result
	}

	o.logger.Infow("building application", "app", cfg.App.Name, "state", StateBuilding)
	result.Stage = StateBuilding
	buildResult := o.builder.Run(ctx, cfg, repoPath)
	result.BuildResult = buildResult
	if !buildResult.Success {
		result.Error = fmt.Sprintf("build failed: %s", buildResult.Error)
		result.Duration = time.Since(start).Seconds()
		return result
	}

	// The image stage sees where the build actually put its artifacts.
	updated := *cfg
	if buildResult.Artifacts != nil {
		updated.Build.OutputDir = buildResult.Artifacts.OutputDir
	}

	o.logger.Infow("containerizing application", "image", cfg.Docker.FullImage, "state", StateContainerizing)
	result.Stage = StateContainerizing
	dockerResult := o.containerizer.Run(ctx, &updated, repoPath)
	result.DockerResult = dockerResult
	if !dockerResult.Success {
		result.Error = fmt.Sprintf("containerization failed: %s", dockerResult.Error)
		result.Duration = time.Since(start).Seconds()
		return result
	}

	result.Success = true
	result.Stage = StateDone
	result.Duration = time.Since(start).Seconds()
	return result
}

// Deploy runs the deploy stage for an already-built image.
func (o *Orchestrator) Deploy(ctx context.Context, cfg *config.ResolvedConfig) *deploy.Result {
	o.logger.Infow("deploying application", "app", cfg.App.Name, "state", StateDeploying)
	return o.deployer.Run(ctx, cfg)
}

// FullPipeline runs analysis, build, containerize, and optionally deploy in
// one process. The first failing stage ends the run.
func (o *Orchestrator) FullPipeline(ctx context.Context, repoPath string, withDeploy bool) *PipelineResult {
	start := time.Now()
	result := &PipelineResult{Stage: StateAnalyzing}

	analysis := o.AnalyzeOnly(repoPath)
	result.Analysis = analysis
	if !analysis.Success {
		result.Stage = StateFailed
		result.Error = analysis.Error
		result.Duration = time.Since(start).Seconds()
		return result
	}

	process := o.ProcessRepository(ctx, analysis.Config, repoPath)
	result.Process = process
	if !process.Success {
		result.Stage = StateFailed
		result.Error = process.Error
		result.Duration = time.Since(start).Seconds()
		return result
	}

	if withDeploy {
		deployResult := o.Deploy(ctx, analysis.Config)
		result.DeployResult = deployResult
		if !deployResult.Success {
			result.Stage = StateFailed
			result.Error = deployResult.Error
			result.Duration = time.Since(start).Seconds()
			return result
		}
	}

	result.Success = true
	result.Stage = StateDone
	result.Duration = time.Since(start).Seconds()
	return result
}

// ExtractAppName resolves the application name: the package.json name with
// scope markers stripped, then the CI repository name, then the directory
// name. The result is always normalized.
func (o *Orchestrator) ExtractAppName(repoPath string) string {
	if pkg := detector.LoadPackageJSON(repoPath, o.logger); pkg != nil && pkg.Name != "" {
		name := strings.ReplaceAll(pkg.Name, "@", "")
		name = strings.ReplaceAll(name, "/", "-")
		return config.NormalizeName(name)
	}
	if name := o.env(config.EnvRepositoryName); name != "" {
		return config.NormalizeName(name)
	}
	return config.NormalizeName(filepath.Base(repoPath))
}

// localSource reads repository metadata from a local git checkout. Outside
// CI this is the only source of repo URL, branch, and commit; in CI the
// build variables override it during resolution.
func localSource(repoPath string) config.Tree {
	if !util.IsGitRepository(repoPath) {
		return nil
	}

	source := config.Tree{}
	if url, err := util.GitRemoteURL(repoPath); err == nil {
		source["repo_url"] = url
	}
	if branch, err := util.GitBranch(repoPath); err == nil {
		source["branch"] = branch
	}
	if sha, err := util.GitCommit(repoPath); err == nil {
		source["commit_sha"] = sha
	}
	return source
}

func mustTree(v any) config.Tree {
	t, err := config.ToTree(v)
	if err != nil {
		panic(fmt.Sprintf("failed to encode value: %v", err))
	}
	return t
}
