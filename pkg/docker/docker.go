package docker

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"deckhand/pkg/command"
	"deckhand/pkg/config"
	"deckhand/pkg/detector"

	"go.uber.org/zap"
)

//go:embed templates/angular.dockerfile.tmpl
var angularDockerfileTemplate string

//go:embed templates/generic.dockerfile.tmpl
var genericDockerfileTemplate string

const (
	// DefaultPort is exposed by the generated image when the config does
	// not set docker.port.
	DefaultPort = 8080

	// DefaultNodeVersion is the base image tag used for generated
	// Dockerfiles when build.node_version is unset.
	DefaultNodeVersion = "18"
)

// CommandRunner executes external commands for the container stage.
type CommandRunner interface {
	Run(ctx context.Context, commandLine string, opts command.Options) command.Result
}

// Result is the structured outcome of the container stage.
type Result struct {
	Success        bool            `json:"success"`
	Error          string          `json:"error,omitempty"`
	Duration       float64         `json:"duration"`
	ImageInfo      *ImageInfo      `json:"image_info,omitempty"`
	PushResults    *PushResults    `json:"push_results,omitempty"`
	DockerfilePath string          `json:"dockerfile_path,omitempty"`
}

// ImageInfo describes the built image.
type ImageInfo struct {
	Image string `json:"image"`
	Size  int64  `json:"size,omitempty"`
}

// PushResults records the registry pushes for both tags.
type PushResults struct {
	Versioned *command.Result `json:"versioned,omitempty"`
	Latest    *command.Result `json:"latest,omitempty"`
}

// dockerfileContext is the data rendered into a Dockerfile template.
type dockerfileContext struct {
	AppName     string
	Framework   string
	NodeVersion string
	BuildDir    string
	Port        int
}

// Runner builds, tags, and pushes the application image through the
// command runner. It never talks to the Docker daemon directly.
type Runner struct {
	commands CommandRunner
	logger   *zap.SugaredLogger
}

func NewRunner(commands CommandRunner, logger *zap.SugaredLogger) *Runner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Runner{commands: commands, logger: logger}
}

// Run executes the container stage: Dockerfile preparation, image build,
// tagging, and pushes. A failed push of the versioned tag fails the stage;
// a failed push of latest is only a warning.
func (r *Runner) Run(ctx context.Context, cfg *config.ResolvedConfig, repoPath string) *Result {
	start := time.Now()
	r.logger.Infow("starting container stage", "app", cfg.App.Name, "image", cfg.Docker.FullImage)

	if cfg.Docker.FullImage == "" {
		return failure(start, "docker.full_image is not configured")
	}

	dockerfilePath, err := r.prepareDockerfile(cfg, repoPath)
	if err != nil {
		return failure(start, err.Error())
	}

	buildResult := r.commands.Run(ctx,
		fmt.Sprintf("docker build -t %s -f %s .", cfg.Docker.FullImage, dockerfilePath),
		command.Options{Dir: repoPath})
	if !buildResult.Success {
		return failure(start, fmt.Sprintf("docker build failed: %s", buildResult.Stderr))
	}

	imageInfo := &ImageInfo{Image: cfg.Docker.FullImage}
	if size, ok := r.inspectImageSize(ctx, cfg.Docker.FullImage, repoPath); ok {
		imageInfo.Size = size
	}

	tagResult := r.commands.Run(ctx,
		fmt.Sprintf("docker tag %s %s", cfg.Docker.FullImage, cfg.Docker.LatestImage),
		command.Options{Dir: repoPath})
	if !tagResult.Success {
		r.logger.Warnw("failed to tag latest image", "stderr", tagResult.Stderr)
	}

	pushResults := &PushResults{}

	versioned := r.commands.Run(ctx, "docker push "+cfg.Docker.FullImage, command.Options{Dir: repoPath})
	pushResults.Versioned = &versioned
	if !versioned.Success {
		res := failure(start, fmt.Sprintf("failed to push %s: %s", cfg.Docker.FullImage, versioned.Stderr))
		res.PushResults = pushResults
		res.DockerfilePath = dockerfilePath
		return res
	}

	latest := r.commands.Run(ctx, "docker push "+cfg.Docker.LatestImage, command.Options{Dir: repoPath})
	pushResults.Latest = &latest
	if !latest.Success {
		r.logger.Warnw("failed to push latest image", "stderr", latest.Stderr)
	}

	duration := time.Since(start).Seconds()
	r.logger.Infow("container stage completed", "duration", duration, "image", cfg.Docker.FullImage)

	return &Result{
		Success:        true,
		Duration:       duration,
		ImageInfo:      imageInfo,
		PushResults:    pushResults,
		DockerfilePath: dockerfilePath,
	}
}

// prepareDockerfile reuses an existing Dockerfile or generates one from the
// framework template.
func (r *Runner) prepareDockerfile(cfg *config.ResolvedConfig, repoPath string) (string, error) {
	dockerfilePath := filepath.Join(repoPath, "Dockerfile")
	if _, err := os.Stat(dockerfilePath); err == nil {
		r.logger.Infow("using existing Dockerfile", "path", dockerfilePath)
		return dockerfilePath, nil
	}

	framework := cfg.App.Framework
	r.logger.Infow("generating Dockerfile", "framework", framework)

	source := genericDockerfileTemplate
	if framework == detector.FrameworkAngular {
		source = angularDockerfileTemplate
	}

	tmpl, err := template.New("dockerfile").Parse(source)
	if err != nil {
		return "", fmt.Errorf("invalid Dockerfile template: %w", err)
	}

	data := dockerfileContext{
		AppName:     cfg.App.Name,
		Framework:   framework,
		NodeVersion: cfg.Build.NodeVersion,
		BuildDir:    cfg.Build.OutputDir,
		Port:        cfg.Docker.Port,
	}
	if data.NodeVersion == "" {
		data.NodeVersion = DefaultNodeVersion
	}
	if data.BuildDir == "" {
		data.BuildDir = detector.DefaultOutputDir
	}
	if data.Port == 0 {
		data.Port = DefaultPort
	}

	file, err := os.Create(dockerfilePath)
	if err != nil {
		return "", fmt.Errorf("failed to create Dockerfile: %w", err)
	}
	defer file.Close()

	if err := tmpl.Execute(file, data); err != nil {
		return "", fmt.Errorf("failed to render Dockerfile: %w", err)
	}
	return dockerfilePath, nil
}

// inspectImageSize reads the image size from docker inspect output. Any
// failure here is informational only.
func (r *Runner) inspectImageSize(ctx context.Context, image, repoPath string) (int64, bool) {
	inspect := r.commands.Run(ctx, "docker inspect "+image, command.Options{Dir: repoPath})
	if !inspect.Success {
		return 0, false
	}

	var entries []struct {
		Size int64 `json:"Size"`
	}
	if err := json.Unmarshal([]byte(inspect.Stdout), &entries); err != nil || len(entries) == 0 {
		return 0, false
	}
	return entries[0].Size, true
}

func failure(start time.Time, message string) *Result {
	return &Result{
		Success:  false,
		Error:    message,
		Duration: time.Since(start).Seconds(),
	}
}
