package build

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"deckhand/pkg/command"
	"deckhand/pkg/config"
	"deckhand/pkg/detector"
	"deckhand/pkg/util"

	"go.uber.org/zap"
)

// CommandRunner executes external commands for the build stage.
type CommandRunner interface {
	Run(ctx context.Context, commandLine string, opts command.Options) command.Result
}

// Result is the structured outcome of the build stage.
type Result struct {
	Success       bool            `json:"success"`
	Error         string          `json:"error,omitempty"`
	Duration      float64         `json:"duration"`
	Artifacts     *ArtifactsInfo  `json:"artifacts,omitempty"`
	InstallResult *command.Result `json:"install_result,omitempty"`
	BuildResult   *command.Result `json:"build_result,omitempty"`
}

// ArtifactsInfo catalogs the produced build output.
type ArtifactsInfo struct {
	OutputDir string         `json:"output_dir"`
	FileCount int            `json:"file_count"`
	TotalSize int64          `json:"total_size"`
	Files     []ArtifactFile `json:"files"`
}

// ArtifactFile is one produced file, relative to the output directory.
type ArtifactFile struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Runner installs dependencies, runs the build command, and verifies the
// produced artifacts. Every command receives an explicit working directory.
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

// Run executes the build stage. Any failure is reported in the Result; Run
// itself never panics past its boundary.
func (r *Runner) Run(ctx context.Context, cfg *config.ResolvedConfig, repoPath string) *Result {
	start := time.Now()
	r.logger.Infow("starting build", "app", cfg.App.Name, "framework", cfg.App.Framework)

	if _, err := os.Stat(repoPath); err != nil {
		return failure(start, (&detector.RepositoryNotFoundError{Path: repoPath}).Error())
	}

	r.verifyProjectStructure(repoPath, cfg.App.Framework)

	installResult := r.installDependencies(ctx, cfg.BuildStrategy, repoPath)
	if !installResult.Success {
		res := failure(start, fmt.Sprintf("dependency installation failed: %s", installResult.Stderr))
		res.InstallResult = &installResult
		return res
	}

	buildResult := r.executeBuild(ctx, cfg.BuildStrategy, repoPath)
	if !buildResult.Success {
		res := failure(start, fmt.Sprintf("build failed: %s", buildResult.Stderr))
		res.InstallResult = &installResult
		res.BuildResult = &buildResult
		return res
	}

	artifacts, err := r.verifyArtifacts(repoPath, cfg.App.Name, cfg.App.Framework)
	if err != nil {
		res := failure(start, err.Error())
		res.InstallResult = &installResult
		res.BuildResult = &buildResult
		return res
	}

	r.reportOptimizations(repoPath, artifacts, cfg.App.Framework)

	duration := time.Since(start).Seconds()
	r.logger.Infow("build completed", "duration", duration,
		"output_dir", artifacts.OutputDir, "files", artifacts.FileCount,
		"total_size", util.FormatSize(artifacts.TotalSize))

	return &Result{
		Success:       true,
		Duration:      duration,
		Artifacts:     artifacts,
		InstallResult: &installResult,
		BuildResult:   &buildResult,
	}
}

// verifyProjectStructure warns about missing files expected for the
// framework; missing files are not fatal.
func (r *Runner) verifyProjectStructure(repoPath, framework string) {
	required := map[string][]string{
		detector.FrameworkAngular: {"package.json", "angular.json", "src"},
		detector.FrameworkReact:   {"package.json", "src"},
		detector.FrameworkVue:     {"package.json", "src"},
		detector.FrameworkNextJS:  {"package.json", "next.config.js"},
	}[framework]
	if required == nil {
		required = []string{"package.json"}
	}

	var missing []string
	for _, name := range required {
		if _, err := os.Stat(filepath.Join(repoPath, name)); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		r.logger.Warnw("missing expected files", "framework", framework, "missing", missing)
	}
}

func (r *Runner) installDependencies(ctx context.Context, strategy *detector.BuildStrategy, repoPath string) command.Result {
	installCommand := "npm ci --prefer-offline --no-audit --no-fund"
	if strategy != nil && strategy.InstallCommand != "" {
		installCommand = strategy.InstallCommand
	}

	// npm ci hard-fails without a lockfile; downgrade instead.
	if strings.Contains(installCommand, "npm ci") && !detector.HasLockfile(repoPath) {
		r.logger.Warnw("package-lock.json not found, switching to npm install")
		installCommand = strings.Replace(installCommand, "npm ci", "npm install", 1)
	}
	if strings.Contains(installCommand, "npm") && !strings.Contains(installCommand, "--prefer-offline") {
		installCommand += " --prefer-offline --no-audit --no-fund"
	}

	r.logger.Infow("installing dependencies", "command", installCommand)
	return r.commands.Run(ctx, installCommand, command.Options{Dir: repoPath})
}

func (r *Runner) executeBuild(ctx context.Context, strategy *detector.BuildStrategy, repoPath string) command.Result {
	buildCommand := "npm run build"
	buildType := detector.StrategyGeneric
	if strategy != nil {
		if strategy.Command != "" {
			buildCommand = strategy.Command
		}
		if strategy.Type != "" {
			buildType = strategy.Type
		}
	}

	opts := command.Options{Dir: repoPath}
	switch buildType {
	case detector.FrameworkAngular:
		if !strings.Contains(buildCommand, "build:prod") && !strings.Contains(buildCommand, "--prod") &&
			strings.Contains(buildCommand, "ng build") {
			buildCommand += " --configuration production"
		}
	case detector.FrameworkReact:
		opts.Env = map[string]string{"NODE_ENV": "production", "CI": "true"}
	}

	r.logger.Infow("building application", "command", buildCommand)
	return r.commands.Run(ctx, buildCommand, opts)
}

// verifyArtifacts finds the output directory using the shared candidate
// policy and catalogs every produced file.
func (r *Runner) verifyArtifacts(repoPath, appName, framework string) (*ArtifactsInfo, error) {
	candidates := detector.OutputDirCandidates(framework, appName)

	var outputDir string
	for _, candidate := range candidates {
		if containsWebArtifacts(filepath.Join(repoPath, candidate)) {
			outputDir = candidate
			break
		}
	}
	if outputDir == "" {
		return nil, fmt.Errorf("no build artifacts found in any of: %s", strings.Join(candidates, ", "))
	}

	info := &ArtifactsInfo{OutputDir: outputDir, Files: []ArtifactFile{}}
	root := filepath.Join(repoPath, outputDir)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info.Files = append(info.Files, ArtifactFile{Path: rel, Size: fi.Size()})
		info.TotalSize += fi.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to catalog artifacts in %s: %w", outputDir, err)
	}
	info.FileCount = len(info.Files)
	return info, nil
}

// containsWebArtifacts reports whether the directory holds at least one
// html, js, or css file.
func containsWebArtifacts(dir string) bool {
	found := false
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".html", ".js", ".css":
			found = true
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// reportOptimizations flags common production-build smells.
func (r *Runner) reportOptimizations(repoPath string, artifacts *ArtifactsInfo, framework string) {
	switch framework {
	case detector.FrameworkAngular:
		sourceMaps := 0
		for _, f := range artifacts.Files {
			if strings.HasSuffix(f.Path, ".map") {
				sourceMaps++
			}
		}
		if sourceMaps > 0 {
			r.logger.Warnw("source maps present in production output", "count", sourceMaps)
		}
	case detector.FrameworkReact:
		devFiles := 0
		for _, f := range artifacts.Files {
			if strings.Contains(f.Path, "development") {
				devFiles++
			}
		}
		if devFiles > 0 {
			r.logger.Warnw("development files present in build output", "count", devFiles)
		}
	}
}

func failure(start time.Time, message string) *Result {
	return &Result{
		Success:  false,
		Error:    message,
		Duration: time.Since(start).Seconds(),
	}
}
