package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Recognized CI environment variables (Azure DevOps build variables).
const (
	EnvBuildNumber      = "BUILD_BUILDNUMBER"
	EnvBuildID          = "BUILD_BUILDID"
	EnvSourceVersion    = "BUILD_SOURCEVERSION"
	EnvSourceBranch     = "BUILD_SOURCEBRANCHNAME"
	EnvPipelineName     = "BUILD_DEFINITIONNAME"
	EnvBuildReason      = "BUILD_REASON"
	EnvRepositoryName   = "BUILD_REPOSITORY_NAME"
	EnvRepositoryURI    = "BUILD_REPOSITORY_URI"
	EnvDockerRepository = "DOCKER_REPOSITORY"
)

const (
	// defaultDockerOrganization is the last-resort image repository when
	// neither the environment nor the global config provides one.
	defaultDockerOrganization = "myorg"

	// shortSHALength is the commit prefix length recorded in build_info.
	shortSHALength = 8

	defaultBranch = "main"
)

// Resolver merges the four configuration layers into one authoritative
// configuration. The global config and per-framework defaults are loaded
// once at construction and never mutated afterwards; environment access
// goes through an injected lookup so resolution is deterministic in tests.
type Resolver struct {
	frameworkRoot string
	global        Tree
	defaults      map[string]Tree
	env           func(string) string
	logger        *zap.SugaredLogger
}

// NewResolver loads the global configuration and framework defaults from
// frameworkRoot. A missing document is a warning, not an error: the merge
// proceeds with an empty layer. Pass env as nil to read the process
// environment.
func NewResolver(frameworkRoot string, env func(string) string, logger *zap.SugaredLogger) *Resolver {
	if env == nil {
		env = os.Getenv
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	r := &Resolver{
		frameworkRoot: frameworkRoot,
		env:           env,
		logger:        logger,
	}
	r.global = r.loadGlobalConfig()
	r.defaults = r.loadFrameworkDefaults()
	return r
}

func (r *Resolver) loadGlobalConfig() Tree {
	path := filepath.Join(r.frameworkRoot, "config", "global.yaml")
	tree, err := loadYAMLTree(path)
	if err != nil {
		r.logger.Warnw("global config not loaded", "path", path, "error", err)
		return Tree{}
	}
	r.logger.Infow("loaded global config", "path", path)
	return tree
}

func (r *Resolver) loadFrameworkDefaults() map[string]Tree {
	defaults := make(map[string]Tree)
	dir := filepath.Join(r.frameworkRoot, "defaults")

	entries, err := os.ReadDir(dir)
	if err != nil {
		r.logger.Warnw("defaults directory not found", "dir", dir)
		return defaults
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".defaults.yaml") {
			continue
		}
		framework := strings.TrimSuffix(name, ".defaults.yaml")
		tree, err := loadYAMLTree(filepath.Join(dir, name))
		if err != nil {
			r.logger.Errorw("failed to load framework defaults", "file", name, "error", err)
			continue
		}
		defaults[framework] = tree
		r.logger.Infow("loaded framework defaults", "framework", framework)
	}
	return defaults
}

func loadYAMLTree(path string) (Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tree Tree
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if tree == nil {
		tree = Tree{}
	}
	return tree, nil
}

// MergeConfig applies the configuration layers low to high: global config,
// framework defaults, the caller-supplied app config, environment
// overrides, and finally the auto-detected values derived from the merge
// result.
func (r *Resolver) MergeConfig(appConfig Tree, detectedFramework string) Tree {
	r.logger.Infow("merging configuration", "framework", detectedFramework)

	merged := Merge(Tree{}, r.global)
	merged = Merge(merged, r.defaults[detectedFramework])
	merged = Merge(merged, appConfig)
	merged = r.addEnvironmentOverrides(merged)
	merged = r.addAutoDetectedValues(merged, appConfig, detectedFramework)

	return merged
}

// Resolve is the full resolution pipeline: layered merge, typed decode, and
// soft validation.
func (r *Resolver) Resolve(appConfig Tree, detectedFramework string) (*ResolvedConfig, error) {
	merged := r.MergeConfig(appConfig, detectedFramework)
	cfg, err := DecodeConfig(merged)
	if err != nil {
		return nil, err
	}
	validated := r.ValidateConfig(*cfg)
	return &validated, nil
}

// addEnvironmentOverrides injects a build_info block when a CI build
// identifier is present. Absence of the variable simply skips the block.
func (r *Resolver) addEnvironmentOverrides(config Tree) Tree {
	buildNumber := r.env(EnvBuildNumber)
	if buildNumber == "" {
		return config
	}

	result := config.Clone()
	result["build_info"] = Tree{
		"build_number":   buildNumber,
		"build_id":       r.env(EnvBuildID),
		"source_version": shortSHA(r.env(EnvSourceVersion)),
		"source_branch":  envOr(r.env, EnvSourceBranch, "unknown"),
		"pipeline_name":  envOr(r.env, EnvPipelineName, "unknown"),
		"build_reason":   envOr(r.env, EnvBuildReason, "manual"),
	}
	return result
}

// addAutoDetectedValues layers derived values on top of the merged config.
// Everything here is a pure function of the merged tree, the original app
// config, and the injected environment.
func (r *Resolver) addAutoDetectedValues(config, appConfig Tree, detectedFramework string) Tree {
	result := config.Clone()

	app := ensureChild(result, "app")
	if app.String("name", "") == "" {
		name := ""
		if appSection := appConfig.Child("app"); appSection != nil {
			name = appSection.String("name", "")
		}
		if name == "" {
			name = envOr(r.env, EnvRepositoryName, "unknown-app")
		}
		app["name"] = name
	}
	app["name"] = NormalizeName(app.String("name", ""))
	app["framework"] = detectedFramework
	app["detected_framework"] = detectedFramework

	source := ensureChild(result, "source")
	source["repo_url"] = envFallback(r.env, EnvRepositoryURI, source.String("repo_url", ""))
	source["branch"] = envFallback(r.env, EnvSourceBranch, source.String("branch", defaultBranch))
	source["commit_sha"] = envFallback(r.env, EnvSourceVersion, source.String("commit_sha", ""))

	docker := ensureChild(result, "docker")
	if docker.String("repository", "") == "" {
		repository := r.env(EnvDockerRepository)
		if repository == "" {
			if globalDocker := r.global.Child("docker"); globalDocker != nil {
				repository = globalDocker.String("organization", "")
			}
		}
		if repository == "" {
			repository = defaultDockerOrganization
		}
		docker["repository"] = repository
	}
	if docker.String("image", "") == "" {
		docker["image"] = app.String("name", "")
	}

	// Image tags are always recomputed so a new build number deterministically
	// yields a new tag, never a stale value carried over from a prior merge.
	buildNumber := envOr(r.env, EnvBuildNumber, "local")
	docker["tag"] = fmt.Sprintf("v%s", buildNumber)
	docker["full_image"] = fmt.Sprintf("%s/%s:%s", docker.String("repository", ""), docker.String("image", ""), docker.String("tag", ""))
	docker["latest_image"] = fmt.Sprintf("%s/%s:latest", docker.String("repository", ""), docker.String("image", ""))

	deployment := ensureChild(result, "deployment")
	if deployment.String("namespace", "") == "" {
		deployment["namespace"] = app.String("name", "")
	}
	if deployment.String("environment", "") == "" {
		deployment["environment"] = EnvironmentForBranch(source.String("branch", "unknown"))
	}

	return result
}

// EnvironmentForBranch maps a source branch to a deployment environment.
// This mapping is a hard business rule: main and master deploy to
// production, develop to staging, everything else to development.
func EnvironmentForBranch(branch string) string {
	switch branch {
	case "main", "master":
		return "production"
	case "develop":
		return "staging"
	default:
		return "development"
	}
}

func ensureChild(t Tree, key string) Tree {
	if child := t.Child(key); child != nil {
		return child
	}
	child := Tree{}
	t[key] = child
	return child
}

func shortSHA(sha string) string {
	if len(sha) > shortSHALength {
		return sha[:shortSHALength]
	}
	return sha
}

func envOr(env func(string) string, key, fallback string) string {
	if v := env(key); v != "" {
		return v
	}
	return fallback
}

func envFallback(env func(string) string, key, existing string) string {
	if v := env(key); v != "" {
		return v
	}
	return existing
}
