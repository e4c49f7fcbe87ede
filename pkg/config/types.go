package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"deckhand/pkg/detector"
)

// AppSection identifies the application.
type AppSection struct {
	Name              string `json:"name"`
	Framework         string `json:"framework"`
	DetectedFramework string `json:"detected_framework"`
}

// SourceSection records where the code came from.
type SourceSection struct {
	RepoURL   string `json:"repo_url"`
	Branch    string `json:"branch"`
	CommitSHA string `json:"commit_sha"`
}

// DockerSection holds image naming and the container port.
type DockerSection struct {
	Repository  string `json:"repository"`
	Image       string `json:"image"`
	Tag         string `json:"tag"`
	FullImage   string `json:"full_image"`
	LatestImage string `json:"latest_image"`
	Port        int    `json:"port,omitempty"`
}

// ResourceList is one side of a Kubernetes resource specification.
type ResourceList struct {
	CPU    string `json:"cpu,omitempty"`
	Memory string `json:"memory,omitempty"`
}

// Resources pairs requested and limiting resources.
type Resources struct {
	Requests ResourceList `json:"requests,omitempty"`
	Limits   ResourceList `json:"limits,omitempty"`
}

// Probe configures a single health probe delay.
type Probe struct {
	InitialDelay int `json:"initial_delay,omitempty"`
}

// HealthChecks configures readiness and liveness probes.
type HealthChecks struct {
	Readiness Probe `json:"readiness,omitempty"`
	Liveness  Probe `json:"liveness,omitempty"`
}

// ServiceSection configures the exposed Kubernetes service port.
type ServiceSection struct {
	Port int `json:"port,omitempty"`
}

// DeploymentSection holds Kubernetes deployment settings.
type DeploymentSection struct {
	Namespace      string          `json:"namespace"`
	Environment    string          `json:"environment"`
	Replicas       int             `json:"replicas,omitempty"`
	Resources      Resources       `json:"resources,omitempty"`
	ServiceType    string          `json:"service_type,omitempty"`
	Service        *ServiceSection `json:"service,omitempty"`
	HealthChecks   *HealthChecks   `json:"health_checks,omitempty"`
	RolloutTimeout int             `json:"rollout_timeout,omitempty"`
}

// BuildSection carries build-time settings and, after the build stage has
// run, the location of the produced artifacts.
type BuildSection struct {
	NodeVersion string `json:"node_version,omitempty"`
	OutputDir   string `json:"output_dir,omitempty"`
}

// BuildInfo is injected from CI environment variables when a build
// identifier is present.
type BuildInfo struct {
	BuildNumber   string `json:"build_number"`
	BuildID       string `json:"build_id"`
	SourceVersion string `json:"source_version"`
	SourceBranch  string `json:"source_branch"`
	PipelineName  string `json:"pipeline_name"`
	BuildReason   string `json:"build_reason"`
}

// Validation is the soft-failure outcome of ValidateConfig.
type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Valid    bool     `json:"valid"`
}

// ResolvedConfig is the authoritative merged configuration. Once validated
// it is treated as read-only; stages that add fields produce a new value.
type ResolvedConfig struct {
	App           AppSection               `json:"app"`
	Source        SourceSection            `json:"source"`
	Docker        DockerSection            `json:"docker"`
	Deployment    DeploymentSection        `json:"deployment"`
	Build         BuildSection             `json:"build,omitempty"`
	Detection     *detector.Detection      `json:"detection,omitempty"`
	BuildStrategy *detector.BuildStrategy  `json:"build_strategy,omitempty"`
	BuildInfo     *BuildInfo               `json:"build_info,omitempty"`
	Validation    *Validation              `json:"validation,omitempty"`
}

// DecodeConfig converts a merged tree into the typed configuration.
func DecodeConfig(t Tree) (*ResolvedConfig, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode merged config: %w", err)
	}
	var cfg ResolvedConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode merged config: %w", err)
	}
	return &cfg, nil
}

// ToTree converts any JSON-taggable value into a Tree, for feeding typed
// values back into the layered merge.
func ToTree(v any) (Tree, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	var t Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode value into tree: %w", err)
	}
	return t, nil
}

// NormalizeName makes a name URL/DNS-safe: lower-cased with underscores
// replaced by hyphens. Applied everywhere an app name is sourced.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}
