package pipeline

import (
	"deckhand/pkg/build"
	"deckhand/pkg/config"
	"deckhand/pkg/deploy"
	"deckhand/pkg/docker"
)

// State names the phase a pipeline run is in. Transitions are strictly
// forward; any stage failure moves the run to StateFailed and no later
// stage executes.
type State string

const (
	StateAnalyzing      State = "analyzing"
	StateResolving      State = "resolving"
	StateValidating     State = "validating"
	StateBuilding       State = "building"
	StateContainerizing State = "containerizing"
	StateDeploying      State = "deploying"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// AnalysisResult is the outcome of the analysis phase: detection plus the
// fully resolved configuration. It is what gets persisted to the artifact
// file between processes.
type AnalysisResult struct {
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	Duration   float64                `json:"duration"`
	Framework  string                 `json:"framework,omitempty"`
	Confidence float64                `json:"confidence,omitempty"`
	Config     *config.ResolvedConfig `json:"config,omitempty"`
}

// ProcessResult is the outcome of the build-and-containerize phase.
type ProcessResult struct {
	Success      bool           `json:"success"`
	Error        string         `json:"error,omitempty"`
	Duration     float64        `json:"duration"`
	Stage        State          `json:"stage"`
	AppName      string         `json:"app_name,omitempty"`
	Framework    string         `json:"framework,omitempty"`
	BuildResult  *build.Result  `json:"build_result,omitempty"`
	DockerResult *docker.Result `json:"docker_result,omitempty"`
}

// PipelineResult is the outcome of a full end-to-end run.
type PipelineResult struct {
	Success      bool            `json:"success"`
	Error        string          `json:"error,omitempty"`
	Duration     float64         `json:"duration"`
	Stage        State           `json:"stage"`
	Analysis     *AnalysisResult `json:"analysis,omitempty"`
	Process      *ProcessResult  `json:"process,omitempty"`
	DeployResult *deploy.Result  `json:"deploy_result,omitempty"`
}
