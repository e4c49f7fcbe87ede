package detector

import "fmt"

// Supported framework identifiers.
const (
	FrameworkAngular = "angular"
	FrameworkReact   = "react"
	FrameworkVue     = "vue"
	FrameworkNextJS  = "nextjs"
	FrameworkGeneric = "generic"
	FrameworkUnknown = "unknown"
)

// Breakdown holds the raw point totals per signal category, before the
// profile weight is applied.
type Breakdown struct {
	Files           int `json:"files"`
	Dependencies    int `json:"dependencies"`
	DevDependencies int `json:"dev_dependencies"`
	ConfigFiles     int `json:"config_files"`
	BuildCommands   int `json:"build_commands"`
}

// Total returns the raw (unweighted) score.
func (b Breakdown) Total() int {
	return b.Files + b.Dependencies + b.DevDependencies + b.ConfigFiles + b.BuildCommands
}

// Evidence lists the concrete signals that matched for the selected
// framework, in profile declaration order.
type Evidence struct {
	FilesFound             []string `json:"files_found"`
	DependenciesFound      []string `json:"dependencies_found"`
	DevDependenciesFound   []string `json:"dev_dependencies_found"`
	ConfigFilesFound       []string `json:"config_files_found"`
	BuildCommandsAvailable []string `json:"build_commands_available"`
}

// Detection is the immutable result of one framework detection run.
type Detection struct {
	Framework  string    `json:"framework"`
	Confidence float64   `json:"confidence"`
	Breakdown  Breakdown `json:"breakdown"`
	Evidence   Evidence  `json:"evidence"`
}

// BuildStrategy describes how to install and build the repository.
type BuildStrategy struct {
	Command          string   `json:"command"`
	Type             string   `json:"type"`
	InstallCommand   string   `json:"install_command"`
	ScriptContent    string   `json:"script_content,omitempty"`
	AvailableScripts []string `json:"available_scripts,omitempty"`
}

// RepositoryNotFoundError reports a repository path that does not exist.
// This is the only condition the detector treats as an error; everything
// else degrades to the generic fallback.
type RepositoryNotFoundError struct {
	Path string
}

func (e *RepositoryNotFoundError) Error() string {
	return fmt.Sprintf("repository path does not exist: %s", e.Path)
}
