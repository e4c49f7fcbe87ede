package detector

import (
	"os"
	"path/filepath"
)

// DefaultOutputDir is the fallback when no candidate directory matches.
const DefaultOutputDir = "dist"

// OutputDirCandidates returns the ordered output-directory candidates for a
// framework. The build stage reuses this exact list when locating produced
// artifacts, so detection and build cannot drift apart.
func OutputDirCandidates(framework, appName string) []string {
	switch framework {
	case FrameworkAngular:
		return []string{
			filepath.Join("dist", appName),
			"dist",
			filepath.Join("dist", appName+"-app"),
		}
	case FrameworkReact:
		return []string{"build", "dist"}
	case FrameworkVue:
		return []string{"dist", "build"}
	default:
		return []string{"dist", "build", "public"}
	}
}

// DetectOutputDirectory returns the first candidate that exists and is
// non-empty, or DefaultOutputDir when none match.
func DetectOutputDirectory(repoPath, framework, appName string) string {
	for _, candidate := range OutputDirCandidates(framework, appName) {
		if dirNonEmpty(filepath.Join(repoPath, candidate)) {
			return candidate
		}
	}
	return DefaultOutputDir
}

func dirNonEmpty(path string) bool {
	entries, err := os.ReadDir(path)
	return err == nil && len(entries) > 0
}
