package detector

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// PackageJSON is the subset of the dependency manifest the detector reads.
// Only key presence matters; nothing from it is ever executed.
type PackageJSON struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Scripts         map[string]string `json:"scripts"`
	Engines         map[string]string `json:"engines"`
}

// LoadPackageJSON loads the repository manifest. A missing or unparseable
// manifest returns nil: detection and build-strategy derivation degrade to
// the generic fallback instead of failing.
func LoadPackageJSON(repoPath string, logger *zap.SugaredLogger) *PackageJSON {
	data, err := os.ReadFile(filepath.Join(repoPath, "package.json"))
	if err != nil {
		return nil
	}

	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		if logger != nil {
			logger.Warnw("failed to parse package.json", "repo", repoPath, "error", err)
		}
		return nil
	}
	return &pkg
}

// HasLockfile reports whether a package-lock.json exists, which decides
// between a reproducible and a mutable install.
func HasLockfile(repoPath string) bool {
	_, err := os.Stat(filepath.Join(repoPath, "package-lock.json"))
	return err == nil
}
