package detector

import (
	"fmt"
	"sort"
)

// Build strategy types that do not correspond to a framework.
const (
	StrategyGeneric     = "generic"
	StrategyInstallOnly = "install-only"
)

const (
	installWithLockfile    = "npm ci --prefer-offline --no-audit --no-fund"
	installWithoutLockfile = "npm install --prefer-offline --no-audit --no-fund"
)

// DetectBuildStrategy derives install and build commands for the detected
// framework. Without a manifest it returns a no-op strategy; without a
// lockfile the install downgrades from npm ci to npm install rather than
// failing.
func (d *Detector) DetectBuildStrategy(repoPath, framework string) *BuildStrategy {
	pkg := LoadPackageJSON(repoPath, d.logger)
	if pkg == nil {
		return &BuildStrategy{
			Command:        `echo "No package.json found"`,
			Type:           StrategyGeneric,
			InstallCommand: `echo "No install needed"`,
		}
	}

	installCommand := installWithLockfile
	if !HasLockfile(repoPath) {
		installCommand = installWithoutLockfile
	}

	preferred := []string{"build"}
	if profile, ok := profileFor(framework); ok {
		preferred = profile.BuildScripts
	}

	for _, script := range preferred {
		if content, ok := pkg.Scripts[script]; ok {
			return &BuildStrategy{
				Command:          fmt.Sprintf("npm run %s", script),
				Type:             framework,
				ScriptContent:    content,
				InstallCommand:   installCommand,
				AvailableScripts: scriptNames(pkg.Scripts),
			}
		}
	}

	if content, ok := pkg.Scripts["build"]; ok {
		return &BuildStrategy{
			Command:        "npm run build",
			Type:           StrategyGeneric,
			ScriptContent:  content,
			InstallCommand: installCommand,
		}
	}

	return &BuildStrategy{
		Command:        installCommand,
		Type:           StrategyInstallOnly,
		InstallCommand: installCommand,
	}
}

// scriptNames returns the manifest script names sorted, so the strategy is
// identical across runs regardless of map iteration order.
func scriptNames(scripts map[string]string) []string {
	names := make([]string, 0, len(scripts))
	for name := range scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
