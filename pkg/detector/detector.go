package detector

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Scoring constants. Each matched signal contributes a fixed number of raw
// points; the profile weight then scales the total.
const (
	pointsMarkerFile  = 3
	pointsDependency  = 5
	pointsDevDep      = 3
	pointsConfigFile  = 2
	pointsBuildScript = 1

	// maxAttainableScore is the normalization ceiling for confidence. It is
	// an empirical estimate of the highest weighted score a real repository
	// reaches; scores above it saturate confidence at 1.0 and are logged.
	maxAttainableScore = 50.0

	// genericConfidence is reported when no profile scores above zero.
	genericConfidence = 0.1
)

// Detector scores a repository tree against the fixed profile set.
type Detector struct {
	profiles []FrameworkProfile
	logger   *zap.SugaredLogger
}

func New(logger *zap.SugaredLogger) *Detector {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Detector{profiles: Profiles(), logger: logger}
}

// Detect inspects repoPath and returns the best framework match. The only
// error condition is a missing repository path; a repository without any
// recognizable signals yields the generic fallback.
func (d *Detector) Detect(repoPath string) (*Detection, error) {
	if _, err := os.Stat(repoPath); err != nil {
		return nil, &RepositoryNotFoundError{Path: repoPath}
	}

	d.logger.Infow("detecting framework", "repo", repoPath)

	pkg := LoadPackageJSON(repoPath, d.logger)

	var (
		best         *Detection
		bestWeighted float64
	)

	for _, profile := range d.profiles {
		breakdown, evidence := d.scoreProfile(repoPath, profile, pkg)
		weighted := float64(breakdown.Total()) * profile.Weight
		if weighted <= 0 {
			continue
		}

		d.logger.Debugw("framework score",
			"framework", profile.Name,
			"weighted_score", weighted,
			"files", len(evidence.FilesFound),
			"dependencies", len(evidence.DependenciesFound))

		// Strictly-greater comparison keeps the first profile in declaration
		// order on ties.
		if best == nil || weighted > bestWeighted {
			bestWeighted = weighted
			best = &Detection{
				Framework: profile.Name,
				Breakdown: breakdown,
				Evidence:  evidence,
			}
		}
	}

	if best == nil {
		d.logger.Infow("no framework detected, falling back to generic")
		return &Detection{
			Framework:  FrameworkGeneric,
			Confidence: genericConfidence,
			Evidence:   emptyEvidence(),
		}, nil
	}

	if bestWeighted > maxAttainableScore {
		d.logger.Warnw("weighted score exceeds normalization ceiling, confidence saturated",
			"framework", best.Framework, "weighted_score", bestWeighted, "ceiling", maxAttainableScore)
	}
	best.Confidence = min(bestWeighted/maxAttainableScore, 1.0)

	d.logger.Infow("framework detected", "framework", best.Framework, "confidence", best.Confidence)
	return best, nil
}

func (d *Detector) scoreProfile(repoPath string, profile FrameworkProfile, pkg *PackageJSON) (Breakdown, Evidence) {
	var breakdown Breakdown
	evidence := emptyEvidence()

	for _, marker := range profile.MarkerFiles {
		if fileExists(repoPath, marker) {
			breakdown.Files += pointsMarkerFile
			evidence.FilesFound = append(evidence.FilesFound, marker)
		}
	}

	if pkg != nil {
		for _, dep := range profile.Dependencies {
			if _, ok := pkg.Dependencies[dep]; ok {
				breakdown.Dependencies += pointsDependency
				evidence.DependenciesFound = append(evidence.DependenciesFound, dep)
			}
		}
		for _, dep := range profile.DevDependencies {
			if _, ok := pkg.DevDependencies[dep]; ok {
				breakdown.DevDependencies += pointsDevDep
				evidence.DevDependenciesFound = append(evidence.DevDependenciesFound, dep)
			}
		}
	}

	for _, configFile := range profile.ConfigFiles {
		if fileExists(repoPath, configFile) {
			breakdown.ConfigFiles += pointsConfigFile
			evidence.ConfigFilesFound = append(evidence.ConfigFilesFound, configFile)
		}
	}

	if pkg != nil {
		for _, script := range profile.BuildScripts {
			if _, ok := pkg.Scripts[script]; ok {
				breakdown.BuildCommands += pointsBuildScript
				evidence.BuildCommandsAvailable = append(evidence.BuildCommandsAvailable, script)
			}
		}
	}

	return breakdown, evidence
}

func emptyEvidence() Evidence {
	return Evidence{
		FilesFound:             []string{},
		DependenciesFound:      []string{},
		DevDependenciesFound:   []string{},
		ConfigFilesFound:       []string{},
		BuildCommandsAvailable: []string{},
	}
}

func fileExists(root, rel string) bool {
	_, err := os.Stat(filepath.Join(root, rel))
	return err == nil
}
