package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
)

// ArtifactFileName is the default artifact written after analysis and read
// by the later stages when the pipeline runs as separate processes.
const ArtifactFileName = "analysis-results.json"

// WriteArtifact persists an analysis result to disk.
func WriteArtifact(path string, result *AnalysisResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode analysis results: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write analysis results: %w", err)
	}
	return nil
}

// LoadArtifact reads a previously written analysis result.
func LoadArtifact(path string) (*AnalysisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis results: %w", err)
	}
	var result AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("invalid analysis results file: %w", err)
	}
	return &result, nil
}
