package util

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// IsGitRepository checks if the given path is a Git repository
func IsGitRepository(repoPath string) bool {
	info, err := os.Stat(filepath.Join(repoPath, ".git"))
	return err == nil && info.IsDir()
}

// GitRemoteURL returns the remote origin URL for the repository
func GitRemoteURL(repoPath string) (string, error) {
	return gitOutput(repoPath, "config", "--get", "remote.origin.url")
}

// GitBranch returns the currently checked-out branch name
func GitBranch(repoPath string) (string, error) {
	return gitOutput(repoPath, "rev-parse", "--abbrev-ref", "HEAD")
}

// GitCommit returns the HEAD commit SHA
func GitCommit(repoPath string) (string, error) {
	return gitOutput(repoPath, "rev-parse", "HEAD")
}

func gitOutput(repoPath string, args ...string) (string, error) {
	if !IsGitRepository(repoPath) {
		return "", fmt.Errorf("not a git repository: %s", repoPath)
	}

	cmd := exec.Command("git", append([]string{"-C", repoPath}, args...)...)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s failed: %w", strings.Join(args, " "), err)
	}

	value := strings.TrimSpace(string(output))
	if value == "" {
		return "", fmt.Errorf("git %s returned no output", strings.Join(args, " "))
	}
	return value, nil
}
