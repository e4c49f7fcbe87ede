package util_test

import (
	"os"
	"path/filepath"
	"testing"

	"deckhand/pkg/util"
)

func TestValidateProjectPath(t *testing.T) {
	dir := t.TempDir()

	abs, err := util.ValidateProjectPath(dir)
	if err != nil {
		t.Fatalf("ValidateProjectPath failed: %v", err)
	}
	if !filepath.IsAbs(abs) {
		t.Errorf("Expected absolute path, got %q", abs)
	}

	if _, err := util.ValidateProjectPath(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for missing path")
	}

	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := util.ValidateProjectPath(file); err == nil {
		t.Error("Expected error for a non-directory path")
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in       int64
		expected string
	}{
		{512, "512.0 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}

	for _, tt := range tests {
		if got := util.FormatSize(tt.in); got != tt.expected {
			t.Errorf("FormatSize(%d) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

func TestIsGitRepository(t *testing.T) {
	dir := t.TempDir()
	if util.IsGitRepository(dir) {
		t.Error("Plain directory must not be a git repository")
	}

	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0755); err != nil {
		t.Fatalf("Failed to create .git: %v", err)
	}
	if !util.IsGitRepository(dir) {
		t.Error("Directory with .git must be a git repository")
	}
}

func TestGitCommandsOutsideRepository(t *testing.T) {
	if _, err := util.GitBranch(t.TempDir()); err == nil {
		t.Error("Expected error outside a git repository")
	}
}
