package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TempGitRepo creates a temporary git repository for testing
type TempGitRepo struct {
	Path string
	T    *testing.T
}

// NewTempGitRepo creates a new temporary git repository with one commit
func NewTempGitRepo(t *testing.T) *TempGitRepo {
	t.Helper()

	// Create temp directory
	tmpDir, err := os.MkdirTemp("", "tret-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	// Resolve symlinked temp roots so paths compare equal to git's output
	if resolved, err := filepath.EvalSymlinks(tmpDir); err == nil {
		tmpDir = resolved
	}

	repo := &TempGitRepo{Path: tmpDir, T: t}

	// Initialize git repo and configure a user (required for commits)
	setupCmds := [][]string{
		{"init"},
		{"config", "user.name", "Test User"},
		{"config", "user.email", "test@example.com"},
		{"config", "commit.gpgsign", "false"},
	}
	for _, args := range setupCmds {
		cmd := exec.Command("git", args...)
		cmd.Dir = tmpDir
		if err := cmd.Run(); err != nil {
			os.RemoveAll(tmpDir)
			t.Fatalf("failed to run git %s: %v", args[0], err)
		}
	}

	// Create initial commit
	repo.CreateFile("README.md", "# Test Repository\n")
	repo.Commit("Initial commit")

	return repo
}

// Cleanup removes the temporary git repository
func (r *TempGitRepo) Cleanup() {
	r.T.Helper()
	if err := os.RemoveAll(r.Path); err != nil {
		r.T.Errorf("failed to cleanup temp repo: %v", err)
	}
}

// CreateFile creates a file in the repository
func (r *TempGitRepo) CreateFile(name, content string) {
	r.T.Helper()
	path := filepath.Join(r.Path, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		r.T.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		r.T.Fatalf("failed to create file: %v", err)
	}
}

// ReadFile returns the working tree content of a file
func (r *TempGitRepo) ReadFile(name string) string {
	r.T.Helper()
	data, err := os.ReadFile(filepath.Join(r.Path, name))
	if err != nil {
		r.T.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

// Commit stages and commits all changes
func (r *TempGitRepo) Commit(message string) {
	r.T.Helper()
	r.Git("add", ".")
	r.Git("commit", "-m", message)
}

// Head returns the commit hash of HEAD
func (r *TempGitRepo) Head() string {
	r.T.Helper()
	return strings.TrimSpace(r.Git("rev-parse", "HEAD"))
}

// Git runs a git command in the repository and returns its output
func (r *TempGitRepo) Git(args ...string) string {
	r.T.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = r.Path
	output, err := cmd.CombinedOutput()
	if err != nil {
		r.T.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, output)
	}
	return string(output)
}

// Chdir switches the process into the repository and returns a func that switches back
func (r *TempGitRepo) Chdir() func() {
	r.T.Helper()
	return Chdir(r.T, r.Path)
}

// Chdir switches the process into dir and returns a func that switches back
func Chdir(t *testing.T, dir string) func() {
	t.Helper()
	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to chdir to %s: %v", dir, err)
	}
	return func() { os.Chdir(oldWd) }
}

// TempDir creates a temporary directory outside of any repository
func TempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}
	return dir
}
