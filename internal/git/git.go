package git

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var (
	// ErrNotRepoRoot is returned by Open when the path is not the top level of a work tree
	ErrNotRepoRoot = errors.New("not a git repository root")

	// ErrBranchMoved is returned by CheckoutBranch when the branch no longer points at the expected commit
	ErrBranchMoved = errors.New("branch has moved")
)

// Repository is a git work tree on disk
type Repository struct {
	dir    string
	gitDir string
}

// Open opens the repository whose work tree top level is path. A path
// naming the metadata directory of a work tree opens that work tree: the
// .git directory of a plain repository, .git/worktrees/<name> of a linked
// work tree or .git/modules/<name> of a submodule.
func Open(path string) (*Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if top, ok := workTreeOf(abs); ok {
		abs = top
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotRepoRoot, abs)
	}

	r := &Repository{dir: abs}
	topLevel, err := r.run(nil, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRepoRoot, abs)
	}
	if !samePath(strings.TrimSpace(topLevel), abs) {
		return nil, fmt.Errorf("%w: %s (top level is %s)", ErrNotRepoRoot, abs, strings.TrimSpace(topLevel))
	}

	gitDir, err := r.run(nil, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve git dir: %w", err)
	}
	r.gitDir = strings.TrimSpace(gitDir)
	return r, nil
}

// Dir returns the work tree top level
func (r *Repository) Dir() string {
	return r.dir
}

// GitDir returns the absolute path of the repository's metadata directory
func (r *Repository) GitDir() string {
	return r.gitDir
}

// HeadCommit returns the commit hash of HEAD
func (r *Repository) HeadCommit() (string, error) {
	out, err := r.run(nil, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get current commit: %w", err)
	}
	return validateSha(out)
}

// Diff returns the diff between commit and the working tree, binary changes included
func (r *Repository) Diff(commit string) (string, error) {
	out, err := r.run(nil, "diff", "--binary", "--no-color", "--no-ext-diff", "--no-textconv", commit)
	if err != nil {
		return "", fmt.Errorf("failed to get diff: %w", err)
	}
	return out, nil
}

// TrackedFiles returns the absolute paths of every file in the index
func (r *Repository) TrackedFiles() (map[string]struct{}, error) {
	out, err := r.run(nil, "ls-files", "-z")
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked files: %w", err)
	}

	tracked := make(map[string]struct{})
	for _, name := range strings.Split(out, "\x00") {
		if name == "" {
			continue
		}
		tracked[filepath.Join(r.dir, filepath.FromSlash(name))] = struct{}{}
	}
	return tracked, nil
}

// Branch returns the short name of the checked out branch, or "" on a detached HEAD
func (r *Repository) Branch() (string, error) {
	out, err := r.run(nil, "symbolic-ref", "--short", "-q", "HEAD")
	if err != nil {
		var exitErr *exec.ExitError
		// exit status 1 means HEAD is detached
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", nil
		}
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// TreeFiles returns the absolute paths of every file in commit
func (r *Repository) TreeFiles(commit string) ([]string, error) {
	out, err := r.run(nil, "ls-tree", "-r", "-z", "--name-only", commit)
	if err != nil {
		return nil, fmt.Errorf("failed to list files of %s: %w", commit, err)
	}

	var files []string
	for _, name := range strings.Split(out, "\x00") {
		if name == "" {
			continue
		}
		files = append(files, filepath.Join(r.dir, filepath.FromSlash(name)))
	}
	return files, nil
}

// CheckoutBranch force-checks out branch, provided it still points at commit
func (r *Repository) CheckoutBranch(branch, commit string) error {
	out, err := r.run(nil, "rev-parse", "--verify", "-q", "refs/heads/"+branch)
	if err != nil {
		return fmt.Errorf("%w: %s no longer exists", ErrBranchMoved, branch)
	}
	if strings.TrimSpace(out) != commit {
		return fmt.Errorf("%w: %s is at %s, not %s", ErrBranchMoved, branch, strings.TrimSpace(out), commit)
	}
	if _, err := r.run(nil, "checkout", "--force", branch); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", branch, err)
	}
	return nil
}

// Checkout force-checks out commit on a detached HEAD, discarding local changes to tracked files
func (r *Repository) Checkout(commit string) error {
	if _, err := r.run(nil, "checkout", "--force", "--detach", commit); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", commit, err)
	}
	return nil
}

// ApplyPatch applies a diff produced by Diff to the working tree. An empty diff is a no-op.
func (r *Repository) ApplyPatch(diff string) error {
	if strings.TrimSpace(diff) == "" {
		return nil
	}
	if _, err := r.run(strings.NewReader(diff), "apply", "--whitespace=nowarn", "-"); err != nil {
		return fmt.Errorf("failed to apply patch: %w", err)
	}
	return nil
}

func (r *Repository) run(stdin io.Reader, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.dir
	cmd.Stdin = stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("git %s: %w", args[0], err)
		}
		return "", fmt.Errorf("git %s: %s: %w", args[0], msg, err)
	}
	return string(output), nil
}

// workTreeOf maps a metadata directory to the top level of its work tree
func workTreeOf(dir string) (string, bool) {
	if filepath.Base(dir) == ".git" {
		return filepath.Dir(dir), true
	}
	if _, err := os.Stat(filepath.Join(dir, "HEAD")); err != nil {
		return "", false
	}

	// linked work tree: gitdir names the .git file inside the work tree
	if data, err := os.ReadFile(filepath.Join(dir, "gitdir")); err == nil {
		dotGit := strings.TrimSpace(string(data))
		if !filepath.IsAbs(dotGit) {
			dotGit = filepath.Join(dir, dotGit)
		}
		return filepath.Dir(filepath.Clean(dotGit)), true
	}

	// submodule: core.worktree is relative to the metadata directory
	config := filepath.Join(dir, "config")
	if _, err := os.Stat(config); err != nil {
		return "", false
	}
	out, err := exec.Command("git", "config", "--file", config, "--get", "core.worktree").Output()
	if err != nil {
		return "", false
	}
	wt := strings.TrimSpace(string(out))
	if wt == "" {
		return "", false
	}
	if !filepath.IsAbs(wt) {
		wt = filepath.Join(dir, wt)
	}
	return filepath.Clean(wt), true
}

// validateSha trims and validates a SHA-1 or SHA-256 object name
func validateSha(sha string) (string, error) {
	sha = strings.TrimSpace(sha)
	if len(sha) != 40 && len(sha) != 64 {
		return "", fmt.Errorf("invalid commit hash %q", sha)
	}
	for _, c := range sha {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return "", fmt.Errorf("invalid commit hash %q", sha)
		}
	}
	return sha, nil
}

func samePath(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	return errA == nil && errB == nil && ra == rb
}
