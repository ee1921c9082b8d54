// Package snapshot backs up and restores the code state of an experiment.
//
// Code is captured one of two ways. When the experiment lives in a git
// repository, the workspace records the HEAD commit and the diff between HEAD
// and the working tree, and files the repository does not track go into a
// code archive. Without a repository (or when archive mode is forced) every
// relevant file goes into the code archive.
//
// Restore replays the record first and extracts the archive second, so
// archived files win where both cover a path. Before touching anything, the
// first restore into a workspace keeps a copy of what it is about to
// overwrite, which RestoreCurrent replays.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pders01/tret/internal/git"
	"github.com/pders01/tret/internal/manifest"
	"github.com/pders01/tret/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	// ErrWorkspaceMissing is returned when the workspace directory does not exist
	ErrWorkspaceMissing = errors.New("workspace directory does not exist")

	// ErrCorrupt is returned when a workspace has neither a VCS record nor a code archive
	ErrCorrupt = errors.New("workspace snapshot is corrupt")

	// ErrNoSafetyCopy is returned by RestoreCurrent when no restore has been made yet
	ErrNoSafetyCopy = errors.New("workspace has no pre-restore copy")

	// ErrOutsideProject is returned when a file to back up lies outside the project root
	ErrOutsideProject = errors.New("file is outside the project root")
)

// Repo is the part of a git repository the engine works with
type Repo interface {
	Dir() string
	GitDir() string
	HeadCommit() (string, error)
	Diff(commit string) (string, error)
	TrackedFiles() (map[string]struct{}, error)
	TreeFiles(commit string) ([]string, error)
	Branch() (string, error)
	Checkout(commit string) error
	CheckoutBranch(branch, commit string) error
	ApplyPatch(diff string) error
}

// VCS finds and opens repositories
type VCS interface {
	// Locate returns the repository enclosing start, bounded by projectRoot
	Locate(start, projectRoot string) (Repo, bool)
	// Open opens the repository recorded at path
	Open(path string) (Repo, error)
}

type gitVCS struct{}

func (gitVCS) Locate(start, projectRoot string) (Repo, bool) {
	loc := git.Locate(start, projectRoot)
	if !loc.Found {
		return nil, false
	}
	return loc.Repo, true
}

func (gitVCS) Open(path string) (Repo, error) {
	return git.Open(path)
}

// GitVCS returns the VCS backed by the git binary
func GitVCS() VCS {
	return gitVCS{}
}

// Engine backs up and restores the code of the project rooted at ProjectRoot
type Engine struct {
	ProjectRoot string
	VCS         VCS
	Classifier  manifest.Classifier
	Log         logrus.FieldLogger
}

// New creates an Engine for projectRoot using git and the given classifier
func New(projectRoot string, classifier manifest.Classifier, log logrus.FieldLogger) (*Engine, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	if classifier == nil {
		classifier = manifest.Static{}
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Engine{
		ProjectRoot: root,
		VCS:         GitVCS(),
		Classifier:  classifier,
		Log:         log,
	}, nil
}

// abs resolves path against the project root
func (e *Engine) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(e.ProjectRoot, path)
}

// workspace resolves and checks a workspace directory
func (e *Engine) workspace(workspaceDir string) (string, error) {
	ws := e.abs(workspaceDir)
	info, err := os.Stat(ws)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrWorkspaceMissing, ws)
	}
	return ws, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func readGitInfo(path string) (*models.GitInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read VCS record: %w", err)
	}
	var info models.GitInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse VCS record %s: %w", path, err)
	}
	if info.RepoPath == "" || info.CommitHash == "" {
		return nil, fmt.Errorf("%w: VCS record %s is incomplete", ErrCorrupt, path)
	}
	return &info, nil
}

func writeGitInfo(path string, info *models.GitInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal VCS record: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write VCS record: %w", err)
	}
	return nil
}
