package snapshot

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pders01/tret/internal/archive"
	"github.com/pders01/tret/internal/git"
	"github.com/pders01/tret/internal/manifest"
	"github.com/pders01/tret/internal/models"
)

// BackupResult describes what a backup wrote
type BackupResult struct {
	Mode     models.CodeMode
	RepoPath string
	Commit   string
	// Archived holds the project-relative names stored in the code archive
	Archived []string
	// Tracked holds the project-relative names covered by the VCS record
	Tracked      []string
	Requirements []string
}

// Backup captures the code state of the project into workspaceDir. The
// relevant files are extraFiles plus the classifier's local files. With a
// repository enclosing the workspace search start, tracked files are
// covered by the commit hash and diff; everything else, or everything when
// forceArchive is set, goes into the code archive.
//
// A failed backup may leave partial artifacts behind.
func (e *Engine) Backup(workspaceDir string, extraFiles []string, forceArchive bool) (*BackupResult, error) {
	ws, err := e.workspace(workspaceDir)
	if err != nil {
		return nil, err
	}

	cls, err := e.Classifier.Classify()
	if err != nil {
		return nil, fmt.Errorf("failed to classify files: %w", err)
	}

	relevant, err := e.relevantFiles(append(append([]string{}, extraFiles...), cls.LocalFiles...), ws)
	if err != nil {
		return nil, err
	}
	requirements := manifest.Requirements(cls.Dependencies)

	// artifacts of an earlier backup into the same workspace
	for _, stale := range []string{models.GitInfoPath(ws), models.CodesArchivePath(ws)} {
		if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove previous snapshot: %w", err)
		}
	}

	log := e.Log.WithField("workspace", ws)
	result := &BackupResult{Requirements: requirements}

	repo, found := e.VCS.Locate(git.SearchStart(ws, e.ProjectRoot), e.ProjectRoot)
	if !found || forceArchive {
		if !found {
			log.Debug("no repository found, archiving all code")
		} else {
			log.Debug("archive mode forced")
		}
		if err := e.writeCodesArchive(ws, relevant, requirements); err != nil {
			return nil, err
		}
		result.Mode = models.ModeArchive
		result.Archived = e.relNames(relevant)
		return result, nil
	}

	tracked, err := repo.TrackedFiles()
	if err != nil {
		return nil, err
	}
	var untracked []string
	for _, path := range relevant {
		if _, ok := tracked[path]; ok {
			result.Tracked = append(result.Tracked, e.relName(path))
		} else {
			untracked = append(untracked, path)
		}
	}

	result.Mode = models.ModeGit
	if len(untracked) > 0 {
		if err := e.writeCodesArchive(ws, untracked, requirements); err != nil {
			return nil, err
		}
		result.Mode = models.ModeGitArchive
		result.Archived = e.relNames(untracked)
	}

	commit, err := repo.HeadCommit()
	if err != nil {
		return nil, err
	}
	diff, err := repo.Diff(commit)
	if err != nil {
		return nil, err
	}
	info := &models.GitInfo{
		RepoPath:   repo.GitDir(),
		CommitHash: commit,
		Diff:       diff,
	}
	if err := writeGitInfo(models.GitInfoPath(ws), info); err != nil {
		return nil, err
	}
	log.WithField("commit", commit).Debugf("recorded repository %s", repo.Dir())

	result.RepoPath = info.RepoPath
	result.Commit = commit
	return result, nil
}

// relevantFiles resolves paths against the project root, expands
// directories into the files below them and drops duplicates. The workspace
// directory itself is never collected.
func (e *Engine) relevantFiles(paths []string, ws string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, p := range paths {
		path := e.abs(p)
		if !git.Within(path, e.ProjectRoot) {
			path = resolveParent(path)
		}
		if !git.Within(path, e.ProjectRoot) {
			return nil, fmt.Errorf("%w: %s", ErrOutsideProject, p)
		}

		info, err := os.Lstat(path)
		if err != nil || !info.IsDir() {
			// missing files surface when they are archived
			add(path)
			continue
		}

		err = filepath.WalkDir(path, func(sub string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if sub == ws || d.Name() == ".git" || archive.IsExcluded(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			add(sub)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to collect files in %s: %w", p, err)
		}
	}
	return files, nil
}

// resolveParent resolves symlinks in the directory part of path, leaving the
// final element alone
func resolveParent(path string) string {
	dir, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		return path
	}
	return filepath.Join(dir, filepath.Base(path))
}

func (e *Engine) writeCodesArchive(ws string, files, requirements []string) error {
	tmp, err := os.CreateTemp("", "tret-requirements-*.txt")
	if err != nil {
		return fmt.Errorf("failed to create requirements file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strings.Join(requirements, "\n")); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write requirements: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write requirements: %w", err)
	}

	paths := append(append([]string{}, files...), tmp.Name())
	names := append(e.relNames(files), models.RequirementsFile)

	output := models.CodesArchivePath(ws)
	if err := archive.Create(paths, output, archive.Options{ArcNames: names}); err != nil {
		return fmt.Errorf("failed to create code archive: %w", err)
	}
	e.Log.Debugf("archived %d file(s) into %s", len(files), output)
	return nil
}

func (e *Engine) relName(path string) string {
	rel, err := filepath.Rel(e.ProjectRoot, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (e *Engine) relNames(paths []string) []string {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, e.relName(p))
	}
	return names
}
