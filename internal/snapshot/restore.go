package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pders01/tret/internal/archive"
	"github.com/pders01/tret/internal/git"
	"github.com/pders01/tret/internal/models"
)

// RestoreResult describes what a restore did
type RestoreResult struct {
	// Commit is the commit checked out, empty without a VCS record
	Commit string
	// Extracted is the number of archive members written to the project
	Extracted int
	// SafetyArchive is set when this restore wrote the pre-restore archive
	SafetyArchive string
	// SafetyRecord is set when this restore wrote the pre-restore VCS record
	SafetyRecord string
}

// Restore brings the project back to the code state captured in
// workspaceDir. The recorded commit is checked out and the recorded diff
// applied, then the code archive is extracted over the project root.
//
// The first restore into a workspace keeps the current HEAD, branch and diff
// of the repository, and the current content of every file the restore is
// about to overwrite: archive members, and untracked files the recorded
// commit tracks. Later restores leave those copies alone.
func (e *Engine) Restore(workspaceDir string) (*RestoreResult, error) {
	ws, err := e.workspace(workspaceDir)
	if err != nil {
		return nil, err
	}

	infoPath := models.GitInfoPath(ws)
	codesPath := models.CodesArchivePath(ws)
	hasInfo, hasCodes := fileExists(infoPath), fileExists(codesPath)
	if !hasInfo && !hasCodes {
		return nil, fmt.Errorf("%w: %s has neither %s nor %s", ErrCorrupt, ws, models.GitInfoFile, models.CodesArchiveFile)
	}

	var info *models.GitInfo
	var repo Repo
	if hasInfo {
		if info, err = readGitInfo(infoPath); err != nil {
			return nil, err
		}
		if repo, err = e.VCS.Open(info.RepoPath); err != nil {
			return nil, fmt.Errorf("failed to open recorded repository %s: %w", info.RepoPath, err)
		}
	}

	result := &RestoreResult{}

	safetyPath := models.CurrentCodesArchivePath(ws)
	firstRestore := !fileExists(safetyPath) && !fileExists(models.CurrentGitInfoPath(ws))
	if firstRestore {
		created, err := e.backupCurrentCodes(ws, repo, info, hasCodes)
		if err != nil {
			return nil, err
		}
		if created {
			result.SafetyArchive = safetyPath
			e.Log.WithField("archive", safetyPath).Infof(
				"Backed up current code into %s; run `tret restore --current` to go back to it",
				safetyPath,
			)
		}
	}

	if hasInfo {
		current := models.CurrentGitInfoPath(ws)
		if !fileExists(current) {
			if err := recordCurrent(repo, current); err != nil {
				return nil, err
			}
			result.SafetyRecord = current
			e.Log.WithField("record", current).Infof("Recorded current repository state in %s", current)
		}

		if err := replay(repo, info); err != nil {
			return nil, err
		}
		result.Commit = info.CommitHash
		e.Log.WithField("commit", info.CommitHash).Debugf("restored repository %s", repo.Dir())
	}

	if hasCodes {
		n, err := e.extractCodes(codesPath)
		if err != nil {
			return nil, err
		}
		result.Extracted = n
	}

	return result, nil
}

// RestoreCurrent replays the copies taken by the first Restore into
// workspaceDir, returning the project to the code state it had before. HEAD
// goes back onto the recorded branch when that branch has not moved.
// Files that Restore created and that did not exist before are left in place.
func (e *Engine) RestoreCurrent(workspaceDir string) (*RestoreResult, error) {
	ws, err := e.workspace(workspaceDir)
	if err != nil {
		return nil, err
	}

	recordPath := models.CurrentGitInfoPath(ws)
	safetyPath := models.CurrentCodesArchivePath(ws)
	hasRecord, hasSafety := fileExists(recordPath), fileExists(safetyPath)
	if !hasRecord && !hasSafety {
		return nil, fmt.Errorf("%w: %s", ErrNoSafetyCopy, ws)
	}

	result := &RestoreResult{}
	if hasRecord {
		info, err := readGitInfo(recordPath)
		if err != nil {
			return nil, err
		}
		repo, err := e.VCS.Open(info.RepoPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open recorded repository %s: %w", info.RepoPath, err)
		}
		if err := e.replayOnBranch(repo, info); err != nil {
			return nil, err
		}
		result.Commit = info.CommitHash
	}

	if hasSafety {
		n, err := e.extractCodes(safetyPath)
		if err != nil {
			return nil, err
		}
		result.Extracted = n
	}
	return result, nil
}

// backupCurrentCodes archives the project files a restore would overwrite:
// the members of the code archive when there is one, and the files of the
// recorded commit that exist on disk but are untracked now. Nothing is
// written when there is no code archive and nothing untracked is in the way.
func (e *Engine) backupCurrentCodes(ws string, repo Repo, info *models.GitInfo, hasCodes bool) (bool, error) {
	seen := make(map[string]bool)
	var paths, names []string
	add := func(path, name string) {
		if seen[name] || !git.Within(path, e.ProjectRoot) {
			return
		}
		if _, err := os.Lstat(path); err != nil {
			return
		}
		seen[name] = true
		paths = append(paths, path)
		names = append(names, name)
	}

	if hasCodes {
		members, err := archive.ListMembers(models.CodesArchivePath(ws))
		if err != nil {
			return false, fmt.Errorf("failed to list code archive: %w", err)
		}
		for _, name := range members {
			add(filepath.Join(e.ProjectRoot, filepath.FromSlash(name)), name)
		}
	}

	if repo != nil {
		untracked, err := untrackedInTree(repo, info.CommitHash)
		if err != nil {
			return false, err
		}
		for _, path := range untracked {
			add(path, e.relName(path))
		}
		if len(untracked) > 0 {
			e.Log.Debugf("%d untracked file(s) are in the way of %s", len(untracked), info.CommitHash)
		}
	}

	if !hasCodes && len(paths) == 0 {
		return false, nil
	}

	safetyPath := models.CurrentCodesArchivePath(ws)
	if err := archive.Create(paths, safetyPath, archive.Options{ArcNames: names}); err != nil {
		return false, fmt.Errorf("failed to back up current code: %w", err)
	}
	e.Log.Debugf("backed up %d current file(s) into %s", len(paths), safetyPath)
	return true, nil
}

// untrackedInTree returns the files of commit that exist in the work tree
// but are not tracked, which a forced checkout would overwrite
func untrackedInTree(repo Repo, commit string) ([]string, error) {
	files, err := repo.TreeFiles(commit)
	if err != nil {
		return nil, err
	}
	tracked, err := repo.TrackedFiles()
	if err != nil {
		return nil, err
	}

	var untracked []string
	for _, path := range files {
		if _, ok := tracked[path]; ok {
			continue
		}
		if info, err := os.Lstat(path); err == nil && !info.IsDir() {
			untracked = append(untracked, path)
		}
	}
	return untracked, nil
}

// extractCodes extracts a code archive over the project root and removes
// the requirements file it carries
func (e *Engine) extractCodes(archivePath string) (int, error) {
	members, err := archive.ListMembers(archivePath)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", archivePath, err)
	}
	if err := archive.Extract(archivePath, e.ProjectRoot); err != nil {
		return 0, fmt.Errorf("failed to extract %s: %w", archivePath, err)
	}

	requirements := filepath.Join(e.ProjectRoot, models.RequirementsFile)
	if err := os.Remove(requirements); err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("failed to remove %s: %w", requirements, err)
	}

	n := 0
	for _, m := range members {
		if m != models.RequirementsFile {
			n++
		}
	}
	return n, nil
}

func recordCurrent(repo Repo, path string) error {
	head, err := repo.HeadCommit()
	if err != nil {
		return err
	}
	diff, err := repo.Diff(head)
	if err != nil {
		return err
	}
	branch, err := repo.Branch()
	if err != nil {
		return err
	}
	return writeGitInfo(path, &models.GitInfo{
		RepoPath:   repo.GitDir(),
		CommitHash: head,
		Diff:       diff,
		Branch:     branch,
	})
}

// replayOnBranch is replay, but checks out the recorded branch instead of a
// detached commit when the branch still points at the recorded commit
func (e *Engine) replayOnBranch(repo Repo, info *models.GitInfo) error {
	if info.Branch == "" {
		return replay(repo, info)
	}

	err := repo.CheckoutBranch(info.Branch, info.CommitHash)
	switch {
	case errors.Is(err, git.ErrBranchMoved):
		e.Log.WithField("branch", info.Branch).Warnf("%v; leaving HEAD detached at %s", err, info.CommitHash)
		return replay(repo, info)
	case err != nil:
		return err
	}
	if err := repo.ApplyPatch(info.Diff); err != nil {
		return fmt.Errorf("recorded diff no longer applies to %s: %w", info.Branch, err)
	}
	return nil
}

func replay(repo Repo, info *models.GitInfo) error {
	if err := repo.Checkout(info.CommitHash); err != nil {
		return err
	}
	if err := repo.ApplyPatch(info.Diff); err != nil {
		return fmt.Errorf("recorded diff no longer applies to %s: %w", info.CommitHash, err)
	}
	return nil
}
