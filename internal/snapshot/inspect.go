package snapshot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pders01/tret/internal/archive"
	"github.com/pders01/tret/internal/manifest"
	"github.com/pders01/tret/internal/models"
)

// Summary describes the snapshot stored in a workspace
type Summary struct {
	Workspace    string   `json:"workspace"`
	RepoPath     string   `json:"repo_path,omitempty"`
	Commit       string   `json:"commit,omitempty"`
	DiffFiles    []string `json:"diff_files,omitempty"`
	Diff         string   `json:"-"`
	Archived     []string `json:"archived,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	HasRecord    bool     `json:"has_record"`
	HasArchive   bool     `json:"has_archive"`
	Restored     bool     `json:"restored"`
}

// Mode reports how the code was captured
func (s *Summary) Mode() models.CodeMode {
	switch {
	case s.HasRecord && s.HasArchive:
		return models.ModeGitArchive
	case s.HasRecord:
		return models.ModeGit
	default:
		return models.ModeArchive
	}
}

// Inspect reads the snapshot in workspaceDir without changing anything
func (e *Engine) Inspect(workspaceDir string) (*Summary, error) {
	ws, err := e.workspace(workspaceDir)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		Workspace:  ws,
		HasRecord:  fileExists(models.GitInfoPath(ws)),
		HasArchive: fileExists(models.CodesArchivePath(ws)),
		Restored: fileExists(models.CurrentCodesArchivePath(ws)) ||
			fileExists(models.CurrentGitInfoPath(ws)),
	}
	if !s.HasRecord && !s.HasArchive {
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, ws)
	}

	if s.HasRecord {
		info, err := readGitInfo(models.GitInfoPath(ws))
		if err != nil {
			return nil, err
		}
		s.RepoPath = info.RepoPath
		s.Commit = info.CommitHash
		s.Diff = info.Diff
		s.DiffFiles = DiffFiles(info.Diff)
	}

	if s.HasArchive {
		codes := models.CodesArchivePath(ws)
		members, err := archive.ListMembers(codes)
		if err != nil {
			return nil, fmt.Errorf("failed to list code archive: %w", err)
		}
		for _, m := range members {
			if m != models.RequirementsFile {
				s.Archived = append(s.Archived, m)
			}
		}

		data, err := archive.ReadMember(codes, models.RequirementsFile)
		switch {
		case err == nil:
			s.Requirements = manifest.ParseRequirements(string(data))
		case !errors.Is(err, archive.ErrMemberNotFound):
			return nil, err
		}
	}

	return s, nil
}

// DiffFiles returns the paths touched by a unified git diff
func DiffFiles(diff string) []string {
	var files []string
	for _, line := range strings.Split(diff, "\n") {
		if !strings.HasPrefix(line, "diff --git ") {
			continue
		}
		// diff --git a/<path> b/<path>
		i := strings.LastIndex(line, " b/")
		if i < 0 {
			continue
		}
		files = append(files, line[i+3:])
	}
	return files
}
