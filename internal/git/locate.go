package git

import (
	"path/filepath"
	"strings"
)

// Location is the result of Locate. Found is false when no repository
// encloses the search start within the allowed region.
type Location struct {
	Found bool
	Repo  *Repository
}

// Locate walks upward from start looking for a repository root. The walk
// continues only while projectRoot lies within the tested path or the tested
// path lies within projectRoot, so it never attaches to a repository in an
// unrelated part of the filesystem.
func Locate(start, projectRoot string) Location {
	p := filepath.Clean(start)
	root := filepath.Clean(projectRoot)

	for Within(root, p) || Within(p, root) {
		if repo, err := Open(p); err == nil {
			return Location{Found: true, Repo: repo}
		}
		parent := filepath.Dir(p)
		if parent == p {
			break
		}
		p = parent
	}
	return Location{}
}

// SearchStart returns where Locate should begin for a workspace: the
// workspace directory when it lies inside the project root, else the project
// root itself.
func SearchStart(workspaceDir, projectRoot string) string {
	if Within(workspaceDir, projectRoot) {
		return filepath.Clean(workspaceDir)
	}
	return filepath.Clean(projectRoot)
}

// Within reports whether path equals dir or lies below it, comparing whole
// path segments.
func Within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
