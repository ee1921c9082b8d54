package models

import "path/filepath"

// Files persisted under a workspace directory
const (
	GitInfoFile         = ".gitinfo"
	CurrentGitInfoFile  = "current-gitinfo.json"
	CodesArchiveFile    = "codes.tar.gz"
	CurrentCodesArchive = "current-codes.tar.gz"
	RequirementsFile    = "tret-requirements.txt"
	AttributesFile      = ".tretattributes"
	DataDir             = "data"
	DataArchiveFile     = "data.tar.gz"
)

// GitInfoPath returns the path to the VCS info record of a workspace
func GitInfoPath(workspaceDir string) string {
	return filepath.Join(workspaceDir, GitInfoFile)
}

// CurrentGitInfoPath returns the path to the pre-restore VCS record
func CurrentGitInfoPath(workspaceDir string) string {
	return filepath.Join(workspaceDir, CurrentGitInfoFile)
}

// CodesArchivePath returns the path to the code archive of a workspace
func CodesArchivePath(workspaceDir string) string {
	return filepath.Join(workspaceDir, CodesArchiveFile)
}

// CurrentCodesArchivePath returns the path to the pre-restore safety archive
func CurrentCodesArchivePath(workspaceDir string) string {
	return filepath.Join(workspaceDir, CurrentCodesArchive)
}

// AttributesPath returns the path to .tretattributes for a workspace
func AttributesPath(workspaceDir string) string {
	return filepath.Join(workspaceDir, AttributesFile)
}
