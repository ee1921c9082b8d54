package models

import "time"

// DataMode defines how data files are stored in a workspace
type DataMode string

const (
	DataSymlink DataMode = "symlink"
	DataCopy    DataMode = "copy"
	DataArchive DataMode = "archive"
)

// CodeMode records how the code half of a snapshot was captured
type CodeMode string

const (
	ModeGit        CodeMode = "git"
	ModeGitArchive CodeMode = "git+archive"
	ModeArchive    CodeMode = "archive"
)

// Attributes represents the .tretattributes structure for a workspace
type Attributes struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	Mode      CodeMode       `json:"mode"`
	Commit    string         `json:"commit,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	Notes     string         `json:"notes,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Data      *DataInfo      `json:"data,omitempty"`
}

// DataInfo describes the data files stored alongside the code snapshot
type DataInfo struct {
	Mode  DataMode `json:"mode"`
	Files []string `json:"files"`
}

// GitInfo is the VCS info record of a snapshot. The same schema is used for
// the pre-restore safety record.
type GitInfo struct {
	RepoPath   string `json:"GIT_REPO_PATH"`
	CommitHash string `json:"GIT_COMMIT_HASH"`
	Diff       string `json:"GIT_DIFF_INFO"`
	// Branch is the branch HEAD was on, set only in the pre-restore record
	Branch string `json:"GIT_BRANCH,omitempty"`
}
