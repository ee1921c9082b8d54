package cmd

import (
	"testing"
	"time"
)

func TestDiffCommand(t *testing.T) {
	repo := setupProject(t)

	createTestWorkspace(t, "before", []string{"baseline"})
	repo.CreateFile("train.py", "epochs = 20\n")
	repo.CreateFile("scratch.py", "tmp\n")
	saveInclude = []string{"train.py", "scratch.py"}
	saveTags = []string{"baseline", "sweep"}
	if err := runSave(nil, []string{"after"}); err != nil {
		t.Fatalf("save command failed: %v", err)
	}

	if err := runDiff(nil, []string{"before", "after"}); err != nil {
		t.Fatalf("diff command failed: %v", err)
	}

	diffJSON = true
	if err := runDiff(nil, []string{"before", "after"}); err != nil {
		t.Fatalf("diff --json failed: %v", err)
	}
}

func TestCompareWorkspaces(t *testing.T) {
	now := time.Now()
	s1 := workspaceSummary{
		Name:      "a",
		CreatedAt: now,
		Mode:      "git",
		Commit:    "1111111111",
		Changed:   []string{"x.py", "y.py"},
		Tags:      []string{"baseline", "old"},
	}
	s2 := workspaceSummary{
		Name:      "b",
		CreatedAt: now.Add(48 * time.Hour),
		Mode:      "git+archive",
		Commit:    "1111111111",
		Changed:   []string{"y.py"},
		Archived:  []string{"notes.py"},
		Tags:      []string{"baseline", "sweep"},
	}

	diff := compareWorkspaces(s1, s2)
	if !diff.ModeChanged || diff.CommitChanged {
		t.Errorf("unexpected mode/commit comparison: %+v", diff)
	}
	if len(diff.ChangedOnly1) != 1 || diff.ChangedOnly1[0] != "x.py" {
		t.Errorf("expected x.py changed only in a, got %v", diff.ChangedOnly1)
	}
	if len(diff.ArchivedOnly2) != 1 || diff.ArchivedOnly2[0] != "notes.py" {
		t.Errorf("expected notes.py archived only in b, got %v", diff.ArchivedOnly2)
	}
	if len(diff.TagsAdded) != 1 || diff.TagsAdded[0] != "sweep" {
		t.Errorf("expected tag sweep added, got %v", diff.TagsAdded)
	}
	if len(diff.TagsRemoved) != 1 || diff.TagsRemoved[0] != "old" {
		t.Errorf("expected tag old removed, got %v", diff.TagsRemoved)
	}
	if diff.TimeDifference != "2 days (b is newer)" {
		t.Errorf("unexpected time difference: %s", diff.TimeDifference)
	}
}
