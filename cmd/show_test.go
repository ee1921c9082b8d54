package cmd

import (
	"testing"
)

func TestShowCommand(t *testing.T) {
	repo := setupProject(t)

	repo.CreateFile("train.py", "epochs = 20\n")
	repo.CreateFile("scratch.py", "tmp\n")
	saveInclude = []string{"train.py", "scratch.py"}
	saveNotes = "try more epochs"
	if err := runSave(nil, []string{"exp"}); err != nil {
		t.Fatalf("save command failed: %v", err)
	}

	resetFlags()
	showDiff = true
	if err := runShow(nil, []string{"exp"}); err != nil {
		t.Fatalf("show command failed: %v", err)
	}

	resetFlags()
	showJSON = true
	if err := runShow(nil, []string{"exp"}); err != nil {
		t.Fatalf("show --json failed: %v", err)
	}
}

func TestShowMissingWorkspace(t *testing.T) {
	setupProject(t)

	if err := runShow(nil, []string{"missing"}); err == nil {
		t.Error("expected error for missing workspace")
	}
}
