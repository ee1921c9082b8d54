package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pders01/tret/internal/models"
	"github.com/pders01/tret/internal/testutil"
	"github.com/pders01/tret/internal/workspace"
)

func TestListNoWorkspaces(t *testing.T) {
	setupProject(t)

	// Should succeed with no workspaces
	if err := runList(nil, []string{}); err != nil {
		t.Fatalf("list command failed: %v", err)
	}
}

func TestListWithWorkspaces(t *testing.T) {
	setupProject(t)

	createTestWorkspace(t, "first", []string{"tag1"})
	createTestWorkspace(t, "second", []string{"tag2"})

	if err := runList(nil, []string{}); err != nil {
		t.Fatalf("list command failed: %v", err)
	}

	listJSON = true
	if err := runList(nil, []string{}); err != nil {
		t.Fatalf("list --json failed: %v", err)
	}

	listJSON = false
	listToon = true
	if err := runList(nil, []string{}); err != nil {
		t.Fatalf("list --toon failed: %v", err)
	}
}

func TestListInvalidSinceDate(t *testing.T) {
	setupProject(t)

	listSince = "not-a-date"
	if err := runList(nil, []string{}); err == nil {
		t.Error("expected error for invalid date format")
	}
}

func TestFilterEntries(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 5, d, 0, 0, 0, 0, time.UTC) }
	entries := []workspace.Entry{
		{Name: "a", Attributes: &models.Attributes{CreatedAt: day(3), Tags: []string{"important"}}},
		{Name: "b", Attributes: &models.Attributes{CreatedAt: day(2)}},
		{Name: "c"},
	}

	tests := []struct {
		name  string
		tag   string
		since time.Time
		want  []string
	}{
		{"no filter", "", time.Time{}, []string{"a", "b", "c"}},
		{"by tag", "important", time.Time{}, []string{"a"}},
		{"since", "", day(2), []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := filterEntries(entries, tt.tag, tt.since)
			var got []string
			for _, item := range items {
				got = append(got, item.Name)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

// createTestWorkspace saves a workspace through the save command
func createTestWorkspace(t *testing.T, name string, tags []string) {
	t.Helper()

	saveInclude = []string{}
	saveData = []string{}
	saveDataMode = ""
	saveForceArchive = false
	saveTags = tags
	saveNotes = ""
	saveMeta = []string{}

	if err := runSave(nil, []string{name}); err != nil {
		t.Fatalf("failed to create test workspace: %v", err)
	}
}

// ageWorkspace moves the creation time of a workspace days into the past
func ageWorkspace(t *testing.T, repo *testutil.TempGitRepo, name string, days int) {
	t.Helper()

	attrs := readAttributes(t, repo, name)
	attrs.CreatedAt = time.Now().AddDate(0, 0, -days)

	data, err := json.MarshalIndent(attrs, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	path := models.AttributesPath(filepath.Join(repo.Path, "workspaces", name))
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}
