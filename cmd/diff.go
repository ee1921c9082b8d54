package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/alpkeskin/gotoon"
	"github.com/pders01/tret/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	diffJSON bool
	diffToon bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <name1> <name2>",
	Short: "Compare two workspaces",
	Long: `Compare two workspaces and show differences in:
  - Code mode and recorded commit
  - Files changed against the commit and files archived
  - Tags, notes and save time

Example:
  tret diff baseline lr-sweep`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Output as JSON")
	diffCmd.Flags().BoolVar(&diffToon, "toon", false, "Output in LLM-friendly toon format")
}

type workspaceDiff struct {
	Workspace1     workspaceSummary `json:"workspace1"`
	Workspace2     workspaceSummary `json:"workspace2"`
	TimeDifference string           `json:"time_difference"`
	ModeChanged    bool             `json:"mode_changed"`
	CommitChanged  bool             `json:"commit_changed"`
	NotesChanged   bool             `json:"notes_changed"`
	ChangedOnly1   []string         `json:"changed_only1"`
	ChangedOnly2   []string         `json:"changed_only2"`
	ArchivedOnly1  []string         `json:"archived_only1"`
	ArchivedOnly2  []string         `json:"archived_only2"`
	TagsAdded      []string         `json:"tags_added"`
	TagsRemoved    []string         `json:"tags_removed"`
	TagsShared     []string         `json:"tags_shared"`
}

type workspaceSummary struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Mode      string    `json:"mode"`
	Commit    string    `json:"commit"`
	Changed   []string  `json:"changed"`
	Archived  []string  `json:"archived"`
	Tags      []string  `json:"tags"`
	Notes     string    `json:"notes"`
}

func runDiff(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	s1, err := summarize(mgr, args[0])
	if err != nil {
		return err
	}
	s2, err := summarize(mgr, args[1])
	if err != nil {
		return err
	}

	diff := compareWorkspaces(s1, s2)

	// Output JSON if requested
	if diffJSON {
		output, err := json.MarshalIndent(diff, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	// Output Toon if requested
	if diffToon {
		output, err := gotoon.Encode(diff)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	// Display human-readable diff
	fmt.Println("Workspace Comparison")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	fmt.Printf("Workspace 1: %s\n", s1.Name)
	fmt.Printf("Workspace 2: %s\n", s2.Name)
	fmt.Println()

	if diff.TimeDifference != "" {
		fmt.Printf("Time Difference: %s\n\n", diff.TimeDifference)
	}

	if diff.ModeChanged {
		fmt.Printf("Mode: %s → %s\n", s1.Mode, s2.Mode)
	} else {
		fmt.Printf("Mode: %s (unchanged)\n", s1.Mode)
	}

	switch {
	case diff.CommitChanged:
		fmt.Printf("Commit: %s → %s\n", shortOrNone(s1.Commit), shortOrNone(s2.Commit))
	case s1.Commit != "":
		fmt.Printf("Commit: %s (unchanged)\n", shortHash(s1.Commit))
	}
	fmt.Println()

	printOnly("Changed only in", s1.Name, diff.ChangedOnly1)
	printOnly("Changed only in", s2.Name, diff.ChangedOnly2)
	printOnly("Archived only in", s1.Name, diff.ArchivedOnly1)
	printOnly("Archived only in", s2.Name, diff.ArchivedOnly2)

	if len(diff.TagsAdded) > 0 || len(diff.TagsRemoved) > 0 {
		fmt.Println("Tags:")
		if len(diff.TagsShared) > 0 {
			fmt.Printf("  Shared:  %v\n", diff.TagsShared)
		}
		if len(diff.TagsAdded) > 0 {
			fmt.Printf("  Added:   %v\n", diff.TagsAdded)
		}
		if len(diff.TagsRemoved) > 0 {
			fmt.Printf("  Removed: %v\n", diff.TagsRemoved)
		}
		fmt.Println()
	} else if len(diff.TagsShared) > 0 {
		fmt.Printf("Tags: %v (unchanged)\n\n", diff.TagsShared)
	}

	if diff.NotesChanged {
		fmt.Println("Notes Changed:")
		fmt.Printf("  %s: %s\n", s1.Name, truncate(s1.Notes, 100))
		fmt.Printf("  %s: %s\n", s2.Name, truncate(s2.Notes, 100))
	} else {
		fmt.Println("Notes: (unchanged)")
	}

	return nil
}

func summarize(mgr *workspace.Manager, name string) (workspaceSummary, error) {
	summary, err := mgr.Inspect(name)
	if err != nil {
		return workspaceSummary{}, err
	}
	s := workspaceSummary{
		Name:     name,
		Mode:     string(summary.Mode()),
		Commit:   summary.Commit,
		Changed:  summary.DiffFiles,
		Archived: summary.Archived,
	}
	if attrs, err := mgr.Attributes(name); err == nil {
		s.CreatedAt = attrs.CreatedAt
		s.Tags = attrs.Tags
		s.Notes = attrs.Notes
	}
	return s, nil
}

func compareWorkspaces(s1, s2 workspaceSummary) *workspaceDiff {
	diff := &workspaceDiff{
		Workspace1:    s1,
		Workspace2:    s2,
		ModeChanged:   s1.Mode != s2.Mode,
		CommitChanged: s1.Commit != s2.Commit,
		NotesChanged:  s1.Notes != s2.Notes,
	}

	if !s1.CreatedAt.IsZero() && !s2.CreatedAt.IsZero() {
		timeDiff := s2.CreatedAt.Sub(s1.CreatedAt)
		if timeDiff < 0 {
			diff.TimeDifference = fmt.Sprintf("%s (%s is older)", formatDuration(-timeDiff), s2.Name)
		} else {
			diff.TimeDifference = fmt.Sprintf("%s (%s is newer)", formatDuration(timeDiff), s2.Name)
		}
	}

	diff.ChangedOnly1, diff.ChangedOnly2, _ = splitSets(s1.Changed, s2.Changed)
	diff.ArchivedOnly1, diff.ArchivedOnly2, _ = splitSets(s1.Archived, s2.Archived)
	diff.TagsRemoved, diff.TagsAdded, diff.TagsShared = splitSets(s1.Tags, s2.Tags)
	return diff
}

// splitSets returns the sorted elements only in a, only in b, and in both
func splitSets(a, b []string) (onlyA, onlyB, both []string) {
	inA := make(map[string]bool, len(a))
	inB := make(map[string]bool, len(b))
	for _, s := range a {
		inA[s] = true
	}
	for _, s := range b {
		inB[s] = true
	}

	for s := range inA {
		if inB[s] {
			both = append(both, s)
		} else {
			onlyA = append(onlyA, s)
		}
	}
	for s := range inB {
		if !inA[s] {
			onlyB = append(onlyB, s)
		}
	}
	sort.Strings(onlyA)
	sort.Strings(onlyB)
	sort.Strings(both)
	return onlyA, onlyB, both
}

func printOnly(label, name string, files []string) {
	if len(files) == 0 {
		return
	}
	fmt.Printf("%s %s:\n", label, name)
	for _, f := range files {
		fmt.Printf("  %s\n", f)
	}
	fmt.Println()
}

func shortOrNone(hash string) string {
	if hash == "" {
		return "(none)"
	}
	return shortHash(hash)
}
