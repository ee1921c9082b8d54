package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/alpkeskin/gotoon"
	"github.com/pders01/tret/internal/models"
	"github.com/pders01/tret/internal/snapshot"
	"github.com/spf13/cobra"
)

var (
	showDiff bool
	showJSON bool
	showToon bool
)

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show what a workspace holds",
	Long: `Display the attributes and code snapshot of a workspace: the recorded
commit and changed files, archived files, pinned requirements, data files and
whether a restore has been made from it.

Examples:
  tret show baseline
  tret show baseline --diff
  tret show baseline --toon`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().BoolVar(&showDiff, "diff", false, "Print the recorded diff")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")
	showCmd.Flags().BoolVar(&showToon, "toon", false, "Output in LLM-friendly toon format")
}

type workspaceDetails struct {
	Attributes *models.Attributes `json:"attributes,omitempty"`
	Mode       models.CodeMode    `json:"mode"`
	Snapshot   *snapshot.Summary  `json:"snapshot"`
	Diff       string             `json:"diff,omitempty"`
}

func runShow(cmd *cobra.Command, args []string) error {
	name := args[0]

	mgr, err := newManager()
	if err != nil {
		return err
	}

	summary, err := mgr.Inspect(name)
	if err != nil {
		return err
	}
	attrs, err := mgr.Attributes(name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to read attributes: %v\n", err)
	}

	details := &workspaceDetails{
		Attributes: attrs,
		Mode:       summary.Mode(),
		Snapshot:   summary,
	}
	if showDiff {
		details.Diff = summary.Diff
	}

	if showJSON {
		output, err := json.MarshalIndent(details, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if showToon {
		output, err := gotoon.Encode(details)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	fmt.Printf("Workspace: %s\n\n", summary.Workspace)
	if attrs != nil {
		fmt.Printf("ID:            %s\n", attrs.ID)
		fmt.Printf("Created:       %s\n", attrs.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Mode:          %s\n", details.Mode)
	if summary.HasRecord {
		fmt.Printf("Repository:    %s\n", summary.RepoPath)
		fmt.Printf("Commit:        %s\n", summary.Commit)
		fmt.Printf("Changed Files: %d\n", len(summary.DiffFiles))
		for _, f := range summary.DiffFiles {
			fmt.Printf("  M %s\n", f)
		}
	}
	if len(summary.Archived) > 0 {
		fmt.Printf("Archived:      %d file(s)\n", len(summary.Archived))
		for _, f := range summary.Archived {
			fmt.Printf("  + %s\n", f)
		}
	}
	if len(summary.Requirements) > 0 {
		fmt.Println("Requirements:")
		for _, r := range summary.Requirements {
			fmt.Printf("  %s\n", r)
		}
	}
	if attrs != nil {
		if attrs.Data != nil {
			fmt.Printf("Data (%s):\n", attrs.Data.Mode)
			for _, f := range attrs.Data.Files {
				fmt.Printf("  %s\n", f)
			}
		}
		if len(attrs.Tags) > 0 {
			fmt.Printf("Tags:          %v\n", attrs.Tags)
		}
		if len(attrs.Metadata) > 0 {
			fmt.Printf("Metadata:      %v\n", attrs.Metadata)
		}
	}
	if summary.Restored {
		fmt.Println("Restored:      yes (tret restore --current to undo)")
	}
	if attrs != nil && attrs.Notes != "" {
		fmt.Printf("\nNotes:\n%s\n", attrs.Notes)
	}
	if showDiff && summary.Diff != "" {
		fmt.Printf("\n%s", summary.Diff)
	}

	return nil
}
