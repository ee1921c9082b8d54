package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/alpkeskin/gotoon"
	"github.com/pders01/tret/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	listTag   string
	listSince string
	listJSON  bool
	listToon  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all workspaces",
	Long: `List all workspaces, newest first, with optional filtering.

Examples:
  tret list
  tret list --tag important
  tret list --since 2025-10-01
  tret list --json`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listTag, "tag", "", "Filter by tag")
	listCmd.Flags().StringVar(&listSince, "since", "", "Show workspaces saved since date (YYYY-MM-DD)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	listCmd.Flags().BoolVar(&listToon, "toon", false, "Output in LLM-friendly toon format")
}

type listItem struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Mode      string    `json:"mode"`
	Commit    string    `json:"commit,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	var since time.Time
	if listSince != "" {
		t, err := time.Parse("2006-01-02", listSince)
		if err != nil {
			return fmt.Errorf("invalid --since date format (use YYYY-MM-DD): %w", err)
		}
		since = t
	}

	mgr, err := newManager()
	if err != nil {
		return err
	}
	entries, err := mgr.List()
	if err != nil {
		return err
	}

	items := filterEntries(entries, listTag, since)

	if listJSON {
		output, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if listToon {
		output, err := gotoon.Encode(items)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("No workspaces found")
		return nil
	}
	if len(items) == 0 {
		fmt.Println("No workspaces match the filter criteria")
		return nil
	}

	fmt.Printf("Found %d workspace(s):\n\n", len(items))
	for _, item := range items {
		fmt.Printf("  %s\n", item.Name)
		if !item.CreatedAt.IsZero() {
			fmt.Printf("    Created: %s\n", item.CreatedAt.Format("2006-01-02 15:04"))
		}
		if item.Mode != "" {
			fmt.Printf("    Mode:    %s\n", item.Mode)
		}
		if item.Commit != "" {
			fmt.Printf("    Commit:  %s\n", shortHash(item.Commit))
		}
		if len(item.Tags) > 0 {
			fmt.Printf("    Tags:    %v\n", item.Tags)
		}
		if item.Notes != "" {
			fmt.Printf("    Notes:   %s\n", truncate(item.Notes, 60))
		}
		fmt.Println()
	}

	return nil
}

// filterEntries keeps entries carrying tag (when set) and saved at or after
// since (when set)
func filterEntries(entries []workspace.Entry, tag string, since time.Time) []listItem {
	items := []listItem{}
	for _, e := range entries {
		item := listItem{Name: e.Name}
		if a := e.Attributes; a != nil {
			item.CreatedAt = a.CreatedAt
			item.Mode = string(a.Mode)
			item.Commit = a.Commit
			item.Tags = a.Tags
			item.Notes = a.Notes
		}

		if tag != "" && !hasTag(item.Tags, tag) {
			continue
		}
		if !since.IsZero() && item.CreatedAt.Before(since) {
			continue
		}
		items = append(items, item)
	}
	return items
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
