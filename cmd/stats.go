package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alpkeskin/gotoon"
	"github.com/pders01/tret/internal/models"
	"github.com/pders01/tret/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	statsJSON bool
	statsToon bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show workspace statistics",
	Long: `Display statistics about your workspaces including:
  - Total workspace count
  - Workspaces by code mode (git, git+archive, archive)
  - Data coverage
  - Tag usage statistics
  - Timeline distribution

Examples:
  tret stats
  tret stats --json
  tret stats --toon`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
	statsCmd.Flags().BoolVar(&statsToon, "toon", false, "Output in LLM-friendly toon format")
}

type workspaceStats struct {
	TotalWorkspaces int             `json:"total_workspaces"`
	ByMode          map[string]int  `json:"by_mode"`
	ByTag           map[string]int  `json:"by_tag"`
	ByDate          map[string]int  `json:"by_date"`
	WithData        int             `json:"with_data"`
	WithoutData     int             `json:"without_data"`
	Unreadable      int             `json:"unreadable"`
	OldestWorkspace *time.Time      `json:"oldest_workspace,omitempty"`
	NewestWorkspace *time.Time      `json:"newest_workspace,omitempty"`
	TopTags         []tagStat       `json:"top_tags"`
	DailyActivity   []dailyActivity `json:"daily_activity"`
}

type tagStat struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type dailyActivity struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

func runStats(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	entries, err := mgr.List()
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No workspaces found")
		return nil
	}

	stats := collectStats(entries)

	// Output JSON if requested
	if statsJSON {
		output, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	// Output Toon if requested
	if statsToon {
		output, err := gotoon.Encode(stats)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	// Display human-readable stats
	fmt.Println("Workspace Statistics")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	fmt.Printf("Total Workspaces: %d\n", stats.TotalWorkspaces)
	if stats.OldestWorkspace != nil && stats.NewestWorkspace != nil {
		fmt.Printf("Date Range:       %s to %s\n",
			stats.OldestWorkspace.Format("2006-01-02"),
			stats.NewestWorkspace.Format("2006-01-02"))
	}
	if stats.Unreadable > 0 {
		fmt.Printf("Without attributes: %d\n", stats.Unreadable)
	}
	fmt.Println()

	// Mode breakdown
	fmt.Println("By Mode:")
	for _, mode := range []models.CodeMode{models.ModeGit, models.ModeGitArchive, models.ModeArchive} {
		if count, ok := stats.ByMode[string(mode)]; ok {
			percentage := float64(count) / float64(stats.TotalWorkspaces) * 100
			fmt.Printf("  %-15s %3d  (%.1f%%)\n", mode, count, percentage)
		}
	}
	fmt.Println()

	// Data coverage
	fmt.Println("Data Coverage:")
	percentage := float64(stats.WithData) / float64(stats.TotalWorkspaces) * 100
	fmt.Printf("  With data:    %3d  (%.1f%%)\n", stats.WithData, percentage)
	fmt.Printf("  Without data: %3d  (%.1f%%)\n", stats.WithoutData, 100-percentage)
	fmt.Println()

	// Top tags
	if len(stats.TopTags) > 0 {
		fmt.Println("Top Tags:")
		limit := min(10, len(stats.TopTags))
		for _, ts := range stats.TopTags[:limit] {
			fmt.Printf("  %-20s %3d\n", ts.Tag, ts.Count)
		}
		fmt.Println()
	}

	// Recent activity
	if len(stats.DailyActivity) > 0 {
		fmt.Println("Recent Activity:")
		limit := min(7, len(stats.DailyActivity))
		for _, da := range stats.DailyActivity[:limit] {
			bar := strings.Repeat("█", min(da.Count, 20))
			fmt.Printf("  %s  %3d  %s\n", da.Date, da.Count, bar)
		}
	}

	return nil
}

func collectStats(entries []workspace.Entry) *workspaceStats {
	stats := &workspaceStats{
		TotalWorkspaces: len(entries),
		ByMode:          make(map[string]int),
		ByTag:           make(map[string]int),
		ByDate:          make(map[string]int),
	}

	for _, e := range entries {
		a := e.Attributes
		if a == nil {
			stats.Unreadable++
			stats.WithoutData++
			continue
		}

		// Track oldest/newest
		if stats.OldestWorkspace == nil || a.CreatedAt.Before(*stats.OldestWorkspace) {
			t := a.CreatedAt
			stats.OldestWorkspace = &t
		}
		if stats.NewestWorkspace == nil || a.CreatedAt.After(*stats.NewestWorkspace) {
			t := a.CreatedAt
			stats.NewestWorkspace = &t
		}

		stats.ByMode[string(a.Mode)]++
		for _, tag := range a.Tags {
			stats.ByTag[tag]++
		}
		stats.ByDate[a.CreatedAt.Format("2006-01-02")]++

		if a.Data != nil && len(a.Data.Files) > 0 {
			stats.WithData++
		} else {
			stats.WithoutData++
		}
	}

	// Build top tags list
	for tag, count := range stats.ByTag {
		stats.TopTags = append(stats.TopTags, tagStat{Tag: tag, Count: count})
	}
	sort.Slice(stats.TopTags, func(i, j int) bool {
		if stats.TopTags[i].Count != stats.TopTags[j].Count {
			return stats.TopTags[i].Count > stats.TopTags[j].Count
		}
		return stats.TopTags[i].Tag < stats.TopTags[j].Tag
	})

	// Build daily activity
	for date, count := range stats.ByDate {
		stats.DailyActivity = append(stats.DailyActivity, dailyActivity{Date: date, Count: count})
	}
	sort.Slice(stats.DailyActivity, func(i, j int) bool {
		return stats.DailyActivity[i].Date > stats.DailyActivity[j].Date
	})

	return stats
}
