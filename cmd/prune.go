package cmd

import (
	"fmt"
	"time"

	"github.com/pders01/tret/internal/config"
	"github.com/pders01/tret/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	pruneDryRun bool
	pruneForce  bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old workspaces based on retention policy",
	Long: `Remove workspaces older than the retention period.

The retention policy is configured in ~/.config/tret/config.toml:
  [retention]
  days = 90
  preserve_tags = ["important", "paper"]

Workspaces with preserve tags will never be pruned. Workspaces without
attributes are never pruned either.

Example:
  tret prune              # Show what would be pruned
  tret prune --force      # Actually prune workspaces`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", true, "Show what would be pruned without deleting")
	pruneCmd.Flags().BoolVar(&pruneForce, "force", false, "Actually delete workspaces (overrides dry-run)")
}

type pruneCandidate struct {
	Name   string
	Tags   []string
	Age    time.Duration
	Reason string
}

func runPrune(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	// Get retention settings
	retentionDays := config.GetRetentionDays()
	preserveTags := config.GetPreserveTags()

	now := time.Now()
	cutoffDate := now.AddDate(0, 0, -retentionDays)

	fmt.Printf("Retention policy: %d days\n", retentionDays)
	fmt.Printf("Preserve tags: %v\n", preserveTags)
	fmt.Printf("Cutoff date: %s\n\n", cutoffDate.Format("2006-01-02"))

	entries, err := mgr.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No workspaces found")
		return nil
	}

	toPrune, toPreserve := classifyForPrune(entries, cutoffDate, now)

	if len(toPrune) == 0 {
		fmt.Println("No workspaces to prune")
		return nil
	}

	fmt.Printf("Workspaces to prune (%d):\n\n", len(toPrune))
	for _, c := range toPrune {
		fmt.Printf("  %s\n", c.Name)
		fmt.Printf("    Age:    %s\n", formatDuration(c.Age))
		fmt.Printf("    Reason: %s\n", c.Reason)
		if len(c.Tags) > 0 {
			fmt.Printf("    Tags:   %v\n", c.Tags)
		}
		fmt.Println()
	}

	if len(toPreserve) > 0 {
		fmt.Printf("Workspaces to preserve (%d):\n\n", len(toPreserve))
		for _, c := range toPreserve {
			fmt.Printf("  %s\n", c.Name)
			if c.Age > 0 {
				fmt.Printf("    Age:    %s\n", formatDuration(c.Age))
			}
			fmt.Printf("    Reason: %s\n", c.Reason)
			fmt.Println()
		}
	}

	// Perform deletion if --force is specified
	if pruneForce {
		fmt.Println("Pruning workspaces...")
		pruned := 0
		for _, c := range toPrune {
			fmt.Printf("  Deleting %s...\n", c.Name)
			if err := mgr.Remove(c.Name); err != nil {
				fmt.Printf("    Error: %v\n", err)
				continue
			}
			fmt.Printf("    ✓ Deleted\n")
			pruned++
		}
		fmt.Printf("\n✓ Pruned %d workspace(s)\n", pruned)
	} else {
		fmt.Println("\nThis is a dry run. Use --force to actually prune workspaces.")
	}

	return nil
}

// classifyForPrune splits entries into those older than cutoff and those kept
func classifyForPrune(entries []workspace.Entry, cutoff, now time.Time) (toPrune, toPreserve []pruneCandidate) {
	for _, e := range entries {
		c := pruneCandidate{Name: e.Name}
		if e.Attributes == nil {
			c.Reason = "no attributes"
			toPreserve = append(toPreserve, c)
			continue
		}

		c.Tags = e.Attributes.Tags
		c.Age = now.Sub(e.Attributes.CreatedAt)

		// Check if should be preserved
		if config.ShouldPreserve(c.Tags) {
			c.Reason = "has preserve tag"
			toPreserve = append(toPreserve, c)
			continue
		}

		if e.Attributes.CreatedAt.Before(cutoff) {
			c.Reason = fmt.Sprintf("older than %d days", config.GetRetentionDays())
			toPrune = append(toPrune, c)
		} else {
			c.Reason = "within retention period"
			toPreserve = append(toPreserve, c)
		}
	}
	return toPrune, toPreserve
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days == 0 {
		return "< 1 day"
	}
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
