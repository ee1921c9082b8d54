package cmd

import (
	"fmt"
	"os"

	"github.com/pders01/tret/internal/archive"
	"github.com/spf13/cobra"
)

var (
	archiveOutput string
	archiveTag    string
)

var archiveCmd = &cobra.Command{
	Use:   "archive <name...|all>",
	Short: "Bundle workspaces for external storage",
	Long: `Create a tar.gz archive of workspaces for backup or transfer.

Each workspace is stored under its own name inside the archive. Data files
kept as symlinks are archived as symlinks.

Examples:
  tret archive all                      # Archive all workspaces
  tret archive baseline lr-sweep        # Archive two workspaces
  tret archive all --tag important      # Archive only important workspaces
  tret archive all --output my-experiments.tar.gz`,
	Args: cobra.MinimumNArgs(1),
	RunE: runArchive,
}

func init() {
	rootCmd.AddCommand(archiveCmd)

	archiveCmd.Flags().StringVar(&archiveOutput, "output", "", "Output file path (default: tret-workspaces-<name|all>.tar.gz)")
	archiveCmd.Flags().StringVar(&archiveTag, "tag", "", "Filter by tag")
}

func runArchive(cmd *cobra.Command, args []string) error {
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

	wanted := make(map[string]bool)
	all := len(args) == 1 && args[0] == "all"
	for _, name := range args {
		wanted[name] = true
	}

	var paths, names []string
	for _, e := range entries {
		if !all && !wanted[e.Name] {
			continue
		}
		delete(wanted, e.Name)
		if archiveTag != "" && (e.Attributes == nil || !hasTag(e.Attributes.Tags, archiveTag)) {
			continue
		}
		paths = append(paths, e.Path)
		names = append(names, e.Name)
	}
	if !all {
		for name := range wanted {
			return fmt.Errorf("workspace not found: %s", name)
		}
	}

	if len(paths) == 0 {
		fmt.Println("No workspaces match the filter criteria")
		return nil
	}

	// Determine output file
	outputFile := archiveOutput
	if outputFile == "" {
		label := "all"
		if !all && len(names) == 1 {
			label = names[0]
		} else if !all {
			label = "selection"
		}
		outputFile = fmt.Sprintf("tret-workspaces-%s.tar.gz", label)
	}

	fmt.Printf("Archiving %d workspace(s) to: %s\n", len(paths), outputFile)

	if err := archive.Create(paths, outputFile, archive.Options{ArcNames: names}); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	// Get file size
	fileInfo, err := os.Stat(outputFile)
	if err == nil {
		fmt.Printf("\n✓ Archive created: %s (%.2f KB)\n", outputFile, float64(fileInfo.Size())/1024)
	} else {
		fmt.Printf("\n✓ Archive created: %s\n", outputFile)
	}

	fmt.Println("\nArchived workspaces:")
	for _, name := range names {
		fmt.Printf("  - %s\n", name)
	}

	return nil
}
