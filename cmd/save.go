package cmd

import (
	"fmt"
	"strings"

	"github.com/pders01/tret/internal/config"
	"github.com/pders01/tret/internal/models"
	"github.com/pders01/tret/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	saveInclude      []string
	saveData         []string
	saveDataMode     string
	saveForceArchive bool
	saveTags         []string
	saveNotes        string
	saveMeta         []string
)

var saveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Snapshot the current code into a workspace",
	Long: `Capture the current code state into the workspace <name>, creating it if needed.

Inside a git repository the workspace records the HEAD commit and the
uncommitted diff; relevant files git does not track go into codes.tar.gz.
Outside a repository, or with --force-archive, every relevant file is archived.

Relevant files are the --include paths plus local_files from tret.toml.

Data modes:
  symlink (default) - link data files into the workspace
  copy              - copy data files into the workspace
  archive           - append data files to data.tar.gz`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

func init() {
	rootCmd.AddCommand(saveCmd)

	saveCmd.Flags().StringSliceVar(&saveInclude, "include", []string{}, "Extra files to snapshot")
	saveCmd.Flags().StringSliceVar(&saveData, "data", []string{}, "Data files to store in the workspace")
	saveCmd.Flags().StringVar(&saveDataMode, "data-mode", "", "Data mode: symlink|copy|archive")
	saveCmd.Flags().BoolVar(&saveForceArchive, "force-archive", false, "Archive all code even inside a git repository")
	saveCmd.Flags().StringSliceVar(&saveTags, "tag", []string{}, "Add metadata tags")
	saveCmd.Flags().StringVar(&saveNotes, "notes", "", "Optional notes")
	saveCmd.Flags().StringSliceVar(&saveMeta, "meta", []string{}, "Extra metadata as key=value")
}

func runSave(cmd *cobra.Command, args []string) error {
	name := slugify(args[0])
	if name == "" {
		return fmt.Errorf("invalid workspace name: %q", args[0])
	}

	dataMode := models.DataMode(saveDataMode)
	if dataMode == "" {
		dataMode = config.GetDataMode()
	}
	if !isValidDataMode(dataMode) {
		return fmt.Errorf("invalid data mode: %s (must be: symlink, copy, archive)", dataMode)
	}

	metadata, err := parseMeta(saveMeta)
	if err != nil {
		return err
	}

	mgr, err := newManager()
	if err != nil {
		return err
	}

	fmt.Printf("Saving workspace: %s\n", name)

	attrs, result, err := mgr.Save(name, workspace.SaveOptions{
		ExtraFiles:   saveInclude,
		DataFiles:    saveData,
		DataMode:     dataMode,
		ForceArchive: saveForceArchive || config.GetForceArchive(),
		Tags:         saveTags,
		Notes:        saveNotes,
		Metadata:     metadata,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Mode: %s\n", result.Mode)
	if result.Commit != "" {
		fmt.Printf("  Commit:   %s\n", shortHash(result.Commit))
		fmt.Printf("  Tracked:  %d file(s)\n", len(result.Tracked))
	}
	if len(result.Archived) > 0 {
		fmt.Printf("  Archived: %d file(s)\n", len(result.Archived))
	}
	if len(result.Requirements) > 0 {
		fmt.Printf("  Requirements: %d pinned\n", len(result.Requirements))
	}
	if attrs.Data != nil && len(saveData) > 0 {
		fmt.Printf("  Data:     %d file(s) (%s)\n", len(saveData), attrs.Data.Mode)
	}

	ws, _ := mgr.Path(name)
	fmt.Printf("\n✓ Workspace saved: %s\n", ws)

	return nil
}

func slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	// Remove everything but alphanumerics, hyphens, underscores and dots
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			result.WriteRune(r)
		}
	}
	return strings.Trim(result.String(), ".")
}

func isValidDataMode(mode models.DataMode) bool {
	switch mode {
	case models.DataSymlink, models.DataCopy, models.DataArchive:
		return true
	default:
		return false
	}
}

func parseMeta(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --meta %q (use key=value)", pair)
		}
		meta[key] = value
	}
	return meta, nil
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
