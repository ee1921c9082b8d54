package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var restoreCurrent bool

var restoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Restore the code of a workspace",
	Long: `Bring the project back to the code state saved in workspace <name>.

The recorded commit is checked out (detached) and the recorded diff applied,
then codes.tar.gz is extracted over the project. The first restore into a
workspace keeps a copy of what it overwrites; --current replays that copy.

Examples:
  tret restore baseline
  tret restore baseline --current   # undo the restore`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().BoolVar(&restoreCurrent, "current", false, "Return to the code state before the first restore")
}

func runRestore(cmd *cobra.Command, args []string) error {
	name := args[0]

	mgr, err := newManager()
	if err != nil {
		return err
	}

	if restoreCurrent {
		result, err := mgr.RestoreCurrent(name)
		if err != nil {
			return err
		}
		if result.Commit != "" {
			fmt.Printf("  Commit:    %s\n", shortHash(result.Commit))
		}
		fmt.Printf("  Extracted: %d file(s)\n", result.Extracted)
		fmt.Printf("\n✓ Restored code from before the first restore of %s\n", name)
		return nil
	}

	result, err := mgr.Restore(name)
	if err != nil {
		return err
	}
	if result.Commit != "" {
		fmt.Printf("  Commit:    %s\n", shortHash(result.Commit))
	}
	fmt.Printf("  Extracted: %d file(s)\n", result.Extracted)
	fmt.Printf("\n✓ Restored workspace: %s\n", name)

	return nil
}
