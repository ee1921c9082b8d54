package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pders01/tret/internal/config"
	"github.com/pders01/tret/internal/git"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize tret in the current project",
	Long: `Create configuration for tret snapshots.

This command:
  - Creates a default config file if it doesn't exist
  - Creates a tret.toml manifest skeleton in the project root
  - Excludes the workspace directory from git, so checkouts never touch it

Run this once per project.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

const defaultConfig = `[workspace]
base_dir = "workspaces"
data_mode = "symlink"

[backup]
force_archive = false

[manifest]
path = "tret.toml"

[retention]
days = 90
preserve_tags = ["important"]

[log]
level = "info"
`

const manifestSkeleton = `# Files and directories (or globs) to snapshot, relative to this file's directory
local_files = []

# Pinned dependency versions, written to tret-requirements.txt in the code archive
[dependencies]
`

func runInit(cmd *cobra.Command, args []string) error {
	root, err := resolveProjectRoot()
	if err != nil {
		return err
	}

	// Create default config if it doesn't exist
	dir, err := configDir()
	if err != nil {
		return err
	}
	configPath := filepath.Join(dir, "config.toml")
	created, err := writeIfMissing(configPath, defaultConfig)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if created {
		fmt.Printf("✓ Created default config: %s\n", configPath)
	} else {
		fmt.Printf("Config already exists: %s\n", configPath)
	}

	manifestPath := config.GetManifestPath()
	if !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(root, manifestPath)
	}
	created, err = writeIfMissing(manifestPath, manifestSkeleton)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	if created {
		fmt.Printf("✓ Created manifest: %s\n", manifestPath)
	} else {
		fmt.Printf("Manifest already exists: %s\n", manifestPath)
	}

	if repo, err := git.Open(root); err == nil {
		excluded, err := excludeBaseDir(repo.GitDir(), root)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to exclude workspaces from git: %v\n", err)
		} else if excluded != "" {
			fmt.Printf("✓ Excluded %s from git\n", excluded)
		}
	}

	fmt.Println("\n✓ tret initialized successfully!")
	fmt.Println("  You can now use: tret save <name>")

	return nil
}

func writeIfMissing(path, content string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return false, err
	}
	return true, nil
}

// excludeBaseDir adds the workspace base dir to the repository's exclude
// file. It returns the pattern added, or "" when nothing was needed.
func excludeBaseDir(gitDir, root string) (string, error) {
	baseDir := config.GetBaseDir()
	if !filepath.IsAbs(baseDir) {
		baseDir = filepath.Join(root, baseDir)
	}
	if !git.Within(baseDir, root) || baseDir == root {
		return "", nil
	}
	rel, err := filepath.Rel(root, baseDir)
	if err != nil {
		return "", err
	}
	pattern := "/" + filepath.ToSlash(rel) + "/"

	excludePath := filepath.Join(gitDir, "info", "exclude")
	existing, err := os.ReadFile(excludePath)
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	for _, line := range strings.Split(string(existing), "\n") {
		if strings.TrimSpace(line) == pattern {
			return "", nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(excludePath), 0755); err != nil {
		return "", err
	}
	f, err := os.OpenFile(excludePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		pattern = "\n" + pattern
	}
	if _, err := f.WriteString(pattern + "\n"); err != nil {
		return "", err
	}
	return strings.TrimSpace(pattern), nil
}
