package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pders01/tret/internal/config"
	"github.com/pders01/tret/internal/logging"
	"github.com/pders01/tret/internal/manifest"
	"github.com/pders01/tret/internal/snapshot"
	"github.com/pders01/tret/internal/workspace"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile     string
	projectRoot string
)

var rootCmd = &cobra.Command{
	Use:   "tret",
	Short: "Snapshot and restore the code behind your experiments",
	Long: `tret keeps one workspace per experiment, capturing:
  - the commit and uncommitted diff of the enclosing git repository
  - an archive of relevant files git does not track
  - the pinned dependency versions from tret.toml
  - optional data files

Restoring a workspace brings the code back to that state. The first restore
keeps a copy of what it overwrites, so "tret restore --current" can undo it.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/tret/config.toml)")
	rootCmd.PersistentFlags().StringVar(&projectRoot, "project-root", "", "project root (default is the current directory)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: error|warn|info|debug")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := configDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		viper.AddConfigPath(configDir)
		viper.SetConfigType("toml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("TRET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "tret"), nil
}

// resolveProjectRoot returns the absolute project root
func resolveProjectRoot() (string, error) {
	root := projectRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("project root %s is not a directory", abs)
	}
	return abs, nil
}

// newManager wires the workspace manager for the current project
func newManager() (*workspace.Manager, error) {
	root, err := resolveProjectRoot()
	if err != nil {
		return nil, err
	}

	log, err := logging.New(config.GetLogLevel(), os.Stderr)
	if err != nil {
		return nil, err
	}

	engine, err := snapshot.New(root, nil, log)
	if err != nil {
		return nil, err
	}
	engine.Classifier = manifest.Load(config.GetManifestPath(), engine.ProjectRoot)

	return workspace.NewManager(config.GetBaseDir(), engine, log), nil
}
