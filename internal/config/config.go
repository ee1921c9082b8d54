package config

import (
	"github.com/pders01/tret/internal/models"
	"github.com/spf13/viper"
)

// SetDefaults registers the default value of every config key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("workspace.base_dir", "workspaces")
	v.SetDefault("workspace.data_mode", string(models.DataSymlink))
	v.SetDefault("backup.force_archive", false)
	v.SetDefault("manifest.path", "tret.toml")
	v.SetDefault("retention.days", 90)
	v.SetDefault("retention.preserve_tags", []string{"important"})
	v.SetDefault("log.level", "info")
}

func init() {
	SetDefaults(viper.GetViper())
}

// GetBaseDir returns the directory workspaces are created in, relative to the project root
func GetBaseDir() string {
	return viper.GetString("workspace.base_dir")
}

// GetDataMode returns how data files are stored in a workspace
func GetDataMode() models.DataMode {
	return models.DataMode(viper.GetString("workspace.data_mode"))
}

// GetForceArchive reports whether code is always archived, even inside a repository
func GetForceArchive() bool {
	return viper.GetBool("backup.force_archive")
}

// GetManifestPath returns the experiment manifest path, relative to the project root
func GetManifestPath() string {
	return viper.GetString("manifest.path")
}

// GetRetentionDays returns the retention period in days
func GetRetentionDays() int {
	return viper.GetInt("retention.days")
}

// GetPreserveTags returns tags that should be preserved indefinitely
func GetPreserveTags() []string {
	return viper.GetStringSlice("retention.preserve_tags")
}

// GetLogLevel returns the configured log level
func GetLogLevel() string {
	return viper.GetString("log.level")
}

// ShouldPreserve checks if a workspace with given tags should be preserved
func ShouldPreserve(tags []string) bool {
	preserveTags := GetPreserveTags()
	for _, tag := range tags {
		for _, preserveTag := range preserveTags {
			if tag == preserveTag {
				return true
			}
		}
	}
	return false
}
