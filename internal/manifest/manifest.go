// Package manifest declares which local files and third-party dependencies
// belong to an experiment. Callers either list them directly (Static) or in a
// TOML manifest file (File):
//
//	local_files = ["train.py", "models/", "configs/*.yaml"]
//
//	[dependencies]
//	numpy = "1.26.4"
//	torch = ""   # no version: left out of the requirements
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Dependency is a third-party package and the version in use. An empty
// Version means the version could not be resolved.
type Dependency struct {
	Name    string
	Version string
}

// Classification is the result of classifying an experiment's files
type Classification struct {
	LocalFiles   []string
	Dependencies []Dependency
}

// Classifier produces the local files and dependencies of an experiment
type Classifier interface {
	Classify() (Classification, error)
}

// Static is a Classifier over explicit lists
type Static Classification

// Classify returns the lists unchanged
func (s Static) Classify() (Classification, error) {
	return Classification(s), nil
}

// File is a Classifier backed by a TOML manifest. Relative entries are
// resolved against Root.
type File struct {
	Path string
	Root string
}

type fileFormat struct {
	LocalFiles   []string          `toml:"local_files"`
	Dependencies map[string]string `toml:"dependencies"`
}

// Load returns a File classifier for the manifest at path
func Load(path, root string) *File {
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	return &File{Path: path, Root: root}
}

// Classify reads the manifest. A missing manifest yields an empty
// classification; a malformed one is an error.
func (f *File) Classify() (Classification, error) {
	var raw fileFormat
	if _, err := toml.DecodeFile(f.Path, &raw); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Classification{}, nil
		}
		return Classification{}, fmt.Errorf("failed to parse manifest %s: %w", f.Path, err)
	}

	var cls Classification
	for _, entry := range raw.LocalFiles {
		files, err := f.expand(entry)
		if err != nil {
			return Classification{}, err
		}
		cls.LocalFiles = append(cls.LocalFiles, files...)
	}

	for name, version := range raw.Dependencies {
		cls.Dependencies = append(cls.Dependencies, Dependency{Name: name, Version: version})
	}
	sort.Slice(cls.Dependencies, func(i, j int) bool {
		return cls.Dependencies[i].Name < cls.Dependencies[j].Name
	})

	return cls, nil
}

func (f *File) expand(entry string) ([]string, error) {
	path := entry
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.Root, path)
	}

	if strings.ContainsAny(entry, "*?[") {
		matches, err := filepath.Glob(path)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q in manifest: %w", entry, err)
		}
		return matches, nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("manifest lists %q: %w", entry, err)
	}
	return []string{path}, nil
}

// Requirements renders dependencies as name==version lines, dropping those
// without a version
func Requirements(deps []Dependency) []string {
	var lines []string
	for _, dep := range deps {
		if dep.Name == "" || dep.Version == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s==%s", dep.Name, dep.Version))
	}
	return lines
}

// ParseRequirements splits requirements text into its non-empty lines
func ParseRequirements(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
