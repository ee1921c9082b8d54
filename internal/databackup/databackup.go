// Package databackup stores the data files of an experiment next to its
// code snapshot.
package databackup

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pders01/tret/internal/archive"
	"github.com/pders01/tret/internal/models"
	"github.com/spf13/afero"
)

// Backup stores files under workspaceDir according to mode and returns the
// names it stored. Symlink and copy modes place one entry per file under
// the workspace data directory, named after the file. Archive mode appends
// the files to the workspace data archive.
//
// Without symlink support in fs, symlink mode falls back to copying.
func Backup(fs afero.Fs, files []string, workspaceDir string, mode models.DataMode) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}

	sources := make([]string, 0, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		if _, err := fs.Stat(abs); err != nil {
			return nil, fmt.Errorf("data file %s: %w", f, err)
		}
		sources = append(sources, abs)
	}

	switch mode {
	case models.DataArchive:
		return archiveFiles(sources, workspaceDir)
	case models.DataSymlink, models.DataCopy:
	default:
		return nil, fmt.Errorf("invalid data mode: %s (must be: symlink, copy, archive)", mode)
	}

	dataDir := filepath.Join(workspaceDir, models.DataDir)
	if err := fs.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	linker, canLink := fs.(afero.Linker)
	seen := make(map[string]string)
	var stored []string
	for _, src := range sources {
		name := filepath.Base(src)
		if other, ok := seen[name]; ok {
			return nil, fmt.Errorf("data files %s and %s share the name %s", other, src, name)
		}
		seen[name] = src

		dst := filepath.Join(dataDir, name)
		if err := removeExisting(fs, dst); err != nil {
			return nil, err
		}

		if mode == models.DataSymlink && canLink {
			if err := linker.SymlinkIfPossible(src, dst); err != nil {
				return nil, fmt.Errorf("failed to link %s: %w", src, err)
			}
		} else if err := copyTree(fs, src, dst); err != nil {
			return nil, err
		}
		stored = append(stored, filepath.ToSlash(filepath.Join(models.DataDir, name)))
	}
	return stored, nil
}

func archiveFiles(sources []string, workspaceDir string) ([]string, error) {
	output := filepath.Join(workspaceDir, models.DataArchiveFile)
	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = filepath.Base(src)
	}
	if err := archive.Create(sources, output, archive.Options{ArcNames: names, Append: true}); err != nil {
		return nil, fmt.Errorf("failed to archive data files: %w", err)
	}
	return names, nil
}

// removeExisting clears dst so a later save replaces earlier data
func removeExisting(fs afero.Fs, dst string) error {
	if lstater, ok := fs.(afero.Lstater); ok {
		if _, _, err := lstater.LstatIfPossible(dst); err != nil {
			return nil
		}
	} else if _, err := fs.Stat(dst); err != nil {
		return nil
	}
	if err := fs.RemoveAll(dst); err != nil {
		return fmt.Errorf("failed to replace %s: %w", dst, err)
	}
	return nil
}

func copyTree(fs afero.Fs, src, dst string) error {
	return afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return fs.MkdirAll(target, info.Mode().Perm()|0700)
		}
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := afero.WriteFile(fs, target, data, info.Mode().Perm()); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		return nil
	})
}
