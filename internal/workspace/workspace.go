// Package workspace manages the named experiment workspaces of a project.
// Each workspace is a directory under the base dir holding one code
// snapshot, optional data files and a .tretattributes file.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pders01/tret/internal/databackup"
	"github.com/pders01/tret/internal/models"
	"github.com/pders01/tret/internal/snapshot"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

var (
	// ErrInvalidName is returned for names that are not a single path segment
	ErrInvalidName = errors.New("invalid workspace name")

	// ErrNotFound is returned when a workspace does not exist
	ErrNotFound = errors.New("workspace not found")
)

// SaveOptions controls what Save stores besides the code snapshot
type SaveOptions struct {
	ExtraFiles   []string
	DataFiles    []string
	DataMode     models.DataMode
	ForceArchive bool
	Tags         []string
	Notes        string
	Metadata     map[string]any
}

// Entry is a workspace found by List
type Entry struct {
	Name string
	Path string
	// Attributes is nil when the workspace has no readable attributes file
	Attributes *models.Attributes
}

// CreatedAt returns the creation time, zero without attributes
func (e Entry) CreatedAt() time.Time {
	if e.Attributes == nil {
		return time.Time{}
	}
	return e.Attributes.CreatedAt
}

// Manager creates and restores workspaces under BaseDir
type Manager struct {
	BaseDir string
	Engine  *snapshot.Engine
	Fs      afero.Fs
	Log     logrus.FieldLogger

	now func() time.Time
}

// NewManager returns a Manager for engine's project. A relative baseDir is
// resolved against the project root.
func NewManager(baseDir string, engine *snapshot.Engine, log logrus.FieldLogger) *Manager {
	if !filepath.IsAbs(baseDir) {
		baseDir = filepath.Join(engine.ProjectRoot, baseDir)
	}
	if log == nil {
		log = engine.Log
	}
	return &Manager{
		BaseDir: filepath.Clean(baseDir),
		Engine:  engine,
		Fs:      afero.NewOsFs(),
		Log:     log,
		now:     time.Now,
	}
}

// Path returns the directory of the named workspace
func (m *Manager) Path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(m.BaseDir, name), nil
}

// Save backs up the project into the named workspace, creating it when
// needed. Saving into an existing workspace replaces its code snapshot and
// keeps its ID.
func (m *Manager) Save(name string, opts SaveOptions) (*models.Attributes, *snapshot.BackupResult, error) {
	ws, err := m.Path(name)
	if err != nil {
		return nil, nil, err
	}
	if info, err := os.Stat(ws); err == nil && !info.IsDir() {
		return nil, nil, fmt.Errorf("workspace path %s exists and is not a directory", ws)
	}
	if err := os.MkdirAll(ws, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	previous, err := readAttributes(ws)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		m.Log.WithError(err).Warnf("ignoring unreadable attributes of %s", name)
	}

	result, err := m.Engine.Backup(ws, opts.ExtraFiles, opts.ForceArchive)
	if err != nil {
		return nil, nil, err
	}

	attrs := &models.Attributes{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: m.now(),
		Mode:      result.Mode,
		Commit:    result.Commit,
		Tags:      opts.Tags,
		Notes:     opts.Notes,
		Metadata:  opts.Metadata,
	}
	if previous != nil {
		attrs.ID = previous.ID
		if len(attrs.Tags) == 0 {
			attrs.Tags = previous.Tags
		}
		if attrs.Notes == "" {
			attrs.Notes = previous.Notes
		}
		if len(attrs.Metadata) == 0 {
			attrs.Metadata = previous.Metadata
		}
		attrs.Data = previous.Data
	}

	if len(opts.DataFiles) > 0 {
		data, err := m.saveData(ws, opts, attrs.Data)
		if err != nil {
			return nil, nil, err
		}
		attrs.Data = data
	}

	if err := writeAttributes(ws, attrs); err != nil {
		return nil, nil, err
	}
	m.Log.WithFields(logrus.Fields{"workspace": name, "mode": attrs.Mode}).Debug("saved workspace")
	return attrs, result, nil
}

func (m *Manager) saveData(ws string, opts SaveOptions, previous *models.DataInfo) (*models.DataInfo, error) {
	mode := opts.DataMode
	if mode == "" {
		mode = models.DataSymlink
	}

	files := make([]string, len(opts.DataFiles))
	for i, f := range opts.DataFiles {
		if filepath.IsAbs(f) {
			files[i] = f
		} else {
			files[i] = filepath.Join(m.Engine.ProjectRoot, f)
		}
	}

	stored, err := databackup.Backup(m.Fs, files, ws, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to back up data: %w", err)
	}

	// the data archive is appended to, so its listing grows with it
	if mode == models.DataArchive && previous != nil && previous.Mode == models.DataArchive {
		stored = append(append([]string{}, previous.Files...), stored...)
	}
	return &models.DataInfo{Mode: mode, Files: stored}, nil
}

// Restore restores the code snapshot of the named workspace
func (m *Manager) Restore(name string) (*snapshot.RestoreResult, error) {
	ws, err := m.existing(name)
	if err != nil {
		return nil, err
	}
	return m.Engine.Restore(ws)
}

// RestoreCurrent undoes the first restore of the named workspace
func (m *Manager) RestoreCurrent(name string) (*snapshot.RestoreResult, error) {
	ws, err := m.existing(name)
	if err != nil {
		return nil, err
	}
	return m.Engine.RestoreCurrent(ws)
}

// Inspect summarizes the code snapshot of the named workspace
func (m *Manager) Inspect(name string) (*snapshot.Summary, error) {
	ws, err := m.existing(name)
	if err != nil {
		return nil, err
	}
	return m.Engine.Inspect(ws)
}

// Attributes reads the attributes of the named workspace
func (m *Manager) Attributes(name string) (*models.Attributes, error) {
	ws, err := m.existing(name)
	if err != nil {
		return nil, err
	}
	return readAttributes(ws)
}

// Remove deletes the named workspace and everything in it
func (m *Manager) Remove(name string) error {
	ws, err := m.existing(name)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(ws); err != nil {
		return fmt.Errorf("failed to remove workspace %s: %w", name, err)
	}
	return nil
}

// List returns every workspace under the base dir, newest first.
// Workspaces without attributes sort last, by name.
func (m *Manager) List() ([]Entry, error) {
	dirents, err := os.ReadDir(m.BaseDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}

	var entries []Entry
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}
		ws := filepath.Join(m.BaseDir, d.Name())
		entry := Entry{Name: d.Name(), Path: ws}
		attrs, err := readAttributes(ws)
		switch {
		case err == nil:
			entry.Attributes = attrs
		case !errors.Is(err, os.ErrNotExist):
			m.Log.WithError(err).Warnf("failed to read attributes of %s", d.Name())
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		ti, tj := entries[i].CreatedAt(), entries[j].CreatedAt()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

func (m *Manager) existing(name string) (string, error) {
	ws, err := m.Path(name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(ws)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return ws, nil
}

func readAttributes(ws string) (*models.Attributes, error) {
	data, err := os.ReadFile(models.AttributesPath(ws))
	if err != nil {
		return nil, err
	}
	var attrs models.Attributes
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", models.AttributesFile, err)
	}
	return &attrs, nil
}

func writeAttributes(ws string, attrs *models.Attributes) error {
	data, err := json.MarshalIndent(attrs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}
	if err := os.WriteFile(models.AttributesPath(ws), data, 0644); err != nil {
		return fmt.Errorf("failed to write attributes: %w", err)
	}
	return nil
}
