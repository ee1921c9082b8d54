package databackup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pders01/tret/internal/archive"
	"github.com/pders01/tret/internal/models"
	"github.com/pders01/tret/internal/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyMode(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/train.csv", []byte("a,b\n1,2\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/data/images/0.png", []byte("png"), 0644))
	require.NoError(t, fs.MkdirAll("/ws", 0755))

	stored, err := Backup(fs, []string{"/data/train.csv", "/data/images"}, "/ws", models.DataCopy)
	require.NoError(t, err)
	assert.Equal(t, []string{"data/train.csv", "data/images"}, stored)

	got, err := afero.ReadFile(fs, "/ws/data/train.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(got))

	got, err = afero.ReadFile(fs, "/ws/data/images/0.png")
	require.NoError(t, err)
	assert.Equal(t, "png", string(got))
}

func TestCopyModeReplacesEarlierCopy(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/train.csv", []byte("v1"), 0644))
	require.NoError(t, fs.MkdirAll("/ws", 0755))

	_, err := Backup(fs, []string{"/data/train.csv"}, "/ws", models.DataCopy)
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/data/train.csv", []byte("v2"), 0644))
	_, err = Backup(fs, []string{"/data/train.csv"}, "/ws", models.DataCopy)
	require.NoError(t, err)

	got, err := afero.ReadFile(fs, "/ws/data/train.csv")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
}

func TestSymlinkFallsBackToCopyWithoutLinker(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/train.csv", []byte("x"), 0644))
	require.NoError(t, fs.MkdirAll("/ws", 0755))

	_, err := Backup(fs, []string{"/data/train.csv"}, "/ws", models.DataSymlink)
	require.NoError(t, err)

	ok, err := afero.Exists(fs, "/ws/data/train.csv")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSymlinkMode(t *testing.T) {
	src := testutil.TempDir(t)
	ws := testutil.TempDir(t)
	data := filepath.Join(src, "train.csv")
	require.NoError(t, os.WriteFile(data, []byte("x"), 0644))

	stored, err := Backup(afero.NewOsFs(), []string{data}, ws, models.DataSymlink)
	require.NoError(t, err)
	assert.Equal(t, []string{"data/train.csv"}, stored)

	target, err := os.Readlink(filepath.Join(ws, models.DataDir, "train.csv"))
	require.NoError(t, err)
	assert.Equal(t, data, target)
}

func TestArchiveModeAppends(t *testing.T) {
	src := testutil.TempDir(t)
	ws := testutil.TempDir(t)
	first := filepath.Join(src, "train.csv")
	second := filepath.Join(src, "test.csv")
	require.NoError(t, os.WriteFile(first, []byte("1"), 0644))
	require.NoError(t, os.WriteFile(second, []byte("2"), 0644))

	fs := afero.NewOsFs()
	_, err := Backup(fs, []string{first}, ws, models.DataArchive)
	require.NoError(t, err)
	stored, err := Backup(fs, []string{second}, ws, models.DataArchive)
	require.NoError(t, err)
	assert.Equal(t, []string{"test.csv"}, stored)

	members, err := archive.ListMembers(filepath.Join(ws, models.DataArchiveFile))
	require.NoError(t, err)
	assert.Equal(t, []string{"train.csv", "test.csv"}, members)
}

func TestBackupErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a/x.csv", []byte("1"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/b/x.csv", []byte("2"), 0644))
	require.NoError(t, fs.MkdirAll("/ws", 0755))

	tests := []struct {
		name  string
		files []string
		mode  models.DataMode
	}{
		{"missing file", []string{"/a/missing.csv"}, models.DataCopy},
		{"name clash", []string{"/a/x.csv", "/b/x.csv"}, models.DataCopy},
		{"unknown mode", []string{"/a/x.csv"}, models.DataMode("zip")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Backup(fs, tt.files, "/ws", tt.mode)
			assert.Error(t, err)
		})
	}
}

func TestBackupNothing(t *testing.T) {
	stored, err := Backup(afero.NewMemMapFs(), nil, "/ws", models.DataCopy)
	require.NoError(t, err)
	assert.Empty(t, stored)
}
