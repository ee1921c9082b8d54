package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticClassify(t *testing.T) {
	s := Static{
		LocalFiles:   []string{"a.py"},
		Dependencies: []Dependency{{Name: "numpy", Version: "1.26.4"}},
	}
	cls, err := s.Classify()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, cls.LocalFiles)
	assert.Len(t, cls.Dependencies, 1)
}

func TestFileClassify(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"train.py", "models/net.py", "configs/a.yaml", "configs/b.yaml"} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}

	content := `local_files = ["train.py", "models/", "configs/*.yaml"]

[dependencies]
torch = ""
numpy = "1.26.4"
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "tret.toml"), []byte(content), 0644))

	cls, err := Load("tret.toml", root).Classify()
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "train.py"),
		filepath.Join(root, "models"),
		filepath.Join(root, "configs", "a.yaml"),
		filepath.Join(root, "configs", "b.yaml"),
	}, cls.LocalFiles)
	assert.Equal(t, []Dependency{
		{Name: "numpy", Version: "1.26.4"},
		{Name: "torch", Version: ""},
	}, cls.Dependencies)
}

func TestFileClassifyMissingManifest(t *testing.T) {
	cls, err := Load("tret.toml", t.TempDir()).Classify()
	require.NoError(t, err)
	assert.Empty(t, cls.LocalFiles)
	assert.Empty(t, cls.Dependencies)
}

func TestFileClassifyMalformed(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "tret.toml"), []byte("local_files = [\n"), 0644))

	_, err := Load("tret.toml", root).Classify()
	assert.Error(t, err)
}

func TestFileClassifyMissingLocalFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "tret.toml"), []byte(`local_files = ["gone.py"]`), 0644))

	_, err := Load("tret.toml", root).Classify()
	assert.Error(t, err)
}

func TestRequirementsOmitsUnresolvedVersions(t *testing.T) {
	lines := Requirements([]Dependency{
		{Name: "numpy", Version: "1.26.4"},
		{Name: "torch", Version: ""},
		{Name: "", Version: "1.0"},
		{Name: "pandas", Version: "2.2.0"},
	})
	assert.Equal(t, []string{"numpy==1.26.4", "pandas==2.2.0"}, lines)
	assert.Empty(t, Requirements(nil))
}

func TestParseRequirements(t *testing.T) {
	assert.Equal(t, []string{"a==1", "b==2"}, ParseRequirements("a==1\n\n b==2 \n"))
	assert.Empty(t, ParseRequirements(""))
}
