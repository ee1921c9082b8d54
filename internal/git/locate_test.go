package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pders01/tret/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateFromRoot(t *testing.T) {
	repo := testutil.NewTempGitRepo(t)
	defer repo.Cleanup()

	loc := Locate(repo.Path, repo.Path)
	require.True(t, loc.Found)
	assert.Equal(t, repo.Path, loc.Repo.Dir())
}

func TestLocateWalksUpFromWorkspace(t *testing.T) {
	repo := testutil.NewTempGitRepo(t)
	defer repo.Cleanup()

	ws := filepath.Join(repo.Path, "workspaces", "exp1")
	require.NoError(t, os.MkdirAll(ws, 0755))

	loc := Locate(ws, repo.Path)
	require.True(t, loc.Found)
	assert.Equal(t, repo.Path, loc.Repo.Dir())
}

func TestLocateProjectInsideRepository(t *testing.T) {
	repo := testutil.NewTempGitRepo(t)
	defer repo.Cleanup()

	project := filepath.Join(repo.Path, "experiments", "mnist")
	require.NoError(t, os.MkdirAll(project, 0755))

	// ancestors of the project root stay in the search region
	loc := Locate(project, project)
	require.True(t, loc.Found)
	assert.Equal(t, repo.Path, loc.Repo.Dir())
}

func TestLocateNotFound(t *testing.T) {
	dir := testutil.TempDir(t)
	loc := Locate(dir, dir)
	assert.False(t, loc.Found)
	assert.Nil(t, loc.Repo)
}

func TestLocateDoesNotEnterUnrelatedTree(t *testing.T) {
	repo := testutil.NewTempGitRepo(t)
	defer repo.Cleanup()

	project := testutil.TempDir(t)

	// start is a repository but lies outside the project root region
	loc := Locate(repo.Path, project)
	assert.False(t, loc.Found)
}

func TestSearchStart(t *testing.T) {
	assert.Equal(t, "/proj/ws/a", SearchStart("/proj/ws/a", "/proj"))
	assert.Equal(t, "/proj", SearchStart("/elsewhere/ws", "/proj"))
	assert.Equal(t, "/proj", SearchStart("/proj", "/proj"))
}

func TestWithin(t *testing.T) {
	assert.True(t, Within("/a/b/c", "/a/b"))
	assert.True(t, Within("/a/b", "/a/b"))
	assert.False(t, Within("/a/bc", "/a/b"))
	assert.False(t, Within("/a", "/a/b"))
	assert.True(t, Within("/a/b", "/"))
}
