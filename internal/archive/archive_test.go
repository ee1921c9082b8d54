package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestCreateAndExtract(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "train.py"), "print('train')\n")
	writeFile(t, filepath.Join(src, "models", "net.py"), "class Net: pass\n")

	out := filepath.Join(t.TempDir(), "codes.tar.gz")
	err := Create(
		[]string{filepath.Join(src, "train.py"), filepath.Join(src, "models")},
		out,
		Options{ArcNames: []string{"train.py", "models"}},
	)
	require.NoError(t, err)

	members, err := ListMembers(out)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"train.py", "models/net.py"}, members)

	dest := t.TempDir()
	require.NoError(t, Extract(out, dest))

	got, err := os.ReadFile(filepath.Join(dest, "models", "net.py"))
	require.NoError(t, err)
	assert.Equal(t, "class Net: pass\n", string(got))
}

func TestCreateUncompressed(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "a")

	out := filepath.Join(t.TempDir(), "plain.tar")
	require.NoError(t, Create([]string{filepath.Join(src, "a.txt")}, out, Options{ArcNames: []string{"a.txt"}}))

	head := make([]byte, 2)
	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Read(head)
	require.NoError(t, err)
	assert.NotEqual(t, []byte{0x1f, 0x8b}, head, "plain tar should not be gzip-compressed")

	members, err := ListMembers(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, members)
}

func TestCreateExcludesBuildCaches(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "pkg", "mod.py"), "x = 1\n")
	writeFile(t, filepath.Join(src, "pkg", "__pycache__", "mod.cpython-311.pyc"), "bytecode")
	writeFile(t, filepath.Join(src, ".pytest_cache", "v", "cache"), "{}")
	writeFile(t, filepath.Join(src, "lone", "__pycache__", "x.pyc"), "bytecode")

	out := filepath.Join(t.TempDir(), "codes.tgz")
	err := Create(
		[]string{
			filepath.Join(src, "pkg"),
			filepath.Join(src, ".pytest_cache"),
			filepath.Join(src, "lone", "__pycache__", "x.pyc"),
		},
		out,
		Options{ArcNames: []string{"pkg", ".pytest_cache", "lone/__pycache__/x.pyc"}},
	)
	require.NoError(t, err)

	members, err := ListMembers(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/mod.py"}, members)
	for _, m := range members {
		assert.False(t, IsExcluded(m), "excluded member %s present", m)
	}
}

func TestCreateAppendKeepsOldMembers(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "first.txt"), "one")
	writeFile(t, filepath.Join(src, "second.txt"), "two")

	outDir := t.TempDir()
	out := filepath.Join(outDir, "data.tar.gz")
	require.NoError(t, Create([]string{filepath.Join(src, "first.txt")}, out, Options{ArcNames: []string{"first.txt"}}))
	require.NoError(t, Create([]string{filepath.Join(src, "second.txt")}, out, Options{ArcNames: []string{"second.txt"}, Append: true}))

	// same name again: both copies are kept, the later one wins on extraction
	writeFile(t, filepath.Join(src, "first.txt"), "one, revised")
	require.NoError(t, Create([]string{filepath.Join(src, "first.txt")}, out, Options{ArcNames: []string{"first.txt"}, Append: true}))

	members, err := ListMembers(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"first.txt", "second.txt", "first.txt"}, members)

	dest := t.TempDir()
	require.NoError(t, Extract(out, dest))
	got, err := os.ReadFile(filepath.Join(dest, "first.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one, revised", string(got))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary archive left behind")
}

func TestCreateWithoutAppendReplaces(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "a")
	writeFile(t, filepath.Join(src, "b.txt"), "b")

	out := filepath.Join(t.TempDir(), "codes.tar.gz")
	require.NoError(t, Create([]string{filepath.Join(src, "a.txt")}, out, Options{ArcNames: []string{"a.txt"}}))
	require.NoError(t, Create([]string{filepath.Join(src, "b.txt")}, out, Options{ArcNames: []string{"b.txt"}}))

	members, err := ListMembers(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, members)
}

func TestCreateMissingFile(t *testing.T) {
	outDir := t.TempDir()
	out := filepath.Join(outDir, "codes.tar.gz")

	err := Create([]string{filepath.Join(outDir, "missing.py")}, out, Options{})
	require.Error(t, err)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "failed create must not leave an archive")
}

func TestCreateArcNameCountMismatch(t *testing.T) {
	err := Create([]string{"a", "b"}, filepath.Join(t.TempDir(), "x.tar"), Options{ArcNames: []string{"a"}})
	assert.Error(t, err)
}

func TestDefaultArcNameStripsRoot(t *testing.T) {
	assert.Equal(t, "tmp/x/a.py", defaultArcName("/tmp/x/../x/a.py"))
	assert.Equal(t, "rel/a.py", defaultArcName("rel/a.py"))
}

func TestReadMember(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "req.txt"), "numpy==1.26.4\n")

	out := filepath.Join(t.TempDir(), "codes.tar.gz")
	require.NoError(t, Create([]string{filepath.Join(src, "req.txt")}, out, Options{ArcNames: []string{"tret-requirements.txt"}}))

	data, err := ReadMember(out, "tret-requirements.txt")
	require.NoError(t, err)
	assert.Equal(t, "numpy==1.26.4\n", string(data))

	_, err = ReadMember(out, "nope.txt")
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestExtractSymlink(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "real.txt"), "real")
	require.NoError(t, os.Symlink("real.txt", filepath.Join(src, "link.txt")))

	out := filepath.Join(t.TempDir(), "links.tar.gz")
	require.NoError(t, Create(
		[]string{filepath.Join(src, "real.txt"), filepath.Join(src, "link.txt")},
		out,
		Options{ArcNames: []string{"real.txt", "link.txt"}},
	))

	dest := t.TempDir()
	require.NoError(t, Extract(out, dest))

	target, err := os.Readlink(filepath.Join(dest, "link.txt"))
	require.NoError(t, err)
	assert.Equal(t, "real.txt", target)
}

func TestExtractRejectsEscapingMembers(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "evil.txt"), "evil")

	out := filepath.Join(t.TempDir(), "evil.tar.gz")
	require.NoError(t, Create([]string{filepath.Join(src, "evil.txt")}, out, Options{ArcNames: []string{"../evil.txt"}}))

	dest := filepath.Join(t.TempDir(), "inner")
	require.NoError(t, os.MkdirAll(dest, 0755))
	assert.Error(t, Extract(out, dest))

	_, err := os.Stat(filepath.Join(filepath.Dir(dest), "evil.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractRejectsMembersThroughSymlink(t *testing.T) {
	src := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(src, "payload.txt"), "payload")
	require.NoError(t, os.Symlink(outside, filepath.Join(src, "link")))

	out := filepath.Join(t.TempDir(), "links.tar.gz")
	require.NoError(t, Create(
		[]string{filepath.Join(src, "link"), filepath.Join(src, "payload.txt")},
		out,
		Options{ArcNames: []string{"link", "link/payload.txt"}},
	))

	dest := t.TempDir()
	assert.Error(t, Extract(out, dest))

	_, err := os.Stat(filepath.Join(outside, "payload.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractFollowsSymlinkInsideOutputDir(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "sub", "keep.txt"), "keep")
	writeFile(t, filepath.Join(src, "payload.txt"), "payload")
	require.NoError(t, os.Symlink("sub", filepath.Join(src, "link")))

	out := filepath.Join(t.TempDir(), "links.tar.gz")
	require.NoError(t, Create(
		[]string{filepath.Join(src, "sub"), filepath.Join(src, "link"), filepath.Join(src, "payload.txt")},
		out,
		Options{ArcNames: []string{"sub", "link", "link/payload.txt"}},
	))

	dest := t.TempDir()
	require.NoError(t, Extract(out, dest))

	data, err := os.ReadFile(filepath.Join(dest, "sub", "payload.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestCreatedArchiveIsWorldReadable(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "train.py"), "x")

	out := filepath.Join(t.TempDir(), "codes.tar.gz")
	require.NoError(t, Create([]string{filepath.Join(src, "train.py")}, out, Options{ArcNames: []string{"train.py"}}))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}
