// Package archive creates, extracts and lists tar archives of file collections.
//
// Compression is chosen from the output name: ".gz" and ".tgz" produce a
// gzip-compressed tar, anything else a plain tar. Reading detects gzip from
// the stream itself.
package archive

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// CompressionLevel is the gzip level used for compressed archives
const CompressionLevel = 6

// BuildCacheDirs are directory names whose contents never enter an archive
var BuildCacheDirs = []string{"__pycache__", ".pytest_cache", ".mypy_cache"}

// ErrMemberNotFound is returned by ReadMember when no member has the requested name
var ErrMemberNotFound = errors.New("archive member not found")

// Options controls Create
type Options struct {
	// ArcNames holds the name each path gets inside the archive. When set it
	// must have one entry per path; an empty entry keeps the default name.
	ArcNames []string

	// Append keeps every member of an existing output archive and adds the
	// new members after them.
	Append bool
}

// Create writes the given files and directories (recursively) to output.
// The archive is built in a temporary file next to output and renamed over
// it once complete.
func Create(paths []string, output string, opts Options) error {
	if len(opts.ArcNames) > 0 && len(opts.ArcNames) != len(paths) {
		return fmt.Errorf("got %d archive names for %d paths", len(opts.ArcNames), len(paths))
	}

	var previous string
	if opts.Append {
		if info, err := os.Stat(output); err == nil && info.Mode().IsRegular() {
			previous = output
		}
	}

	return writeAtomically(output, func(tw *tar.Writer) error {
		if previous != "" {
			if err := copyMembers(tw, previous); err != nil {
				return fmt.Errorf("failed to copy members of %s: %w", previous, err)
			}
		}
		for i, path := range paths {
			name := ""
			if len(opts.ArcNames) > 0 {
				name = opts.ArcNames[i]
			}
			if name == "" {
				name = defaultArcName(path)
			}
			if err := addPath(tw, path, name); err != nil {
				return fmt.Errorf("failed to add %s: %w", path, err)
			}
		}
		return nil
	})
}

// Extract writes every member of the archive below outputDir. Members whose
// names would land outside outputDir are rejected, as are members whose
// parent directory leads outside it through a symlink.
func Extract(archivePath, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	realRoot, err := filepath.EvalSymlinks(outputDir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", outputDir, err)
	}

	return walk(archivePath, func(hdr *tar.Header, r io.Reader) error {
		target, err := memberTarget(outputDir, hdr.Name)
		if err != nil {
			return err
		}
		if err := checkParent(realRoot, outputDir, target, hdr.Name); err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			return os.MkdirAll(target, 0755)
		case tar.TypeReg:
			return extractFile(target, hdr, r)
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
				return err
			}
			return os.Symlink(hdr.Linkname, target)
		default:
			return nil
		}
	})
}

// ListMembers returns the names of the file and symlink members in archive order
func ListMembers(archivePath string) ([]string, error) {
	var names []string
	err := walk(archivePath, func(hdr *tar.Header, _ io.Reader) error {
		if hdr.Typeflag == tar.TypeReg || hdr.Typeflag == tar.TypeSymlink {
			names = append(names, hdr.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// ReadMember returns the content of the first regular member called name
func ReadMember(archivePath, name string) ([]byte, error) {
	var content []byte
	found := false
	errStop := errors.New("stop")

	err := walk(archivePath, func(hdr *tar.Header, r io.Reader) error {
		if hdr.Typeflag != tar.TypeReg || hdr.Name != name {
			return nil
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		content, found = data, true
		return errStop
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, name)
	}
	return content, nil
}

// IsExcluded reports whether an archive name passes through a build-cache directory
func IsExcluded(name string) bool {
	for _, dir := range BuildCacheDirs {
		if strings.Contains(name, dir) {
			return true
		}
	}
	return false
}

func compressed(output string) bool {
	return strings.HasSuffix(output, ".gz") || strings.HasSuffix(output, ".tgz")
}

func defaultArcName(path string) string {
	name := filepath.ToSlash(filepath.Clean(path))
	return strings.TrimLeft(name, "/")
}

func writeAtomically(output string, fill func(tw *tar.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(output), "."+filepath.Base(output)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary archive: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	var gz *gzip.Writer
	var w io.Writer = tmp
	if compressed(output) {
		gz, err = gzip.NewWriterLevel(tmp, CompressionLevel)
		if err != nil {
			return err
		}
		w = gz
	}

	tw := tar.NewWriter(w)
	if err = fill(tw); err != nil {
		return err
	}
	if err = tw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	if gz != nil {
		if err = gz.Close(); err != nil {
			return fmt.Errorf("failed to finish compression: %w", err)
		}
	}
	if err = tmp.Chmod(0644); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, output); err != nil {
		return fmt.Errorf("failed to move archive into place: %w", err)
	}
	return nil
}

func copyMembers(tw *tar.Writer, archivePath string) error {
	return walk(archivePath, func(hdr *tar.Header, r io.Reader) error {
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		_, err := io.Copy(tw, r)
		return err
	})
}

func addPath(tw *tar.Writer, path, name string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		if IsExcluded(name) {
			return nil
		}
		return addEntry(tw, path, name, info)
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		member := name
		if rel != "." {
			member = name + "/" + filepath.ToSlash(rel)
		}
		if IsExcluded(member) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return addEntry(tw, p, member, info)
	})
}

func addEntry(tw *tar.Writer, path, name string, info os.FileInfo) error {
	link := ""
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return err
		}
		link = target
	} else if !info.Mode().IsRegular() && !info.IsDir() {
		// sockets, devices and pipes
		return nil
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	hdr.Name = name
	if info.IsDir() {
		hdr.Name = strings.TrimSuffix(name, "/") + "/"
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}

func walk(archivePath string, fn func(hdr *tar.Header, r io.Reader) error) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var r io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", archivePath, err)
		}
		defer gz.Close()
		r = gz
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", archivePath, err)
		}
		if err := fn(hdr, tr); err != nil {
			return err
		}
	}
}

func memberTarget(outputDir, name string) (string, error) {
	target := filepath.Join(outputDir, filepath.FromSlash(name))
	if !within(target, outputDir) {
		return "", fmt.Errorf("archive member %q escapes %s", name, outputDir)
	}
	return target, nil
}

// checkParent resolves the deepest existing directory above target and
// rejects the member when it lies outside realRoot. Directories below it do
// not exist yet and are created as plain directories.
func checkParent(realRoot, outputDir, target, name string) error {
	dir := filepath.Dir(target)
	if target == filepath.Clean(outputDir) {
		dir = target
	}
	for within(dir, outputDir) {
		if _, err := os.Lstat(dir); err == nil {
			break
		}
		dir = filepath.Dir(dir)
	}

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil || !within(resolved, realRoot) {
		return fmt.Errorf("archive member %q escapes %s through a symlink", name, outputDir)
	}
	return nil
}

func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func extractFile(target string, hdr *tar.Header, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	if info, err := os.Lstat(target); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(target); err != nil {
			return err
		}
	}

	mode := os.FileMode(hdr.Mode).Perm()
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Chmod(target, mode)
}
