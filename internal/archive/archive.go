// Package archive unpacks downloaded model tarballs into the staging directory.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Unpack extracts a tar archive (plain or gzip-compressed, detected by
// magic bytes) into destDir and deletes the archive afterwards. Entries
// that would escape destDir are rejected.
func Unpack(archivePath, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("extract dir: %w", err)
	}
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	err = extract(f, archivePath, destDir)
	f.Close()
	if err != nil {
		return err
	}
	if err := os.Remove(archivePath); err != nil {
		return fmt.Errorf("remove archive: %w", err)
	}
	return nil
}

func extract(f *os.File, archivePath, destDir string) error {
	var magic [2]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return fmt.Errorf("read archive header: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek archive: %w", err)
	}
	var r io.Reader = f
	if magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("gzip %s: %w", archivePath, err)
		}
		defer gz.Close()
		r = gz
	}
	return untar(tar.NewReader(r), destDir)
}

func untar(tr *tar.Reader, destDir string) error {
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}
		target, err := sanitizePath(destDir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create dir %s: %w", hdr.Name, err)
			}
			if err := resolvedWithin(destDir, target); err != nil {
				return fmt.Errorf("archive entry %q: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := writeEntry(tr, destDir, target, hdr); err != nil {
				return err
			}
		case tar.TypeSymlink:
			// Symlinks pointing outside the destination are skipped.
			// filepath.Join would strip the leading separator of an
			// absolute link target, so absolute targets are rejected
			// before the lexical check.
			if filepath.IsAbs(hdr.Linkname) {
				continue
			}
			if _, err := sanitizePath(destDir, filepath.Join(filepath.Dir(hdr.Name), hdr.Linkname)); err != nil {
				continue
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("create dir for symlink %s: %w", hdr.Name, err)
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				continue
			}
		}
	}
}

func writeEntry(tr *tar.Reader, destDir, target string, hdr *tar.Header) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create dir for %s: %w", hdr.Name, err)
	}
	// The lexical check cannot see symlinks that already exist on disk;
	// verify the resolved parent still lives inside the destination and
	// never write through a symlink at the target itself.
	if err := resolvedWithin(destDir, filepath.Dir(target)); err != nil {
		return fmt.Errorf("archive entry %q: %w", hdr.Name, err)
	}
	if fi, err := os.Lstat(target); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(target); err != nil {
			return fmt.Errorf("replace symlink %s: %w", hdr.Name, err)
		}
	}
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", hdr.Name, err)
	}
	_, err = io.Copy(out, io.LimitReader(tr, hdr.Size))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", hdr.Name, err)
	}
	if mode := os.FileMode(hdr.Mode); mode != 0 {
		_ = os.Chmod(target, mode)
	}
	return nil
}

// resolvedWithin reports an error when path, with symlinks resolved,
// lands outside destDir.
func resolvedWithin(destDir, path string) error {
	resolvedDest, err := filepath.EvalSymlinks(destDir)
	if err != nil {
		return fmt.Errorf("resolve destination: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if resolved != resolvedDest && !strings.HasPrefix(resolved, resolvedDest+string(filepath.Separator)) {
		return fmt.Errorf("path escapes destination")
	}
	return nil
}

// sanitizePath joins an archive entry name onto destDir, rejecting
// absolute paths and traversal outside the destination (zip slip).
func sanitizePath(destDir, entryName string) (string, error) {
	clean := filepath.Clean(entryName)
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, "\\") {
		return "", fmt.Errorf("archive entry %q: absolute paths not allowed", entryName)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q: path escapes destination", entryName)
	}
	target := filepath.Join(destDir, clean)
	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return "", fmt.Errorf("resolve destination: %w", err)
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", entryName, err)
	}
	if absTarget != absDest && !strings.HasPrefix(absTarget, absDest+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q: path escapes destination", entryName)
	}
	return target, nil
}
