package snapshot

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/pierrec/lz4/v4"
)

// writeArchive writes a tar.lz4 archive of the existing managed paths and
// returns the manifest of what went in.
func writeArchive(archivePath, root string, paths []string) (Manifest, error) {
	f, err := os.OpenFile(archivePath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	lz4Writer := lz4.NewWriter(f)
	tarWriter := tar.NewWriter(lz4Writer)

	var manifest Manifest
	err = walk(root, paths, func(rel, full string, info os.FileInfo) error {
		entry := Entry{Name: filepath.ToSlash(rel), Mode: info.Mode().Perm()}
		header := &tar.Header{
			Name:    entry.Name,
			Mode:    int64(info.Mode().Perm()),
			ModTime: info.ModTime(),
		}

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(full)
			if err != nil {
				return fmt.Errorf("read link %s: %w", rel, err)
			}
			entry.Type = TypeSymlink
			entry.Mode = 0
			entry.Link = target
			header.Typeflag = tar.TypeSymlink
			header.Linkname = target
			if err := tarWriter.WriteHeader(header); err != nil {
				return fmt.Errorf("write header %s: %w", rel, err)
			}

		case info.IsDir():
			entry.Type = TypeDir
			header.Typeflag = tar.TypeDir
			header.Name += "/"
			if err := tarWriter.WriteHeader(header); err != nil {
				return fmt.Errorf("write header %s: %w", rel, err)
			}

		case info.Mode().IsRegular():
			entry.Type = TypeFile
			entry.Size = info.Size()
			header.Typeflag = tar.TypeReg
			header.Size = info.Size()
			if err := tarWriter.WriteHeader(header); err != nil {
				return fmt.Errorf("write header %s: %w", rel, err)
			}
			src, err := os.Open(full)
			if err != nil {
				return fmt.Errorf("open %s: %w", rel, err)
			}
			h := xxhash.New()
			written, err := io.Copy(io.MultiWriter(tarWriter, h), src)
			src.Close()
			if err != nil {
				return fmt.Errorf("archive %s: %w", rel, err)
			}
			if written != info.Size() {
				return fmt.Errorf("archive %s: file changed during capture", rel)
			}
			entry.Digest = h.Sum64()

		default:
			// sockets, devices and fifos are not configuration
			return nil
		}
		manifest = append(manifest, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := tarWriter.Close(); err != nil {
		return nil, fmt.Errorf("close tar: %w", err)
	}
	if err := lz4Writer.Close(); err != nil {
		return nil, fmt.Errorf("close lz4: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return manifest, nil
}

// extractTarLz4 extracts a tar.lz4 archive produced by writeArchive into
// destDir. Entry names may not leave destDir; symlink targets are restored
// verbatim.
func extractTarLz4(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	tarReader := tar.NewReader(lz4.NewReader(f))

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		cleanName := filepath.Clean(filepath.FromSlash(header.Name))
		if filepath.IsAbs(cleanName) || cleanName == ".." ||
			strings.HasPrefix(cleanName, ".."+string(filepath.Separator)) {
			return fmt.Errorf("invalid path in archive: %s", header.Name)
		}
		targetPath := filepath.Join(destDir, cleanName)
		if !within(destDir, targetPath) {
			return fmt.Errorf("path traversal detected: %s", header.Name)
		}
		mode := os.FileMode(header.Mode).Perm()

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, mode); err != nil {
				return fmt.Errorf("create dir %s: %w", cleanName, err)
			}
			if err := os.Chmod(targetPath, mode); err != nil {
				return fmt.Errorf("chmod dir %s: %w", cleanName, err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", cleanName, err)
			}
			outFile, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
			if err != nil {
				return fmt.Errorf("create file %s: %w", cleanName, err)
			}
			written, copyErr := io.Copy(outFile, tarReader)
			if copyErr != nil {
				outFile.Close()
				return fmt.Errorf("write file %s: %w", cleanName, copyErr)
			}
			if written != header.Size {
				outFile.Close()
				return fmt.Errorf("incomplete extraction of %s: wrote %d of %d bytes (disk full?)", cleanName, written, header.Size)
			}
			if err := outFile.Chmod(mode); err != nil {
				outFile.Close()
				return fmt.Errorf("chmod file %s: %w", cleanName, err)
			}
			if err := outFile.Close(); err != nil {
				return fmt.Errorf("close file %s: %w", cleanName, err)
			}

		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", cleanName, err)
			}
			_ = os.Remove(targetPath)
			if err := os.Symlink(header.Linkname, targetPath); err != nil {
				return fmt.Errorf("create symlink %s: %w", cleanName, err)
			}

		default:
			return fmt.Errorf("unsupported entry type %q for %s", header.Typeflag, cleanName)
		}
	}
	return nil
}

func within(root, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
