package output

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Archive writes every regular file under dir to w as a zip archive.
// Entry names are relative to dir and use forward slashes.
func Archive(dir string, w io.Writer) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("failed to open run directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("failed to archive %s: not a directory", dir)
	}

	zw := zip.NewWriter(w)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, filepath.ToSlash(rel))
	})
	if err != nil {
		_ = zw.Close() //nolint:errcheck // the walk error is reported instead
		return fmt.Errorf("failed to archive %s: %w", dir, err)
	}
	return zw.Close()
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path) //nolint:gosec // path comes from walking the run directory
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // read-only

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, f)
	return err
}
