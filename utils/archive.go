package utils

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lgcert/indigene-certificate/internal/apperr"
)

// ZipEntry names one stored file inside a download bundle.
type ZipEntry struct {
	Name string
	Path string
}

// Resolve maps a stored relative path to a file under root, refusing
// anything that escapes it.
func (s *FileStore) Resolve(rel string) (string, error) {
	rel = strings.TrimPrefix(filepath.FromSlash(rel), string(filepath.Separator))
	root := filepath.Clean(s.root)
	full := filepath.Clean(filepath.Join(root, rel))
	if full == root || !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", apperr.ErrForbidden
	}
	info, err := os.Stat(full)
	if os.IsNotExist(err) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return "", apperr.ErrNotFound
	}
	return full, nil
}

// WriteZip streams the named files into a zip archive. Entries with an
// empty path are skipped.
func (s *FileStore) WriteZip(w io.Writer, entries []ZipEntry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		if e.Path == "" {
			continue
		}
		full, err := s.Resolve(e.Path)
		if err != nil {
			zw.Close()
			return fmt.Errorf("%s: %w", e.Name, err)
		}
		if err := copyInto(zw, e.Name+filepath.Ext(full), full); err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}

func copyInto(zw *zip.Writer, name, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer src.Close()

	dst, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("zip entry %s: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy %s: %w", name, err)
	}
	return nil
}
