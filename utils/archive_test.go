package utils

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStaysInsideRoot(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(store.Root(), "applications"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "applications", "a.png"), []byte("x"), 0o644))

	full, err := store.Resolve("applications/a.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Root(), "applications", "a.png"), full)

	_, err = store.Resolve("../../etc/passwd")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = store.Resolve("applications/missing.png")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = store.Resolve("applications")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestWriteZipBundlesNamedEntries(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "p.png"), []byte("photo"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "s.pdf"), []byte("slip"), 0o644))

	var buf bytes.Buffer
	err = store.WriteZip(&buf, []ZipEntry{
		{Name: "photo", Path: "p.png"},
		{Name: "nin_slip", Path: "s.pdf"},
		{Name: "scan", Path: ""},
	})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"photo.png", "nin_slip.pdf"}, names)
}
