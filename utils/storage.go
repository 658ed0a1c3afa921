package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/lgcert/indigene-certificate/internal/validation"
)

// StoredFile describes an accepted upload.
type StoredFile struct {
	Path         string    `json:"path"`
	URL          string    `json:"url"`
	OriginalName string    `json:"original_name"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// FileStore keeps uploads on local disk under one root, served at /files.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) Root() string { return s.root }

// Check sniffs the content type and applies rule without writing anything.
func (s *FileStore) Check(fh *multipart.FileHeader, rule validation.FileRule) (string, error) {
	contentType, err := sniff(fh)
	if err != nil {
		return "", err
	}
	if res := rule.Check(contentType, fh.Size); !res.Valid {
		if fh.Size > rule.MaxSize && rule.Allows(contentType) {
			return "", fmt.Errorf("%s: %w", res.Message, apperr.ErrTooLarge)
		}
		return "", res.Err()
	}
	return contentType, nil
}

// Save validates fh against rule and copies it to <root>/<dir>/<uuid><ext>.
func (s *FileStore) Save(fh *multipart.FileHeader, rule validation.FileRule, dir string) (*StoredFile, error) {
	contentType, err := s.Check(fh, rule)
	if err != nil {
		return nil, err
	}

	target := filepath.Join(s.root, dir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString() + extensionFor(contentType, fh.Filename)
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(target, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return nil, fmt.Errorf("failed to copy file: %w", err)
	}

	rel := filepath.ToSlash(filepath.Join(dir, name))
	return &StoredFile{
		Path:         rel,
		URL:          "/files/" + rel,
		OriginalName: fh.Filename,
		ContentType:  contentType,
		Size:         fh.Size,
		UploadedAt:   time.Now(),
	}, nil
}

// Remove deletes stored files, ignoring ones already gone.
func (s *FileStore) Remove(files ...*StoredFile) {
	for _, f := range files {
		if f != nil {
			_ = os.Remove(filepath.Join(s.root, filepath.FromSlash(f.Path)))
		}
	}
}

func sniff(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("failed to read uploaded file: %w", err)
	}
	detected := validation.NormalizeType(http.DetectContentType(head[:n]))
	if detected == "application/octet-stream" || detected == "text/plain" {
		return validation.NormalizeType(fh.Header.Get("Content-Type")), nil
	}
	return detected, nil
}

func extensionFor(contentType, original string) string {
	switch contentType {
	case validation.MimeJPEG:
		return ".jpg"
	case validation.MimePNG:
		return ".png"
	case validation.MimePDF:
		return ".pdf"
	}
	return strings.ToLower(filepath.Ext(original))
}
