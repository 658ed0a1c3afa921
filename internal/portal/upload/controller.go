// Package upload validates, compresses and previews one attachment slot of
// a portal form.
package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lgcert/indigene-certificate/internal/validation"
	"github.com/lgcert/indigene-certificate/logger"
)

// File is an attachment held in memory until the form is submitted.
type File struct {
	Name string
	Type string
	Size int64
	Data []byte
}

// ReadFile loads path and sniffs its content type.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &File{Name: filepath.Base(path), Type: DetectType(data, ""), Size: int64(len(data)), Data: data}, nil
}

// DetectType sniffs data, falling back to the declared type when the bytes
// are not recognised.
func DetectType(data []byte, declared string) string {
	sniffed := validation.NormalizeType(http.DetectContentType(data))
	if sniffed == "application/octet-stream" && declared != "" {
		return validation.NormalizeType(declared)
	}
	return sniffed
}

type PreviewKind string

const (
	PreviewNone     PreviewKind = ""
	PreviewImage    PreviewKind = "image"
	PreviewDocument PreviewKind = "document"
	PreviewGeneric  PreviewKind = "generic"
)

// Preview is a data URI for images and only a marker for anything else.
type Preview struct {
	Kind PreviewKind
	Data string
}

type Config struct {
	Label        string
	AllowedTypes []string
	MaxSize      int64
	Compress     bool
	MaxDimension int
	Quality      int
}

func (c Config) rule() validation.FileRule {
	return validation.FileRule{Label: c.Label, MaxSize: c.MaxSize, Types: c.AllowedTypes}
}

// State is a copy of the controller's observable fields.
type State struct {
	File     *File
	Preview  Preview
	Busy     bool
	Progress int
	Err      error
}

// ProgressFunc receives the coarse milestones 10, 40, 70 and 100.
type ProgressFunc func(percent int)

type Controller struct {
	cfg Config
	log *logger.Logger

	// uploadMu serializes uploads; mu guards state.
	uploadMu sync.Mutex
	mu       sync.RWMutex
	state    State
}

func NewController(cfg Config, log *logger.Logger) *Controller {
	if cfg.Quality <= 0 {
		cfg.Quality = 80
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Controller{cfg: cfg, log: log}
}

func (c *Controller) Config() Config { return c.cfg }

func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) File() *File {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.File
}

func (c *Controller) update(fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	c.mu.Unlock()
}

// Upload validates f and, when it passes, replaces the held file. A rejected
// file only sets Err; the previous file and preview stay in place.
func (c *Controller) Upload(ctx context.Context, f *File, onProgress ProgressFunc) (*File, error) {
	c.uploadMu.Lock()
	defer c.uploadMu.Unlock()

	report := func(p int) {
		c.update(func(s *State) { s.Progress = p })
		if onProgress != nil {
			onProgress(p)
		}
	}
	abort := func(err error) (*File, error) {
		c.update(func(s *State) {
			s.Busy = false
			s.Err = err
		})
		return nil, err
	}

	if f == nil || len(f.Data) == 0 {
		return abort(errors.New("no file selected"))
	}
	candidate := &File{Name: f.Name, Type: DetectType(f.Data, f.Type), Size: int64(len(f.Data)), Data: f.Data}
	if err := c.cfg.rule().Check(candidate.Type, candidate.Size).Err(); err != nil {
		return abort(err)
	}

	c.update(func(s *State) {
		s.Busy = true
		s.Err = nil
	})
	report(10)

	if c.cfg.Compress && isImage(candidate.Type) {
		if out, err := compressImage(candidate.Data, c.cfg.MaxDimension, c.cfg.Quality); err == nil {
			candidate = &File{Name: jpegName(candidate.Name), Type: validation.MimeJPEG, Size: int64(len(out)), Data: out}
		} else {
			c.log.Infof("keeping original %s: %v", candidate.Name, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return abort(err)
	}
	report(40)

	preview := previewFor(candidate)
	report(70)
	if err := ctx.Err(); err != nil {
		return abort(err)
	}

	c.update(func(s *State) {
		s.File = candidate
		s.Preview = preview
		s.Busy = false
		s.Err = nil
	})
	report(100)
	return candidate, nil
}

// Remove drops the file, preview, progress and error.
func (c *Controller) Remove() {
	c.update(func(s *State) { *s = State{} })
}

func isImage(t string) bool {
	return t == validation.MimeJPEG || t == validation.MimePNG
}

func jpegName(name string) string {
	ext := filepath.Ext(name)
	if strings.EqualFold(ext, ".jpg") || strings.EqualFold(ext, ".jpeg") {
		return name
	}
	return strings.TrimSuffix(name, ext) + ".jpg"
}

func previewFor(f *File) Preview {
	switch {
	case strings.HasPrefix(f.Type, "image/"):
		return Preview{Kind: PreviewImage, Data: "data:" + f.Type + ";base64," + base64.StdEncoding.EncodeToString(f.Data)}
	case f.Type == validation.MimePDF:
		return Preview{Kind: PreviewDocument}
	default:
		return Preview{Kind: PreviewGeneric}
	}
}
