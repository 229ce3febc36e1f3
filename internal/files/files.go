// Package files stores uploaded attachments (maintenance photos, lease
// documents) on local disk. Names are generated, never taken from the
// client, and writes are atomic so a crashed upload leaves no partial file.
package files

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
)

// Kind selects which extension allow-list applies to an upload.
type Kind string

const (
	KindImage    Kind = "image"
	KindDocument Kind = "document"
)

var allowedExtensions = map[Kind]map[string]bool{
	KindImage:    {".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true},
	KindDocument: {".pdf": true, ".doc": true, ".docx": true},
}

var (
	// ErrUnsupportedType is returned when the file extension is not allowed.
	ErrUnsupportedType = errors.New("files: unsupported file type")
	// ErrTooLarge is returned when an upload exceeds the size limit.
	ErrTooLarge = errors.New("files: file too large")
)

// Store writes uploads under a root directory and serves them back.
type Store struct {
	root     string
	maxBytes int64
}

// NewStore creates the upload root if needed. maxBytes caps a single upload.
func NewStore(root string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{root: root, maxBytes: maxBytes}, nil
}

// Root returns the upload root directory.
func (s *Store) Root() string { return s.root }

// Save stores an upload and returns the generated file name. The original
// name is only consulted for its extension.
func (s *Store) Save(originalName string, kind Kind, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[kind][ext] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}

	name := uuid.NewString() + ext
	dst := filepath.Join(s.root, name)

	pending, err := renameio.NewPendingFile(dst)
	if err != nil {
		return "", fmt.Errorf("create pending file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	n, err := io.Copy(pending, io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	if n > s.maxBytes {
		return "", ErrTooLarge
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("commit upload: %w", err)
	}
	return name, nil
}

// Open returns the stored file for the given name. Names with path
// separators or traversal segments are rejected.
func (s *Store) Open(name string) (*os.File, error) {
	clean := path.Clean("/" + name)
	if strings.Contains(clean[1:], "/") || clean == "/" {
		return nil, os.ErrNotExist
	}
	return os.Open(filepath.Join(s.root, clean[1:]))
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Store) Remove(name string) error {
	f, err := s.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	p := f.Name()
	_ = f.Close()
	return os.Remove(p)
}

// Handler serves stored files over HTTP, download-safe headers included.
func (s *Store) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		f, err := s.Open(name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer func() { _ = f.Close() }()

		info, err := f.Stat()
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		http.ServeContent(w, r, name, info.ModTime(), f)
	})
}
