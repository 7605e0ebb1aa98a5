package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// TempStore holds uploads on local disk for the duration of one ingestion.
type TempStore struct {
	dir string
}

// NewTempStore creates dir if needed. An empty dir means the OS temp directory.
func NewTempStore(dir string) (*TempStore, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &TempStore{dir: dir}, nil
}

func (s *TempStore) Dir() string { return s.dir }

// TempFile is a stored upload. Release removes it and is safe to call more than once.
type TempFile struct {
	Path     string
	FileName string
	MimeType string
	Size     int64

	once sync.Once
	err  error
}

// Acquire copies r to a uniquely named file that keeps the original extension.
func (s *TempStore) Acquire(r io.Reader, fileName, mimeType string) (*TempFile, error) {
	name := uuid.NewString() + strings.ToLower(filepath.Ext(fileName))
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write temp file: %w", err)
	}

	return &TempFile{Path: path, FileName: fileName, MimeType: mimeType, Size: n}, nil
}

func (t *TempFile) Bytes() ([]byte, error) {
	return os.ReadFile(t.Path)
}

func (t *TempFile) Open() (*os.File, error) {
	return os.Open(t.Path)
}

func (t *TempFile) Release() error {
	t.once.Do(func() {
		if err := os.Remove(t.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			t.err = err
		}
	})
	return t.err
}
