package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage keeps blobs as files in a single directory.
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates dir if needed and returns a Storage rooted there.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("attachment: upload dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("attachment: create upload dir: %w", err)
	}
	return &LocalStorage{dir: dir}, nil
}

func (l *LocalStorage) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("%w: bad storage key %q", ErrInvalidInput, key)
	}
	return filepath.Join(l.dir, key), nil
}

// Put writes r to a new file. A partially written file is removed.
func (l *LocalStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("attachment: create blob: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)
		return fmt.Errorf("attachment: write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(p)
		return fmt.Errorf("attachment: close blob: %w", err)
	}
	return nil
}

// Open returns a reader for the blob.
func (l *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("attachment: open blob: %w", err)
	}
	return f, nil
}

// Delete removes the blob. Missing blobs are not an error.
func (l *LocalStorage) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("attachment: delete blob: %w", err)
	}
	return nil
}
