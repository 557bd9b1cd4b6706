package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aristath/etfmonitor/internal/domain"
)

// Stager keeps uploaded files on disk, one directory per upload, until the
// cleanup job purges them.
type Stager struct {
	dir      string
	maxBytes int64
}

// NewStager creates a stager rooted at dir
func NewStager(dir string, maxBytes int64) *Stager {
	return &Stager{dir: dir, maxBytes: maxBytes}
}

// Dir returns the staging root
func (s *Stager) Dir() string {
	return s.dir
}

// Stage copies r into <dir>/<uploadID>/<name> and returns the file path.
func (s *Stager) Stage(uploadID, name string, r io.Reader) (string, error) {
	uploadDir := filepath.Join(s.dir, uploadID)
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	path := filepath.Join(uploadDir, filepath.Base(name))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create staged file: %w", err)
	}
	defer f.Close()

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if err != nil {
		return "", fmt.Errorf("failed to write staged file: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		return "", fmt.Errorf("%s exceeds %d bytes: %w", name, s.maxBytes, domain.ErrMalformedInput)
	}
	return path, nil
}

// Remove deletes an upload's staging directory
func (s *Stager) Remove(uploadID string) error {
	return os.RemoveAll(filepath.Join(s.dir, uploadID))
}

// Purge removes upload directories last modified before cutoff, except keep.
// It returns the number of directories removed.
func (s *Stager) Purge(cutoff time.Time, keep string) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to list staging directory: %w", err)
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == keep {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.dir, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
