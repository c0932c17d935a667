package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"NewsMatcher/internal/domain"
	"NewsMatcher/internal/ports"
)

const (
	matchTimeLayout = "20060102T150405Z"
	maxMatchSuffix  = 1000
)

// FileStore writes run artifacts as indented JSON under a data directory.
type FileStore struct {
	dir string
}

var _ ports.ArtifactStore = (*FileStore)(nil)

// NewFileStore roots the store at dir; the directory is created on first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// SignaturePath is where the transient signature for ticker lives.
func (s *FileStore) SignaturePath(ticker string) string {
	return filepath.Join(s.dir, fmt.Sprintf("newsummary_%s.json", strings.ToUpper(ticker)))
}

// WriteSignature stores the transient signature of the current run.
func (s *FileStore) WriteSignature(sig domain.Signature) (string, error) {
	path := s.SignaturePath(sig.Ticker)
	if err := s.writeJSON(path, sig); err != nil {
		return "", fmt.Errorf("write signature: %w", err)
	}
	return path, nil
}

// RemoveSignature deletes the transient signature; a missing file is not an error.
func (s *FileStore) RemoveSignature(ticker string) error {
	err := os.Remove(s.SignaturePath(ticker))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove signature: %w", err)
	}
	return nil
}

// WriteMatch stores a detection as match_<TICKER>_<UTC timestamp>.json.
// Existing artifacts are never replaced: a detection landing in the same
// second gets a _2, _3, ... suffix.
func (s *FileStore) WriteMatch(match domain.MatchArtifact, at time.Time) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("write match: %w", err)
	}
	data, err := encodeJSON(match)
	if err != nil {
		return "", fmt.Errorf("write match: %w", err)
	}

	base := fmt.Sprintf("match_%s_%s", strings.ToUpper(match.Ticker), at.UTC().Format(matchTimeLayout))
	for n := 1; n <= maxMatchSuffix; n++ {
		name := base + ".json"
		if n > 1 {
			name = fmt.Sprintf("%s_%d.json", base, n)
		}
		path := filepath.Join(s.dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("write match: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("write match: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("write match: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("write match: too many artifacts named %s", base)
}

// WriteReport stores a prior-window dataset as <TICKER>_<start>_<end>.json.
func (s *FileStore) WriteReport(report domain.WindowReport) (string, error) {
	name := fmt.Sprintf("%s_%s_%s.json", strings.ToUpper(report.Ticker), report.StartDate, report.EndDate)
	path := filepath.Join(s.dir, name)
	if err := s.writeJSON(path, report); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

func (s *FileStore) writeJSON(path string, v any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	data, err := encodeJSON(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func encodeJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
