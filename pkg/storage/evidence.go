// Package storage holds the evidence collaborator boundary. The conduct core
// only stores and forwards opaque evidence refs; the bytes belong to whatever
// backs this interface.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalEvidenceStore releases evidence refs that point at files under a base
// directory. Refs are relative paths handed out by the upload collaborator.
type LocalEvidenceStore struct {
	baseDir string
}

// NewLocalEvidenceStore ensures the base directory exists and returns a handle.
func NewLocalEvidenceStore(baseDir string) (*LocalEvidenceStore, error) {
	if baseDir == "" {
		baseDir = "./evidence"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create evidence directory: %w", err)
	}
	return &LocalEvidenceStore{baseDir: baseDir}, nil
}

// Release removes the files behind the given refs. Missing files are not an
// error; a deleted violation must never fail on already-gone evidence.
func (s *LocalEvidenceStore) Release(_ context.Context, refs []string) error {
	for _, ref := range refs {
		path := s.resolve(ref)
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("release evidence %s: %w", ref, err)
		}
	}
	return nil
}

func (s *LocalEvidenceStore) resolve(ref string) string {
	cleaned := filepath.Clean("/" + ref)
	if cleaned == "/" || strings.Contains(ref, "..") {
		return ""
	}
	return filepath.Join(s.baseDir, cleaned)
}
