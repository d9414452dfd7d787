// Package filestore retains the raw uploaded files on disk so documents can be
// re-ingested after a chunking or embedding configuration change. Layout:
//
//	<root>/kb_<kbID>/<docID>_<filename>
package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store persists raw document files under a root directory
type Store struct {
	root   string
	logger *zap.Logger
}

// New creates a file store rooted at dir, creating it if needed
func New(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &Store{root: dir, logger: logger}, nil
}

// Save writes the raw file for a document and returns its path
func (s *Store) Save(kbID, docID uuid.UUID, filename string, data []byte) (string, error) {
	dir := s.kbDir(kbID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create kb dir: %w", err)
	}

	path := filepath.Join(dir, docID.String()+"_"+sanitize(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("stored raw file",
		zap.String("path", path),
		zap.Int("size_bytes", len(data)))
	return path, nil
}

// RemoveDocument deletes the raw files of a document. Missing files are not an error.
func (s *Store) RemoveDocument(kbID, docID uuid.UUID) error {
	matches, err := filepath.Glob(filepath.Join(s.kbDir(kbID), docID.String()+"_*"))
	if err != nil {
		return fmt.Errorf("failed to glob document files: %w", err)
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

// RemoveKnowledgeBase deletes the whole directory of a knowledge base
func (s *Store) RemoveKnowledgeBase(kbID uuid.UUID) error {
	if err := os.RemoveAll(s.kbDir(kbID)); err != nil {
		return fmt.Errorf("failed to remove kb dir: %w", err)
	}
	return nil
}

func (s *Store) kbDir(kbID uuid.UUID) string {
	return filepath.Join(s.root, "kb_"+kbID.String())
}

// sanitize strips path separators and control characters from an
// upload-supplied filename
func sanitize(filename string) string {
	name := filepath.Base(filename)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == os.PathSeparator || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		name = "file"
	}
	return name
}
