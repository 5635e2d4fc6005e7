// Package session persists comparison results and rendered artifacts
// under a per-session results directory.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"rackdiff/internal/detect"
	"rackdiff/internal/imaging"
)

// ErrNoComparison is returned when a session has no stored result.
var ErrNoComparison = errors.New("session: no comparison result")

// Artifact file names within a session directory.
const (
	ChangesFile    = "changes.json"
	MaskFile       = "change_mask.png"
	VisualDiffFile = "visual_diff.png"
	BeforeFile     = "before.jpg"
	AfterFile      = "after.jpg"
)

// Store manages per-session results directories under a base path.
type Store struct {
	baseDir string
}

// NewStore creates the base results directory if needed.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// BaseDir returns the root results directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Dir returns the results directory for a session, creating it if needed.
func (s *Store) Dir(sessionID string) (string, error) {
	dir := filepath.Join(s.baseDir, sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}
	return dir, nil
}

// SaveChanges writes the change set to the session's changes.json.
func (s *Store) SaveChanges(set *detect.ChangeSet) error {
	if set == nil || set.SessionID == "" {
		return fmt.Errorf("session: change set missing session id")
	}

	dir, err := s.Dir(set.SessionID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal changes: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ChangesFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write changes: %w", err)
	}
	return nil
}

// LoadChanges reads a session's stored change set. It returns
// ErrNoComparison when the session has no result on disk.
func (s *Store) LoadChanges(sessionID string) (*detect.ChangeSet, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, sessionID, ChangesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrNoComparison)
		}
		return nil, fmt.Errorf("failed to read changes: %w", err)
	}

	var set detect.ChangeSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse changes: %w", err)
	}
	return &set, nil
}

// SaveUploads stores the original uploads alongside the results,
// re-encoded as bounded JPEGs.
func (s *Store) SaveUploads(sessionID string, beforeData, afterData []byte, maxDim, quality int) error {
	dir, err := s.Dir(sessionID)
	if err != nil {
		return err
	}
	if err := imaging.SaveCompressed(beforeData, filepath.Join(dir, BeforeFile), maxDim, quality); err != nil {
		return fmt.Errorf("before image: %w", err)
	}
	if err := imaging.SaveCompressed(afterData, filepath.Join(dir, AfterFile), maxDim, quality); err != nil {
		return fmt.Errorf("after image: %w", err)
	}
	return nil
}
