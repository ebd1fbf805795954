// Package filetracker implements an issue tracker backed by a local YAML file.
//
// The file lists issue statuses and the named transitions that move between
// them:
//
//	issues:
//	  PROJ-1: Open
//	  PROJ-2: In Progress
//	transitions:
//	  Resolve Issue:
//	    from: [Open, Reopened, In Progress]
//	    to: Resolved
//	  Reopen Issue:
//	    from: [Resolved, Closed]
//	    to: Reopened
//
// A transition whose from list does not contain the issue's current status
// fails with [tracker.ErrTransitionNotPermitted]. An empty from list permits
// the transition from any status. Every mutation rewrites the file atomically.
package filetracker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"issueflow/internal/tracker"
)

// DefaultPath is the store location used when none is configured.
const DefaultPath = "issues.yaml"

// Transition describes a named status change.
type Transition struct {
	From []string `yaml:"from,omitempty"`
	To   string   `yaml:"to"`
}

func (t Transition) allows(status string) bool {
	if len(t.From) == 0 {
		return true
	}
	for _, f := range t.From {
		if f == status {
			return true
		}
	}
	return false
}

// Comment is a note attached to an issue.
type Comment struct {
	Issue string `yaml:"issue"`
	Body  string `yaml:"body"`
}

// File is the on-disk layout of the store.
type File struct {
	Issues      map[string]string     `yaml:"issues"`
	Transitions map[string]Transition `yaml:"transitions,omitempty"`
	Comments    []Comment             `yaml:"comments,omitempty"`
}

// Store reads and writes issue statuses in a YAML file.
//
// Store is safe for concurrent use within a single process.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a [Store] for the file at path. The file is not read until the
// first operation.
func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Path returns the file the store operates on.
func (s *Store) Path() string {
	return s.path
}

// Read reads and parses the complete store file.
func (s *Store) Read() (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) read() (*File, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read issue store %s: %w: %w", s.path, tracker.ErrTrackerUnavailable, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse issue store %s: %w: %w", s.path, tracker.ErrTrackerUnavailable, err)
	}
	if f.Issues == nil {
		f.Issues = make(map[string]string)
	}
	return &f, nil
}

func (s *Store) write(f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal issue store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write issue store: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write issue store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write issue store: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write issue store: %w", err)
	}
	return nil
}

// GetStatus returns the status of issueKey.
func (s *Store) GetStatus(ctx context.Context, issueKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := s.Read()
	if err != nil {
		return "", err
	}
	status, ok := f.Issues[issueKey]
	if !ok {
		return "", fmt.Errorf("%w: %s", tracker.ErrIssueNotFound, issueKey)
	}
	return status, nil
}

// ApplyTransition moves issueKey along the named transition.
func (s *Store) ApplyTransition(ctx context.Context, issueKey, transition string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}
	current, ok := f.Issues[issueKey]
	if !ok {
		return fmt.Errorf("%w: %s", tracker.ErrIssueNotFound, issueKey)
	}
	t, ok := f.Transitions[transition]
	if !ok || !t.allows(current) {
		return fmt.Errorf("%w: %q from status %q on %s", tracker.ErrTransitionNotPermitted, transition, current, issueKey)
	}

	f.Issues[issueKey] = t.To
	return s.write(f)
}

// AddComment appends a comment for issueKey.
func (s *Store) AddComment(ctx context.Context, issueKey, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := f.Issues[issueKey]; !ok {
		return fmt.Errorf("%w: %s", tracker.ErrIssueNotFound, issueKey)
	}
	f.Comments = append(f.Comments, Comment{Issue: issueKey, Body: body})
	return s.write(f)
}

// Keys returns every issue key in the store, sorted.
func (s *Store) Keys() ([]string, error) {
	f, err := s.Read()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(f.Issues))
	for k := range f.Issues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
