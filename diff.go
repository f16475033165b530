package graft

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff renders the net effect of committed mutations as a unified diff of
// every file's committed in-memory text against its on-disk baseline.
// Returns the empty string when nothing changed. Queued, uncommitted
// operations never appear in the diff.
func (cb *Codebase) Diff() (string, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	var b strings.Builder
	for _, f := range cb.store.Files() {
		old := cb.disk[f.Path]
		if old == f.Source {
			continue
		}
		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(old),
			B:        difflib.SplitLines(f.Source),
			FromFile: "a/" + f.Path,
			ToFile:   "b/" + f.Path,
			Context:  3,
		})
		if err != nil {
			return "", fmt.Errorf("graft: diff %s: %w", f.Path, err)
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

// changedPaths lists files whose committed text differs from disk.
func (cb *Codebase) changedPaths() []string {
	var out []string
	for _, f := range cb.store.Files() {
		if cb.disk[f.Path] != f.Source {
			out = append(out, f.Path)
		}
	}
	return out
}

// WriteBack materializes committed state to disk, creating directories for
// new files as needed.
func (cb *Codebase) WriteBack() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.writeBack()
}

func (cb *Codebase) writeBack() error {
	for _, f := range cb.store.Files() {
		if cb.disk[f.Path] == f.Source {
			continue
		}
		abs := filepath.Join(cb.root, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return fmt.Errorf("graft: write back %s: %w", f.Path, err)
		}
		if err := os.WriteFile(abs, []byte(f.Source), 0o644); err != nil {
			return fmt.Errorf("graft: write back %s: %w", f.Path, err)
		}
		cb.disk[f.Path] = f.Source
	}
	return nil
}

// CommitToRepo writes committed state to disk and records a git commit
// containing the changed files. Returns the new commit hash.
func (cb *Codebase) CommitToRepo(message string) (string, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.repo == nil {
		return "", fmt.Errorf("graft: commit to repo: %s is not a git repository", cb.root)
	}
	paths := cb.changedPaths()
	if len(paths) == 0 {
		return "", nil
	}
	if err := cb.writeBack(); err != nil {
		return "", err
	}
	hash, err := cb.repo.Commit(message, paths)
	if err != nil {
		return "", fmt.Errorf("graft: commit to repo: %w", err)
	}
	return hash, nil
}

// CreateBranch creates and checks out a new branch in the underlying
// repository.
func (cb *Codebase) CreateBranch(name string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.repo == nil {
		return fmt.Errorf("graft: create branch: %s is not a git repository", cb.root)
	}
	return cb.repo.CreateBranch(name)
}
