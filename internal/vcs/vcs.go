// Package vcs is the version-control collaborator: a thin wrapper over
// go-git that the engine calls during initial load (HEAD identity for the
// snapshot cache) and final materialization (staging, commits, branches).
package vcs

import (
	"fmt"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repo wraps an opened git repository.
type Repo struct {
	repo *git.Repository
	root string
}

// Open opens the git repository containing root. Returns an error when
// root is not inside a repository; callers treat that as "no VCS" and
// continue without snapshot caching or commit support.
func Open(root string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", root, err)
	}
	return &Repo{repo: repo, root: root}, nil
}

// Head returns the current HEAD commit hash, used as the snapshot cache
// key. An empty repository (no commits yet) returns an error.
func (r *Repo) Head() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// Commit stages the given worktree-relative paths and commits them with
// message. Returns the new commit hash.
func (r *Repo) Commit(message string, paths []string) (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}
	for _, p := range paths {
		if _, err := wt.Add(p); err != nil {
			return "", fmt.Errorf("stage %s: %w", p, err)
		}
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "graft",
			Email: "graft@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return hash.String(), nil
}

// CreateBranch creates and checks out a new branch at the current HEAD.
func (r *Repo) CreateBranch(name string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
	})
	if err != nil {
		return fmt.Errorf("create branch %s: %w", name, err)
	}
	return nil
}
