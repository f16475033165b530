package graft

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/jward/graft/internal/cache"
	"github.com/jward/graft/internal/graph"
	"github.com/jward/graft/internal/lang"
	"github.com/jward/graft/internal/vcs"
)

// Directories that never contain first-party source.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
}

// Load parses every supported source file under root and returns a Codebase
// handle over the resulting graph. Parsing runs on a worker pool unless
// WithParallel(false) is set; entities are installed into the store by a
// single collector, and no resolution happens until every file is in place.
func Load(ctx context.Context, root string, opts ...Option) (*Codebase, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("graft: resolve root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("graft: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("graft: root %s is not a directory", root)
	}

	cb := &Codebase{
		root:     absRoot,
		store:    graph.NewStore(),
		queue:    newOpLog(),
		disk:     make(map[string]string),
		parallel: true,
	}
	for _, opt := range opts {
		opt(cb)
	}
	if cb.log == nil {
		cb.log = slog.Default()
	}
	cb.resolver = graph.NewResolver(cb.store, cb.log)

	ignoreFile := cb.ignoreFile
	if ignoreFile == "" {
		ignoreFile = filepath.Join(absRoot, ".gitignore")
	}
	if fileExists(ignoreFile) {
		ignorer, err := ignore.CompileIgnoreFile(ignoreFile)
		if err != nil {
			return nil, fmt.Errorf("graft: parse ignore file: %w", err)
		}
		cb.ignorer = ignorer
	}
	if repo, err := vcs.Open(absRoot); err == nil {
		cb.repo = repo
	}

	paths, err := cb.discover()
	if err != nil {
		return nil, err
	}

	var snap *cache.Cache
	head := ""
	if cb.repo != nil {
		if h, err := cb.repo.Head(); err == nil {
			head = h
		}
	}
	if cb.cachePath != "" {
		snap, err = cache.Open(cb.cachePath)
		if err != nil {
			return nil, fmt.Errorf("graft: open snapshot cache: %w", err)
		}
		defer snap.Close()
	}

	// A snapshot is only consulted when it was written at the current HEAD;
	// otherwise the load re-parses everything and rewrites the snapshot.
	lookup := snap
	if snap != nil {
		stored, err := snap.CommitHash()
		if err != nil || head == "" || stored != head {
			lookup = nil
		}
	}

	entries, err := cb.parseAll(ctx, paths, lookup)
	if err != nil {
		return nil, err
	}

	// Install in path order so entity ids are deterministic for a given tree.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	for i := range entries {
		e := &entries[i]
		if _, err := cb.store.AddFile(e.Path, e.Language, e.Hash, e.Source, e.Syntax); err != nil {
			return nil, fmt.Errorf("graft: install %s: %w", e.Path, err)
		}
		cb.disk[e.Path] = e.Source
	}

	if snap != nil {
		if err := snap.Save(head, entries); err != nil {
			cb.log.Warn("snapshot save failed", "error", err)
		}
	}

	cb.log.Info("codebase loaded", "root", absRoot, "files", len(entries))
	return cb, nil
}

// discover walks the root collecting root-relative paths of supported files,
// honoring .gitignore and the WithLanguages restriction.
func (cb *Codebase) discover() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(cb.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path == cb.root {
				return nil
			}
			if skipDirs[name] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		language, ok := lang.LanguageForFile(path)
		if !ok {
			return nil
		}
		if cb.languages != nil && !cb.languages[language] {
			return nil
		}
		rel, err := filepath.Rel(cb.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if cb.ignorer != nil && cb.ignorer.MatchesPath(rel) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("graft: discover files: %w", err)
	}
	return paths, nil
}

// parseOne reads, hashes, and extracts a single file, consulting the
// snapshot cache first when one is open.
func (cb *Codebase) parseOne(ctx context.Context, rel string, snap *cache.Cache) (cache.Entry, error) {
	data, err := os.ReadFile(filepath.Join(cb.root, rel))
	if err != nil {
		return cache.Entry{}, fmt.Errorf("read %s: %w", rel, err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(data))

	if snap != nil {
		if hit, err := snap.Lookup(rel, hash); err == nil && hit != nil {
			return *hit, nil
		}
	}

	language, _ := lang.LanguageForFile(rel)
	adapter, ok := lang.ForLanguage(language)
	if !ok {
		return cache.Entry{}, fmt.Errorf("no adapter for language %q", language)
	}
	syn, err := lang.ParseAndExtract(ctx, adapter, data)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("extract %s: %w", rel, err)
	}
	return cache.Entry{
		Path:     rel,
		Language: language,
		Hash:     hash,
		Source:   string(data),
		Syntax:   syn,
	}, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
