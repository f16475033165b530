package graft

import (
	"log/slog"
	"sync"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/jward/graft/internal/graph"
	"github.com/jward/graft/internal/vcs"
)

// Codebase is the explicit session handle for one parsed repository. All
// queries and mutations go through it; there is no ambient global state.
//
// Concurrency: reads take a shared lock and may run concurrently with each
// other; mutations and Commit take the exclusive lock, so a query issued
// while a commit is executing blocks until the commit finishes.
type Codebase struct {
	mu sync.RWMutex

	root     string
	store    *graph.Store
	resolver *graph.Resolver
	queue    *opLog
	log      *slog.Logger

	// disk mirrors the last text written to (or read from) disk per
	// root-relative path; Diff compares against it.
	disk map[string]string

	languages  map[string]bool // nil means all supported languages
	parallel   bool
	cachePath  string
	ignoreFile string
	ignorer    *ignore.GitIgnore
	repo       *vcs.Repo // nil when root is not inside a git repository
}

// Option configures a Codebase during Load.
type Option func(*Codebase)

// WithLanguages restricts which languages are parsed.
func WithLanguages(languages ...string) Option {
	return func(cb *Codebase) {
		cb.languages = make(map[string]bool, len(languages))
		for _, l := range languages {
			cb.languages[l] = true
		}
	}
}

// WithParallel controls parallel parsing during load. When true (default),
// files are parsed and extracted by a worker pool and installed into the
// node store by a single collector; resolution does not begin until every
// file is installed. Set to false for serial loading.
func WithParallel(parallel bool) Option {
	return func(cb *Codebase) {
		cb.parallel = parallel
	}
}

// WithCache enables the SQLite snapshot cache at dbPath. Snapshots are
// keyed by the repository's HEAD commit hash and skip re-parsing files
// whose content hash is unchanged.
func WithCache(dbPath string) Option {
	return func(cb *Codebase) {
		cb.cachePath = dbPath
	}
}

// WithIgnoreFile uses the gitignore-format file at path for discovery
// filtering instead of the root's .gitignore.
func WithIgnoreFile(path string) Option {
	return func(cb *Codebase) {
		cb.ignoreFile = path
	}
}

// WithLogger sets the diagnostics logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(cb *Codebase) {
		cb.log = logger
	}
}

// Root returns the codebase's root directory.
func (cb *Codebase) Root() string { return cb.root }

// Dirty reports whether any mutations are queued and uncommitted.
func (cb *Codebase) Dirty() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return len(cb.queue.ops) > 0
}

// Pending returns a copy of the queued, uncommitted operation log. This is
// the explicit opt-in view of uncommitted state; every other query reflects
// the committed graph only.
func (cb *Codebase) Pending() []Operation {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	out := make([]Operation, len(cb.queue.ops))
	copy(out, cb.queue.ops)
	return out
}

// PendingName returns the name entity id will carry after the next commit,
// taking queued renames into account.
func (cb *Codebase) PendingName(id EntityID) (string, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	name := ""
	if sym, err := cb.store.Symbol(id); err == nil {
		name = sym.Name
	} else if imp, err := cb.store.Import(id); err == nil {
		name = imp.Local
	} else {
		return "", err
	}
	for _, op := range cb.queue.ops {
		if op.Kind == OpRename && op.Target == id {
			name = op.NewName
		}
	}
	return name, nil
}
