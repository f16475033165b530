package graft

import (
	"fmt"
	"strings"

	"github.com/jward/graft/internal/graph"
)

// Files returns every live file, sorted by path.
func (cb *Codebase) Files() []*File {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.store.Files()
}

// GetFile returns the file at the given root-relative path.
func (cb *Codebase) GetFile(path string) (*File, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.store.FileByPath(path)
}

// FileOf returns the file that owns entity id.
func (cb *Codebase) FileOf(id EntityID) (*File, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.fileOf(id)
}

func (cb *Codebase) fileOf(id EntityID) (*File, error) {
	if f, err := cb.store.File(id); err == nil {
		return f, nil
	}
	if sym, err := cb.store.Symbol(id); err == nil {
		return cb.store.File(sym.FileID)
	}
	if imp, err := cb.store.Import(id); err == nil {
		return cb.store.File(imp.FileID)
	}
	return nil, fmt.Errorf("graft: entity %d: %w", id, graph.ErrNotFound)
}

// SymbolByID returns the symbol with the given entity id.
func (cb *Codebase) SymbolByID(id EntityID) (*Symbol, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.store.Symbol(id)
}

// ImportByID returns the import with the given entity id.
func (cb *Codebase) ImportByID(id EntityID) (*Import, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.store.Import(id)
}

// Symbol finds a symbol by name. The name may be qualified two ways:
// "path/to/file.py:Name" restricts the search to one file, and dots walk
// into class members ("Outer.method"). An unqualified name searches every
// file's top level in path order and returns the first match.
func (cb *Codebase) Symbol(name string) (*Symbol, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.symbol(name)
}

func (cb *Codebase) symbol(name string) (*Symbol, error) {
	path := ""
	if i := strings.Index(name, ":"); i >= 0 {
		path, name = name[:i], name[i+1:]
	}
	head := name
	var rest []string
	if parts := strings.Split(name, "."); len(parts) > 1 {
		head, rest = parts[0], parts[1:]
	}

	files := cb.store.Files()
	if path != "" {
		f, err := cb.store.FileByPath(path)
		if err != nil {
			return nil, err
		}
		files = []*File{f}
	}

	for _, f := range files {
		id, ok := cb.store.TopLevel(f, head)
		if !ok {
			continue
		}
		sym, err := cb.store.Symbol(id)
		if err != nil {
			continue // an import binding, not a definition
		}
		for _, member := range rest {
			sym, err = cb.member(sym, member)
			if err != nil {
				return nil, err
			}
		}
		return sym, nil
	}
	return nil, fmt.Errorf("graft: symbol %q: %w", name, graph.ErrNotFound)
}

func (cb *Codebase) member(of *Symbol, name string) (*Symbol, error) {
	for _, mID := range of.Members {
		if m, err := cb.store.Symbol(mID); err == nil && m.Name == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("graft: member %q of %s: %w", name, of.Name, graph.ErrNotFound)
}

// Functions returns every function in the codebase, methods included, in
// file order then source order within a file.
func (cb *Codebase) Functions() []*Symbol {
	return cb.symbolsOfKind(KindFunction)
}

// Classes returns every class in the codebase in file order.
func (cb *Codebase) Classes() []*Symbol {
	return cb.symbolsOfKind(KindClass)
}

func (cb *Codebase) symbolsOfKind(kind SymbolKind) []*Symbol {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	var out []*Symbol
	for _, f := range cb.store.Files() {
		for _, id := range f.Symbols {
			cb.walkSymbols(id, func(s *Symbol) {
				if s.Kind == kind {
					out = append(out, s)
				}
			})
		}
	}
	return out
}

func (cb *Codebase) walkSymbols(id EntityID, visit func(*Symbol)) {
	sym, err := cb.store.Symbol(id)
	if err != nil {
		return
	}
	visit(sym)
	for _, mID := range sym.Members {
		cb.walkSymbols(mID, visit)
	}
}

// Imports returns every import binding in the codebase in file order.
func (cb *Codebase) Imports() []*Import {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	var out []*Import
	for _, f := range cb.store.Files() {
		for _, id := range f.Imports {
			if imp, err := cb.store.Import(id); err == nil {
				out = append(out, imp)
			}
		}
	}
	return out
}

// UsagesOf returns every usage edge in the codebase that targets id.
func (cb *Codebase) UsagesOf(id EntityID) ([]Usage, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.resolver.UsagesOf(id)
}

// DependenciesOf returns the usage edges leaving id: what it calls,
// imports, inherits from, decorates with, or annotates against.
func (cb *Codebase) DependenciesOf(id EntityID) ([]Usage, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.resolver.DependenciesOf(id)
}

// ResolveImport resolves an import binding to the entity it brings in,
// or External when the target is outside the parsed set.
func (cb *Codebase) ResolveImport(id EntityID) (EntityID, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	imp, err := cb.store.Import(id)
	if err != nil {
		return 0, err
	}
	return cb.resolver.ResolveImport(imp)
}
