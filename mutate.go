package graft

import (
	"fmt"
	"unicode"

	"github.com/jward/graft/internal/graph"
)

// OpKind tags one queued mutation.
type OpKind string

const (
	OpRename       OpKind = "rename"
	OpRemove       OpKind = "remove"
	OpSetValue     OpKind = "set_value"
	OpAddDecorator OpKind = "add_decorator"
	OpMoveToFile   OpKind = "move_to_file"
	OpCreateFile   OpKind = "create_file"
)

// Operation is one record in the deferred mutation log. Mutations validate
// against committed state when queued and take effect only on Commit.
type Operation struct {
	Kind   OpKind
	Target EntityID // zero for create_file

	NewName   string      // rename
	Value     string      // set_value: replacement for the initializer expression
	Decorator string      // add_decorator: full decorator text, e.g. "@cached"
	Path      string      // move_to_file target / create_file path
	Source    string      // create_file initial content
	Move      MoveOptions // move_to_file
}

// opLog is the visible operation queue the autocommit discipline drains.
// The files a pending operation touches are derived at commit time from
// the plan's edits, not tracked here.
type opLog struct {
	ops []Operation
}

func newOpLog() *opLog {
	return &opLog{}
}

func (l *opLog) append(op Operation) {
	l.ops = append(l.ops, op)
}

func (l *opLog) clear() {
	l.ops = nil
}

// Rename queues a rename of symbol id to newName. Every resolvable usage
// site is rewritten on commit; the entity keeps its id across the commit.
func (cb *Codebase) Rename(id EntityID, newName string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if !validIdent(newName) {
		return fmt.Errorf("graft: rename: %q is not a valid identifier", newName)
	}
	if _, err := cb.store.Symbol(id); err != nil {
		return fmt.Errorf("graft: rename: %w", err)
	}
	cb.queue.append(Operation{Kind: OpRename, Target: id, NewName: newName})
	return nil
}

// Remove queues deletion of an entity (symbol or import). Its source lines
// are deleted on commit and the id becomes invalid for all queries.
func (cb *Codebase) Remove(id EntityID) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if _, err := cb.store.File(id); err == nil {
		return fmt.Errorf("graft: remove: %d is a file, not a symbol or import", id)
	}
	if _, err := cb.owningFile(id); err != nil {
		return fmt.Errorf("graft: remove: %w", err)
	}
	cb.queue.append(Operation{Kind: OpRemove, Target: id})
	return nil
}

// SetValue queues replacement of a variable's initializer expression.
func (cb *Codebase) SetValue(id EntityID, expr string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	sym, err := cb.store.Symbol(id)
	if err != nil {
		return fmt.Errorf("graft: set value: %w", err)
	}
	if sym.ValueSpan.Len() == 0 {
		return fmt.Errorf("graft: set value: %s has no initializer", sym.Name)
	}
	cb.queue.append(Operation{Kind: OpSetValue, Target: id, Value: expr})
	return nil
}

// AddDecorator queues insertion of a decorator line above symbol id.
// The text must include the leading "@".
func (cb *Codebase) AddDecorator(id EntityID, text string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if len(text) == 0 || text[0] != '@' {
		return fmt.Errorf("graft: add decorator: text must start with %q", "@")
	}
	sym, err := cb.store.Symbol(id)
	if err != nil {
		return fmt.Errorf("graft: add decorator: %w", err)
	}
	f, err := cb.store.File(sym.FileID)
	if err != nil {
		return fmt.Errorf("graft: add decorator: %w", err)
	}
	if f.Language == "javascript" {
		return fmt.Errorf("graft: add decorator: %s does not support decorators", f.Language)
	}
	cb.queue.append(Operation{Kind: OpAddDecorator, Target: id, Decorator: text})
	return nil
}

// MoveSymbol queues relocation of symbol id into the file at targetPath,
// repairing importers per opts.Strategy. A move into the symbol's own file
// is a no-op.
func (cb *Codebase) MoveSymbol(id EntityID, targetPath string, opts MoveOptions) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	sym, err := cb.store.Symbol(id)
	if err != nil {
		return fmt.Errorf("graft: move symbol: %w", err)
	}
	if sym.ParentID != 0 {
		return fmt.Errorf("graft: move symbol: %s is not a top-level symbol", sym.Name)
	}
	switch opts.Strategy {
	case "":
		opts.Strategy = AddBackEdge
	case AddBackEdge, UpdateAllImports:
	default:
		return fmt.Errorf("graft: move symbol: unknown strategy %q", opts.Strategy)
	}
	src, err := cb.store.File(sym.FileID)
	if err != nil {
		return fmt.Errorf("graft: move symbol: %w", err)
	}
	if src.Path == targetPath {
		return nil
	}
	cb.queue.append(Operation{Kind: OpMoveToFile, Target: id, Path: targetPath, Move: opts})
	return nil
}

// CreateFile queues creation of a new source file with the given content.
func (cb *Codebase) CreateFile(path, source string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if _, err := cb.store.FileByPath(path); err == nil {
		return fmt.Errorf("graft: create file: %s already exists", path)
	}
	for _, op := range cb.queue.ops {
		if op.Kind == OpCreateFile && op.Path == path {
			return fmt.Errorf("graft: create file: %s already queued", path)
		}
	}
	cb.queue.append(Operation{Kind: OpCreateFile, Path: path, Source: source})
	return nil
}

func (cb *Codebase) owningFile(id EntityID) (EntityID, error) {
	if sym, err := cb.store.Symbol(id); err == nil {
		return sym.FileID, nil
	}
	if imp, err := cb.store.Import(id); err == nil {
		return imp.FileID, nil
	}
	if _, err := cb.store.File(id); err == nil {
		return id, nil
	}
	return 0, fmt.Errorf("entity %d: %w", id, graph.ErrNotFound)
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
