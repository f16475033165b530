package graph

import (
	"errors"
	"fmt"
	"log/slog"
)

// errLocal marks a name that resolved to a local binding (a parameter).
// Local bindings are not entities, so they produce no usage edge.
var errLocal = errors.New("local binding")

// Resolver answers "what does this reference denote", "what does X depend
// on", and "what depends on X". Usage edges are derived data: each entity's
// edges are cached together with the generation they were computed at and
// recomputed lazily when the generation moves.
type Resolver struct {
	store *Store
	log   *slog.Logger
	deps  map[EntityID]*edgeCache
}

type edgeCache struct {
	gen   uint64
	edges []Usage
}

// NewResolver creates a Resolver over store. logger may be nil.
func NewResolver(store *Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store: store,
		log:   logger,
		deps:  make(map[EntityID]*edgeCache),
	}
}

// Reset drops every cached edge. The commit path calls this after swapping
// file state, since cross-file resolution results may shift even for
// entities whose own generation did not move.
func (r *Resolver) Reset() {
	r.deps = make(map[EntityID]*edgeCache)
}

// guard tracks the entities the current resolution path is inside of.
// Re-entering one still on the path means an import or inheritance cycle;
// the query treats the re-entered entity as unresolved instead of
// recursing. Entities are released on the way back out, so siblings may
// traverse the same import or base class independently.
type guard map[EntityID]bool

func (g guard) enter(id EntityID) bool {
	if g[id] {
		return false
	}
	g[id] = true
	return true
}

func (g guard) exit(id EntityID) {
	delete(g, id)
}

// ResolveImport resolves an import binding to its defining entity: the
// imported symbol for named imports, the target file for module and
// wildcard imports, External for anything that leads outside the parsed
// set. Cycles through re-export chains resolve to External.
func (r *Resolver) ResolveImport(imp *Import) (EntityID, error) {
	return r.resolveImport(imp, make(guard))
}

func (r *Resolver) resolveImport(imp *Import, g guard) (EntityID, error) {
	if !g.enter(imp.ID) {
		r.log.Debug("import cycle detected", "import", imp.Source, "local", imp.Local)
		return External, nil
	}
	defer g.exit(imp.ID)
	from, err := r.store.File(imp.FileID)
	if err != nil {
		return 0, fmt.Errorf("resolve import: %w", err)
	}
	target, ok := r.store.LookupImportTarget(from, imp.Source)
	if !ok {
		return External, nil
	}
	if imp.Imported == "" || imp.Wildcard {
		return target.ID, nil
	}
	return r.lookupExport(target, imp.Imported, g)
}

// lookupExport finds the entity a file exports under name, following the
// file's own top-level bindings (including re-exporting imports) rather
// than its usage edges.
func (r *Resolver) lookupExport(f *File, name string, g guard) (EntityID, error) {
	id, ok := r.store.TopLevel(f, name)
	if !ok {
		return External, nil
	}
	if imp, err := r.store.Import(id); err == nil {
		return r.resolveImport(imp, g)
	}
	return id, nil
}

// ResolveRef resolves a reference appearing inside symbol `in` (nil for
// file scope) of file f. Returns ErrUnresolved when every scope is
// exhausted; callers commonly map that to the External sentinel.
func (r *Resolver) ResolveRef(f *File, in *Symbol, ref RefDecl) (EntityID, error) {
	return r.resolveChain(f, in, ref, make(guard))
}

func (r *Resolver) resolveChain(f *File, in *Symbol, ref RefDecl, g guard) (EntityID, error) {
	if len(ref.Parts) == 0 {
		return 0, ErrUnresolved
	}
	cur, err := r.lookupName(f, in, ref.Parts[0], g)
	if err != nil {
		return 0, err
	}
	for _, part := range ref.Parts[1:] {
		cur, err = r.memberLookup(cur, part, g)
		if err != nil {
			return 0, err
		}
		if cur == External {
			return External, nil
		}
	}
	return cur, nil
}

// lookupName walks the innermost enclosing scope chain for a simple name:
// function (parameters) -> enclosing class (members) -> file top level ->
// wildcard imports of the file, in that order.
func (r *Resolver) lookupName(f *File, in *Symbol, name string, g guard) (EntityID, error) {
	for s := in; s != nil; {
		if s.Kind == KindFunction {
			for _, p := range s.Params {
				if p.Name == name {
					return 0, errLocal
				}
			}
		}
		if s.Kind == KindClass || s.Kind == KindEnum {
			for _, mID := range s.Members {
				if m, err := r.store.Symbol(mID); err == nil && m.Name == name {
					return mID, nil
				}
			}
		}
		if s.ParentID == 0 {
			break
		}
		parent, err := r.store.Symbol(s.ParentID)
		if err != nil {
			break
		}
		s = parent
	}

	if id, ok := r.store.TopLevel(f, name); ok {
		if imp, err := r.store.Import(id); err == nil {
			return r.resolveImport(imp, g)
		}
		return id, nil
	}

	// Wildcard imports: look the name up among the target file's exports.
	for _, impID := range f.Imports {
		imp, err := r.store.Import(impID)
		if err != nil || !imp.Wildcard {
			continue
		}
		if !g.enter(impID) {
			continue
		}
		target, ok := r.store.LookupImportTarget(f, imp.Source)
		if !ok {
			g.exit(impID)
			continue
		}
		id, err := r.lookupExport(target, name, g)
		g.exit(impID)
		if err == nil && id != External {
			return id, nil
		}
	}
	return 0, ErrUnresolved
}

// memberLookup resolves `name` as a member of whatever `of` resolved to. A
// class answers with its own members first, then each base class depth
// first; a file (module) answers with its top-level bindings; External
// swallows everything.
func (r *Resolver) memberLookup(of EntityID, name string, g guard) (EntityID, error) {
	if of == External {
		return External, nil
	}
	if f, err := r.store.File(of); err == nil {
		return r.lookupExport(f, name, g)
	}
	sym, err := r.store.Symbol(of)
	if err != nil {
		return External, nil
	}
	switch sym.Kind {
	case KindClass, KindEnum:
		return r.classMember(sym, name, g)
	default:
		// No type inference for variables or call results.
		return External, nil
	}
}

func (r *Resolver) classMember(class *Symbol, name string, g guard) (EntityID, error) {
	if !g.enter(class.ID) {
		r.log.Debug("inheritance cycle detected", "class", class.Name)
		return External, nil
	}
	defer g.exit(class.ID)
	for _, mID := range class.Members {
		if m, err := r.store.Symbol(mID); err == nil && m.Name == name {
			return mID, nil
		}
	}
	// Depth-first through bases, first match wins.
	f, err := r.store.File(class.FileID)
	if err != nil {
		return External, nil
	}
	for _, base := range class.Bases {
		baseID, err := r.resolveChain(f, nil, base, g)
		if err != nil || baseID == External {
			continue
		}
		baseSym, err := r.store.Symbol(baseID)
		if err != nil || (baseSym.Kind != KindClass && baseSym.Kind != KindEnum) {
			continue
		}
		if id, err := r.classMember(baseSym, name, g); err == nil && id != External {
			return id, nil
		}
	}
	return External, nil
}

// DependenciesOf returns the usage edges leaving entity id. Edges are
// recomputed when the entity's generation has moved since they were last
// computed.
func (r *Resolver) DependenciesOf(id EntityID) ([]Usage, error) {
	gen, err := r.store.Generation(id)
	if err != nil {
		return nil, err
	}
	if c, ok := r.deps[id]; ok && c.gen == gen {
		return c.edges, nil
	}
	edges, err := r.computeEdges(id)
	if err != nil {
		return nil, err
	}
	r.deps[id] = &edgeCache{gen: gen, edges: edges}
	return edges, nil
}

func (r *Resolver) computeEdges(id EntityID) ([]Usage, error) {
	if imp, err := r.store.Import(id); err == nil {
		return r.importEdges(imp)
	}
	if sym, err := r.store.Symbol(id); err == nil {
		return r.symbolEdges(sym)
	}
	if f, err := r.store.File(id); err == nil {
		var edges []Usage
		for _, impID := range f.Imports {
			sub, err := r.DependenciesOf(impID)
			if err != nil {
				continue
			}
			edges = append(edges, sub...)
		}
		return edges, nil
	}
	return nil, fmt.Errorf("entity %d: %w", id, ErrNotFound)
}

func (r *Resolver) importEdges(imp *Import) ([]Usage, error) {
	target, err := r.ResolveImport(imp)
	if err != nil {
		return nil, err
	}
	kind := UsageImport
	if imp.Wildcard {
		kind = UsageImportWildcard
	}
	span := imp.ImportedSpan
	return []Usage{{From: imp.ID, To: target, Kind: kind, Span: span, Name: imp.Imported}}, nil
}

func (r *Resolver) symbolEdges(sym *Symbol) ([]Usage, error) {
	f, err := r.store.File(sym.FileID)
	if err != nil {
		return nil, err
	}
	var edges []Usage

	appendRef := func(ref RefDecl, kind UsageKind) {
		to, err := r.ResolveRef(f, sym, ref)
		if errors.Is(err, errLocal) {
			return
		}
		if err != nil || to == 0 {
			to = External
		}
		// Bare identifier references that lead outside the parsed set are
		// dropped: they are overwhelmingly builtins and stdlib names.
		if to == External && kind == UsageIdentifier {
			return
		}
		span := ref.Span
		name := ref.Head()
		if len(ref.Parts) > 0 {
			name = ref.Parts[len(ref.Parts)-1]
			if len(ref.PartSpans) == len(ref.Parts) {
				span = ref.PartSpans[len(ref.Parts)-1]
			}
		}
		edges = append(edges, Usage{From: sym.ID, To: to, Kind: kind, Span: span, Name: name})
	}

	for _, ref := range sym.Refs {
		appendRef(ref, ref.Kind)
	}
	for _, base := range sym.Bases {
		appendRef(base, UsageInheritance)
	}
	for _, dec := range sym.Decorators {
		appendRef(dec.Ref, UsageDecorator)
		for _, arg := range dec.Args {
			appendRef(arg, arg.Kind)
		}
	}
	for _, p := range sym.Params {
		if p.Annotation != nil {
			appendRef(*p.Annotation, UsageTypeAnnotation)
		}
	}
	return edges, nil
}

// UsagesOf returns every usage edge in the codebase targeting id: the
// reverse of DependenciesOf, computed by scanning all live entities.
// Per-entity edge caching keeps repeat scans cheap.
func (r *Resolver) UsagesOf(id EntityID) ([]Usage, error) {
	if _, err := r.store.Generation(id); err != nil {
		return nil, err
	}
	var usages []Usage
	for _, f := range r.store.Files() {
		for _, impID := range f.Imports {
			edges, err := r.DependenciesOf(impID)
			if err != nil {
				continue
			}
			for _, e := range edges {
				if e.To == id {
					usages = append(usages, e)
				}
			}
		}
		for _, symID := range f.Symbols {
			r.collectUsages(symID, id, &usages)
		}
	}
	return usages, nil
}

func (r *Resolver) collectUsages(from, target EntityID, out *[]Usage) {
	edges, err := r.DependenciesOf(from)
	if err == nil {
		for _, e := range edges {
			if e.To == target {
				*out = append(*out, e)
			}
		}
	}
	if sym, err := r.store.Symbol(from); err == nil {
		for _, mID := range sym.Members {
			r.collectUsages(mID, target, out)
		}
	}
}
