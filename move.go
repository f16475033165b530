package graft

import (
	"fmt"
	"strings"

	"github.com/jward/graft/internal/graph"
	"github.com/jward/graft/internal/lang"
	"github.com/jward/graft/internal/textedit"
)

// MoveStrategy selects how importers are repaired after a symbol moves.
type MoveStrategy string

const (
	// AddBackEdge leaves existing importers untouched and makes the old
	// file re-export the symbol from its new location. Minimal diff, one
	// extra indirection.
	AddBackEdge MoveStrategy = "add_back_edge"
	// UpdateAllImports rewrites every importer to import the symbol from
	// its new file directly.
	UpdateAllImports MoveStrategy = "update_all_imports"
)

// MoveOptions configures MoveSymbol.
type MoveOptions struct {
	// IncludeDependencies carries the transitive closure of source-file
	// private symbols the moved body references.
	IncludeDependencies bool
	Strategy            MoveStrategy
}

// planMove renders one queued relocation into plan edits: excise the moved
// definitions from the source file, append them (plus the imports they
// need) to the target, and repair importers per strategy.
func (cb *Codebase) planMove(plan *commitPlan, op Operation) error {
	sym, err := cb.store.Symbol(op.Target)
	if err != nil {
		return fmt.Errorf("move: %w", err)
	}
	src, err := cb.store.File(sym.FileID)
	if err != nil {
		return fmt.Errorf("move: %w", err)
	}
	if src.Path == op.Path {
		return nil
	}
	targetLang, ok := lang.LanguageForFile(op.Path)
	if !ok {
		return fmt.Errorf("move: unsupported target %s", op.Path)
	}
	if (targetLang == "python") != (src.Language == "python") {
		return fmt.Errorf("move: cannot move %s symbol into %s file", src.Language, op.Path)
	}

	target, err := cb.store.FileByPath(op.Path)
	if err != nil {
		if _, created := plan.created[op.Path]; !created {
			plan.created[op.Path] = ""
		}
		target = nil
	}
	// ModuleSpecifier needs a file record for the target even before it
	// exists in the store.
	targetRef := target
	if targetRef == nil {
		targetRef = &graph.File{Path: op.Path, Language: targetLang}
	}

	moved := cb.moveSet(src, sym, op.Move)

	// A carried dependency still referenced by symbols that stay behind is
	// copied, not moved: its definition remains in the source file.
	copied := map[EntityID]bool{}
	for id := range moved {
		if id == sym.ID {
			continue
		}
		if cb.usedByRemaining(src, id, moved) {
			copied[id] = true
		}
	}

	// Excise moved definitions (in source order) and build the chunk that
	// lands in the target.
	var chunks []string
	for _, symID := range src.Symbols {
		if !moved[symID] {
			continue
		}
		m, err := cb.store.Symbol(symID)
		if err != nil {
			continue
		}
		start, end := textedit.ExpandToLine(src.Source, m.Span.Start, m.Span.End)
		chunks = append(chunks, strings.TrimRight(src.Source[start:end], "\n"))
		if !copied[symID] {
			plan.addEdit(src.Path, textedit.Delete(start, end))
			plan.adoptInto(op.Path, m.Name, symID)
		}
	}

	importLines := cb.targetImports(src, targetRef, moved)

	base, err := plan.baseText(cb, op.Path)
	if err != nil {
		return fmt.Errorf("move: %w", err)
	}
	if len(importLines) > 0 {
		plan.addEdit(op.Path, textedit.Insert(0, strings.Join(importLines, "\n")+"\n"))
	}
	insert := strings.Join(chunks, "\n\n") + "\n"
	if strings.TrimSpace(base) != "" {
		insert = "\n\n" + insert
	}
	plan.addEdit(op.Path, textedit.Insert(len(base), insert))

	spec := graph.ModuleSpecifier(src, targetRef)
	switch op.Move.Strategy {
	case AddBackEdge:
		plan.addEdit(src.Path, textedit.Insert(0, exportLine(src.Language, spec, sym.Name)+"\n"))
	case UpdateAllImports:
		if cb.usedByRemaining(src, sym.ID, moved) {
			plan.addEdit(src.Path, textedit.Insert(0, importLine(src.Language, spec, sym.Name)+"\n"))
		}
		cb.rewriteImporters(plan, src, targetRef, sym)
	}
	return nil
}

// moveSet computes the set of top-level symbols that travel: the primary
// symbol plus, when requested, the transitive closure of source-file
// symbols its body references that no other file imports.
func (cb *Codebase) moveSet(src *File, sym *Symbol, opts MoveOptions) map[EntityID]bool {
	moved := map[EntityID]bool{sym.ID: true}
	if !opts.IncludeDependencies {
		return moved
	}
	queue := []*Symbol{sym}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, head := range refHeads(cb.store, cur) {
			id, ok := cb.store.TopLevel(src, head)
			if !ok || moved[id] {
				continue
			}
			dep, err := cb.store.Symbol(id)
			if err != nil {
				continue // an import binding travels as an import, not a definition
			}
			if cb.importedElsewhere(src, dep) {
				continue
			}
			moved[id] = true
			queue = append(queue, dep)
		}
	}
	return moved
}

// importedElsewhere reports whether any other file imports dep from src.
func (cb *Codebase) importedElsewhere(src *File, dep *Symbol) bool {
	for _, f := range cb.store.Files() {
		if f.ID == src.ID {
			continue
		}
		for _, impID := range f.Imports {
			imp, err := cb.store.Import(impID)
			if err != nil || imp.Imported != dep.Name {
				continue
			}
			if t, ok := cb.store.LookupImportTarget(f, imp.Source); ok && t.ID == src.ID {
				return true
			}
		}
	}
	return false
}

// usedByRemaining reports whether any source-file top-level symbol outside
// the moved set references id by name.
func (cb *Codebase) usedByRemaining(src *File, id EntityID, moved map[EntityID]bool) bool {
	target, err := cb.store.Symbol(id)
	if err != nil {
		return false
	}
	for _, symID := range src.Symbols {
		if moved[symID] {
			continue
		}
		rem, err := cb.store.Symbol(symID)
		if err != nil {
			continue
		}
		for _, head := range refHeads(cb.store, rem) {
			if head == target.Name {
				return true
			}
		}
	}
	return false
}

// targetImports builds the import lines the target file needs so the moved
// code keeps resolving: source-file imports the moved code leans on are
// replicated (with their specifier recomputed for the target's location),
// and source-file symbols that stay behind are imported from the source.
func (cb *Codebase) targetImports(src, target *File, moved map[EntityID]bool) []string {
	var lines []string
	seen := map[string]bool{}
	add := func(line string) {
		if line != "" && !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}
	srcSpec := graph.ModuleSpecifier(target, src)

	// Walk in source order so the emitted lines are deterministic.
	for _, id := range src.Symbols {
		if !moved[id] {
			continue
		}
		m, err := cb.store.Symbol(id)
		if err != nil {
			continue
		}
		for _, head := range refHeads(cb.store, m) {
			bindID, ok := cb.store.TopLevel(src, head)
			if !ok || moved[bindID] {
				continue
			}
			if cb.targetBinds(target, head) {
				continue
			}
			if imp, err := cb.store.Import(bindID); err == nil {
				add(cb.replicateImport(src, target, imp))
				continue
			}
			// A definition staying behind in the source file.
			add(importLine(target.Language, srcSpec, head))
		}
	}
	return lines
}

// targetBinds reports whether the target file already binds name.
func (cb *Codebase) targetBinds(target *File, name string) bool {
	if target.ID == 0 {
		return false // file does not exist yet
	}
	_, ok := cb.store.TopLevel(target, name)
	return ok
}

// replicateImport renders src's import imp as target should write it,
// recomputing the module specifier when the import stays inside the
// parsed set.
func (cb *Codebase) replicateImport(src, target *File, imp *Import) string {
	spec := imp.Source
	if t, ok := cb.store.LookupImportTarget(src, imp.Source); ok {
		spec = graph.ModuleSpecifier(target, t)
	}
	if target.Language == "python" {
		switch {
		case imp.Wildcard:
			return fmt.Sprintf("from %s import *", spec)
		case imp.Imported == "":
			if imp.Local != "" && imp.Local != firstSegment(imp.Source) {
				return fmt.Sprintf("import %s as %s", spec, imp.Local)
			}
			return fmt.Sprintf("import %s", spec)
		case imp.Local != imp.Imported:
			return fmt.Sprintf("from %s import %s as %s", spec, imp.Imported, imp.Local)
		default:
			return fmt.Sprintf("from %s import %s", spec, imp.Imported)
		}
	}
	switch {
	case imp.Wildcard:
		return fmt.Sprintf("import * as %s from '%s';", imp.Local, spec)
	case imp.Imported == "default":
		return fmt.Sprintf("import %s from '%s';", imp.Local, spec)
	case imp.Local == "" && imp.Imported == "":
		return fmt.Sprintf("import '%s';", spec)
	case imp.Local != imp.Imported:
		return fmt.Sprintf("import { %s as %s } from '%s';", imp.Imported, imp.Local, spec)
	default:
		return fmt.Sprintf("import { %s } from '%s';", imp.Imported, spec)
	}
}

// rewriteImporters replaces the module specifier of every import that
// resolves to the moved symbol via the source file.
func (cb *Codebase) rewriteImporters(plan *commitPlan, src, target *File, sym *Symbol) {
	for _, f := range cb.store.Files() {
		if f.ID == src.ID {
			continue
		}
		for _, impID := range f.Imports {
			imp, err := cb.store.Import(impID)
			if err != nil || imp.Imported != sym.Name {
				continue
			}
			if t, ok := cb.store.LookupImportTarget(f, imp.Source); !ok || t.ID != src.ID {
				continue
			}
			spec := graph.ModuleSpecifier(f, target)
			plan.addEdit(f.Path, textedit.Replace(imp.SourceSpan.Start, imp.SourceSpan.End, specifierText(f.Language, f.Source, imp.SourceSpan, spec)))
		}
	}
}

// specifierText renders the replacement for an import's source span,
// preserving the quote character ECMAScript sources use.
func specifierText(language, source string, span Span, spec string) string {
	if language == "python" {
		return spec
	}
	quote := "'"
	if span.Start < len(source) && source[span.Start] == '"' {
		quote = `"`
	}
	return quote + spec + quote
}

// importLine renders a named import of name from spec in language.
func importLine(language, spec, name string) string {
	if language == "python" {
		return fmt.Sprintf("from %s import %s", spec, name)
	}
	return fmt.Sprintf("import { %s } from '%s';", name, spec)
}

// exportLine renders a re-export of name from spec in language. Python has
// no export syntax; the import binding itself is the re-export.
func exportLine(language, spec, name string) string {
	if language == "python" {
		return fmt.Sprintf("from %s import %s", spec, name)
	}
	return fmt.Sprintf("export { %s } from '%s';", name, spec)
}

// refHeads collects the first identifier of every reference the symbol
// tree makes: body refs, base classes, decorators and their arguments,
// parameter annotations, members recursively.
func refHeads(s *graph.Store, sym *Symbol) []string {
	var heads []string
	var visit func(sym *Symbol)
	visit = func(sym *Symbol) {
		add := func(ref graph.RefDecl) {
			if h := ref.Head(); h != "" {
				heads = append(heads, h)
			}
		}
		for _, ref := range sym.Refs {
			add(ref)
		}
		for _, base := range sym.Bases {
			add(base)
		}
		for _, dec := range sym.Decorators {
			add(dec.Ref)
			for _, arg := range dec.Args {
				add(arg)
			}
		}
		for _, p := range sym.Params {
			if p.Annotation != nil {
				add(*p.Annotation)
			}
		}
		for _, mID := range sym.Members {
			if m, err := s.Symbol(mID); err == nil {
				visit(m)
			}
		}
	}
	visit(sym)
	return heads
}

func firstSegment(dotted string) string {
	if i := strings.IndexByte(dotted, '.'); i >= 0 {
		return dotted[:i]
	}
	return dotted
}
