package graph

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Store owns every parsed entity, keyed by EntityID. All other components
// hold EntityIDs and come here to dereference them. The Store itself is not
// goroutine-safe; the Codebase serializes access to it.
type Store struct {
	nextID  EntityID
	files   map[EntityID]*File
	byPath  map[string]EntityID
	symbols map[EntityID]*Symbol
	imports map[EntityID]*Import
	removed map[EntityID]bool

	// contentHash tracks the xxhash of each symbol's current text, used to
	// decide generation bumps when a file is re-parsed after a commit.
	contentHash map[EntityID]uint64
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		nextID:      1,
		files:       make(map[EntityID]*File),
		byPath:      make(map[string]EntityID),
		symbols:     make(map[EntityID]*Symbol),
		imports:     make(map[EntityID]*Import),
		removed:     make(map[EntityID]bool),
		contentHash: make(map[EntityID]uint64),
	}
}

func (s *Store) alloc() EntityID {
	id := s.nextID
	s.nextID++
	return id
}

// AddFile registers a file and every entity its syntax declares. Entity IDs
// are assigned in declaration order, so iteration follows source order.
func (s *Store) AddFile(path, language, hash, source string, syn *FileSyntax) (*File, error) {
	if _, exists := s.byPath[path]; exists {
		return nil, fmt.Errorf("add file %s: path already registered", path)
	}
	f := &File{
		ID:       s.alloc(),
		Path:     path,
		Language: language,
		Hash:     hash,
		Source:   source,
	}
	s.files[f.ID] = f
	s.byPath[path] = f.ID

	for _, decl := range syn.Imports {
		imp := s.newImport(f.ID, decl)
		f.Imports = append(f.Imports, imp.ID)
	}
	for _, decl := range syn.Symbols {
		sym := s.newSymbol(f, 0, decl)
		f.Symbols = append(f.Symbols, sym.ID)
	}
	return f, nil
}

func (s *Store) newImport(fileID EntityID, decl ImportDecl) *Import {
	imp := &Import{
		ID:           s.alloc(),
		FileID:       fileID,
		Local:        decl.Local,
		Source:       decl.Source,
		Imported:     decl.Imported,
		Wildcard:     decl.Wildcard,
		Span:         decl.Span,
		NameSpan:     decl.NameSpan,
		ImportedSpan: decl.ImportedSpan,
		SourceSpan:   decl.SourceSpan,
	}
	s.imports[imp.ID] = imp
	return imp
}

func (s *Store) newSymbol(f *File, parent EntityID, decl SymbolDecl) *Symbol {
	sym := &Symbol{
		ID:         s.alloc(),
		FileID:     f.ID,
		ParentID:   parent,
		Kind:       decl.Kind,
		Name:       decl.Name,
		Span:       decl.Span,
		NameSpan:   decl.NameSpan,
		ValueSpan:  decl.ValueSpan,
		Decorators: decl.Decorators,
		Params:     decl.Params,
		Bases:      decl.Bases,
		Refs:       decl.Refs,
	}
	s.symbols[sym.ID] = sym
	s.contentHash[sym.ID] = hashSpan(f.Source, decl.Span)
	for _, m := range decl.Members {
		member := s.newSymbol(f, sym.ID, m)
		sym.Members = append(sym.Members, member.ID)
	}
	return sym
}

func hashSpan(source string, span Span) uint64 {
	if span.Start < 0 || span.End > len(source) || span.Start > span.End {
		return 0
	}
	return xxhash.Sum64String(source[span.Start:span.End])
}

// File returns the file entity for id.
func (s *Store) File(id EntityID) (*File, error) {
	if s.removed[id] {
		return nil, fmt.Errorf("file %d: %w", id, ErrEntityRemoved)
	}
	f, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("file %d: %w", id, ErrNotFound)
	}
	return f, nil
}

// FileByPath returns the file entity registered at path, or ErrNotFound.
func (s *Store) FileByPath(path string) (*File, error) {
	id, ok := s.byPath[path]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", path, ErrNotFound)
	}
	return s.File(id)
}

// Symbol returns the symbol entity for id.
func (s *Store) Symbol(id EntityID) (*Symbol, error) {
	if s.removed[id] {
		return nil, fmt.Errorf("symbol %d: %w", id, ErrEntityRemoved)
	}
	sym, ok := s.symbols[id]
	if !ok {
		return nil, fmt.Errorf("symbol %d: %w", id, ErrNotFound)
	}
	return sym, nil
}

// Import returns the import entity for id.
func (s *Store) Import(id EntityID) (*Import, error) {
	if s.removed[id] {
		return nil, fmt.Errorf("import %d: %w", id, ErrEntityRemoved)
	}
	imp, ok := s.imports[id]
	if !ok {
		return nil, fmt.Errorf("import %d: %w", id, ErrNotFound)
	}
	return imp, nil
}

// Files returns all live files sorted by path for deterministic iteration.
func (s *Store) Files() []*File {
	out := make([]*File, 0, len(s.files))
	for id, f := range s.files {
		if !s.removed[id] {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Generation returns the generation counter for any live entity.
func (s *Store) Generation(id EntityID) (uint64, error) {
	if s.removed[id] {
		return 0, fmt.Errorf("entity %d: %w", id, ErrEntityRemoved)
	}
	if f, ok := s.files[id]; ok {
		return f.Generation, nil
	}
	if sym, ok := s.symbols[id]; ok {
		return sym.Generation, nil
	}
	if imp, ok := s.imports[id]; ok {
		return imp.Generation, nil
	}
	return 0, fmt.Errorf("entity %d: %w", id, ErrNotFound)
}

// Remove tombstones an entity. Removing a file removes every entity it
// contains. Removing an already-removed or unknown id fails with the
// corresponding error; removal never succeeds twice.
func (s *Store) Remove(id EntityID) error {
	if s.removed[id] {
		return fmt.Errorf("entity %d: %w", id, ErrEntityRemoved)
	}
	if f, ok := s.files[id]; ok {
		for _, impID := range f.Imports {
			s.tombstone(impID)
		}
		for _, symID := range f.Symbols {
			s.tombstoneSymbolTree(symID)
		}
		s.removed[id] = true
		delete(s.byPath, f.Path)
		return nil
	}
	if sym, ok := s.symbols[id]; ok {
		s.tombstoneSymbolTree(id)
		if f, ok := s.files[sym.FileID]; ok {
			f.Symbols = removeID(f.Symbols, id)
			f.Generation++
		}
		if sym.ParentID != 0 {
			if parent, ok := s.symbols[sym.ParentID]; ok {
				parent.Members = removeID(parent.Members, id)
				parent.Generation++
			}
		}
		return nil
	}
	if imp, ok := s.imports[id]; ok {
		s.tombstone(id)
		if f, ok := s.files[imp.FileID]; ok {
			f.Imports = removeID(f.Imports, id)
			f.Generation++
		}
		return nil
	}
	return fmt.Errorf("entity %d: %w", id, ErrNotFound)
}

func (s *Store) tombstone(id EntityID) {
	s.removed[id] = true
	delete(s.contentHash, id)
}

func (s *Store) tombstoneSymbolTree(id EntityID) {
	if sym, ok := s.symbols[id]; ok {
		for _, m := range sym.Members {
			s.tombstoneSymbolTree(m)
		}
	}
	s.tombstone(id)
}

func removeID(ids []EntityID, id EntityID) []EntityID {
	out := make([]EntityID, 0, len(ids))
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// TopLevel returns the entity ID bound to name at the top level of file f:
// a symbol definition first, then an import binding. Returns (0, false)
// when the file binds no such name.
func (s *Store) TopLevel(f *File, name string) (EntityID, bool) {
	for _, symID := range f.Symbols {
		if sym, ok := s.symbols[symID]; ok && !s.removed[symID] && sym.Name == name {
			return symID, true
		}
	}
	for _, impID := range f.Imports {
		if imp, ok := s.imports[impID]; ok && !s.removed[impID] && imp.Local == name {
			return impID, true
		}
	}
	return 0, false
}

// RemapHints guide entity identity preservation across a re-parse.
type RemapHints struct {
	// Renames maps an old entity to the name it is expected to carry in
	// the new parse, so a renamed symbol keeps its EntityID.
	Renames map[EntityID]string
	// Adopt maps a top-level name in the new parse to an existing entity
	// from another file that moved here; the entity keeps its ID and its
	// FileID is updated.
	Adopt map[string]EntityID
}

type symbolMatchKey struct {
	Kind SymbolKind
	Name string
}

// ReplaceFile swaps a file's source and syntax after a committed mutation,
// remapping old entity identifiers onto the new parse where the entity
// still semantically exists. Generations are bumped only for entities whose
// byte range or content actually changed. Old entities with no counterpart
// in the new parse are tombstoned.
func (s *Store) ReplaceFile(fileID EntityID, hash, source string, syn *FileSyntax, hints RemapHints) error {
	f, err := s.File(fileID)
	if err != nil {
		return err
	}
	changed := f.Source != source
	// Swap the source before remapping so content hashes are computed
	// against the text the new spans index into.
	f.Hash = hash
	f.Source = source

	// Index old top-level symbols by (kind, expected name), FIFO per key so
	// duplicate names match in source order.
	oldByKey := make(map[symbolMatchKey][]EntityID)
	for _, symID := range f.Symbols {
		sym := s.symbols[symID]
		name := sym.Name
		if hints.Renames != nil {
			if n, ok := hints.Renames[symID]; ok {
				name = n
			}
		}
		key := symbolMatchKey{sym.Kind, name}
		oldByKey[key] = append(oldByKey[key], symID)
	}
	matched := make(map[EntityID]bool)

	var newSymbols []EntityID
	for _, decl := range syn.Symbols {
		var id EntityID
		if hints.Adopt != nil {
			if adopted, ok := hints.Adopt[decl.Name]; ok {
				id = s.adoptSymbol(adopted, f, decl)
				matched[id] = true
				newSymbols = append(newSymbols, id)
				continue
			}
		}
		key := symbolMatchKey{decl.Kind, decl.Name}
		if queue := oldByKey[key]; len(queue) > 0 {
			id = queue[0]
			oldByKey[key] = queue[1:]
			matched[id] = true
			s.updateSymbol(id, f, 0, decl, hints)
		} else {
			sym := s.newSymbol(f, 0, decl)
			id = sym.ID
			changed = true
		}
		newSymbols = append(newSymbols, id)
	}

	// Tombstone old symbols that found no counterpart.
	for _, symID := range f.Symbols {
		if !matched[symID] {
			s.tombstoneSymbolTree(symID)
			changed = true
		}
	}

	// Imports: match by (local, source, imported) tuple.
	type importKey struct {
		Local, Source, Imported string
		Wildcard                bool
	}
	oldImports := make(map[importKey][]EntityID)
	for _, impID := range f.Imports {
		imp := s.imports[impID]
		oldImports[importKey{imp.Local, imp.Source, imp.Imported, imp.Wildcard}] =
			append(oldImports[importKey{imp.Local, imp.Source, imp.Imported, imp.Wildcard}], impID)
	}
	importMatched := make(map[EntityID]bool)
	var newImports []EntityID
	for _, decl := range syn.Imports {
		key := importKey{decl.Local, decl.Source, decl.Imported, decl.Wildcard}
		if queue := oldImports[key]; len(queue) > 0 {
			impID := queue[0]
			oldImports[key] = queue[1:]
			importMatched[impID] = true
			imp := s.imports[impID]
			if imp.Span != decl.Span {
				imp.Generation++
			}
			imp.Span, imp.NameSpan, imp.SourceSpan = decl.Span, decl.NameSpan, decl.SourceSpan
			imp.ImportedSpan = decl.ImportedSpan
			newImports = append(newImports, impID)
		} else {
			imp := s.newImport(f.ID, decl)
			newImports = append(newImports, imp.ID)
			changed = true
		}
	}
	for _, impID := range f.Imports {
		if !importMatched[impID] {
			s.tombstone(impID)
			changed = true
		}
	}

	f.Symbols = newSymbols
	f.Imports = newImports
	if changed {
		f.Generation++
	}
	return nil
}

// updateSymbol refreshes a matched symbol in place, recursing into members.
func (s *Store) updateSymbol(id EntityID, f *File, parent EntityID, decl SymbolDecl, hints RemapHints) {
	sym := s.symbols[id]
	newHash := hashSpan(f.Source, decl.Span)
	if sym.Span != decl.Span || s.contentHash[id] != newHash {
		sym.Generation++
	}
	sym.FileID = f.ID
	sym.ParentID = parent
	sym.Name = decl.Name
	sym.Span = decl.Span
	sym.NameSpan = decl.NameSpan
	sym.ValueSpan = decl.ValueSpan
	sym.Decorators = decl.Decorators
	sym.Params = decl.Params
	sym.Bases = decl.Bases
	sym.Refs = decl.Refs
	s.contentHash[id] = newHash

	// Remap members by (kind, expected name) within this parent.
	oldByKey := make(map[symbolMatchKey][]EntityID)
	for _, mID := range sym.Members {
		m := s.symbols[mID]
		name := m.Name
		if hints.Renames != nil {
			if n, ok := hints.Renames[mID]; ok {
				name = n
			}
		}
		oldByKey[symbolMatchKey{m.Kind, name}] = append(oldByKey[symbolMatchKey{m.Kind, name}], mID)
	}
	matched := make(map[EntityID]bool)
	var newMembers []EntityID
	for _, mDecl := range decl.Members {
		key := symbolMatchKey{mDecl.Kind, mDecl.Name}
		if queue := oldByKey[key]; len(queue) > 0 {
			mID := queue[0]
			oldByKey[key] = queue[1:]
			matched[mID] = true
			s.updateSymbol(mID, f, id, mDecl, hints)
			newMembers = append(newMembers, mID)
		} else {
			m := s.newSymbol(f, id, mDecl)
			newMembers = append(newMembers, m.ID)
		}
	}
	for _, mID := range sym.Members {
		if !matched[mID] {
			s.tombstoneSymbolTree(mID)
		}
	}
	sym.Members = newMembers
}

// adoptSymbol migrates a symbol entity from another file into f, keeping
// its EntityID. Members are rebuilt as fresh entities in the new file.
func (s *Store) adoptSymbol(id EntityID, f *File, decl SymbolDecl) EntityID {
	sym := s.symbols[id]
	if old, ok := s.files[sym.FileID]; ok && old.ID != f.ID {
		old.Symbols = removeID(old.Symbols, id)
		old.Generation++
	}
	for _, mID := range sym.Members {
		s.tombstoneSymbolTree(mID)
	}
	sym.Members = nil
	s.updateSymbol(id, f, 0, decl, RemapHints{})
	sym.Generation++
	return id
}
