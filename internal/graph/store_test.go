package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addTestFile installs a file whose syntax declares the given top-level
// function names, each spanning its own line of source.
func addTestFile(t *testing.T, s *Store, path string, names ...string) *File {
	t.Helper()
	source := ""
	syn := &FileSyntax{Language: "python"}
	for _, name := range names {
		start := len(source)
		line := "def " + name + "(): pass\n"
		source += line
		syn.Symbols = append(syn.Symbols, SymbolDecl{
			Kind:     KindFunction,
			Name:     name,
			Span:     Span{Start: start, End: start + len(line) - 1},
			NameSpan: Span{Start: start + 4, End: start + 4 + len(name)},
		})
	}
	f, err := s.AddFile(path, "python", "h", source, syn)
	require.NoError(t, err)
	return f
}

func TestAddFile_AssignsIDsInDeclarationOrder(t *testing.T) {
	t.Parallel()
	s := NewStore()
	f := addTestFile(t, s, "a.py", "one", "two")

	require.Len(t, f.Symbols, 2)
	assert.Less(t, f.Symbols[0], f.Symbols[1])

	one, err := s.Symbol(f.Symbols[0])
	require.NoError(t, err)
	assert.Equal(t, "one", one.Name)
	assert.Equal(t, f.ID, one.FileID)
}

func TestAddFile_DuplicatePathFails(t *testing.T) {
	t.Parallel()
	s := NewStore()
	addTestFile(t, s, "a.py", "f")
	_, err := s.AddFile("a.py", "python", "h", "", &FileSyntax{})
	require.Error(t, err)
}

func TestGet_UnknownIDIsNotFound(t *testing.T) {
	t.Parallel()
	s := NewStore()
	_, err := s.Symbol(999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.File(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemove_Symbol(t *testing.T) {
	t.Parallel()
	s := NewStore()
	f := addTestFile(t, s, "a.py", "gone", "stays")
	gen := f.Generation
	id := f.Symbols[0]

	require.NoError(t, s.Remove(id))

	_, err := s.Symbol(id)
	assert.ErrorIs(t, err, ErrEntityRemoved)
	assert.ErrorIs(t, err, ErrNotFound, "removed satisfies the generic absent check too")
	assert.Greater(t, f.Generation, gen, "removal bumps the owning file's generation")
	assert.Len(t, f.Symbols, 1)
}

func TestRemove_Idempotence(t *testing.T) {
	t.Parallel()
	s := NewStore()
	f := addTestFile(t, s, "a.py", "f")
	id := f.Symbols[0]

	require.NoError(t, s.Remove(id))
	err := s.Remove(id)
	require.Error(t, err, "removal never succeeds twice")
	assert.ErrorIs(t, err, ErrEntityRemoved)
}

func TestRemove_FileCascades(t *testing.T) {
	t.Parallel()
	s := NewStore()
	f := addTestFile(t, s, "a.py", "f", "g")

	require.NoError(t, s.Remove(f.ID))
	for _, id := range f.Symbols {
		_, err := s.Symbol(id)
		assert.ErrorIs(t, err, ErrEntityRemoved)
	}
	_, err := s.FileByPath("a.py")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTopLevel_SymbolBeforeImport(t *testing.T) {
	t.Parallel()
	s := NewStore()
	syn := &FileSyntax{
		Language: "python",
		Imports:  []ImportDecl{{Local: "helper", Source: "lib", Imported: "helper"}},
		Symbols:  []SymbolDecl{{Kind: KindFunction, Name: "main"}},
	}
	f, err := s.AddFile("a.py", "python", "h", "", syn)
	require.NoError(t, err)

	id, ok := s.TopLevel(f, "main")
	require.True(t, ok)
	assert.Equal(t, f.Symbols[0], id)

	id, ok = s.TopLevel(f, "helper")
	require.True(t, ok)
	assert.Equal(t, f.Imports[0], id)

	_, ok = s.TopLevel(f, "absent")
	assert.False(t, ok)
}

func TestReplaceFile_KeepsIDsForUnchangedSymbols(t *testing.T) {
	t.Parallel()
	s := NewStore()
	f := addTestFile(t, s, "a.py", "f", "g")
	fID, gID := f.Symbols[0], f.Symbols[1]
	fSym, _ := s.Symbol(fID)

	// Rewrite the file with f's body changed and g untouched.
	source := "def f(): return 1\ndef g(): pass\n"
	syn := &FileSyntax{Language: "python", Symbols: []SymbolDecl{
		{Kind: KindFunction, Name: "f", Span: Span{0, 17}, NameSpan: Span{4, 5}},
		{Kind: KindFunction, Name: "g", Span: Span{18, 32}, NameSpan: Span{22, 23}},
	}}
	require.NoError(t, s.ReplaceFile(f.ID, "h2", source, syn, RemapHints{}))

	fAfter, err := s.Symbol(fID)
	require.NoError(t, err)
	assert.Equal(t, fSym.ID, fAfter.ID, "identity survives the re-parse")
	assert.Greater(t, fAfter.Generation, uint64(0), "changed content bumps the generation")

	gAfter, err := s.Symbol(gID)
	require.NoError(t, err)
	assert.Equal(t, "g", gAfter.Name)
}

func TestReplaceFile_SameSpanContentChangeBumpsGeneration(t *testing.T) {
	t.Parallel()
	s := NewStore()
	f := addTestFile(t, s, "a.py", "f")
	id := f.Symbols[0]

	// Same byte range as the original parse, different text underneath it.
	source := "def f(): None\n"
	syn := &FileSyntax{Language: "python", Symbols: []SymbolDecl{
		{Kind: KindFunction, Name: "f", Span: Span{0, 13}, NameSpan: Span{4, 5}},
	}}
	require.NoError(t, s.ReplaceFile(f.ID, "h2", source, syn, RemapHints{}))

	sym, err := s.Symbol(id)
	require.NoError(t, err)
	assert.Greater(t, sym.Generation, uint64(0),
		"new content under an unchanged span still bumps the generation")
}

func TestReplaceFile_RenameHintPreservesID(t *testing.T) {
	t.Parallel()
	s := NewStore()
	f := addTestFile(t, s, "a.py", "old")
	id := f.Symbols[0]

	source := "def new(): pass\n"
	syn := &FileSyntax{Language: "python", Symbols: []SymbolDecl{
		{Kind: KindFunction, Name: "new", Span: Span{0, 15}, NameSpan: Span{4, 7}},
	}}
	hints := RemapHints{Renames: map[EntityID]string{id: "new"}}
	require.NoError(t, s.ReplaceFile(f.ID, "h2", source, syn, hints))

	sym, err := s.Symbol(id)
	require.NoError(t, err)
	assert.Equal(t, "new", sym.Name)
}

func TestReplaceFile_TombstonesVanishedSymbols(t *testing.T) {
	t.Parallel()
	s := NewStore()
	f := addTestFile(t, s, "a.py", "keep", "drop")
	dropID := f.Symbols[1]

	source := "def keep(): pass\n"
	syn := &FileSyntax{Language: "python", Symbols: []SymbolDecl{
		{Kind: KindFunction, Name: "keep", Span: Span{0, 16}, NameSpan: Span{4, 8}},
	}}
	require.NoError(t, s.ReplaceFile(f.ID, "h2", source, syn, RemapHints{}))

	_, err := s.Symbol(dropID)
	assert.ErrorIs(t, err, ErrEntityRemoved)
	assert.Len(t, f.Symbols, 1)
}

func TestReplaceFile_AdoptMigratesAcrossFiles(t *testing.T) {
	t.Parallel()
	s := NewStore()
	src := addTestFile(t, s, "a.py", "moved", "stays")
	movedID := src.Symbols[0]
	target := addTestFile(t, s, "b.py", "existing")

	source := "def existing(): pass\ndef moved(): pass\n"
	syn := &FileSyntax{Language: "python", Symbols: []SymbolDecl{
		{Kind: KindFunction, Name: "existing", Span: Span{0, 20}, NameSpan: Span{4, 12}},
		{Kind: KindFunction, Name: "moved", Span: Span{21, 38}, NameSpan: Span{25, 30}},
	}}
	hints := RemapHints{Adopt: map[string]EntityID{"moved": movedID}}
	require.NoError(t, s.ReplaceFile(target.ID, "h2", source, syn, hints))

	sym, err := s.Symbol(movedID)
	require.NoError(t, err)
	assert.Equal(t, target.ID, sym.FileID)
	assert.NotContains(t, src.Symbols, movedID, "detached from the old file")
}
