package graft_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/graft"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for path, src := range files {
		abs := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(src), 0o644))
	}
	return root
}

func loadTree(t *testing.T, files map[string]string, opts ...graft.Option) *graft.Codebase {
	t.Helper()
	cb, err := graft.Load(context.Background(), writeTree(t, files), opts...)
	require.NoError(t, err)
	return cb
}

func source(t *testing.T, cb *graft.Codebase, path string) string {
	t.Helper()
	f, err := cb.GetFile(path)
	require.NoError(t, err)
	return f.Source
}

func TestLoadAndResolveAcrossFiles(t *testing.T) {
	t.Parallel()
	cb := loadTree(t, map[string]string{
		"a.py": "def foo():\n    return 1\n",
		"b.py": "from a import foo\n\nbar = foo()\n",
	})

	require.Len(t, cb.Files(), 2)

	foo, err := cb.Symbol("foo")
	require.NoError(t, err)
	assert.Equal(t, graft.KindFunction, foo.Kind)

	f, err := cb.FileOf(foo.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.py", f.Path)

	// The import binding in b.py and the call inside bar both land on foo.
	usages, err := cb.UsagesOf(foo.ID)
	require.NoError(t, err)
	require.Len(t, usages, 2)

	bar, err := cb.Symbol("b.py:bar")
	require.NoError(t, err)
	deps, err := cb.DependenciesOf(bar.ID)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, graft.UsageCall, deps[0].Kind)
	assert.Equal(t, foo.ID, deps[0].To)
}

func TestRoundTripIdentity(t *testing.T) {
	t.Parallel()
	cb := loadTree(t, map[string]string{
		"a.py": "def foo():\n    return 1\n",
	})

	require.NoError(t, cb.Commit(context.Background()))
	diff, err := cb.Diff()
	require.NoError(t, err)
	assert.Empty(t, diff, "a commit with no queued operations changes nothing")
	assert.False(t, cb.Dirty())
}

func TestRenameRewritesDefinitionAndUsages(t *testing.T) {
	t.Parallel()
	cb := loadTree(t, map[string]string{
		"a.py": "def foo():\n    return 1\n",
		"b.py": "from a import foo\n\nbar = foo()\n",
	})

	foo, err := cb.Symbol("foo")
	require.NoError(t, err)

	require.NoError(t, cb.Rename(foo.ID, "baz"))
	assert.True(t, cb.Dirty())
	require.NoError(t, cb.Commit(context.Background()))
	assert.False(t, cb.Dirty())

	assert.Equal(t, "def baz():\n    return 1\n", source(t, cb, "a.py"))
	assert.Equal(t, "from a import baz\n\nbar = baz()\n", source(t, cb, "b.py"))

	// The renamed symbol keeps its identity across the commit.
	baz, err := cb.Symbol("baz")
	require.NoError(t, err)
	assert.Equal(t, foo.ID, baz.ID)

	diff, err := cb.Diff()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(diff, "--- a/a.py"))
	assert.Contains(t, diff, "+def baz():")
}

func TestCommitFailureLeavesEverythingIntact(t *testing.T) {
	t.Parallel()
	cb := loadTree(t, map[string]string{
		"a.py": "x = 1\n",
	})

	x, err := cb.Symbol("x")
	require.NoError(t, err)
	require.NoError(t, cb.SetValue(x.ID, "((("))

	err = cb.Commit(context.Background())
	var cerr *graft.CommitError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "a.py", cerr.Path)

	// Nothing was applied and the queue survives for inspection.
	assert.True(t, cb.Dirty())
	require.Len(t, cb.Pending(), 1)
	assert.Equal(t, "x = 1\n", source(t, cb, "a.py"))
	diff, err := cb.Diff()
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestPendingViewsAreOptIn(t *testing.T) {
	t.Parallel()
	cb := loadTree(t, map[string]string{
		"a.py": "def foo():\n    return 1\n",
	})

	foo, err := cb.Symbol("foo")
	require.NoError(t, err)
	require.NoError(t, cb.Rename(foo.ID, "renamed"))

	// Committed queries still see the old world.
	got, err := cb.Symbol("foo")
	require.NoError(t, err)
	assert.Equal(t, "foo", got.Name)
	diff, err := cb.Diff()
	require.NoError(t, err)
	assert.Empty(t, diff, "queued operations never leak into the diff")

	pending := cb.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, graft.OpRename, pending[0].Kind)
	assert.Equal(t, foo.ID, pending[0].Target)

	name, err := cb.PendingName(foo.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", name)
}

func TestMoveSymbolUpdateAllImports(t *testing.T) {
	t.Parallel()
	cb := loadTree(t, map[string]string{
		"a.py": "def helper():\n    return 1\n",
		"b.py": "from a import helper\n\nres = helper()\n",
		"d.py": "VERSION = 1\n",
	})

	helper, err := cb.Symbol("helper")
	require.NoError(t, err)
	require.NoError(t, cb.MoveSymbol(helper.ID, "d.py", graft.MoveOptions{Strategy: graft.UpdateAllImports}))
	require.NoError(t, cb.Commit(context.Background()))

	assert.NotContains(t, source(t, cb, "a.py"), "def helper")
	assert.Contains(t, source(t, cb, "d.py"), "def helper():")
	assert.Equal(t, "from d import helper\n\nres = helper()\n", source(t, cb, "b.py"))

	moved, err := cb.Symbol("helper")
	require.NoError(t, err)
	assert.Equal(t, helper.ID, moved.ID, "a moved symbol keeps its identity")
	f, err := cb.FileOf(moved.ID)
	require.NoError(t, err)
	assert.Equal(t, "d.py", f.Path)

	usages, err := cb.UsagesOf(moved.ID)
	require.NoError(t, err)
	assert.Len(t, usages, 2)
}

func TestMoveSymbolAddBackEdge(t *testing.T) {
	t.Parallel()
	cb := loadTree(t, map[string]string{
		"a.py": "def helper():\n    return 1\n",
		"b.py": "from a import helper\n\nres = helper()\n",
		"d.py": "VERSION = 1\n",
	})

	helper, err := cb.Symbol("helper")
	require.NoError(t, err)
	require.NoError(t, cb.MoveSymbol(helper.ID, "d.py", graft.MoveOptions{}))
	require.NoError(t, cb.Commit(context.Background()))

	// The old file re-exports; importers are untouched but still resolve.
	assert.Contains(t, source(t, cb, "a.py"), "from d import helper")
	assert.Equal(t, "from a import helper\n\nres = helper()\n", source(t, cb, "b.py"))

	b, err := cb.GetFile("b.py")
	require.NoError(t, err)
	require.Len(t, b.Imports, 1)
	target, err := cb.ResolveImport(b.Imports[0])
	require.NoError(t, err)
	moved, err := cb.Symbol("d.py:helper")
	require.NoError(t, err)
	assert.Equal(t, moved.ID, target)
}

func TestMoveSymbolWithDependenciesIntoNewFile(t *testing.T) {
	t.Parallel()
	cb := loadTree(t, map[string]string{
		"a.py": "def helper():\n    return 1\n\n\ndef top():\n    return helper()\n",
	})

	top, err := cb.Symbol("top")
	require.NoError(t, err)
	require.NoError(t, cb.MoveSymbol(top.ID, "d.py", graft.MoveOptions{IncludeDependencies: true}))
	require.NoError(t, cb.Commit(context.Background()))

	d := source(t, cb, "d.py")
	assert.Contains(t, d, "def helper():")
	assert.Contains(t, d, "def top():")
	a := source(t, cb, "a.py")
	assert.NotContains(t, a, "def top")
	assert.NotContains(t, a, "def helper")
	assert.Contains(t, a, "from d import top")

	movedTop, err := cb.Symbol("top")
	require.NoError(t, err)
	assert.Equal(t, top.ID, movedTop.ID)
	f, err := cb.FileOf(movedTop.ID)
	require.NoError(t, err)
	assert.Equal(t, "d.py", f.Path)
}

func TestMoveSymbolSharedDependencyIsCopied(t *testing.T) {
	t.Parallel()
	cb := loadTree(t, map[string]string{
		"a.py": "def shared():\n    return 1\n\n\ndef top():\n    return shared()\n\n\ndef stays():\n    return shared()\n",
	})

	origShared, err := cb.Symbol("a.py:shared")
	require.NoError(t, err)
	top, err := cb.Symbol("top")
	require.NoError(t, err)
	require.NoError(t, cb.MoveSymbol(top.ID, "d.py", graft.MoveOptions{IncludeDependencies: true}))
	require.NoError(t, cb.Commit(context.Background()))

	// stays still calls shared, so the source keeps its definition.
	a := source(t, cb, "a.py")
	assert.Contains(t, a, "def shared():")
	assert.Contains(t, a, "def stays():")
	assert.NotContains(t, a, "def top")

	d := source(t, cb, "d.py")
	assert.Contains(t, d, "def shared():")
	assert.Contains(t, d, "def top():")

	kept, err := cb.Symbol("a.py:shared")
	require.NoError(t, err)
	assert.Equal(t, origShared.ID, kept.ID, "the staying definition keeps its identity")
	dup, err := cb.Symbol("d.py:shared")
	require.NoError(t, err)
	assert.NotEqual(t, origShared.ID, dup.ID, "the target gets a fresh definition, not the original entity")
}

func TestMoveIntoOwnFileIsNoOp(t *testing.T) {
	t.Parallel()
	cb := loadTree(t, map[string]string{
		"a.py": "def foo():\n    return 1\n",
	})
	foo, err := cb.Symbol("foo")
	require.NoError(t, err)
	require.NoError(t, cb.MoveSymbol(foo.ID, "a.py", graft.MoveOptions{}))
	assert.False(t, cb.Dirty())
}

func TestCreateDecorateRemove(t *testing.T) {
	t.Parallel()
	cb := loadTree(t, map[string]string{
		"a.py": "def foo():\n    return 1\n\n\ndef gone():\n    return 2\n",
	})

	foo, err := cb.Symbol("foo")
	require.NoError(t, err)
	gone, err := cb.Symbol("gone")
	require.NoError(t, err)

	require.NoError(t, cb.CreateFile("util.py", "def u():\n    return 2\n"))
	require.NoError(t, cb.AddDecorator(foo.ID, "@cached"))
	require.NoError(t, cb.Remove(gone.ID))
	require.NoError(t, cb.Commit(context.Background()))

	u, err := cb.Symbol("util.py:u")
	require.NoError(t, err)
	assert.Equal(t, graft.KindFunction, u.Kind)

	a := source(t, cb, "a.py")
	assert.Contains(t, a, "@cached\ndef foo():")
	assert.NotContains(t, a, "def gone")

	_, err = cb.SymbolByID(gone.ID)
	assert.ErrorIs(t, err, graft.ErrEntityRemoved)
	assert.ErrorIs(t, err, graft.ErrNotFound)
}

func TestMutationValidationErrors(t *testing.T) {
	t.Parallel()
	cb := loadTree(t, map[string]string{
		"a.py": "def foo():\n    return 1\n",
		"w.js": "function widget() { return 1; }\n",
	})

	foo, err := cb.Symbol("foo")
	require.NoError(t, err)
	f, err := cb.GetFile("a.py")
	require.NoError(t, err)
	widget, err := cb.Symbol("widget")
	require.NoError(t, err)

	assert.Error(t, cb.Rename(foo.ID, "not valid"))
	assert.Error(t, cb.Remove(f.ID), "files are removed through the filesystem, not the queue")
	assert.Error(t, cb.SetValue(foo.ID, "2"), "functions have no initializer")
	assert.Error(t, cb.AddDecorator(foo.ID, "cached"), "decorator text needs the @")
	assert.Error(t, cb.AddDecorator(widget.ID, "@cached"), "javascript has no decorators")
	assert.Error(t, cb.CreateFile("a.py", ""), "path already exists")
	assert.False(t, cb.Dirty())
}

func TestWriteBack(t *testing.T) {
	t.Parallel()
	root := writeTree(t, map[string]string{
		"a.py": "def foo():\n    return 1\n",
	})
	cb, err := graft.Load(context.Background(), root)
	require.NoError(t, err)

	foo, err := cb.Symbol("foo")
	require.NoError(t, err)
	require.NoError(t, cb.Rename(foo.ID, "baz"))
	require.NoError(t, cb.Commit(context.Background()))
	require.NoError(t, cb.WriteBack())

	data, err := os.ReadFile(filepath.Join(root, "a.py"))
	require.NoError(t, err)
	assert.Equal(t, "def baz():\n    return 1\n", string(data))

	diff, err := cb.Diff()
	require.NoError(t, err)
	assert.Empty(t, diff, "write back resets the diff baseline")
}

func TestLoadOptions(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"a.py":                      "def foo():\n    return 1\n",
		"w.ts":                      "export function widget(): number { return 1; }\n",
		"skipped.txt":               "not source\n",
		"node_modules/dep/index.js": "module.exports = 1;\n",
	}

	onlyPy := loadTree(t, files, graft.WithLanguages("python"), graft.WithParallel(false))
	require.Len(t, onlyPy.Files(), 1)
	assert.Equal(t, "a.py", onlyPy.Files()[0].Path)

	all := loadTree(t, files)
	require.Len(t, all.Files(), 2, "unsupported extensions and node_modules are skipped")
}

func TestLoadHonorsIgnoreFile(t *testing.T) {
	t.Parallel()
	root := writeTree(t, map[string]string{
		"a.py":       "def foo():\n    return 1\n",
		"gen/out.py": "x = 1\n",
		".gitignore": "gen/\n",
	})
	cb, err := graft.Load(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, cb.Files(), 1)
	assert.Equal(t, "a.py", cb.Files()[0].Path)
}
