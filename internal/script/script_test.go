package script

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/graft"
)

func testCodebase(t *testing.T, files map[string]string) *graft.Codebase {
	t.Helper()
	root := t.TempDir()
	for path, src := range files {
		abs := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(src), 0o644))
	}
	cb, err := graft.Load(context.Background(), root)
	require.NoError(t, err)
	return cb
}

func TestRunSourceRenameCommitDiff(t *testing.T) {
	t.Parallel()
	cb := testCodebase(t, map[string]string{
		"a.py": "def foo():\n    return 1\n",
		"b.py": "from a import foo\n\nbar = foo()\n",
	})

	var out bytes.Buffer
	rt := New(cb, &out)
	err := rt.RunSource(context.Background(), `
rename("foo", "baz")
commit()
diff()
`)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "+def baz():")
	baz, err := cb.Symbol("baz")
	require.NoError(t, err)
	assert.Equal(t, "baz", baz.Name)
}

func TestRunSourceMoveWithOptions(t *testing.T) {
	t.Parallel()
	cb := testCodebase(t, map[string]string{
		"a.py": "def helper():\n    return 1\n",
		"b.py": "from a import helper\n\nres = helper()\n",
		"d.py": "VERSION = 1\n",
	})

	rt := New(cb, &bytes.Buffer{})
	err := rt.RunSource(context.Background(), `
move_symbol("helper", "d.py", {"strategy": "update_all_imports"})
commit()
`)
	require.NoError(t, err)

	helper, err := cb.Symbol("helper")
	require.NoError(t, err)
	f, err := cb.FileOf(helper.ID)
	require.NoError(t, err)
	assert.Equal(t, "d.py", f.Path)

	b, err := cb.GetFile("b.py")
	require.NoError(t, err)
	assert.Contains(t, b.Source, "from d import helper")
}

func TestHostFunctionErrorsPropagate(t *testing.T) {
	t.Parallel()
	cb := testCodebase(t, map[string]string{
		"a.py": "def foo():\n    return 1\n",
	})

	rt := New(cb, &bytes.Buffer{})
	err := rt.RunSource(context.Background(), `symbol("missing")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRunScriptFile(t *testing.T) {
	t.Parallel()
	cb := testCodebase(t, map[string]string{
		"a.py": "def foo():\n    return 1\n",
	})

	path := filepath.Join(t.TempDir(), "codemod.risor")
	require.NoError(t, os.WriteFile(path, []byte("rename(\"foo\", \"bar\")\ncommit()\n"), 0o644))

	rt := New(cb, &bytes.Buffer{})
	require.NoError(t, rt.RunScript(context.Background(), path))

	bar, err := cb.Symbol("bar")
	require.NoError(t, err)
	assert.Equal(t, "bar", bar.Name)

	require.Error(t, rt.RunScript(context.Background(), filepath.Join(t.TempDir(), "missing.risor")))
}
