package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/graft/internal/graph"
)

func extractPython(t *testing.T, src string) *graph.FileSyntax {
	t.Helper()
	a, ok := ForLanguage("python")
	require.True(t, ok)
	syn, err := ParseAndExtract(context.Background(), a, []byte(src))
	require.NoError(t, err)
	return syn
}

func TestPython_ModuleImports(t *testing.T) {
	t.Parallel()
	syn := extractPython(t, "import os.path\nimport numpy as np\n")

	require.Len(t, syn.Imports, 2)
	assert.Equal(t, "os", syn.Imports[0].Local)
	assert.Equal(t, "os.path", syn.Imports[0].Source)
	assert.Empty(t, syn.Imports[0].Imported)

	assert.Equal(t, "np", syn.Imports[1].Local)
	assert.Equal(t, "numpy", syn.Imports[1].Source)
}

func TestPython_FromImports(t *testing.T) {
	t.Parallel()
	syn := extractPython(t, "from a import foo, bar as b\nfrom c import *\n")

	require.Len(t, syn.Imports, 3)
	assert.Equal(t, graph.ImportDecl{
		Local: "foo", Source: "a", Imported: "foo",
		Span:         graph.Span{Start: 0, End: 27},
		NameSpan:     graph.Span{Start: 14, End: 17},
		ImportedSpan: graph.Span{Start: 14, End: 17},
		SourceSpan:   graph.Span{Start: 5, End: 6},
	}, syn.Imports[0])

	aliased := syn.Imports[1]
	assert.Equal(t, "b", aliased.Local)
	assert.Equal(t, "bar", aliased.Imported)
	assert.NotEqual(t, aliased.NameSpan, aliased.ImportedSpan)

	wild := syn.Imports[2]
	assert.True(t, wild.Wildcard)
	assert.Equal(t, "c", wild.Source)
}

func TestPython_FunctionExtraction(t *testing.T) {
	t.Parallel()
	src := "def greet(name: str, times=2, *rest):\n    return name\n"
	syn := extractPython(t, src)

	require.Len(t, syn.Symbols, 1)
	fn := syn.Symbols[0]
	assert.Equal(t, graph.KindFunction, fn.Kind)
	assert.Equal(t, "greet", fn.Name)
	assert.Equal(t, "greet", src[fn.NameSpan.Start:fn.NameSpan.End])

	require.Len(t, fn.Params, 3)
	assert.Equal(t, "name", fn.Params[0].Name)
	assert.Equal(t, "str", fn.Params[0].TypeExpr)
	assert.True(t, fn.Params[1].Optional)
	assert.Equal(t, "2", fn.Params[1].Default)
	assert.True(t, fn.Params[2].Variadic)
}

func TestPython_DecoratorCallExposesTargetAndArgs(t *testing.T) {
	t.Parallel()
	src := "@app.route(PREFIX, methods=METHODS)\ndef handler():\n    pass\n"
	syn := extractPython(t, src)

	require.Len(t, syn.Symbols, 1)
	fn := syn.Symbols[0]
	require.Len(t, fn.Decorators, 1)

	dec := fn.Decorators[0]
	assert.Equal(t, []string{"app", "route"}, dec.Ref.Parts)
	require.Len(t, dec.Args, 2, "positional and keyword argument references both count")
	assert.Equal(t, []string{"PREFIX"}, dec.Args[0].Parts)
	assert.Equal(t, []string{"METHODS"}, dec.Args[1].Parts)

	// The decorator is part of the definition's span: excising the symbol
	// takes its decorators along.
	assert.Equal(t, 0, fn.Span.Start)
}

func TestPython_ClassWithBasesAndMembers(t *testing.T) {
	t.Parallel()
	src := "class Child(base.Parent):\n    x = 1\n    def method(self):\n        pass\n"
	syn := extractPython(t, src)

	require.Len(t, syn.Symbols, 1)
	cls := syn.Symbols[0]
	assert.Equal(t, graph.KindClass, cls.Kind)
	require.Len(t, cls.Bases, 1)
	assert.Equal(t, []string{"base", "Parent"}, cls.Bases[0].Parts)

	require.Len(t, cls.Members, 2)
	assert.Equal(t, graph.KindVariable, cls.Members[0].Kind)
	assert.Equal(t, "x", cls.Members[0].Name)
	assert.Equal(t, graph.KindFunction, cls.Members[1].Kind)
	assert.Equal(t, "method", cls.Members[1].Name)
}

func TestPython_EnumDetection(t *testing.T) {
	t.Parallel()
	src := "class Color(Enum):\n    RED = 1\n    BLUE = 2\n"
	syn := extractPython(t, src)

	require.Len(t, syn.Symbols, 1)
	assert.Equal(t, graph.KindEnum, syn.Symbols[0].Kind)
	assert.Len(t, syn.Symbols[0].Members, 2)
}

func TestPython_VariableAndTypeAlias(t *testing.T) {
	t.Parallel()
	src := "MAX = compute(limit)\nAlias: TypeAlias = dict\n"
	syn := extractPython(t, src)

	require.Len(t, syn.Symbols, 2)
	v := syn.Symbols[0]
	assert.Equal(t, graph.KindVariable, v.Kind)
	assert.Equal(t, "MAX", v.Name)
	assert.Equal(t, "compute(limit)", src[v.ValueSpan.Start:v.ValueSpan.End])
	require.Len(t, v.Refs, 2)
	assert.Equal(t, graph.UsageCall, v.Refs[0].Kind)
	assert.Equal(t, []string{"compute"}, v.Refs[0].Parts)

	assert.Equal(t, graph.KindTypeAlias, syn.Symbols[1].Kind)
}

func TestPython_BodyReferences(t *testing.T) {
	t.Parallel()
	src := "def main():\n    value = helper(cfg.path)\n    return value.strip\n"
	syn := extractPython(t, src)

	fn := syn.Symbols[0]
	parts := make([][]string, 0, len(fn.Refs))
	for _, r := range fn.Refs {
		parts = append(parts, r.Parts)
	}
	assert.Contains(t, parts, []string{"helper"})
	assert.Contains(t, parts, []string{"cfg", "path"})
	assert.Contains(t, parts, []string{"value", "strip"})
}

func TestPython_UnknownConstructDegradesNotFails(t *testing.T) {
	t.Parallel()
	src := "if CONDITION:\n    x = 1\n\ndef after():\n    pass\n"
	syn := extractPython(t, src)

	require.Len(t, syn.Symbols, 2)
	assert.Equal(t, graph.KindUnknown, syn.Symbols[0].Kind)
	assert.Equal(t, "after", syn.Symbols[1].Name)
}

func TestPython_LeadingCommentIncludedInSpan(t *testing.T) {
	t.Parallel()
	src := "x = 1\n# explains the function\ndef doc():\n    pass\n"
	syn := extractPython(t, src)

	require.Len(t, syn.Symbols, 2)
	doc := syn.Symbols[1]
	assert.Equal(t, "# explains the function", src[doc.Span.Start:doc.Span.Start+23])
}

func TestValid_ReportsSyntaxErrors(t *testing.T) {
	t.Parallel()
	a, _ := ForLanguage("python")

	ok, err := Valid(context.Background(), a, []byte("def f():\n    return 1\n"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Valid(context.Background(), a, []byte("def f(:\n"))
	require.NoError(t, err)
	assert.False(t, ok)
}
