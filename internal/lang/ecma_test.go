package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/graft/internal/graph"
)

func extractECMA(t *testing.T, language, src string) *graph.FileSyntax {
	t.Helper()
	a, ok := ForLanguage(language)
	require.True(t, ok)
	syn, err := ParseAndExtract(context.Background(), a, []byte(src))
	require.NoError(t, err)
	return syn
}

func TestECMA_ImportForms(t *testing.T) {
	t.Parallel()
	src := "import cfg from './a';\n" +
		"import * as ns from './b';\n" +
		"import { x, y as z } from './c';\n" +
		"import './side';\n"
	syn := extractECMA(t, "typescript", src)

	require.Len(t, syn.Imports, 5)

	def := syn.Imports[0]
	assert.Equal(t, "cfg", def.Local)
	assert.Equal(t, "default", def.Imported)
	assert.Equal(t, "./a", def.Source)
	assert.Equal(t, "'./a'", src[def.SourceSpan.Start:def.SourceSpan.End],
		"source span keeps the quotes so rewrites can preserve them")

	ns := syn.Imports[1]
	assert.Equal(t, "ns", ns.Local)
	assert.True(t, ns.Wildcard)
	assert.Equal(t, "./b", ns.Source)

	plain := syn.Imports[2]
	assert.Equal(t, "x", plain.Local)
	assert.Equal(t, "x", plain.Imported)
	assert.Equal(t, plain.NameSpan, plain.ImportedSpan)

	aliased := syn.Imports[3]
	assert.Equal(t, "z", aliased.Local)
	assert.Equal(t, "y", aliased.Imported)
	assert.NotEqual(t, aliased.NameSpan, aliased.ImportedSpan)

	side := syn.Imports[4]
	assert.Empty(t, side.Local)
	assert.Equal(t, "./side", side.Source)
}

func TestECMA_ReExport(t *testing.T) {
	t.Parallel()
	src := "export { a, b as c } from './m';\nexport { local };\n"
	syn := extractECMA(t, "typescript", src)

	// A plain "export { local }" binds nothing new.
	require.Len(t, syn.Imports, 2)
	assert.Equal(t, "a", syn.Imports[0].Local)
	assert.Equal(t, "a", syn.Imports[0].Imported)
	assert.Equal(t, "./m", syn.Imports[0].Source)
	assert.Equal(t, "c", syn.Imports[1].Local)
	assert.Equal(t, "b", syn.Imports[1].Imported)
}

func TestECMA_ExportedDeclarationKeepsKeywordInSpan(t *testing.T) {
	t.Parallel()
	src := "// stable entry point\nexport function go(): void {}\n"
	syn := extractECMA(t, "typescript", src)

	require.Len(t, syn.Symbols, 1)
	fn := syn.Symbols[0]
	assert.Equal(t, graph.KindFunction, fn.Kind)
	assert.Equal(t, "go", fn.Name)
	assert.Equal(t, 0, fn.Span.Start, "export keyword and leading comment travel with the symbol")
}

func TestECMA_ClassHeritageAndMembers(t *testing.T) {
	t.Parallel()
	src := "class Service extends Base implements Api {\n" +
		"  count: number = 0;\n" +
		"  run() { return helper(); }\n" +
		"}\n"
	syn := extractECMA(t, "typescript", src)

	require.Len(t, syn.Symbols, 1)
	cls := syn.Symbols[0]
	assert.Equal(t, graph.KindClass, cls.Kind)
	assert.Equal(t, "Service", cls.Name)

	require.Len(t, cls.Bases, 2)
	assert.Equal(t, []string{"Base"}, cls.Bases[0].Parts)
	assert.Equal(t, graph.UsageInheritance, cls.Bases[0].Kind)
	assert.Equal(t, []string{"Api"}, cls.Bases[1].Parts)

	require.Len(t, cls.Members, 2)
	field := cls.Members[0]
	assert.Equal(t, graph.KindVariable, field.Kind)
	assert.Equal(t, "count", field.Name)
	assert.Equal(t, "0", src[field.ValueSpan.Start:field.ValueSpan.End])

	method := cls.Members[1]
	assert.Equal(t, graph.KindFunction, method.Kind)
	assert.Equal(t, "run", method.Name)
	require.Len(t, method.Refs, 1)
	assert.Equal(t, graph.UsageCall, method.Refs[0].Kind)
	assert.Equal(t, []string{"helper"}, method.Refs[0].Parts)
}

func TestECMA_InterfaceIsAClass(t *testing.T) {
	t.Parallel()
	src := "interface Shape extends Printable {\n  area: number;\n  describe(): string;\n}\n"
	syn := extractECMA(t, "typescript", src)

	require.Len(t, syn.Symbols, 1)
	iface := syn.Symbols[0]
	assert.Equal(t, graph.KindClass, iface.Kind)
	assert.Equal(t, "Shape", iface.Name)
	require.Len(t, iface.Bases, 1)
	assert.Equal(t, []string{"Printable"}, iface.Bases[0].Parts)

	require.Len(t, iface.Members, 2)
	assert.Equal(t, graph.KindVariable, iface.Members[0].Kind)
	assert.Equal(t, "area", iface.Members[0].Name)
	assert.Equal(t, graph.KindFunction, iface.Members[1].Kind)
	assert.Equal(t, "describe", iface.Members[1].Name)
}

func TestECMA_VariableDeclarators(t *testing.T) {
	t.Parallel()
	src := "const url = makeUrl(BASE);\nlet a = 1, b = 2;\n"
	syn := extractECMA(t, "typescript", src)

	require.Len(t, syn.Symbols, 3)

	u := syn.Symbols[0]
	assert.Equal(t, graph.KindVariable, u.Kind)
	assert.Equal(t, "url", u.Name)
	assert.Equal(t, "const url = makeUrl(BASE);", src[u.Span.Start:u.Span.End],
		"a lone declarator keeps the whole statement so relocation carries const/let")
	assert.Equal(t, "makeUrl(BASE)", src[u.ValueSpan.Start:u.ValueSpan.End])
	require.Len(t, u.Refs, 2)
	assert.Equal(t, graph.UsageCall, u.Refs[0].Kind)
	assert.Equal(t, []string{"makeUrl"}, u.Refs[0].Parts)
	assert.Equal(t, []string{"BASE"}, u.Refs[1].Parts)

	assert.Equal(t, "a", syn.Symbols[1].Name)
	assert.Equal(t, "a = 1", src[syn.Symbols[1].Span.Start:syn.Symbols[1].Span.End])
	assert.Equal(t, "b", syn.Symbols[2].Name)
}

func TestECMA_ArrowFunctionValueRefs(t *testing.T) {
	t.Parallel()
	src := "const h = () => compute();\n"
	syn := extractECMA(t, "typescript", src)

	require.Len(t, syn.Symbols, 1)
	h := syn.Symbols[0]
	require.Len(t, h.Refs, 1)
	assert.Equal(t, []string{"compute"}, h.Refs[0].Parts)
	assert.Equal(t, "() => compute()", src[h.ValueSpan.Start:h.ValueSpan.End])
}

func TestECMA_TypeAlias(t *testing.T) {
	t.Parallel()
	src := "type ID = string | UserID;\n"
	syn := extractECMA(t, "typescript", src)

	require.Len(t, syn.Symbols, 1)
	alias := syn.Symbols[0]
	assert.Equal(t, graph.KindTypeAlias, alias.Kind)
	assert.Equal(t, "ID", alias.Name)
	assert.Equal(t, "string | UserID", src[alias.ValueSpan.Start:alias.ValueSpan.End])
	require.Len(t, alias.Refs, 1)
	assert.Equal(t, graph.UsageTypeAnnotation, alias.Refs[0].Kind)
	assert.Equal(t, []string{"UserID"}, alias.Refs[0].Parts)
}

func TestECMA_Enum(t *testing.T) {
	t.Parallel()
	src := "enum Color { Red, Green = 2 }\n"
	syn := extractECMA(t, "typescript", src)

	require.Len(t, syn.Symbols, 1)
	e := syn.Symbols[0]
	assert.Equal(t, graph.KindEnum, e.Kind)
	assert.Equal(t, "Color", e.Name)
	require.Len(t, e.Members, 2)
	assert.Equal(t, "Red", e.Members[0].Name)
	assert.Equal(t, "Green", e.Members[1].Name)
}

func TestECMA_Parameters(t *testing.T) {
	t.Parallel()
	src := "function f(s: Service, b?: string, c = 3, ...rest: string[]) {}\n"
	syn := extractECMA(t, "typescript", src)

	require.Len(t, syn.Symbols, 1)
	fn := syn.Symbols[0]
	require.Len(t, fn.Params, 4)

	s := fn.Params[0]
	assert.Equal(t, "s", s.Name)
	assert.Equal(t, "Service", s.TypeExpr)
	require.NotNil(t, s.Annotation)
	assert.Equal(t, []string{"Service"}, s.Annotation.Parts)

	assert.True(t, fn.Params[1].Optional)
	assert.Equal(t, "c", fn.Params[2].Name)
	assert.Equal(t, "3", fn.Params[2].Default)
	assert.True(t, fn.Params[2].Optional)
	assert.Equal(t, "rest", fn.Params[3].Name)
	assert.True(t, fn.Params[3].Variadic)
}

func TestECMA_DecoratorCalleeOnly(t *testing.T) {
	t.Parallel()
	src := "@log(LEVEL)\nclass C {}\n"
	syn := extractECMA(t, "typescript", src)

	require.Len(t, syn.Symbols, 1)
	cls := syn.Symbols[0]
	require.Len(t, cls.Decorators, 1)
	dec := cls.Decorators[0]
	assert.Equal(t, graph.UsageDecorator, dec.Ref.Kind)
	assert.Equal(t, []string{"log"}, dec.Ref.Parts)
	assert.Empty(t, dec.Args, "decorator arguments do not become references here")
}

func TestECMA_UnknownConstructDegrades(t *testing.T) {
	t.Parallel()
	src := "if (flag) {\n  doThing();\n}\n"
	syn := extractECMA(t, "typescript", src)

	require.Len(t, syn.Symbols, 1)
	u := syn.Symbols[0]
	assert.Equal(t, graph.KindUnknown, u.Kind)
	assert.Equal(t, "if_statement", u.Name)

	var parts [][]string
	for _, r := range u.Refs {
		parts = append(parts, r.Parts)
	}
	assert.Contains(t, parts, []string{"doThing"})
}

func TestECMA_JavaScript(t *testing.T) {
	t.Parallel()
	src := "import React from 'react';\n" +
		"class Widget extends Component {\n  render() { return build(); }\n}\n" +
		"function build() { return null; }\n"
	syn := extractECMA(t, "javascript", src)

	require.Len(t, syn.Imports, 1)
	assert.Equal(t, "React", syn.Imports[0].Local)
	assert.Equal(t, "default", syn.Imports[0].Imported)
	assert.Equal(t, "react", syn.Imports[0].Source)

	require.Len(t, syn.Symbols, 2)
	cls := syn.Symbols[0]
	assert.Equal(t, graph.KindClass, cls.Kind)
	require.Len(t, cls.Bases, 1)
	assert.Equal(t, []string{"Component"}, cls.Bases[0].Parts)
	require.Len(t, cls.Members, 1)
	assert.Equal(t, "render", cls.Members[0].Name)

	assert.Equal(t, graph.KindFunction, syn.Symbols[1].Kind)
	assert.Equal(t, "build", syn.Symbols[1].Name)
}

func TestECMA_Valid(t *testing.T) {
	t.Parallel()
	a, ok := ForLanguage("typescript")
	require.True(t, ok)

	good, err := Valid(context.Background(), a, []byte("const x = 1;\n"))
	require.NoError(t, err)
	assert.True(t, good)

	bad, err := Valid(context.Background(), a, []byte("function (((\n"))
	require.NoError(t, err)
	assert.False(t, bad)
}
