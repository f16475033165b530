package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/jward/graft/internal/graph"
)

// pythonAdapter extracts Python syntax. Decorator arguments contribute
// usage edges here: they are ordinary module-scope expressions and renames
// must reach them.
type pythonAdapter struct{}

func (*pythonAdapter) Language() string          { return "python" }
func (*pythonAdapter) Grammar() *sitter.Language { return python.GetLanguage() }

var pythonEnumBases = map[string]bool{
	"Enum": true, "IntEnum": true, "StrEnum": true, "Flag": true, "IntFlag": true,
}

func (a *pythonAdapter) Extract(tree *sitter.Tree, src []byte) (*graph.FileSyntax, error) {
	syn := &graph.FileSyntax{Language: a.Language()}
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "import_statement":
			syn.Imports = append(syn.Imports, a.moduleImports(n, src)...)
		case "import_from_statement":
			syn.Imports = append(syn.Imports, a.fromImports(n, src)...)
		case "future_import_statement", "comment", "string":
			// Module docstrings and __future__ imports carry no bindings.
		case "decorated_definition", "function_definition", "class_definition":
			if decl, ok := a.definition(n, src); ok {
				syn.Symbols = append(syn.Symbols, decl)
			}
		case "expression_statement":
			if decl, ok := a.assignment(n, src); ok {
				syn.Symbols = append(syn.Symbols, decl)
			}
		case "type_alias_statement":
			syn.Symbols = append(syn.Symbols, a.typeAlias(n, src))
		default:
			syn.Symbols = append(syn.Symbols, unknownDecl(n, src))
		}
	}
	return syn, nil
}

// unknownDecl wraps an unclassifiable top-level subtree as an opaque
// entity, named after its node kind so remapping stays stable.
func unknownDecl(n *sitter.Node, src []byte) graph.SymbolDecl {
	var refs []graph.RefDecl
	collectPythonRefs(n, src, &refs)
	return graph.SymbolDecl{
		Kind:     graph.KindUnknown,
		Name:     n.Type(),
		Span:     span(n),
		NameSpan: span(n),
		Refs:     refs,
	}
}

// moduleImports yields one tuple per module in "import a.b, c as d". The
// local binding for a dotted import is the top package name.
func (a *pythonAdapter) moduleImports(n *sitter.Node, src []byte) []graph.ImportDecl {
	var out []graph.ImportDecl
	stmtSpan := span(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "dotted_name":
			source := text(c, src)
			localSpan := span(c)
			if first := c.NamedChild(0); first != nil {
				localSpan = span(first)
			}
			out = append(out, graph.ImportDecl{
				Local:        strings.SplitN(source, ".", 2)[0],
				Source:       source,
				Span:         stmtSpan,
				NameSpan:     localSpan,
				ImportedSpan: localSpan,
				SourceSpan:   span(c),
			})
		case "aliased_import":
			name := c.ChildByFieldName("name")
			alias := c.ChildByFieldName("alias")
			if name == nil || alias == nil {
				continue
			}
			out = append(out, graph.ImportDecl{
				Local:        text(alias, src),
				Source:       text(name, src),
				Span:         stmtSpan,
				NameSpan:     span(alias),
				ImportedSpan: span(alias),
				SourceSpan:   span(name),
			})
		}
	}
	return out
}

// fromImports yields tuples for "from X import a as b, c" and the wildcard
// form "from X import *".
func (a *pythonAdapter) fromImports(n *sitter.Node, src []byte) []graph.ImportDecl {
	module := n.ChildByFieldName("module_name")
	if module == nil {
		return nil
	}
	source := text(module, src)
	stmtSpan := span(n)
	srcSpan := span(module)

	var out []graph.ImportDecl
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Equal(module) {
			continue
		}
		switch c.Type() {
		case "wildcard_import":
			out = append(out, graph.ImportDecl{
				Source:       source,
				Wildcard:     true,
				Span:         stmtSpan,
				NameSpan:     span(c),
				ImportedSpan: span(c),
				SourceSpan:   srcSpan,
			})
		case "dotted_name", "identifier":
			name := text(c, src)
			out = append(out, graph.ImportDecl{
				Local:        name,
				Source:       source,
				Imported:     name,
				Span:         stmtSpan,
				NameSpan:     span(c),
				ImportedSpan: span(c),
				SourceSpan:   srcSpan,
			})
		case "aliased_import":
			nameNode := c.ChildByFieldName("name")
			aliasNode := c.ChildByFieldName("alias")
			if nameNode == nil || aliasNode == nil {
				continue
			}
			out = append(out, graph.ImportDecl{
				Local:        text(aliasNode, src),
				Source:       source,
				Imported:     text(nameNode, src),
				Span:         stmtSpan,
				NameSpan:     span(aliasNode),
				ImportedSpan: span(nameNode),
				SourceSpan:   srcSpan,
			})
		}
	}
	return out
}

// definition extracts a function or class definition, including the
// decorated_definition wrapper form.
func (a *pythonAdapter) definition(n *sitter.Node, src []byte) (graph.SymbolDecl, bool) {
	fullSpan := span(n)
	fullSpan.Start = extendOverLeadingComments(n, fullSpan.Start)
	var decorators []graph.DecoratorDecl

	def := n
	if n.Type() == "decorated_definition" {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() == "decorator" {
				decorators = append(decorators, a.decorator(c, src))
			}
		}
		def = n.ChildByFieldName("definition")
		if def == nil {
			return graph.SymbolDecl{}, false
		}
	}

	switch def.Type() {
	case "function_definition":
		decl := a.function(def, src)
		decl.Span = fullSpan
		decl.Decorators = decorators
		return decl, true
	case "class_definition":
		decl := a.class(def, src)
		decl.Span = fullSpan
		decl.Decorators = decorators
		return decl, true
	}
	return graph.SymbolDecl{}, false
}

func (a *pythonAdapter) function(n *sitter.Node, src []byte) graph.SymbolDecl {
	decl := graph.SymbolDecl{Kind: graph.KindFunction, Span: span(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		decl.Name = text(name, src)
		decl.NameSpan = span(name)
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		decl.Params = a.parameters(params, src)
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		if ref, ok := annotationRef(ret, src); ok {
			decl.Refs = append(decl.Refs, ref)
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		collectPythonRefs(body, src, &decl.Refs)
	}
	return decl
}

func (a *pythonAdapter) class(n *sitter.Node, src []byte) graph.SymbolDecl {
	decl := graph.SymbolDecl{Kind: graph.KindClass, Span: span(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		decl.Name = text(name, src)
		decl.NameSpan = span(name)
	}
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			c := supers.NamedChild(i)
			if parts, spans, ok := pythonChain(c, src); ok {
				decl.Bases = append(decl.Bases, graph.RefDecl{
					Kind:      graph.UsageInheritance,
					Parts:     parts,
					Span:      span(c),
					PartSpans: spans,
				})
				if pythonEnumBases[parts[len(parts)-1]] {
					decl.Kind = graph.KindEnum
				}
			}
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			c := body.NamedChild(i)
			switch c.Type() {
			case "function_definition", "decorated_definition":
				if m, ok := a.definition(c, src); ok {
					decl.Members = append(decl.Members, m)
				}
			case "expression_statement":
				if m, ok := a.assignment(c, src); ok {
					if decl.Kind == graph.KindEnum {
						m.Kind = graph.KindVariable
					}
					decl.Members = append(decl.Members, m)
				}
			}
		}
	}
	return decl
}

// assignment turns a top-level "name = value" statement into a Variable
// declaration, or a TypeAlias when annotated as one. Unpacking targets and
// attribute assignments are not bindings the engine tracks.
func (a *pythonAdapter) assignment(stmt *sitter.Node, src []byte) (graph.SymbolDecl, bool) {
	assign := stmt.NamedChild(0)
	if assign == nil || assign.Type() != "assignment" {
		return graph.SymbolDecl{}, false
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return graph.SymbolDecl{}, false
	}
	decl := graph.SymbolDecl{
		Kind:     graph.KindVariable,
		Name:     text(left, src),
		Span:     span(stmt),
		NameSpan: span(left),
	}
	decl.Span.Start = extendOverLeadingComments(stmt, decl.Span.Start)
	if typ := assign.ChildByFieldName("type"); typ != nil {
		if strings.Contains(text(typ, src), "TypeAlias") {
			decl.Kind = graph.KindTypeAlias
		} else if ref, ok := annotationRef(typ, src); ok {
			decl.Refs = append(decl.Refs, ref)
		}
	}
	if right := assign.ChildByFieldName("right"); right != nil {
		decl.ValueSpan = span(right)
		collectPythonRefs(right, src, &decl.Refs)
	}
	return decl, true
}

// typeAlias handles the 3.12 "type X = ..." statement form.
func (a *pythonAdapter) typeAlias(n *sitter.Node, src []byte) graph.SymbolDecl {
	decl := graph.SymbolDecl{Kind: graph.KindTypeAlias, Span: span(n), NameSpan: span(n)}
	if left := n.ChildByFieldName("left"); left != nil {
		decl.Name = text(left, src)
		decl.NameSpan = span(left)
	} else if first := n.NamedChild(0); first != nil {
		decl.Name = text(first, src)
		decl.NameSpan = span(first)
	}
	if right := n.ChildByFieldName("right"); right != nil {
		decl.ValueSpan = span(right)
		collectPythonRefs(right, src, &decl.Refs)
	}
	return decl
}

// decorator extracts "@name", "@mod.attr", or the call form
// "@app.route('/x', methods=...)"; the call form exposes the call target
// plus the resolvable references among its arguments.
func (a *pythonAdapter) decorator(n *sitter.Node, src []byte) graph.DecoratorDecl {
	dec := graph.DecoratorDecl{Span: span(n)}
	expr := n.NamedChild(0)
	if expr == nil {
		return dec
	}
	if expr.Type() == "call" {
		if fn := expr.ChildByFieldName("function"); fn != nil {
			if parts, spans, ok := pythonChain(fn, src); ok {
				dec.Ref = graph.RefDecl{Kind: graph.UsageDecorator, Parts: parts, Span: span(fn), PartSpans: spans}
			}
		}
		if args := expr.ChildByFieldName("arguments"); args != nil {
			for i := 0; i < int(args.NamedChildCount()); i++ {
				arg := args.NamedChild(i)
				if arg.Type() == "keyword_argument" {
					arg = arg.ChildByFieldName("value")
					if arg == nil {
						continue
					}
				}
				if parts, spans, ok := pythonChain(arg, src); ok {
					kind := graph.UsageIdentifier
					if len(parts) > 1 {
						kind = graph.UsageAttributeAccess
					}
					dec.Args = append(dec.Args, graph.RefDecl{Kind: kind, Parts: parts, Span: span(arg), PartSpans: spans})
				}
			}
		}
		return dec
	}
	if parts, spans, ok := pythonChain(expr, src); ok {
		dec.Ref = graph.RefDecl{Kind: graph.UsageDecorator, Parts: parts, Span: span(expr), PartSpans: spans}
	}
	return dec
}

func (a *pythonAdapter) parameters(params *sitter.Node, src []byte) []graph.ParamDecl {
	var out []graph.ParamDecl
	for i := 0; i < int(params.NamedChildCount()); i++ {
		c := params.NamedChild(i)
		switch c.Type() {
		case "identifier":
			out = append(out, graph.ParamDecl{Name: text(c, src)})
		case "typed_parameter":
			p := graph.ParamDecl{}
			if inner := c.NamedChild(0); inner != nil && inner.Type() == "identifier" {
				p.Name = text(inner, src)
			}
			if typ := c.ChildByFieldName("type"); typ != nil {
				p.TypeExpr = text(typ, src)
				if ref, ok := annotationRef(typ, src); ok {
					p.Annotation = &ref
				}
			}
			out = append(out, p)
		case "default_parameter", "typed_default_parameter":
			p := graph.ParamDecl{Optional: true}
			if name := c.ChildByFieldName("name"); name != nil {
				p.Name = text(name, src)
			}
			if typ := c.ChildByFieldName("type"); typ != nil {
				p.TypeExpr = text(typ, src)
				if ref, ok := annotationRef(typ, src); ok {
					p.Annotation = &ref
				}
			}
			if val := c.ChildByFieldName("value"); val != nil {
				p.Default = text(val, src)
			}
			out = append(out, p)
		case "list_splat_pattern", "dictionary_splat_pattern":
			p := graph.ParamDecl{Variadic: true}
			if inner := c.NamedChild(0); inner != nil {
				p.Name = text(inner, src)
			}
			out = append(out, p)
		}
	}
	return out
}

// annotationRef builds a TYPE_ANNOTATION reference from a type node when
// its expression is a resolvable name or attribute chain.
func annotationRef(typ *sitter.Node, src []byte) (graph.RefDecl, bool) {
	expr := typ
	if typ.Type() == "type" {
		if inner := typ.NamedChild(0); inner != nil {
			expr = inner
		}
	}
	// Subscripted generics like List[Foo] resolve their base.
	if expr.Type() == "subscript" {
		if v := expr.ChildByFieldName("value"); v != nil {
			expr = v
		}
	}
	parts, spans, ok := pythonChain(expr, src)
	if !ok {
		return graph.RefDecl{}, false
	}
	return graph.RefDecl{Kind: graph.UsageTypeAnnotation, Parts: parts, Span: span(expr), PartSpans: spans}, true
}

// pythonChain flattens an identifier or attribute expression a.b.c into
// its components. Returns ok=false for anything more exotic.
func pythonChain(n *sitter.Node, src []byte) ([]string, []graph.Span, bool) {
	switch n.Type() {
	case "identifier":
		return []string{text(n, src)}, []graph.Span{span(n)}, true
	case "attribute":
		obj := n.ChildByFieldName("object")
		attr := n.ChildByFieldName("attribute")
		if obj == nil || attr == nil {
			return nil, nil, false
		}
		parts, spans, ok := pythonChain(obj, src)
		if !ok {
			return nil, nil, false
		}
		return append(parts, text(attr, src)), append(spans, span(attr)), true
	}
	return nil, nil, false
}

// collectPythonRefs walks an expression or statement subtree gathering the
// references the resolver cares about: calls, attribute chains, and bare
// identifiers in value position. Assignment targets and keyword-argument
// names are defining or labeling occurrences, not references.
func collectPythonRefs(n *sitter.Node, src []byte, out *[]graph.RefDecl) {
	switch n.Type() {
	case "call":
		if fn := n.ChildByFieldName("function"); fn != nil {
			if parts, spans, ok := pythonChain(fn, src); ok {
				*out = append(*out, graph.RefDecl{Kind: graph.UsageCall, Parts: parts, Span: span(fn), PartSpans: spans})
			} else {
				collectPythonRefs(fn, src, out)
			}
		}
		if args := n.ChildByFieldName("arguments"); args != nil {
			collectPythonRefs(args, src, out)
		}
		return
	case "attribute":
		if parts, spans, ok := pythonChain(n, src); ok {
			*out = append(*out, graph.RefDecl{Kind: graph.UsageAttributeAccess, Parts: parts, Span: span(n), PartSpans: spans})
			return
		}
	case "identifier":
		*out = append(*out, graph.RefDecl{
			Kind:      graph.UsageIdentifier,
			Parts:     []string{text(n, src)},
			Span:      span(n),
			PartSpans: []graph.Span{span(n)},
		})
		return
	case "keyword_argument":
		if val := n.ChildByFieldName("value"); val != nil {
			collectPythonRefs(val, src, out)
		}
		return
	case "assignment", "augmented_assignment":
		if typ := n.ChildByFieldName("type"); typ != nil {
			if ref, ok := annotationRef(typ, src); ok {
				*out = append(*out, ref)
			}
		}
		if right := n.ChildByFieldName("right"); right != nil {
			collectPythonRefs(right, src, out)
		}
		return
	case "function_definition", "lambda":
		// Nested callables contribute their body references to the
		// enclosing symbol; their parameter names are bindings, not uses.
		if body := n.ChildByFieldName("body"); body != nil {
			collectPythonRefs(body, src, out)
		}
		return
	case "for_statement":
		if right := n.ChildByFieldName("right"); right != nil {
			collectPythonRefs(right, src, out)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			collectPythonRefs(body, src, out)
		}
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		collectPythonRefs(n.NamedChild(i), src, out)
	}
}
