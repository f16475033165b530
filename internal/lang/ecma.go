package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/jward/graft/internal/graph"
)

// ecmaAdapter extracts TypeScript and JavaScript with one walker; the two
// grammars share statement and expression kinds, TypeScript adding type
// nodes on top. Decorator arguments do not contribute usage edges here --
// only the decorator callee does.
type ecmaAdapter struct {
	language string
	grammar  *sitter.Language
}

func newECMAAdapter(language string) *ecmaAdapter {
	a := &ecmaAdapter{language: language}
	if language == "typescript" {
		a.grammar = ts.GetLanguage()
	} else {
		a.grammar = javascript.GetLanguage()
	}
	return a
}

func (a *ecmaAdapter) Language() string          { return a.language }
func (a *ecmaAdapter) Grammar() *sitter.Language { return a.grammar }

func (a *ecmaAdapter) Extract(tree *sitter.Tree, src []byte) (*graph.FileSyntax, error) {
	syn := &graph.FileSyntax{Language: a.language}
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		a.topLevel(root.NamedChild(i), src, syn)
	}
	return syn, nil
}

func (a *ecmaAdapter) topLevel(n *sitter.Node, src []byte, syn *graph.FileSyntax) {
	switch n.Type() {
	case "import_statement":
		syn.Imports = append(syn.Imports, a.importTuples(n, src)...)
	case "export_statement":
		a.exportStatement(n, src, syn)
	case "comment", "hash_bang_line":
	case "function_declaration", "generator_function_declaration":
		syn.Symbols = append(syn.Symbols, a.function(n, src, span(n)))
	case "class_declaration", "abstract_class_declaration":
		syn.Symbols = append(syn.Symbols, a.class(n, src, span(n)))
	case "interface_declaration":
		syn.Symbols = append(syn.Symbols, a.interfaceDecl(n, src, span(n)))
	case "lexical_declaration", "variable_declaration":
		syn.Symbols = append(syn.Symbols, a.variables(n, src, span(n))...)
	case "type_alias_declaration":
		syn.Symbols = append(syn.Symbols, a.typeAlias(n, src, span(n)))
	case "enum_declaration":
		syn.Symbols = append(syn.Symbols, a.enum(n, src, span(n)))
	default:
		syn.Symbols = append(syn.Symbols, a.unknown(n, src))
	}
}

func (a *ecmaAdapter) unknown(n *sitter.Node, src []byte) graph.SymbolDecl {
	var refs []graph.RefDecl
	a.collectRefs(n, src, &refs)
	return graph.SymbolDecl{
		Kind:     graph.KindUnknown,
		Name:     n.Type(),
		Span:     span(n),
		NameSpan: span(n),
		Refs:     refs,
	}
}

// importTuples yields tuples for default, namespace, and named import
// clauses. A bare side-effect import ("import './x'") binds nothing and
// yields a single unnamed tuple.
func (a *ecmaAdapter) importTuples(n *sitter.Node, src []byte) []graph.ImportDecl {
	srcNode := n.ChildByFieldName("source")
	if srcNode == nil {
		return nil
	}
	source := stripQuotes(text(srcNode, src))
	stmtSpan := span(n)
	srcSpan := span(srcNode)

	var out []graph.ImportDecl
	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		if clause.Type() != "import_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			c := clause.NamedChild(j)
			switch c.Type() {
			case "identifier": // default import
				out = append(out, graph.ImportDecl{
					Local:        text(c, src),
					Source:       source,
					Imported:     "default",
					Span:         stmtSpan,
					NameSpan:     span(c),
					ImportedSpan: span(c),
					SourceSpan:   srcSpan,
				})
			case "namespace_import": // import * as ns
				if id := lastNamedChild(c); id != nil {
					out = append(out, graph.ImportDecl{
						Local:        text(id, src),
						Source:       source,
						Wildcard:     true,
						Span:         stmtSpan,
						NameSpan:     span(id),
						ImportedSpan: span(id),
						SourceSpan:   srcSpan,
					})
				}
			case "named_imports":
				for k := 0; k < int(c.NamedChildCount()); k++ {
					spec := c.NamedChild(k)
					if spec.Type() != "import_specifier" {
						continue
					}
					name := spec.ChildByFieldName("name")
					if name == nil {
						continue
					}
					decl := graph.ImportDecl{
						Local:        text(name, src),
						Source:       source,
						Imported:     text(name, src),
						Span:         stmtSpan,
						NameSpan:     span(name),
						ImportedSpan: span(name),
						SourceSpan:   srcSpan,
					}
					if alias := spec.ChildByFieldName("alias"); alias != nil {
						decl.Local = text(alias, src)
						decl.NameSpan = span(alias)
					}
					out = append(out, decl)
				}
			}
		}
	}
	if len(out) == 0 {
		out = append(out, graph.ImportDecl{
			Source:     source,
			Span:       stmtSpan,
			NameSpan:   srcSpan,
			SourceSpan: srcSpan,
		})
	}
	return out
}

// exportStatement handles "export <declaration>" by extracting the wrapped
// declaration with the export keyword inside its span, and
// "export { a } from './x'" as a re-exporting import tuple.
func (a *ecmaAdapter) exportStatement(n *sitter.Node, src []byte, syn *graph.FileSyntax) {
	full := span(n)
	full.Start = extendOverLeadingComments(n, full.Start)
	if decl := n.ChildByFieldName("declaration"); decl != nil {
		switch decl.Type() {
		case "function_declaration", "generator_function_declaration":
			syn.Symbols = append(syn.Symbols, a.function(decl, src, full))
		case "class_declaration", "abstract_class_declaration":
			syn.Symbols = append(syn.Symbols, a.class(decl, src, full))
		case "interface_declaration":
			syn.Symbols = append(syn.Symbols, a.interfaceDecl(decl, src, full))
		case "lexical_declaration", "variable_declaration":
			syn.Symbols = append(syn.Symbols, a.variables(decl, src, full)...)
		case "type_alias_declaration":
			syn.Symbols = append(syn.Symbols, a.typeAlias(decl, src, full))
		case "enum_declaration":
			syn.Symbols = append(syn.Symbols, a.enum(decl, src, full))
		default:
			syn.Symbols = append(syn.Symbols, a.unknown(n, src))
		}
		return
	}

	// export { a, b } [from './x']
	srcNode := n.ChildByFieldName("source")
	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		if clause.Type() != "export_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			spec := clause.NamedChild(j)
			if spec.Type() != "export_specifier" {
				continue
			}
			name := spec.ChildByFieldName("name")
			if name == nil {
				continue
			}
			if srcNode == nil {
				// Plain "export { a }": the binding already exists; there
				// is nothing new to register.
				continue
			}
			decl := graph.ImportDecl{
				Local:        text(name, src),
				Source:       stripQuotes(text(srcNode, src)),
				Imported:     text(name, src),
				Span:         span(n),
				NameSpan:     span(name),
				ImportedSpan: span(name),
				SourceSpan:   span(srcNode),
			}
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				decl.Local = text(alias, src)
				decl.NameSpan = span(alias)
			}
			syn.Imports = append(syn.Imports, decl)
		}
	}
}

func (a *ecmaAdapter) function(n *sitter.Node, src []byte, full graph.Span) graph.SymbolDecl {
	decl := graph.SymbolDecl{Kind: graph.KindFunction, Span: full}
	if name := n.ChildByFieldName("name"); name != nil {
		decl.Name = text(name, src)
		decl.NameSpan = span(name)
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		decl.Params = a.parameters(params, src)
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		a.collectTypeRefs(ret, src, &decl.Refs)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		a.collectRefs(body, src, &decl.Refs)
	}
	return decl
}

func (a *ecmaAdapter) class(n *sitter.Node, src []byte, full graph.Span) graph.SymbolDecl {
	decl := graph.SymbolDecl{Kind: graph.KindClass, Span: full}
	if name := n.ChildByFieldName("name"); name != nil {
		decl.Name = text(name, src)
		decl.NameSpan = span(name)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "decorator":
			decl.Decorators = append(decl.Decorators, a.decorator(c, src))
		case "class_heritage":
			a.heritage(c, src, &decl.Bases)
		case "class_body":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				m := c.NamedChild(j)
				switch m.Type() {
				case "method_definition":
					member := a.function(m, src, span(m))
					decl.Members = append(decl.Members, member)
				case "public_field_definition", "field_definition":
					field := graph.SymbolDecl{Kind: graph.KindVariable, Span: span(m)}
					if name := m.ChildByFieldName("name"); name != nil {
						field.Name = text(name, src)
						field.NameSpan = span(name)
					}
					if typ := m.ChildByFieldName("type"); typ != nil {
						a.collectTypeRefs(typ, src, &field.Refs)
					}
					if val := m.ChildByFieldName("value"); val != nil {
						field.ValueSpan = span(val)
						a.collectRefs(val, src, &field.Refs)
					}
					decl.Members = append(decl.Members, field)
				}
			}
		}
	}
	return decl
}

// heritage collects base references from extends/implements clauses. The
// TypeScript grammar nests extends_clause and implements_clause under
// class_heritage; the JavaScript grammar puts the expression directly in.
func (a *ecmaAdapter) heritage(n *sitter.Node, src []byte, bases *[]graph.RefDecl) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "extends_clause", "implements_clause":
			a.heritage(c, src, bases)
		default:
			if parts, spans, ok := ecmaChain(c, src); ok {
				*bases = append(*bases, graph.RefDecl{
					Kind:      graph.UsageInheritance,
					Parts:     parts,
					Span:      span(c),
					PartSpans: spans,
				})
			}
		}
	}
}

func (a *ecmaAdapter) interfaceDecl(n *sitter.Node, src []byte, full graph.Span) graph.SymbolDecl {
	decl := graph.SymbolDecl{Kind: graph.KindClass, Span: full}
	if name := n.ChildByFieldName("name"); name != nil {
		decl.Name = text(name, src)
		decl.NameSpan = span(name)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "extends_type_clause", "extends_clause":
			a.heritage(c, src, &decl.Bases)
		case "interface_body", "object_type":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				m := c.NamedChild(j)
				switch m.Type() {
				case "property_signature":
					member := graph.SymbolDecl{Kind: graph.KindVariable, Span: span(m)}
					if name := m.ChildByFieldName("name"); name != nil {
						member.Name = text(name, src)
						member.NameSpan = span(name)
					}
					if typ := m.ChildByFieldName("type"); typ != nil {
						a.collectTypeRefs(typ, src, &member.Refs)
					}
					decl.Members = append(decl.Members, member)
				case "method_signature":
					member := a.function(m, src, span(m))
					decl.Members = append(decl.Members, member)
				}
			}
		}
	}
	return decl
}

// variables yields one Variable per declarator. A single-declarator
// statement keeps the whole statement span so relocation carries the
// const/let keyword along.
func (a *ecmaAdapter) variables(n *sitter.Node, src []byte, full graph.Span) []graph.SymbolDecl {
	var declarators []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "variable_declarator" {
			declarators = append(declarators, c)
		}
	}
	var out []graph.SymbolDecl
	for _, d := range declarators {
		name := d.ChildByFieldName("name")
		if name == nil || name.Type() != "identifier" {
			continue
		}
		decl := graph.SymbolDecl{
			Kind:     graph.KindVariable,
			Name:     text(name, src),
			Span:     span(d),
			NameSpan: span(name),
		}
		if len(declarators) == 1 {
			decl.Span = full
		}
		if typ := d.ChildByFieldName("type"); typ != nil {
			a.collectTypeRefs(typ, src, &decl.Refs)
		}
		if val := d.ChildByFieldName("value"); val != nil {
			decl.ValueSpan = span(val)
			a.collectRefs(val, src, &decl.Refs)
		}
		out = append(out, decl)
	}
	return out
}

func (a *ecmaAdapter) typeAlias(n *sitter.Node, src []byte, full graph.Span) graph.SymbolDecl {
	decl := graph.SymbolDecl{Kind: graph.KindTypeAlias, Span: full}
	if name := n.ChildByFieldName("name"); name != nil {
		decl.Name = text(name, src)
		decl.NameSpan = span(name)
	}
	if val := n.ChildByFieldName("value"); val != nil {
		decl.ValueSpan = span(val)
		a.collectTypeRefs(val, src, &decl.Refs)
	}
	return decl
}

func (a *ecmaAdapter) enum(n *sitter.Node, src []byte, full graph.Span) graph.SymbolDecl {
	decl := graph.SymbolDecl{Kind: graph.KindEnum, Span: full}
	if name := n.ChildByFieldName("name"); name != nil {
		decl.Name = text(name, src)
		decl.NameSpan = span(name)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			c := body.NamedChild(i)
			if c.Type() != "enum_assignment" && c.Type() != "property_identifier" {
				continue
			}
			member := graph.SymbolDecl{Kind: graph.KindVariable, Span: span(c), NameSpan: span(c), Name: text(c, src)}
			if c.Type() == "enum_assignment" {
				if name := c.ChildByFieldName("name"); name != nil {
					member.Name = text(name, src)
					member.NameSpan = span(name)
				}
			}
			decl.Members = append(decl.Members, member)
		}
	}
	return decl
}

// decorator extracts a TypeScript decorator; only the callee is treated as
// a resolvable reference.
func (a *ecmaAdapter) decorator(n *sitter.Node, src []byte) graph.DecoratorDecl {
	dec := graph.DecoratorDecl{Span: span(n)}
	expr := n.NamedChild(0)
	if expr == nil {
		return dec
	}
	if expr.Type() == "call_expression" {
		if fn := expr.ChildByFieldName("function"); fn != nil {
			if parts, spans, ok := ecmaChain(fn, src); ok {
				dec.Ref = graph.RefDecl{Kind: graph.UsageDecorator, Parts: parts, Span: span(fn), PartSpans: spans}
			}
		}
		return dec
	}
	if parts, spans, ok := ecmaChain(expr, src); ok {
		dec.Ref = graph.RefDecl{Kind: graph.UsageDecorator, Parts: parts, Span: span(expr), PartSpans: spans}
	}
	return dec
}

func (a *ecmaAdapter) parameters(params *sitter.Node, src []byte) []graph.ParamDecl {
	var out []graph.ParamDecl
	for i := 0; i < int(params.NamedChildCount()); i++ {
		c := params.NamedChild(i)
		p := graph.ParamDecl{}
		target := c
		switch c.Type() {
		case "required_parameter", "optional_parameter":
			p.Optional = c.Type() == "optional_parameter"
			if pat := c.ChildByFieldName("pattern"); pat != nil {
				target = pat
			}
			if typ := c.ChildByFieldName("type"); typ != nil {
				p.TypeExpr = strings.TrimPrefix(text(typ, src), ": ")
				if ref, ok := ecmaAnnotation(typ, src); ok {
					p.Annotation = &ref
				}
			}
			if val := c.ChildByFieldName("value"); val != nil {
				p.Default = text(val, src)
				p.Optional = true
			}
		case "identifier":
		case "rest_pattern":
			p.Variadic = true
			if inner := lastNamedChild(c); inner != nil {
				target = inner
			}
		case "assignment_pattern":
			if left := c.ChildByFieldName("left"); left != nil {
				target = left
			}
			if right := c.ChildByFieldName("right"); right != nil {
				p.Default = text(right, src)
			}
			p.Optional = true
		default:
			continue
		}
		if target.Type() == "rest_pattern" {
			p.Variadic = true
			if inner := lastNamedChild(target); inner != nil {
				target = inner
			}
		}
		if target.Type() == "identifier" {
			p.Name = text(target, src)
		}
		out = append(out, p)
	}
	return out
}

// ecmaAnnotation builds a TYPE_ANNOTATION reference from a type_annotation
// node's inner type when it is a plain or generic named type.
func ecmaAnnotation(typ *sitter.Node, src []byte) (graph.RefDecl, bool) {
	expr := typ
	if typ.Type() == "type_annotation" {
		if inner := typ.NamedChild(0); inner != nil {
			expr = inner
		}
	}
	if expr.Type() == "generic_type" {
		if name := expr.ChildByFieldName("name"); name != nil {
			expr = name
		}
	}
	parts, spans, ok := ecmaChain(expr, src)
	if !ok {
		return graph.RefDecl{}, false
	}
	return graph.RefDecl{Kind: graph.UsageTypeAnnotation, Parts: parts, Span: span(expr), PartSpans: spans}, true
}

// ecmaChain flattens identifier / member_expression / nested type
// identifier chains into components.
func ecmaChain(n *sitter.Node, src []byte) ([]string, []graph.Span, bool) {
	switch n.Type() {
	case "identifier", "type_identifier", "property_identifier":
		return []string{text(n, src)}, []graph.Span{span(n)}, true
	case "member_expression", "nested_type_identifier":
		obj := n.ChildByFieldName("object")
		if obj == nil {
			obj = n.ChildByFieldName("module")
		}
		prop := n.ChildByFieldName("property")
		if prop == nil {
			prop = n.ChildByFieldName("name")
		}
		if obj == nil || prop == nil {
			return nil, nil, false
		}
		parts, spans, ok := ecmaChain(obj, src)
		if !ok {
			return nil, nil, false
		}
		return append(parts, text(prop, src)), append(spans, span(prop)), true
	}
	return nil, nil, false
}

// collectTypeRefs gathers named-type references from a type subtree.
func (a *ecmaAdapter) collectTypeRefs(n *sitter.Node, src []byte, out *[]graph.RefDecl) {
	switch n.Type() {
	case "type_identifier", "nested_type_identifier":
		if parts, spans, ok := ecmaChain(n, src); ok {
			*out = append(*out, graph.RefDecl{Kind: graph.UsageTypeAnnotation, Parts: parts, Span: span(n), PartSpans: spans})
			return
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		a.collectTypeRefs(n.NamedChild(i), src, out)
	}
}

// collectRefs walks an expression or statement subtree gathering calls,
// member chains, and identifiers in value position.
func (a *ecmaAdapter) collectRefs(n *sitter.Node, src []byte, out *[]graph.RefDecl) {
	switch n.Type() {
	case "call_expression", "new_expression":
		fn := n.ChildByFieldName("function")
		if fn == nil {
			fn = n.ChildByFieldName("constructor")
		}
		if fn != nil {
			if parts, spans, ok := ecmaChain(fn, src); ok {
				*out = append(*out, graph.RefDecl{Kind: graph.UsageCall, Parts: parts, Span: span(fn), PartSpans: spans})
			} else {
				a.collectRefs(fn, src, out)
			}
		}
		if args := n.ChildByFieldName("arguments"); args != nil {
			a.collectRefs(args, src, out)
		}
		return
	case "member_expression":
		if parts, spans, ok := ecmaChain(n, src); ok {
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
	case "type_annotation":
		a.collectTypeRefs(n, src, out)
		return
	case "variable_declarator":
		if typ := n.ChildByFieldName("type"); typ != nil {
			a.collectTypeRefs(typ, src, out)
		}
		if val := n.ChildByFieldName("value"); val != nil {
			a.collectRefs(val, src, out)
		}
		return
	case "arrow_function", "function", "function_expression", "function_declaration", "method_definition":
		if body := n.ChildByFieldName("body"); body != nil {
			a.collectRefs(body, src, out)
		}
		return
	case "pair":
		if val := n.ChildByFieldName("value"); val != nil {
			a.collectRefs(val, src, out)
		}
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		a.collectRefs(n.NamedChild(i), src, out)
	}
}

func lastNamedChild(n *sitter.Node) *sitter.Node {
	count := int(n.NamedChildCount())
	if count == 0 {
		return nil
	}
	return n.NamedChild(count - 1)
}

func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"' || s[0] == '`') {
		return s[1 : len(s)-1]
	}
	return s
}
