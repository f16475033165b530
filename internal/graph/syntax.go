package graph

// Syntax declaration types: the language-neutral output of a language
// adapter for one file. Declarations are pure data (JSON-serializable for
// the snapshot cache); the Store converts them into registered entities.

// FileSyntax is everything an adapter extracted from one file.
type FileSyntax struct {
	Language string       `json:"language"`
	Imports  []ImportDecl `json:"imports,omitempty"`
	Symbols  []SymbolDecl `json:"symbols,omitempty"`
}

// ImportDecl is one (localName, sourcePath, importedName | wildcard) tuple.
// A single import statement may yield several tuples.
type ImportDecl struct {
	Local        string `json:"local"`
	Source       string `json:"source"`
	Imported     string `json:"imported,omitempty"`
	Wildcard     bool   `json:"wildcard,omitempty"`
	Span         Span   `json:"span"`
	NameSpan     Span   `json:"name_span"`
	ImportedSpan Span   `json:"imported_span"`
	SourceSpan   Span   `json:"source_span"`
}

// SymbolDecl is a symbol definition, possibly nested (class members).
type SymbolDecl struct {
	Kind       SymbolKind      `json:"kind"`
	Name       string          `json:"name"`
	Span       Span            `json:"span"`
	NameSpan   Span            `json:"name_span"`
	ValueSpan  Span            `json:"value_span,omitempty"`
	Decorators []DecoratorDecl `json:"decorators,omitempty"`
	Params     []ParamDecl     `json:"params,omitempty"`
	Bases      []RefDecl       `json:"bases,omitempty"`
	Members    []SymbolDecl    `json:"members,omitempty"`
	Refs       []RefDecl       `json:"refs,omitempty"`
}

// ParamDecl is one formal parameter of a callable.
type ParamDecl struct {
	Name       string   `json:"name"`
	TypeExpr   string   `json:"type_expr,omitempty"`
	Default    string   `json:"default,omitempty"`
	Variadic   bool     `json:"variadic,omitempty"`
	Optional   bool     `json:"optional,omitempty"`
	Annotation *RefDecl `json:"annotation,omitempty"`
}

// DecoratorDecl records one decorator application. Ref is the decorator
// target (possibly an attribute chain like app.route); Args holds the
// resolvable references found in a decorator call's arguments, for adapters
// whose decorator arguments contribute usage edges.
type DecoratorDecl struct {
	Ref  RefDecl   `json:"ref"`
	Args []RefDecl `json:"args,omitempty"`
	Span Span      `json:"span"`
}

// RefDecl is a reference appearing in source: a bare name, an attribute
// chain a.b.c, a call target, a type annotation, or a base class. Parts
// holds the chain components in order; PartSpans the byte range of each
// component token.
type RefDecl struct {
	Kind      UsageKind `json:"kind"`
	Parts     []string  `json:"parts"`
	Span      Span      `json:"span"`
	PartSpans []Span    `json:"part_spans"`
}

// Head returns the first chain component, or "" for a malformed reference.
func (r RefDecl) Head() string {
	if len(r.Parts) == 0 {
		return ""
	}
	return r.Parts[0]
}
