package graph

// EntityID is the stable identifier for every addressable construct in the
// graph. Entities reference each other by EntityID only, never by pointer;
// this is what lets mutually recursive functions or circular inheritance
// exist without ownership cycles.
type EntityID int64

// External is the sentinel identifier that unresolvable references (third
// party packages, files outside the parsed set) resolve to. It satisfies
// queries but carries no further dependency data.
const External EntityID = -1

// Span is a half-open byte range [Start, End) into a file's source text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes the span covers.
func (s Span) Len() int { return s.End - s.Start }

// Contains reports whether the span fully contains other.
func (s Span) Contains(other Span) bool {
	return s.Start <= other.Start && other.End <= s.End
}

// SymbolKind classifies a symbol entity. Language adapters map concrete
// syntax kinds onto this closed set; anything they cannot classify becomes
// KindUnknown rather than failing the parse.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindClass     SymbolKind = "class"
	KindVariable  SymbolKind = "variable"
	KindTypeAlias SymbolKind = "type_alias"
	KindEnum      SymbolKind = "enum"
	KindUnknown   SymbolKind = "unknown"
)

// UsageKind tags a usage edge with how the referencing entity uses the
// referenced one.
type UsageKind string

const (
	UsageCall            UsageKind = "call"
	UsageImport          UsageKind = "import"
	UsageImportWildcard  UsageKind = "import_wildcard"
	UsageDecorator       UsageKind = "decorator"
	UsageTypeAnnotation  UsageKind = "type_annotation"
	UsageInheritance     UsageKind = "inheritance"
	UsageAttributeAccess UsageKind = "attribute_access"
	UsageIdentifier      UsageKind = "identifier"
)

// File owns a file's committed source text plus the ordered identifiers of
// its top-level entities. Generation increases whenever a contained entity
// is mutated or the import list changes.
type File struct {
	ID         EntityID
	Path       string
	Language   string
	Hash       string
	Source     string
	Generation uint64

	// Imports and Symbols hold top-level entity IDs in source order.
	Imports []EntityID
	Symbols []EntityID
}

// Symbol is the tagged variant over {Function, Class, Variable, TypeAlias,
// Enum, Unknown}. Cross-cutting data (decorators, parameters, references)
// is carried on the struct; kind-specific meaning lives in the adapters and
// the resolver, not in subtypes.
type Symbol struct {
	ID         EntityID
	FileID     EntityID
	ParentID   EntityID // enclosing class, 0 for top-level
	Kind       SymbolKind
	Name       string
	Span       Span // full extent incl. decorators and leading doc comment
	NameSpan   Span
	Generation uint64

	Decorators []DecoratorDecl
	Params     []ParamDecl
	Bases      []RefDecl // class base references, resolved lazily
	Members    []EntityID
	Refs       []RefDecl // references inside the body

	// ValueSpan is the right-hand side of a variable or type alias
	// definition; zero for other kinds.
	ValueSpan Span
}

// Import is the symbol variant for an import binding. Local is the name the
// binding introduces in file scope, Source the module specifier as written,
// Imported the name exported by the target module ("" for whole-module
// imports). Wildcard imports bind every export of the target.
type Import struct {
	ID           EntityID
	FileID       EntityID
	Local        string
	Source       string
	Imported     string
	Wildcard     bool
	Span         Span // the whole import statement
	NameSpan     Span // the local binding token
	ImportedSpan Span // the exported-name token (== NameSpan without an alias)
	SourceSpan   Span // the module specifier token
	Generation   uint64
}

// Usage is a directed, kind-tagged dependency edge. From and To are entity
// IDs; To may be External. Span is the referencing token's byte range in
// From's file, used by rename to rewrite exactly the occurrences that
// resolve to the target.
type Usage struct {
	From EntityID
	To   EntityID
	Kind UsageKind
	Span Span
	Name string // the token text at Span when the edge was computed
}
