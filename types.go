package graft

import "github.com/jward/graft/internal/graph"

// Public type aliases for internal graph types used in the Codebase API.
// These are Go type aliases (=) — identical to the internal types at
// compile time. External consumers use these names; no conversion is
// needed.

type EntityID = graph.EntityID
type Span = graph.Span
type File = graph.File
type Symbol = graph.Symbol
type Import = graph.Import
type Usage = graph.Usage
type SymbolKind = graph.SymbolKind
type UsageKind = graph.UsageKind
type CommitError = graph.CommitError

// External is the sentinel entity unresolvable references resolve to.
const External = graph.External

// Symbol kinds.
const (
	KindFunction  = graph.KindFunction
	KindClass     = graph.KindClass
	KindVariable  = graph.KindVariable
	KindTypeAlias = graph.KindTypeAlias
	KindEnum      = graph.KindEnum
	KindUnknown   = graph.KindUnknown
)

// Usage edge kinds.
const (
	UsageCall            = graph.UsageCall
	UsageImport          = graph.UsageImport
	UsageImportWildcard  = graph.UsageImportWildcard
	UsageDecorator       = graph.UsageDecorator
	UsageTypeAnnotation  = graph.UsageTypeAnnotation
	UsageInheritance     = graph.UsageInheritance
	UsageAttributeAccess = graph.UsageAttributeAccess
	UsageIdentifier      = graph.UsageIdentifier
)

// Error sentinels re-exported for callers that switch on failure kinds.
var (
	ErrNotFound      = graph.ErrNotFound
	ErrEntityRemoved = graph.ErrEntityRemoved
	ErrUnresolved    = graph.ErrUnresolved
)
