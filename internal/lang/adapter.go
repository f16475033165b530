// Package lang maps concrete tree-sitter syntax onto the engine's uniform
// entity classes. Each adapter supplies extraction for one language: symbol
// definitions, import tuples, decorator calls, attribute chains, and the
// references inside symbol bodies. A subtree an adapter cannot classify
// degrades to an opaque Unknown entity; extraction never aborts a file.
package lang

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/graft/internal/graph"
)

// Adapter converts one language's concrete syntax into FileSyntax.
type Adapter interface {
	Language() string
	Grammar() *sitter.Language
	Extract(tree *sitter.Tree, src []byte) (*graph.FileSyntax, error)
}

var extToLanguage = map[string]string{
	".py":  "python",
	".ts":  "typescript",
	".tsx": "typescript",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
}

var adapters = map[string]Adapter{
	"python":     &pythonAdapter{},
	"typescript": newECMAAdapter("typescript"),
	"javascript": newECMAAdapter("javascript"),
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	lang, ok := extToLanguage[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// ForLanguage returns the adapter for a canonical language name.
func ForLanguage(language string) (Adapter, bool) {
	a, ok := adapters[language]
	return a, ok
}

// ForFile returns the adapter responsible for a file path.
func ForFile(path string) (Adapter, bool) {
	lang, ok := LanguageForFile(path)
	if !ok {
		return nil, false
	}
	return ForLanguage(lang)
}

// Parse runs the adapter's grammar over src. A fresh parser is created per
// call: tree-sitter parsers are not safe for concurrent use, and the load
// pipeline parses files from a worker pool.
func Parse(ctx context.Context, a Adapter, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(a.Grammar())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", a.Language(), err)
	}
	return tree, nil
}

// ParseAndExtract is the common load path: parse src and extract syntax.
func ParseAndExtract(ctx context.Context, a Adapter, src []byte) (*graph.FileSyntax, error) {
	tree, err := Parse(ctx, a, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return a.Extract(tree, src)
}

// Valid reports whether src parses without syntax errors. The commit path
// uses this to reject textual mutations that would corrupt a file.
func Valid(ctx context.Context, a Adapter, src []byte) (bool, error) {
	tree, err := Parse(ctx, a, src)
	if err != nil {
		return false, err
	}
	defer tree.Close()
	return !tree.RootNode().HasError(), nil
}

// span converts a node's byte range.
func span(n *sitter.Node) graph.Span {
	return graph.Span{Start: int(n.StartByte()), End: int(n.EndByte())}
}

// text returns the source text a node covers.
func text(n *sitter.Node, src []byte) string {
	return n.Content(src)
}

// extendOverLeadingComments widens start so it covers comment siblings
// immediately above node, keeping a symbol's documentation attached to it
// when the symbol is excised or relocated.
func extendOverLeadingComments(n *sitter.Node, start int) int {
	row := n.StartPoint().Row
	for prev := n.PrevNamedSibling(); prev != nil; prev = prev.PrevNamedSibling() {
		if prev.Type() != "comment" || prev.EndPoint().Row+1 != row {
			break
		}
		start = int(prev.StartByte())
		row = prev.StartPoint().Row
	}
	return start
}
