// Package graft provides a multi-language codebase graph and transformation
// engine built on tree-sitter. It parses a repository into a graph of files,
// symbols, and the usage edges between them, lets callers query and mutate
// that graph while keeping cross-file references consistent, and
// materializes the mutations back to disk as a diff.
//
// # Pipeline
//
// Graft operates in three phases:
//
//  1. Load: discover source files (honoring .gitignore), parse each with the
//     language adapter for its extension, and register every definition,
//     import, and reference in the node store.
//
//  2. Query and mutate: resolve references to their defining entities, walk
//     usage edges, and queue mutations (rename, remove, move, create)
//     against the graph. Mutations are deferred: queries keep seeing the
//     committed state until Commit is called.
//
//  3. Commit and materialize: Commit applies the queued operations to file
//     text, re-parses every touched file, and remaps entity identifiers
//     onto the new parse. Diff renders the net effect against the on-disk
//     text; CommitToRepo writes the files and records a git commit.
//
// # Usage
//
// Load a codebase, move a symbol, and inspect the diff:
//
//	cb, err := graft.Load(ctx, "path/to/project")
//	if err != nil { ... }
//
//	sym, err := cb.Symbol("helper")
//	err = cb.MoveSymbol(sym.ID, "lib/util.py", graft.MoveOptions{
//		Strategy: graft.UpdateAllImports,
//	})
//	err = cb.Commit(ctx)
//	fmt.Print(cb.Diff())
//
// # Consistency model
//
// Each Codebase is single-writer: mutation and commit calls serialize on an
// internal lock, and read queries issued while a commit is executing block
// until it finishes. A commit either fully applies or fully rolls back; a
// re-parse failure on any touched file leaves the codebase in its
// pre-commit committed state with the pending operations intact.
package graft
