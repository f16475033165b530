package script

import (
	"context"
	"fmt"
	"io"

	"github.com/risor-io/risor/object"

	"github.com/jward/graft"
)

func symbolMap(cb *graft.Codebase, sym *graft.Symbol) *object.Map {
	path := ""
	if f, err := cb.FileOf(sym.ID); err == nil {
		path = f.Path
	}
	return object.NewMap(map[string]object.Object{
		"id":    object.NewInt(int64(sym.ID)),
		"name":  object.NewString(sym.Name),
		"kind":  object.NewString(string(sym.Kind)),
		"file":  object.NewString(path),
		"start": object.NewInt(int64(sym.Span.Start)),
		"end":   object.NewInt(int64(sym.Span.End)),
	})
}

func usageMap(cb *graft.Codebase, u graft.Usage) *object.Map {
	path := ""
	if f, err := cb.FileOf(u.From); err == nil {
		path = f.Path
	}
	return object.NewMap(map[string]object.Object{
		"from":  object.NewInt(int64(u.From)),
		"to":    object.NewInt(int64(u.To)),
		"kind":  object.NewString(string(u.Kind)),
		"name":  object.NewString(u.Name),
		"file":  object.NewString(path),
		"start": object.NewInt(int64(u.Span.Start)),
		"end":   object.NewInt(int64(u.Span.End)),
	})
}

// files() -> [path, ...]
func makeFilesFn(cb *graft.Codebase) *object.Builtin {
	return object.NewBuiltin("files", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("files", 0, len(args))
		}
		var items []object.Object
		for _, f := range cb.Files() {
			items = append(items, object.NewString(f.Path))
		}
		return object.NewList(items)
	})
}

// functions() -> [symbol, ...]
func makeFunctionsFn(cb *graft.Codebase) *object.Builtin {
	return object.NewBuiltin("functions", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("functions", 0, len(args))
		}
		var items []object.Object
		for _, sym := range cb.Functions() {
			items = append(items, symbolMap(cb, sym))
		}
		return object.NewList(items)
	})
}

// classes() -> [symbol, ...]
func makeClassesFn(cb *graft.Codebase) *object.Builtin {
	return object.NewBuiltin("classes", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("classes", 0, len(args))
		}
		var items []object.Object
		for _, sym := range cb.Classes() {
			items = append(items, symbolMap(cb, sym))
		}
		return object.NewList(items)
	})
}

// symbol(name) -> symbol
func makeSymbolFn(cb *graft.Codebase) *object.Builtin {
	return object.NewBuiltin("symbol", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("symbol", 1, len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("symbol: name must be a string, got %s", args[0].Type())
		}
		sym, err := cb.Symbol(name.Value())
		if err != nil {
			return object.Errorf("symbol: %v", err)
		}
		return symbolMap(cb, sym)
	})
}

// usages(name) -> [usage, ...]
func makeUsagesFn(cb *graft.Codebase) *object.Builtin {
	return object.NewBuiltin("usages", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("usages", 1, len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("usages: name must be a string, got %s", args[0].Type())
		}
		sym, err := cb.Symbol(name.Value())
		if err != nil {
			return object.Errorf("usages: %v", err)
		}
		edges, err := cb.UsagesOf(sym.ID)
		if err != nil {
			return object.Errorf("usages: %v", err)
		}
		var items []object.Object
		for _, u := range edges {
			items = append(items, usageMap(cb, u))
		}
		return object.NewList(items)
	})
}

// deps(name) -> [usage, ...]
func makeDepsFn(cb *graft.Codebase) *object.Builtin {
	return object.NewBuiltin("deps", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("deps", 1, len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("deps: name must be a string, got %s", args[0].Type())
		}
		sym, err := cb.Symbol(name.Value())
		if err != nil {
			return object.Errorf("deps: %v", err)
		}
		edges, err := cb.DependenciesOf(sym.ID)
		if err != nil {
			return object.Errorf("deps: %v", err)
		}
		var items []object.Object
		for _, u := range edges {
			items = append(items, usageMap(cb, u))
		}
		return object.NewList(items)
	})
}

// rename(name, new_name)
func makeRenameFn(cb *graft.Codebase) *object.Builtin {
	return object.NewBuiltin("rename", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("rename", 2, len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("rename: name must be a string, got %s", args[0].Type())
		}
		newName, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("rename: new_name must be a string, got %s", args[1].Type())
		}
		sym, err := cb.Symbol(name.Value())
		if err != nil {
			return object.Errorf("rename: %v", err)
		}
		if err := cb.Rename(sym.ID, newName.Value()); err != nil {
			return object.Errorf("rename: %v", err)
		}
		return object.Nil
	})
}

// move_symbol(name, target_file, opts?) where opts is a map with optional
// "with_deps" (bool) and "strategy" ("add_back_edge"|"update_all_imports").
func makeMoveSymbolFn(cb *graft.Codebase) *object.Builtin {
	return object.NewBuiltin("move_symbol", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 && len(args) != 3 {
			return object.NewArgsError("move_symbol", 2, len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("move_symbol: name must be a string, got %s", args[0].Type())
		}
		targetPath, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("move_symbol: target_file must be a string, got %s", args[1].Type())
		}
		var opts graft.MoveOptions
		if len(args) == 3 {
			m, ok := args[2].(*object.Map)
			if !ok {
				return object.Errorf("move_symbol: opts must be a map, got %s", args[2].Type())
			}
			fields := m.Value()
			if b, ok := fields["with_deps"].(*object.Bool); ok {
				opts.IncludeDependencies = b.Value()
			}
			if s, ok := fields["strategy"].(*object.String); ok {
				opts.Strategy = graft.MoveStrategy(s.Value())
			}
		}
		sym, err := cb.Symbol(name.Value())
		if err != nil {
			return object.Errorf("move_symbol: %v", err)
		}
		if err := cb.MoveSymbol(sym.ID, targetPath.Value(), opts); err != nil {
			return object.Errorf("move_symbol: %v", err)
		}
		return object.Nil
	})
}

// remove(name)
func makeRemoveFn(cb *graft.Codebase) *object.Builtin {
	return object.NewBuiltin("remove", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("remove", 1, len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("remove: name must be a string, got %s", args[0].Type())
		}
		sym, err := cb.Symbol(name.Value())
		if err != nil {
			return object.Errorf("remove: %v", err)
		}
		if err := cb.Remove(sym.ID); err != nil {
			return object.Errorf("remove: %v", err)
		}
		return object.Nil
	})
}

// commit()
func makeCommitFn(cb *graft.Codebase) *object.Builtin {
	return object.NewBuiltin("commit", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("commit", 0, len(args))
		}
		if err := cb.Commit(ctx); err != nil {
			return object.Errorf("commit: %v", err)
		}
		return object.Nil
	})
}

// diff() -> string; also prints to the runtime's output.
func makeDiffFn(cb *graft.Codebase, out io.Writer) *object.Builtin {
	return object.NewBuiltin("diff", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("diff", 0, len(args))
		}
		text, err := cb.Diff()
		if err != nil {
			return object.Errorf("diff: %v", err)
		}
		if text != "" {
			fmt.Fprint(out, text)
		}
		return object.NewString(text)
	})
}
