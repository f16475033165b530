// Package script embeds a Risor VM and exposes a loaded codebase to user
// codemod scripts through host functions: query the graph, queue
// mutations, commit, and print the resulting diff.
package script

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/risor-io/risor"

	"github.com/jward/graft"
)

// Runtime runs Risor codemod scripts against one Codebase.
type Runtime struct {
	cb  *graft.Codebase
	out io.Writer
}

// New creates a Runtime over cb. Script output (the `diff()` host function
// and Risor's print) goes to out; pass nil for os.Stdout.
func New(cb *graft.Codebase, out io.Writer) *Runtime {
	if out == nil {
		out = os.Stdout
	}
	return &Runtime{cb: cb, out: out}
}

// RunScript loads and executes a .risor file.
func (r *Runtime) RunScript(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("script: loading %s: %w", path, err)
	}
	return r.eval(ctx, string(src), filepath.Base(path))
}

// RunSource executes Risor source directly. Useful for testing without
// script files.
func (r *Runtime) RunSource(ctx context.Context, source string) error {
	return r.eval(ctx, source, "<inline>")
}

func (r *Runtime) eval(ctx context.Context, source, label string) error {
	var opts []risor.Option
	for name, fn := range r.globals() {
		opts = append(opts, risor.WithGlobal(name, fn))
	}
	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return fmt.Errorf("script: %s: %w", label, err)
	}
	return nil
}

func (r *Runtime) globals() map[string]any {
	return map[string]any{
		"files":       makeFilesFn(r.cb),
		"functions":   makeFunctionsFn(r.cb),
		"classes":     makeClassesFn(r.cb),
		"symbol":      makeSymbolFn(r.cb),
		"usages":      makeUsagesFn(r.cb),
		"deps":        makeDepsFn(r.cb),
		"rename":      makeRenameFn(r.cb),
		"move_symbol": makeMoveSymbolFn(r.cb),
		"remove":      makeRemoveFn(r.cb),
		"commit":      makeCommitFn(r.cb),
		"diff":        makeDiffFn(r.cb, r.out),
	}
}
