package graft

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/jward/graft/internal/cache"
)

// parseAll turns discovered paths into cache entries ready for installation.
// In parallel mode a worker pool handles read+parse+extract and a single
// collector gathers results; serial mode walks the paths in order. Either
// way nothing touches the store until the caller installs the entries.
func (cb *Codebase) parseAll(ctx context.Context, paths []string, snap *cache.Cache) ([]cache.Entry, error) {
	if !cb.parallel || len(paths) < 2 {
		return cb.parseSerial(ctx, paths, snap)
	}
	return cb.parseParallel(ctx, paths, snap)
}

func (cb *Codebase) parseSerial(ctx context.Context, paths []string, snap *cache.Cache) ([]cache.Entry, error) {
	entries := make([]cache.Entry, 0, len(paths))
	for _, p := range paths {
		e, err := cb.parseOne(ctx, p, snap)
		if err != nil {
			return nil, fmt.Errorf("graft: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (cb *Codebase) parseParallel(ctx context.Context, paths []string, snap *cache.Cache) ([]cache.Entry, error) {
	numWorkers := min(runtime.NumCPU(), len(paths))

	workCh := make(chan string, len(paths))
	for _, p := range paths {
		workCh <- p
	}
	close(workCh)

	type result struct {
		entry cache.Entry
		err   error
	}
	resultCh := make(chan result, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each worker builds a fresh tree-sitter parser per file inside
			// parseOne; nothing here is shared but the read-only cache.
			for p := range workCh {
				e, err := cb.parseOne(ctx, p, snap)
				resultCh <- result{entry: e, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var entries []cache.Entry
	var errs []error
	for res := range resultCh {
		if res.err != nil {
			errs = append(errs, res.err)
			continue
		}
		entries = append(entries, res.entry)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("graft: parallel load had %d error(s): %w", len(errs), errs[0])
	}
	return entries, nil
}
