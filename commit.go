package graft

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/jward/graft/internal/graph"
	"github.com/jward/graft/internal/lang"
	"github.com/jward/graft/internal/textedit"
)

// commitPlan accumulates the textual effect of the operation log. All edit
// offsets address committed source text; created files carry their own base
// text. Nothing in the store changes until the whole plan validates.
type commitPlan struct {
	edits   map[string][]textedit.Edit
	created map[string]string                    // path -> base content for files not yet in the store
	renames map[graph.EntityID]string            // remap hint: entity keeps its id under a new name
	adopt   map[string]map[string]graph.EntityID // path -> top-level name -> migrating entity
}

func newCommitPlan() *commitPlan {
	return &commitPlan{
		edits:   make(map[string][]textedit.Edit),
		created: make(map[string]string),
		renames: make(map[graph.EntityID]string),
		adopt:   make(map[string]map[string]graph.EntityID),
	}
}

func (p *commitPlan) addEdit(path string, e textedit.Edit) {
	p.edits[path] = append(p.edits[path], e)
}

func (p *commitPlan) adoptInto(path, name string, id graph.EntityID) {
	if p.adopt[path] == nil {
		p.adopt[path] = make(map[string]graph.EntityID)
	}
	p.adopt[path][name] = id
}

// baseText returns the text edits against path apply to: committed source
// for known files, planned content for created ones.
func (p *commitPlan) baseText(cb *Codebase, path string) (string, error) {
	if f, err := cb.store.FileByPath(path); err == nil {
		return f.Source, nil
	}
	if src, ok := p.created[path]; ok {
		return src, nil
	}
	return "", fmt.Errorf("no such file %s: %w", path, graph.ErrNotFound)
}

// Commit drains the operation log: it renders every queued mutation into
// textual edits against committed state, applies them, re-parses every
// touched file, and only then swaps the new state in — remapping entity ids
// that still semantically exist and bumping generations where content
// moved. If any touched file fails to re-parse, Commit returns a
// CommitError and the queue is left intact; no file is partially applied.
func (cb *Codebase) Commit(ctx context.Context) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if len(cb.queue.ops) == 0 {
		return nil
	}

	plan := newCommitPlan()
	for _, op := range cb.queue.ops {
		if err := cb.planOp(plan, op); err != nil {
			return fmt.Errorf("graft: commit: %w", err)
		}
	}

	// Apply edits per file against committed text.
	newTexts := make(map[string]string)
	for path, src := range plan.created {
		newTexts[path] = src
	}
	for path, edits := range plan.edits {
		base, err := plan.baseText(cb, path)
		if err != nil {
			return fmt.Errorf("graft: commit: %w", err)
		}
		out, err := textedit.Apply(base, edits)
		if err != nil {
			return &CommitError{Path: path, Reason: err.Error()}
		}
		newTexts[path] = out
	}

	// Validate and extract every touched file before anything is swapped.
	// A failure here leaves both the store and the queue untouched.
	type parsed struct {
		path     string
		language string
		text     string
		syn      *graph.FileSyntax
	}
	var results []parsed
	for path, text := range newTexts {
		language, ok := lang.LanguageForFile(path)
		if !ok {
			return &CommitError{Path: path, Reason: "unsupported file extension"}
		}
		adapter, _ := lang.ForLanguage(language)
		valid, err := lang.Valid(ctx, adapter, []byte(text))
		if err != nil {
			return &CommitError{Path: path, Reason: err.Error()}
		}
		if !valid {
			return &CommitError{Path: path, Reason: "syntax error after applying edits"}
		}
		syn, err := lang.ParseAndExtract(ctx, adapter, []byte(text))
		if err != nil {
			return &CommitError{Path: path, Reason: err.Error()}
		}
		results = append(results, parsed{path: path, language: language, text: text, syn: syn})
	}

	// Swap. Files that adopt migrating symbols go first so the adopted
	// entities are detached from their old file before it is re-parsed.
	sort.SliceStable(results, func(i, j int) bool {
		_, ai := plan.adopt[results[i].path]
		_, aj := plan.adopt[results[j].path]
		if ai != aj {
			return ai
		}
		return results[i].path < results[j].path
	})
	for _, res := range results {
		hash := fmt.Sprintf("%x", sha256.Sum256([]byte(res.text)))
		f, err := cb.store.FileByPath(res.path)
		if err != nil {
			if f, err = cb.store.AddFile(res.path, res.language, hash, res.text, &graph.FileSyntax{Language: res.language}); err != nil {
				return fmt.Errorf("graft: commit: create %s: %w", res.path, err)
			}
		}
		hints := graph.RemapHints{Renames: plan.renames, Adopt: plan.adopt[res.path]}
		if err := cb.store.ReplaceFile(f.ID, hash, res.text, res.syn, hints); err != nil {
			return fmt.Errorf("graft: commit: swap %s: %w", res.path, err)
		}
	}

	// Cross-file resolution may shift even for untouched entities.
	cb.resolver.Reset()
	cb.queue.clear()
	cb.log.Info("commit applied", "files", len(results))
	return nil
}

// planOp renders one operation into plan edits.
func (cb *Codebase) planOp(plan *commitPlan, op Operation) error {
	switch op.Kind {
	case OpRename:
		return cb.planRename(plan, op)
	case OpRemove:
		return cb.planRemove(plan, op)
	case OpSetValue:
		return cb.planSetValue(plan, op)
	case OpAddDecorator:
		return cb.planAddDecorator(plan, op)
	case OpMoveToFile:
		return cb.planMove(plan, op)
	case OpCreateFile:
		plan.created[op.Path] = op.Source
		return nil
	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

func (cb *Codebase) planRename(plan *commitPlan, op Operation) error {
	sym, err := cb.store.Symbol(op.Target)
	if err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	old := sym.Name
	f, err := cb.store.File(sym.FileID)
	if err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	seen := map[string]bool{}
	add := func(path string, span Span) {
		key := fmt.Sprintf("%s:%d-%d", path, span.Start, span.End)
		if seen[key] {
			return
		}
		seen[key] = true
		plan.addEdit(path, textedit.Replace(span.Start, span.End, op.NewName))
	}

	add(f.Path, sym.NameSpan)

	// Rewrite a usage site only when its token is literally the old name;
	// aliased bindings keep their alias.
	usages, err := cb.resolver.UsagesOf(op.Target)
	if err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	for _, u := range usages {
		uf, err := cb.fileOf(u.From)
		if err != nil {
			continue
		}
		if u.Span.End > len(uf.Source) || uf.Source[u.Span.Start:u.Span.End] != old {
			continue
		}
		add(uf.Path, u.Span)
	}

	plan.renames[op.Target] = op.NewName
	return nil
}

func (cb *Codebase) planRemove(plan *commitPlan, op Operation) error {
	var fileID EntityID
	var span Span
	if sym, err := cb.store.Symbol(op.Target); err == nil {
		fileID, span = sym.FileID, sym.Span
	} else if imp, err := cb.store.Import(op.Target); err == nil {
		fileID, span = imp.FileID, imp.Span
	} else {
		return fmt.Errorf("remove: %w", err)
	}
	f, err := cb.store.File(fileID)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	start, end := textedit.ExpandToLine(f.Source, span.Start, span.End)
	plan.addEdit(f.Path, textedit.Delete(start, end))
	return nil
}

func (cb *Codebase) planSetValue(plan *commitPlan, op Operation) error {
	sym, err := cb.store.Symbol(op.Target)
	if err != nil {
		return fmt.Errorf("set value: %w", err)
	}
	f, err := cb.store.File(sym.FileID)
	if err != nil {
		return fmt.Errorf("set value: %w", err)
	}
	plan.addEdit(f.Path, textedit.Replace(sym.ValueSpan.Start, sym.ValueSpan.End, op.Value))
	return nil
}

func (cb *Codebase) planAddDecorator(plan *commitPlan, op Operation) error {
	sym, err := cb.store.Symbol(op.Target)
	if err != nil {
		return fmt.Errorf("add decorator: %w", err)
	}
	f, err := cb.store.File(sym.FileID)
	if err != nil {
		return fmt.Errorf("add decorator: %w", err)
	}
	lineStart := sym.Span.Start
	for lineStart > 0 && f.Source[lineStart-1] != '\n' {
		lineStart--
	}
	indent := f.Source[lineStart:sym.Span.Start]
	if strings.TrimSpace(indent) != "" {
		indent = ""
	}
	plan.addEdit(f.Path, textedit.Insert(lineStart, indent+op.Decorator+"\n"))
	return nil
}
