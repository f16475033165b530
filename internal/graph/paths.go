package graph

import (
	"path"
	"strings"
)

// Import path mapping. File paths in the store are slash-separated and
// relative to the codebase root, so module specifiers can be derived
// purely from path arithmetic. The resolver uses LookupImportTarget to
// find the file an import names; the relocation engine uses
// ModuleSpecifier for the inverse direction when it rewrites importers.

// LookupImportTarget maps an import source as written in `from` to a file
// in the parsed set. Returns (nil, false) for specifiers that do not
// resolve inside the codebase (external packages).
func (s *Store) LookupImportTarget(from *File, source string) (*File, bool) {
	for _, candidate := range importCandidates(from, source) {
		if id, ok := s.byPath[candidate]; ok && !s.removed[id] {
			return s.files[id], true
		}
	}
	return nil, false
}

func importCandidates(from *File, source string) []string {
	switch from.Language {
	case "python":
		return pythonCandidates(from, source)
	case "typescript", "javascript":
		return ecmaCandidates(from, source)
	}
	return nil
}

func pythonCandidates(from *File, source string) []string {
	var base, rest string
	if strings.HasPrefix(source, ".") {
		// Relative import: one dot is the importing file's package, each
		// extra dot walks one package up.
		dots := 0
		for dots < len(source) && source[dots] == '.' {
			dots++
		}
		rest = source[dots:]
		base = path.Dir(from.Path)
		for i := 1; i < dots; i++ {
			base = path.Dir(base)
		}
		if base == "." {
			base = ""
		}
	} else {
		rest = source
	}
	rel := strings.ReplaceAll(rest, ".", "/")
	joined := rel
	if base != "" {
		if rel == "" {
			joined = base
		} else {
			joined = base + "/" + rel
		}
	}
	if joined == "" {
		return nil
	}
	return []string{joined + ".py", joined + "/__init__.py"}
}

var ecmaExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs"}

func ecmaCandidates(from *File, source string) []string {
	if !strings.HasPrefix(source, ".") {
		return nil // bare specifier: external package
	}
	joined := path.Join(path.Dir(from.Path), source)
	var out []string
	out = append(out, joined)
	for _, ext := range ecmaExtensions {
		out = append(out, joined+ext)
	}
	for _, ext := range ecmaExtensions {
		out = append(out, joined+"/index"+ext)
	}
	return out
}

// ModuleSpecifier renders the import source text file `from` should use to
// import from `target`, in from's language.
func ModuleSpecifier(from, target *File) string {
	switch from.Language {
	case "python":
		p := strings.TrimSuffix(target.Path, ".py")
		p = strings.TrimSuffix(p, "/__init__")
		return strings.ReplaceAll(p, "/", ".")
	case "typescript", "javascript":
		rel := relPath(path.Dir(from.Path), target.Path)
		for _, ext := range ecmaExtensions {
			if strings.HasSuffix(rel, ext) {
				rel = strings.TrimSuffix(rel, ext)
				break
			}
		}
		if !strings.HasPrefix(rel, ".") {
			rel = "./" + rel
		}
		return rel
	}
	return target.Path
}

// relPath computes a slash-separated relative path from dir to target
// without touching the OS path package (store paths are always slashed).
func relPath(dir, target string) string {
	if dir == "." || dir == "" {
		return target
	}
	dirParts := strings.Split(dir, "/")
	targetParts := strings.Split(target, "/")
	common := 0
	for common < len(dirParts) && common < len(targetParts) && dirParts[common] == targetParts[common] {
		common++
	}
	var out []string
	for i := common; i < len(dirParts); i++ {
		out = append(out, "..")
	}
	out = append(out, targetParts[common:]...)
	return strings.Join(out, "/")
}
