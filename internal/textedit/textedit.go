// Package textedit applies sets of byte-range replacements to source text.
// Edits are collected against the original text's offsets and applied in a
// single pass, so callers never reason about offset drift.
package textedit

import (
	"fmt"
	"sort"
	"strings"
)

// Edit replaces the bytes in [Start, End) with Text. An insertion has
// Start == End; a deletion has empty Text.
type Edit struct {
	Start int
	End   int
	Text  string
}

// Replace builds a replacement edit.
func Replace(start, end int, text string) Edit { return Edit{Start: start, End: end, Text: text} }

// Insert builds an insertion edit at offset.
func Insert(offset int, text string) Edit { return Edit{Start: offset, End: offset, Text: text} }

// Delete builds a deletion edit for [start, end).
func Delete(start, end int) Edit { return Edit{Start: start, End: end} }

// Apply applies edits to src. All offsets address the original src. Edits
// may not overlap; two insertions at the same offset apply in the order
// given. Returns an error for out-of-range or overlapping edits.
func Apply(src string, edits []Edit) (string, error) {
	if len(edits) == 0 {
		return src, nil
	}
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	var b strings.Builder
	b.Grow(len(src))
	pos := 0
	for _, e := range sorted {
		if e.Start < 0 || e.End > len(src) || e.Start > e.End {
			return "", fmt.Errorf("textedit: edit [%d,%d) out of range for %d bytes", e.Start, e.End, len(src))
		}
		if e.Start < pos {
			return "", fmt.Errorf("textedit: edit [%d,%d) overlaps a previous edit ending at %d", e.Start, e.End, pos)
		}
		b.WriteString(src[pos:e.Start])
		b.WriteString(e.Text)
		pos = e.End
	}
	b.WriteString(src[pos:])
	return b.String(), nil
}

// ExpandToLine widens [start, end) so it covers whole lines of src,
// swallowing the trailing newline. Used when excising a definition so no
// blank hole is left behind.
func ExpandToLine(src string, start, end int) (int, int) {
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	for end < len(src) && src[end] != '\n' {
		end++
	}
	if end < len(src) {
		end++ // include the newline itself
	}
	return start, end
}
