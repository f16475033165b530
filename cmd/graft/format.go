package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// symbolRow is the CLI projection of a symbol.
type symbolRow struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
	File string `json:"file"`
	Line int    `json:"line"`
}

// usageRow is the CLI projection of a usage edge.
type usageRow struct {
	From int64  `json:"from"`
	To   int64  `json:"to"`
	Kind string `json:"kind"`
	Name string `json:"name"`
	File string `json:"file"`
	Line int    `json:"line"`
}

// output renders rows in the selected --format.
func output[T any](w io.Writer, rows []T, text func(io.Writer, []T)) error {
	if flagFormat == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	text(w, rows)
	return nil
}

func formatSymbolsText(w io.Writer, rows []symbolRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tFILE\tLINE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", r.ID, r.Name, r.Kind, r.File, r.Line)
	}
	tw.Flush()
}

func formatUsagesText(w io.Writer, rows []usageRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tFILE\tLINE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.Name, r.Kind, r.File, r.Line)
	}
	tw.Flush()
}
