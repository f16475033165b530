package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/graft"
)

var flagKind string

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List symbols in the codebase",
	Args:  cobra.NoArgs,
	RunE:  runLs,
}

func init() {
	lsCmd.Flags().StringVar(&flagKind, "kind", "", "filter by kind: function|class|variable|type_alias|enum")
}

func runLs(cmd *cobra.Command, args []string) error {
	cb, err := loadCodebase(cmd)
	if err != nil {
		return err
	}
	var rows []symbolRow
	var walk func(id graft.EntityID)
	walk = func(id graft.EntityID) {
		s, err := cb.SymbolByID(id)
		if err != nil {
			return
		}
		if flagKind == "" || string(s.Kind) == flagKind {
			rows = append(rows, newSymbolRow(cb, s))
		}
		for _, mID := range s.Members {
			walk(mID)
		}
	}
	for _, f := range cb.Files() {
		for _, id := range f.Symbols {
			walk(id)
		}
	}
	return output(os.Stdout, rows, formatSymbolsText)
}

var usagesCmd = &cobra.Command{
	Use:   "usages <name>",
	Short: "Show every usage of a symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsages,
}

func runUsages(cmd *cobra.Command, args []string) error {
	cb, err := loadCodebase(cmd)
	if err != nil {
		return err
	}
	sym, err := cb.Symbol(args[0])
	if err != nil {
		return err
	}
	edges, err := cb.UsagesOf(sym.ID)
	if err != nil {
		return err
	}
	return output(os.Stdout, usageRows(cb, edges), formatUsagesText)
}

var depsCmd = &cobra.Command{
	Use:   "deps <name>",
	Short: "Show what a symbol depends on",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeps,
}

func runDeps(cmd *cobra.Command, args []string) error {
	cb, err := loadCodebase(cmd)
	if err != nil {
		return err
	}
	sym, err := cb.Symbol(args[0])
	if err != nil {
		return err
	}
	edges, err := cb.DependenciesOf(sym.ID)
	if err != nil {
		return err
	}
	return output(os.Stdout, usageRows(cb, edges), formatUsagesText)
}

func usageRows(cb *graft.Codebase, edges []graft.Usage) []usageRow {
	rows := make([]usageRow, 0, len(edges))
	for _, u := range edges {
		row := usageRow{
			From: int64(u.From),
			To:   int64(u.To),
			Kind: string(u.Kind),
			Name: u.Name,
		}
		if f, err := cb.FileOf(u.From); err == nil {
			row.File = f.Path
			row.Line = lineOf(f.Source, u.Span.Start)
		}
		rows = append(rows, row)
	}
	return rows
}

// lineOf converts a byte offset to a 1-based line number.
func lineOf(source string, offset int) int {
	line := 1
	for i := 0; i < offset && i < len(source); i++ {
		if source[i] == '\n' {
			line++
		}
	}
	return line
}

func newSymbolRow(cb *graft.Codebase, s *graft.Symbol) symbolRow {
	row := symbolRow{
		ID:   int64(s.ID),
		Name: s.Name,
		Kind: string(s.Kind),
	}
	if f, err := cb.FileOf(s.ID); err == nil {
		row.File = f.Path
		row.Line = lineOf(f.Source, s.NameSpan.Start)
	}
	return row
}
