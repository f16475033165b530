package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jward/graft"
	"github.com/jward/graft/internal/script"
)

var (
	flagWrite    bool
	flagStrategy string
	flagWithDeps bool
	flagMessage  string
	flagBranch   string
)

var renameCmd = &cobra.Command{
	Use:   "rename <name> <new-name>",
	Short: "Rename a symbol and every usage of it",
	Args:  cobra.ExactArgs(2),
	RunE:  runRename,
}

var moveCmd = &cobra.Command{
	Use:   "move <name> <target-file>",
	Short: "Move a symbol to another file, repairing importers",
	Args:  cobra.ExactArgs(2),
	RunE:  runMove,
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show pending differences between the graph and disk",
	Args:  cobra.NoArgs,
	RunE:  runDiff,
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Write committed changes to disk and record a git commit",
	Args:  cobra.NoArgs,
	RunE:  runApply,
}

var runCmd = &cobra.Command{
	Use:   "run <script.risor>",
	Short: "Run a Risor codemod script against the codebase",
	Args:  cobra.ExactArgs(1),
	RunE:  runScript,
}

func init() {
	renameCmd.Flags().BoolVar(&flagWrite, "write", false, "write the result to disk instead of printing the diff")
	moveCmd.Flags().BoolVar(&flagWrite, "write", false, "write the result to disk instead of printing the diff")
	moveCmd.Flags().StringVar(&flagStrategy, "strategy", string(graft.AddBackEdge), "importer repair strategy: add_back_edge|update_all_imports")
	moveCmd.Flags().BoolVar(&flagWithDeps, "with-deps", false, "carry the symbol's source-file private dependencies along")
	applyCmd.Flags().StringVarP(&flagMessage, "message", "m", "graft: apply transformations", "commit message")
	applyCmd.Flags().StringVar(&flagBranch, "branch", "", "create and check out this branch before committing")
	runCmd.Flags().BoolVar(&flagWrite, "write", false, "write script results to disk")
}

func runRename(cmd *cobra.Command, args []string) error {
	cb, err := loadCodebase(cmd)
	if err != nil {
		return err
	}
	sym, err := cb.Symbol(args[0])
	if err != nil {
		return err
	}
	if err := cb.Rename(sym.ID, args[1]); err != nil {
		return err
	}
	return finish(cmd, cb)
}

func runMove(cmd *cobra.Command, args []string) error {
	cb, err := loadCodebase(cmd)
	if err != nil {
		return err
	}
	sym, err := cb.Symbol(args[0])
	if err != nil {
		return err
	}
	opts := graft.MoveOptions{
		IncludeDependencies: flagWithDeps,
		Strategy:            graft.MoveStrategy(flagStrategy),
	}
	if err := cb.MoveSymbol(sym.ID, args[1], opts); err != nil {
		return err
	}
	return finish(cmd, cb)
}

// finish commits the queued mutations and either prints the diff or
// writes the result back to disk.
func finish(cmd *cobra.Command, cb *graft.Codebase) error {
	if err := cb.Commit(cmd.Context()); err != nil {
		return err
	}
	if flagWrite {
		return cb.WriteBack()
	}
	return printDiff(cb)
}

func runDiff(cmd *cobra.Command, args []string) error {
	cb, err := loadCodebase(cmd)
	if err != nil {
		return err
	}
	return printDiff(cb)
}

func printDiff(cb *graft.Codebase) error {
	text, err := cb.Diff()
	if err != nil {
		return err
	}
	writeColoredDiff(os.Stdout, text)
	return nil
}

func runApply(cmd *cobra.Command, args []string) error {
	cb, err := loadCodebase(cmd)
	if err != nil {
		return err
	}
	if flagBranch != "" {
		if err := cb.CreateBranch(flagBranch); err != nil {
			return err
		}
	}
	hash, err := cb.CommitToRepo(flagMessage)
	if err != nil {
		return err
	}
	if hash == "" {
		fmt.Println("nothing to apply")
		return nil
	}
	fmt.Printf("committed %s\n", hash)
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	cb, err := loadCodebase(cmd)
	if err != nil {
		return err
	}
	rt := script.New(cb, os.Stdout)
	if err := rt.RunScript(cmd.Context(), args[0]); err != nil {
		return err
	}
	if flagWrite {
		return cb.WriteBack()
	}
	return nil
}

// writeColoredDiff prints a unified diff with added lines in green and
// removed lines in red when stdout is a terminal.
func writeColoredDiff(w *os.File, text string) {
	add := color.New(color.FgGreen)
	del := color.New(color.FgRed)
	head := color.New(color.Bold)
	start := 0
	for start < len(text) {
		end := start
		for end < len(text) && text[end] != '\n' {
			end++
		}
		if end < len(text) {
			end++
		}
		line := text[start:end]
		switch {
		case len(line) >= 3 && (line[:3] == "+++" || line[:3] == "---"):
			head.Fprint(w, line)
		case len(line) >= 1 && line[0] == '+':
			add.Fprint(w, line)
		case len(line) >= 1 && line[0] == '-':
			del.Fprint(w, line)
		default:
			fmt.Fprint(w, line)
		}
		start = end
	}
}
