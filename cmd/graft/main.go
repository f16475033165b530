package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/graft"
)

var (
	flagRoot      string
	flagFormat    string
	flagLanguages string
	flagSerial    bool
	flagCache     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "graft",
	Short:         "Query and transform a codebase as a symbol graph",
	Long:          "Graft parses a repository into a cross-file symbol graph and applies consistency-preserving transformations: rename, move, remove, scripted codemods.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", ".", "codebase root directory")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagLanguages, "languages", "", "comma-separated language filter (e.g. python,typescript)")
	rootCmd.PersistentFlags().BoolVar(&flagSerial, "serial", false, "disable parallel parsing")
	rootCmd.PersistentFlags().StringVar(&flagCache, "cache", "", "snapshot cache path (default: no cache)")

	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(usagesCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(runCmd)
}

func validateFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	}
	return fmt.Errorf("invalid format %q (expected json or text)", format)
}

// loadCodebase builds a Codebase from the persistent flags.
func loadCodebase(cmd *cobra.Command) (*graft.Codebase, error) {
	var opts []graft.Option
	if flagLanguages != "" {
		opts = append(opts, graft.WithLanguages(strings.Split(flagLanguages, ",")...))
	}
	if flagSerial {
		opts = append(opts, graft.WithParallel(false))
	}
	if flagCache != "" {
		opts = append(opts, graft.WithCache(flagCache))
	}
	cb, err := graft.Load(cmd.Context(), flagRoot, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", flagRoot, err)
	}
	return cb, nil
}
