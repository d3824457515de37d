package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pegtool/pegc/compiler"
	"github.com/pegtool/pegc/internal/yamlgrammar"
	"github.com/pegtool/pegc/runtime"
)

var parseFlags = struct {
	source *string
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "parse <grammar file path>",
		Short:   "Parse a text stream against a grammar",
		Example: `  cat input.json | pegc parse json.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE:    runParse,
	}
	parseFlags.source = cmd.Flags().StringP("source", "s", "", "input file path (default stdin)")
	rootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	grammarSrc, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("cannot read grammar file %s: %w", args[0], err)
	}

	rules, err := yamlgrammar.Decode(grammarSrc)
	if err != nil {
		return err
	}

	built, start, err := compiler.Build(rules)
	if err != nil {
		return fmt.Errorf("grammar cannot be interpreted directly (functional handlers need compile): %w", err)
	}

	input, filename, err := readInput(*parseFlags.source)
	if err != nil {
		return err
	}

	val, err := runtime.ParseRules(built, start, input, runtime.Options{Filename: filename})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%#v\n", val)
	return nil
}

func readInput(path string) (input, filename string, err error) {
	if path == "" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("cannot read stdin: %w", err)
		}
		return string(b), "stdin", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("cannot read input file %s: %w", path, err)
	}
	return string(b), path, nil
}
