package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/pegtool/pegc/compiler"
	"github.com/pegtool/pegc/internal/yamlgrammar"
)

var compileFlags = struct {
	output  *string
	pkg     *string
	types   *bool
	verbose *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "compile <grammar file path>",
		Short:   "Compile a grammar into a standalone Go parser",
		Example: `  pegc compile json.yaml -o json_parser.go --package json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runCompile,
	}
	compileFlags.output = cmd.Flags().StringP("output", "o", "", "output file path (default stdout)")
	compileFlags.pkg = cmd.Flags().String("package", "parser", "package name for the generated file")
	compileFlags.types = cmd.Flags().Bool("types", false, "annotate each compiled rule with a doc comment")
	compileFlags.verbose = cmd.Flags().BoolP("verbose", "v", false, "log each rule as it's compiled")
	rootCmd.AddCommand(cmd)
}

// stdLogger adapts the standard library's *log.Logger to
// compiler.Logger, since no example repo imports a structured logging
// library directly for this kind of one-line compile trace.
type stdLogger struct{ l *log.Logger }

func (s stdLogger) Logf(format string, args ...any) { s.l.Printf(format, args...) }

func runCompile(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("cannot read grammar file %s: %w", args[0], err)
	}

	rules, err := yamlgrammar.Decode(src)
	if err != nil {
		return err
	}

	opts := compiler.Options{
		PackageName: *compileFlags.pkg,
		Types:       *compileFlags.types,
	}
	if *compileFlags.verbose {
		opts.Logger = stdLogger{log.New(os.Stderr, "pegc: ", 0)}
	}

	out, err := compiler.Compile(rules, opts)
	if err != nil {
		return err
	}

	if *compileFlags.output == "" {
		fmt.Fprint(os.Stdout, out)
		return nil
	}
	return os.WriteFile(*compileFlags.output, []byte(out), 0o644)
}
