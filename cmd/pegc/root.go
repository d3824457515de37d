package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pegc",
	Short: "Compile and run parsing expression grammars",
	Long: `pegc provides two features:
- Compiles a YAML-described grammar into a standalone Go parser.
- Parses a text stream directly against a grammar, for quick iteration
  without going through the compile step.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() error {
	return rootCmd.Execute()
}
