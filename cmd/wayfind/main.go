package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wayfind",
		Short: "Declarative navigation engine tooling",
		Long: `Wayfind resolves symbolic navigation targets against a declarative,
hierarchical route table and drives guard-driven navigation transitions.

This CLI works with route declaration files (JSON):

  • routes   - print the compiled route table in matching priority order
  • resolve  - match a path or named target and print the result
  • inspect  - serve the table and live transitions over HTTP`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		routesCmd(),
		resolveCmd(),
		inspectCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}
