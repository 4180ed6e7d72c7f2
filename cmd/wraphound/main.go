// Package main provides the entry point for the wraphound CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/wraphound/cmd/wraphound/commands"
	"github.com/Sumatoshi-tech/wraphound/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "wraphound",
		Short: "Wraphound - wrapper function detector for C/C++ codebases",
		Long: `Wraphound scans the translation units of a compilation database for
functions that wrap lower-level primitives, and ranks the findings
against a catalog of known library and system calls.

Commands:
  detect    Scan a compilation database and emit wrapper candidates
  match     Rank previously detected candidates against a catalog
  run       Detect and match in one pass
  plot      Render an HTML score plot from a ranked matches file
  mcp       Start MCP server for AI agent integration`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewMatchCommand())
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewPlotCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "wraphound %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
