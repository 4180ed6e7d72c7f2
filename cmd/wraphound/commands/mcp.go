package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/wraphound/internal/mcp"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes wraphound capabilities as tools that AI agents
can discover and invoke:
  - wraphound_detect: Detect wrapper functions in an inline C/C++ snippet
  - wraphound_scan: Scan a compilation database and rank wrappers against a catalog`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			srv := mcp.NewServer(mcp.ServerDeps{Logger: newLogger(debug)})

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}
