package commands

import (
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/ember/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve route inspection tools over MCP (stdio)",
	Long: `Start a Model Context Protocol server on stdin/stdout exposing the
ember_list_routes, ember_resolve_route, ember_scan_warnings and ember_info
tools for the project directory.

Example MCP client configuration:
  {"command": "ember", "args": ["mcp", "--dir", "/path/to/project"]}`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := mcp.NewServer(projectDir).ServeStdio(); err != nil {
			exitWithError(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
