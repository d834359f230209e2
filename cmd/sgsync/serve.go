// Package main provides the entry point for the sgsync CLI.
package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/sgmodkit/sgsync/internal/git"
	sgsyncmcp "github.com/sgmodkit/sgsync/internal/mcp"
	"github.com/sgmodkit/sgsync/internal/output"
)

// newServeCmd creates the serve command for running as an MCP server.
func newServeCmd() *cobra.Command {
	var repoFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run as MCP server (stdio transport)",
		Long: `Run sgsync as a Model Context Protocol (MCP) server over stdio.

This exposes the aggregation pipeline as MCP tools that any MCP-capable
agent environment can use (Claude Code, Cursor, Windsurf, Gemini CLI, etc).

Configure in your agent's MCP settings:
  {
    "mcpServers": {
      "sgsync": {
        "command": "sgsync",
        "args": ["serve"]
      }
    }
  }

Available tools: status, rules, aggregate`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := &git.Client{Dir: repoFlag}
			root, err := client.RepoRoot()
			if err != nil {
				return output.NewSystemError("not in a git repository: " + repoFlag)
			}
			server := sgsyncmcp.NewServer(buildVersion(), root)
			return server.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}

	cmd.Flags().StringVar(&repoFlag, "repo", ".", "Repository root to operate in")

	return cmd
}
