// Package mcp provides a Model Context Protocol server for sgsync.
// It exposes pipeline operations as MCP tools that any MCP-capable agent
// can use.
package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer creates an MCP server with all sgsync tools registered.
// The repoRoot is the repository all tools operate in.
func NewServer(version string, repoRoot string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "sgsync",
		Version: version,
	}, nil)
	registerTools(server, repoRoot)
	return server
}

// boolPtr returns a pointer to a bool value.
func boolPtr(b bool) *bool {
	return &b
}

// readOnlyAnnotations returns annotations for read-only tools.
func readOnlyAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		ReadOnlyHint:   true,
		IdempotentHint: true,
		OpenWorldHint:  boolPtr(false),
	}
}

// aggregateAnnotations returns annotations for the aggregate tool, which
// writes the artifact and reaches out to the rule sources.
func aggregateAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		DestructiveHint: boolPtr(false),
		IdempotentHint:  true,
		OpenWorldHint:   boolPtr(true),
	}
}

// registerTools adds all sgsync tools to the server.
func registerTools(server *mcp.Server, repoRoot string) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "status",
		Description: "Show repository and pipeline state: repo name, branch, HEAD, rule source count, and whether the output artifact has uncommitted changes.",
		Annotations: readOnlyAnnotations(),
	}, handleStatus(repoRoot))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rules",
		Description: "Validate the rule file and list every source URL with its drop tokens.",
		Annotations: readOnlyAnnotations(),
	}, handleRules(repoRoot))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "aggregate",
		Description: "Download every rule source and merge them into the output artifact. Returns fetch and merge counts. Does not commit.",
		Annotations: aggregateAnnotations(),
	}, handleAggregate(repoRoot))
}
