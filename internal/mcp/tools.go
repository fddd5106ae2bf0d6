package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// ToolDefinitions returns the MCP tools exposed by the recall adapter.
func ToolDefinitions() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool("recall_teach",
			mcp.WithDescription("Teach recall a new piece of knowledge for a person. "+
				"The memory is embedded and automatically linked to similar things they taught before."),
			mcp.WithString("phone", mcp.Description("Owner identity (phone number)"), mcp.Required()),
			mcp.WithString("unit", mcp.Description("Organizational unit the knowledge belongs to"), mcp.Required()),
			mcp.WithString("topic", mcp.Description("Short topic label"), mcp.Required()),
			mcp.WithString("content", mcp.Description("The knowledge itself"), mcp.Required()),
			mcp.WithString("emotion", mcp.Description("Optional emotion label")),
			mcp.WithNumber("priority", mcp.Description("Optional priority")),
		),
		mcp.NewTool("recall_search",
			mcp.WithDescription("Find the memories of a person in a unit that are most similar to a query."),
			mcp.WithString("phone", mcp.Description("Owner identity (phone number)"), mcp.Required()),
			mcp.WithString("unit", mcp.Description("Organizational unit"), mcp.Required()),
			mcp.WithString("query", mcp.Description("Natural language query"), mcp.Required()),
			mcp.WithNumber("topK", mcp.Description("Maximum results to return (default 3)")),
		),
		mcp.NewTool("recall_links",
			mcp.WithDescription("List the memories a memory links to, strongest first."),
			mcp.WithString("memoryId", mcp.Description("Source memory ID"), mcp.Required()),
		),
		mcp.NewTool("recall_link",
			mcp.WithDescription("Link two memories manually."),
			mcp.WithString("sourceId", mcp.Description("Source memory ID"), mcp.Required()),
			mcp.WithString("targetId", mcp.Description("Target memory ID"), mcp.Required()),
			mcp.WithString("kind", mcp.Description("Link kind (default \"reinforces\")")),
			mcp.WithNumber("weight", mcp.Description("Link weight 0-100 (default 1)")),
		),
	}
}
