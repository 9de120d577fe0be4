package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ideawell/cofounderd/internal/insights"
	"github.com/ideawell/cofounderd/internal/memory"
	"github.com/ideawell/cofounderd/internal/vectorstore"
)

// MCPSearcher abstracts semantic memory search for the MCP layer.
type MCPSearcher interface {
	Search(ctx context.Context, query, projectID string, limit int) ([]vectorstore.Candidate, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Searcher MCPSearcher
	Analyzer *insights.Analyzer
	Writer   *memory.Writer
}

// NewMCPServer creates an MCP server exposing the project memory tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"cofounderd",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("cofounderd — startup co-founder assistant with per-project conversation memory and market research."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_memory",
			mcp.WithDescription("Semantically search project memory and return relevant prior conversation records."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithString("project_id", mcp.Description("Limit results to one project")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
		),
		mcpSearchMemory(deps),
	)

	s.AddTool(
		mcp.NewTool("analyze_market",
			mcp.WithDescription("Analyze the market for a startup idea using the research dataset. Stores the analysis in project memory when project_id is given."),
			mcp.WithString("idea", mcp.Description("The startup idea to analyze"), mcp.Required()),
			mcp.WithString("project_id", mcp.Description("Project to attach the analysis to")),
		),
		mcpAnalyzeMarket(deps),
	)

	s.AddTool(
		mcp.NewTool("record_note",
			mcp.WithDescription("Store a note into project memory for later retrieval."),
			mcp.WithString("content", mcp.Description("The note text"), mcp.Required()),
			mcp.WithString("project_id", mcp.Description("Project the note belongs to"), mcp.Required()),
		),
		mcpRecordNote(deps),
	)

	return s
}

func mcpSearchMemory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		projectID := req.GetString("project_id", "")
		limit := req.GetInt("limit", 5)
		if limit <= 0 {
			limit = 5
		}
		if limit > 50 {
			limit = 50
		}

		cands, err := deps.Searcher.Search(ctx, query, projectID, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}

		if len(cands) == 0 {
			return mcpText("[]"), nil
		}

		type result struct {
			ID        string  `json:"id"`
			ProjectID string  `json:"project_id"`
			Type      string  `json:"type"`
			Content   string  `json:"content"`
			Score     float32 `json:"score"`
			CreatedAt string  `json:"created_at,omitempty"`
		}

		results := make([]result, len(cands))
		for i, c := range cands {
			results[i] = result{
				ID:        c.ID,
				ProjectID: c.Metadata.ProjectID,
				Type:      c.Metadata.Type,
				Content:   c.Content,
				Score:     c.Score,
			}
			if !c.Metadata.CreatedAt.IsZero() {
				results[i].CreatedAt = c.Metadata.CreatedAt.UTC().Format(time.RFC3339)
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAnalyzeMarket(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		idea, err := req.RequireString("idea")
		if err != nil {
			return mcpError("idea is required"), nil
		}
		projectID := req.GetString("project_id", "")

		ins, err := deps.Analyzer.Analyze(ctx, idea, projectID)
		if err != nil {
			return mcpError(fmt.Sprintf("analysis failed: %v", err)), nil
		}

		b, err := json.Marshal(ins)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal insights: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpRecordNote(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}
		projectID, err := req.RequireString("project_id")
		if err != nil {
			return mcpError("project_id is required"), nil
		}

		rec, err := deps.Writer.Record(ctx, projectID, vectorstore.TypeUserMessage, content, map[string]string{"source": "mcp"})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to record note: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Stored memory record %s", rec.ID)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
