// Package knowledge provides the search_knowledge_base tool.
package knowledge

import (
	"strings"

	"github.com/hupe1980/agentcrew/core"
	kb "github.com/hupe1980/agentcrew/knowledge"
	"github.com/hupe1980/agentcrew/tool"
)

// ToolName is the function name exposed to models.
const ToolName = "search_knowledge_base"

// Args of search_knowledge_base.
type Args struct {
	Query string `json:"query" description:"The query to search for."`
}

// Reference is one chunk returned to the model.
type Reference struct {
	Name     string            `json:"name"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"meta_data,omitempty"`
}

// New returns a tool searching s for up to limit chunks; limit <= 0 uses the
// searcher's default.
func New(s kb.Searcher, limit int) tool.Tool {
	return tool.NewTypedFunctionTool(ToolName,
		"Use this function to search the knowledge base for information about a query.",
		func(tc *core.ToolContext, a Args) (any, error) {
			query := strings.TrimSpace(a.Query)
			if query == "" {
				return nil, tool.NewToolError(ToolName, "query must not be empty", tool.CodeValidation)
			}

			docs, err := s.Search(tc.Context(), query, limit)
			if err != nil {
				return nil, err
			}
			tc.LogDebug("knowledge.search", "query", query, "results", len(docs))

			refs := make([]Reference, len(docs))
			for i, d := range docs {
				refs[i] = Reference{Name: d.Name, Content: d.Content, Metadata: d.Metadata}
			}
			return refs, nil
		})
}
