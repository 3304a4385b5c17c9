// Package history provides the get_chat_history tool over a storage.Store.
package history

import (
	"errors"

	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/storage"
	"github.com/hupe1980/agentcrew/tool"
)

// ToolName is the function name exposed to models.
const ToolName = "get_chat_history"

// Args of get_chat_history.
type Args struct {
	NumChats *int `json:"num_chats" description:"Number of previous messages to return. Defaults to 3."`
}

// New returns a tool reading the history of the current run from store.
func New(store storage.Store) tool.Tool {
	return tool.NewTypedFunctionTool(ToolName,
		"Use this function to get the chat history between the user and assistant for the current run.",
		func(tc *core.ToolContext, a Args) (any, error) {
			n := 3
			if a.NumChats != nil {
				n = *a.NumChats
			}
			run, err := store.Get(tc.Context(), tc.RunID())
			if errors.Is(err, storage.ErrRunNotFound) {
				return []storage.Message{}, nil
			}
			if err != nil {
				return nil, err
			}
			return run.LastMessages(n), nil
		})
}
