package dispatch

import (
	"encoding/json"

	"draftdesk/engine/internal/llm"
)

// SimplifiedTools is the current tool set exposed to the model.
var SimplifiedTools = []llm.Tool{
	{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "read",
			Description: "Read the full content of the active document.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{},"required":[]}`),
		},
	},
	{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "write",
			Description: "Append text to the end of the active document. Returns the updated content.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"text": {"type": "string", "description": "Text to append"}
				},
				"required": ["text"]
			}`),
		},
	},
	{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "replace",
			Description: "Replace the first occurrence of target text in the active document. Returns the updated content.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"target": {"type": "string", "description": "Exact text to find"},
					"replacement": {"type": "string", "description": "Text to substitute for the first occurrence"}
				},
				"required": ["target", "replacement"]
			}`),
		},
	},
	{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "grep",
			Description: "Search the active document line by line with a regular expression. Returns matches with 1-based line and column positions.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"pattern": {"type": "string", "description": "Regular expression to search for"},
					"case_sensitive": {"type": "boolean", "description": "Match case exactly (default false)"}
				},
				"required": ["pattern"]
			}`),
		},
	},
	{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "ls",
			Description: "List files and directories in the open workspace folder.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{},"required":[]}`),
		},
	},
	{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "read_workspace_file",
			Description: "Read a file from the open workspace folder by relative path.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"path": {"type": "string", "description": "Path relative to the workspace root"}
				},
				"required": ["path"]
			}`),
		},
	},
}

// LegacyTools mirrors the older tool names and result shapes so existing
// callers keep working while the simplified set is rolled out.
var LegacyTools = []llm.Tool{
	{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "read_file",
			Description: "Read the active document. Returns {content}.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{},"required":[]}`),
		},
	},
	{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "write_append",
			Description: "Append text to the active document. Returns {success, length}.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"text": {"type": "string", "description": "Text to append"}
				},
				"required": ["text"]
			}`),
		},
	},
	{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "find_replace",
			Description: "Replace the first occurrence of text in the active document. Returns {success, replacements}.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"find": {"type": "string", "description": "Exact text to find"},
					"replace": {"type": "string", "description": "Replacement text"}
				},
				"required": ["find", "replace"]
			}`),
		},
	},
}

// AvailableTools returns the enumerable tool table for one of the two sets.
func AvailableTools(simplified bool) []llm.Tool {
	if simplified {
		return append([]llm.Tool(nil), SimplifiedTools...)
	}
	return append([]llm.Tool(nil), LegacyTools...)
}
