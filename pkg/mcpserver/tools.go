package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/forgewalk/forge/internal/schemaload"
	"github.com/forgewalk/forge/pkg/forge"
)

func (s *Server) handleWalk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	treeObj := mcp.ParseStringMap(req, "tree", nil)
	if treeObj == nil {
		return mcp.NewToolResultError("tree is required"), nil
	}
	tree, parseErr := parseTree(treeObj)
	if parseErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid tree: %v", parseErr)), nil
	}

	startKey := req.GetString("start_key", tree.RootKey)

	status, walkErr := s.manager.StartOrResume(ctx, sessionID, tree, startKey)
	if walkErr != nil {
		return marshalResult(map[string]any{
			"session_id": sessionID,
			"status":     string(status),
			"error":      walkErr.Error(),
		})
	}

	return marshalResult(map[string]any{
		"session_id": sessionID,
		"status":     string(status),
	})
}

func (s *Server) handleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	sess, ok := s.manager.Get(sessionID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown session %q", sessionID)), nil
	}

	result := map[string]any{
		"session_id": sessionID,
		"status":     string(sess.Status()),
	}
	if node, ok, _ := sess.GetCurrentTreeNode(ctx); ok {
		result["current_node"] = node
	}
	if actionKey, ok, _ := sess.GetLastTreeAction(ctx); ok {
		result["last_action"] = actionKey
	}
	if resp, ok, _ := sess.GetLastActionResponse(ctx); ok {
		result["last_response"] = resp
	}

	return marshalResult(result)
}

func (s *Server) handleCancel(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	if !s.manager.Cancel(sessionID) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown session %q", sessionID)), nil
	}

	return marshalResult(map[string]any{"session_id": sessionID, "cancelled": true})
}

// parseTree converts the loosely-typed object an MCP client sends for
// the "tree" parameter into a forge.ForgeTree, by routing it through
// the same YAML-shaped conversion schemaload uses for files: JSON is a
// syntactic subset of the YAML schemaload parses, so round-tripping
// through JSON encoding reuses one conversion path instead of
// duplicating the action-order-preserving logic here.
func parseTree(treeObj map[string]any) (forge.ForgeTree, error) {
	data, err := json.Marshal(treeObj)
	if err != nil {
		return forge.ForgeTree{}, err
	}
	return schemaload.LoadBytes(data)
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
