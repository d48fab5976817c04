package server

import (
	"context"

	"mcp-geogebra-service/internal/models"
	"mcp-geogebra-service/pkg/errors"
)

// handleToolsList handles the tools/list method
func (s *MCPServer) handleToolsList(message *models.MCPMessage) *models.MCPMessage {
	result := models.MCPToolsListResult{
		Tools: s.toolManager.ListTools(),
	}

	return &models.MCPMessage{
		JSONRPC: models.JSONRPCVersion,
		ID:      message.ID,
		Result:  result,
	}
}

// handleToolsCall handles the tools/call method. Tool failures, unknown tools
// included, are reported inside the result envelope; only malformed requests
// become JSON-RPC errors.
func (s *MCPServer) handleToolsCall(ctx context.Context, message *models.MCPMessage) *models.MCPMessage {
	var params models.MCPToolsCallParams
	if err := decodeParams(message.Params, &params); err != nil {
		structuredErr := errors.NewValidationError(errors.ErrCodeInvalidParams,
			"Invalid parameters format", err)
		return s.createStructuredErrorResponse(message.ID, structuredErr)
	}

	if params.Name == "" {
		structuredErr := errors.NewValidationError(errors.ErrCodeInvalidParams,
			"Missing required parameter: name", nil)
		return s.createStructuredErrorResponse(message.ID, structuredErr)
	}

	result := s.toolManager.ExecuteTool(ctx, params.Name, params.Arguments)

	return &models.MCPMessage{
		JSONRPC: models.JSONRPCVersion,
		ID:      message.ID,
		Result:  result,
	}
}
