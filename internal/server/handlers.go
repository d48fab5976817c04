package server

import (
	"encoding/json"

	"mcp-geogebra-service/internal/models"
)

const serverInstructions = "Build GeoGebra constructions step by step. Create points first, " +
	"then reference them by name from lines, circles and polygons. Every tool " +
	"returns a JSON object with success and either the executed command or an error."

// handleInitialize handles the MCP initialize method
func (s *MCPServer) handleInitialize(message *models.MCPMessage) *models.MCPMessage {
	var params models.MCPInitializeParams
	if err := decodeParams(message.Params, &params); err == nil && params.ClientInfo.Name != "" {
		s.logger.WithContext("client", params.ClientInfo.Name).
			WithContext("client_version", params.ClientInfo.Version).
			WithContext("protocol_version", params.ProtocolVersion).
			Info("Client connected")
	}

	result := models.MCPInitializeResult{
		ProtocolVersion: models.ProtocolVersion,
		Capabilities:    s.capabilities,
		ServerInfo:      s.serverInfo,
		Instructions:    serverInstructions,
	}

	return &models.MCPMessage{
		JSONRPC: models.JSONRPCVersion,
		ID:      message.ID,
		Result:  result,
	}
}

// handleInitialized handles the notifications/initialized method
func (s *MCPServer) handleInitialized(message *models.MCPMessage) *models.MCPMessage {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	s.logger.Info("MCP server initialized successfully")
	return nil // No response for notifications
}

// handlePing answers liveness checks with an empty result
func (s *MCPServer) handlePing(message *models.MCPMessage) *models.MCPMessage {
	if message.IsNotification() {
		return nil
	}
	return &models.MCPMessage{
		JSONRPC: models.JSONRPCVersion,
		ID:      message.ID,
		Result:  map[string]interface{}{},
	}
}

// decodeParams converts the loosely typed params into out
func decodeParams(params interface{}, out interface{}) error {
	if params == nil {
		return nil
	}
	paramsBytes, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(paramsBytes, out)
}
