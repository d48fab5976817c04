package tools

import (
	"encoding/json"

	"mcp-geogebra-service/internal/models"
)

// successResult wraps payload in the uniform envelope with success=true
func successResult(payload map[string]interface{}) *models.MCPToolsCallResult {
	body := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	return envelope(body, false)
}

// errorResult is the uniform envelope for every failure
func errorResult(message string) *models.MCPToolsCallResult {
	return envelope(map[string]interface{}{
		"success": false,
		"error":   message,
	}, true)
}

func envelope(body map[string]interface{}, isError bool) *models.MCPToolsCallResult {
	text, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		// Only reachable with unencodable engine data
		text, _ = json.MarshalIndent(map[string]interface{}{
			"success": false,
			"error":   "failed to encode result: " + err.Error(),
		}, "", "  ")
		isError = true
	}
	return &models.MCPToolsCallResult{
		Content: []models.MCPToolContent{{Type: "text", Text: string(text)}},
		IsError: isError,
	}
}
