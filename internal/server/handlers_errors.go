package server

import (
	"context"
	"runtime"
	"time"

	"mcp-geogebra-service/internal/models"
	"mcp-geogebra-service/pkg/errors"
)

// handlePerformanceMetrics handles requests for server performance metrics
func (s *MCPServer) handlePerformanceMetrics(ctx context.Context, message *models.MCPMessage) *models.MCPMessage {
	s.mu.RLock()
	initialized := s.initialized
	s.mu.RUnlock()

	serverMetrics := map[string]interface{}{
		"server_info":   s.serverInfo,
		"initialized":   initialized,
		"engine_mode":   s.engineMode,
		"tool_metrics":  s.toolManager.GetPerformanceMetrics(),
		"logging_stats": s.loggingManager.GetStats(),
		"goroutines":    runtime.NumGoroutine(),
		"memory_stats":  getMemoryStats(),
		"timestamp":     time.Now().Format(time.RFC3339),
	}

	if state, err := s.engine.GetState(ctx); err != nil {
		serverMetrics["engine_state"] = map[string]interface{}{"error": err.Error()}
	} else {
		serverMetrics["engine_state"] = state
	}

	if s.breaker != nil {
		serverMetrics["circuit_breaker"] = s.breaker.Stats()
	}

	return &models.MCPMessage{
		JSONRPC: models.JSONRPCVersion,
		ID:      message.ID,
		Result:  serverMetrics,
	}
}

// createErrorResponse creates an MCP error response
func (s *MCPServer) createErrorResponse(id interface{}, code int, message string) *models.MCPMessage {
	return &models.MCPMessage{
		JSONRPC: models.JSONRPCVersion,
		ID:      id,
		Error: &models.MCPError{
			Code:    code,
			Message: message,
		},
	}
}

// createStructuredErrorResponse creates an MCP error response from a structured error
func (s *MCPServer) createStructuredErrorResponse(id interface{}, structuredErr *errors.StructuredError) *models.MCPMessage {
	return &models.MCPMessage{
		JSONRPC: models.JSONRPCVersion,
		ID:      id,
		Error:   structuredErr.ToMCPError(),
	}
}

// getMemoryStats returns current memory statistics
func getMemoryStats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"alloc_bytes":       m.Alloc,
		"total_alloc_bytes": m.TotalAlloc,
		"sys_bytes":         m.Sys,
		"num_gc":            m.NumGC,
		"gc_cpu_fraction":   m.GCCPUFraction,
	}
}
