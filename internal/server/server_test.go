package server

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"mcp-geogebra-service/internal/models"
	"mcp-geogebra-service/pkg/config"
	"mcp-geogebra-service/pkg/engine"
	"mcp-geogebra-service/pkg/errors"
)

func TestNewMCPServer(t *testing.T) {
	server, _ := newTestServer(t, nil)

	if server.serverInfo.Name != "mcp-geogebra-service" {
		t.Errorf("Expected server name 'mcp-geogebra-service', got '%s'", server.serverInfo.Name)
	}

	if server.serverInfo.Version != "1.0.0" {
		t.Errorf("Expected server version '1.0.0', got '%s'", server.serverInfo.Version)
	}

	if server.initialized {
		t.Error("Expected server to be uninitialized")
	}

	if server.capabilities.Tools == nil {
		t.Error("Expected tools capabilities to be set")
	}

	if _, ok := server.engine.(*engine.BreakerEngine); !ok {
		t.Errorf("Expected engine to be wrapped by the circuit breaker, got %T", server.engine)
	}

	if server.breaker == nil {
		t.Error("Expected circuit breaker to be created")
	}
}

func TestNewMCPServerWithoutBreaker(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.Breaker.Enabled = false

	server, _ := newTestServer(t, cfg)

	if server.breaker != nil {
		t.Error("Expected no circuit breaker when disabled")
	}
	if _, ok := server.engine.(*engine.MemoryEngine); !ok {
		t.Errorf("Expected bare memory engine, got %T", server.engine)
	}
}

func TestHandleInitialize(t *testing.T) {
	server, _ := newTestServer(t, nil)

	initMessage := &models.MCPMessage{
		JSONRPC: "2.0",
		ID:      "test-init",
		Method:  "initialize",
		Params: models.MCPInitializeParams{
			ProtocolVersion: "2024-11-05",
			Capabilities:    map[string]interface{}{},
			ClientInfo: models.MCPClientInfo{
				Name:    "test-client",
				Version: "1.0.0",
			},
		},
	}

	response := server.handleInitialize(initMessage)

	if response == nil {
		t.Fatal("handleInitialize() returned nil")
	}

	if response.JSONRPC != "2.0" {
		t.Errorf("Expected JSONRPC '2.0', got '%s'", response.JSONRPC)
	}

	if response.ID != "test-init" {
		t.Errorf("Expected ID 'test-init', got '%v'", response.ID)
	}

	result, ok := response.Result.(models.MCPInitializeResult)
	if !ok {
		t.Fatal("Expected result to be MCPInitializeResult")
	}

	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("Expected protocol version '2024-11-05', got '%s'", result.ProtocolVersion)
	}

	if result.ServerInfo.Name != "mcp-geogebra-service" {
		t.Errorf("Expected server name 'mcp-geogebra-service', got '%s'", result.ServerInfo.Name)
	}

	if result.Instructions == "" {
		t.Error("Expected instructions to be set")
	}
}

func TestHandleInitialized(t *testing.T) {
	server, _ := newTestServer(t, nil)

	response := server.handleMessage(context.Background(), &models.MCPMessage{
		JSONRPC: "2.0",
		Method:  "notifications/initialized",
	})

	if response != nil {
		t.Error("Expected no response for notification")
	}

	if !server.initialized {
		t.Error("Expected server to be initialized after handling initialized notification")
	}
}

func TestHandlePing(t *testing.T) {
	server, _ := newTestServer(t, nil)

	response := server.handleMessage(context.Background(), &models.MCPMessage{
		JSONRPC: "2.0",
		ID:      7,
		Method:  "ping",
	})

	if response == nil || response.Error != nil {
		t.Fatalf("Expected ping result, got %+v", response)
	}
	if result, ok := response.Result.(map[string]interface{}); !ok || len(result) != 0 {
		t.Errorf("Expected empty result, got %v", response.Result)
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	server, _ := newTestServer(t, nil)

	response := server.handleMessage(context.Background(), &models.MCPMessage{
		JSONRPC: "2.0",
		ID:      "test-unknown",
		Method:  "resources/list",
	})

	if response == nil {
		t.Fatal("handleMessage() returned nil for unknown method")
	}

	if response.Error == nil {
		t.Fatal("Expected error for unknown method")
	}

	if response.Error.Code != -32601 {
		t.Errorf("Expected error code -32601 (Method not found), got %d", response.Error.Code)
	}

	t.Run("unknown notification gets no response", func(t *testing.T) {
		response := server.handleMessage(context.Background(), &models.MCPMessage{
			JSONRPC: "2.0",
			Method:  "notifications/cancelled",
		})
		if response != nil {
			t.Errorf("Expected no response, got %+v", response)
		}
	})
}

func TestHandleInvalidVersion(t *testing.T) {
	server, _ := newTestServer(t, nil)

	response := server.handleMessage(context.Background(), &models.MCPMessage{
		JSONRPC: "1.0",
		ID:      1,
		Method:  "tools/list",
	})

	if response == nil || response.Error == nil {
		t.Fatal("Expected invalid request error")
	}
	if response.Error.Code != models.ErrorCodeInvalidRequest {
		t.Errorf("Expected error code %d, got %d", models.ErrorCodeInvalidRequest, response.Error.Code)
	}
}

func TestHandleToolsList(t *testing.T) {
	server, _ := newTestServer(t, nil)

	response := server.handleMessage(context.Background(), &models.MCPMessage{
		JSONRPC: "2.0",
		ID:      "list",
		Method:  "tools/list",
	})

	result, ok := response.Result.(models.MCPToolsListResult)
	if !ok {
		t.Fatalf("Expected MCPToolsListResult, got %T", response.Result)
	}

	if len(result.Tools) != 9 {
		t.Fatalf("Expected 9 tools, got %d", len(result.Tools))
	}

	if result.Tools[0].Name != "geogebra_create_point" {
		t.Errorf("Expected first tool geogebra_create_point, got %s", result.Tools[0].Name)
	}
}

func TestHandleToolsCall(t *testing.T) {
	server, _ := newTestServer(t, nil)

	t.Run("successful construction", func(t *testing.T) {
		payload, isError := callPayload(t, server, "geogebra_create_point",
			map[string]interface{}{"name": "A", "x": 1, "y": 2})
		if isError {
			t.Fatalf("Expected success, got %v", payload)
		}
		if payload["command"] != "A = (1, 2)" {
			t.Errorf("Expected command 'A = (1, 2)', got %v", payload["command"])
		}
	})

	t.Run("validation failure stays in the envelope", func(t *testing.T) {
		payload, isError := callPayload(t, server, "geogebra_create_circle",
			map[string]interface{}{"name": "c1", "center": "A", "radius": -5})
		if !isError {
			t.Fatal("Expected isError")
		}
		if !strings.Contains(payload["error"].(string), "Invalid radius") {
			t.Errorf("Expected radius error, got %v", payload["error"])
		}
	})

	t.Run("unknown tool stays in the envelope", func(t *testing.T) {
		payload, isError := callPayload(t, server, "geogebra_create_ellipse", map[string]interface{}{})
		if !isError {
			t.Fatal("Expected isError")
		}
		if payload["error"] != "Unknown tool: geogebra_create_ellipse" {
			t.Errorf("Expected unknown tool error, got %v", payload["error"])
		}
	})

	t.Run("missing tool name is a protocol error", func(t *testing.T) {
		response := server.handleMessage(context.Background(), toolsCall(3, "", nil))
		if response.Error == nil {
			t.Fatal("Expected JSON-RPC error")
		}
		if response.Error.Code != models.ErrorCodeInvalidParams {
			t.Errorf("Expected error code %d, got %d", models.ErrorCodeInvalidParams, response.Error.Code)
		}
	})

	t.Run("malformed params is a protocol error", func(t *testing.T) {
		response := server.handleMessage(context.Background(), &models.MCPMessage{
			JSONRPC: "2.0",
			ID:      4,
			Method:  "tools/call",
			Params:  []interface{}{"geogebra_create_point"},
		})
		if response.Error == nil || response.Error.Code != models.ErrorCodeInvalidParams {
			t.Errorf("Expected invalid params error, got %+v", response.Error)
		}
	})
}

// failingEngine accepts lifecycle calls but every command fails in transport
type failingEngine struct {
	*engine.MemoryEngine
	calls int
}

func (f *failingEngine) EvalCommand(ctx context.Context, command string) (*engine.CommandResult, error) {
	f.calls++
	return nil, errors.NewEngineError(errors.ErrCodeEngineUnavailable, "no applet is connected to the bridge", nil)
}

func TestEngineCircuitBreaker(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.Breaker.MaxFailures = 2
	cfg.Engine.Breaker.ResetTimeout = time.Hour

	failing := &failingEngine{MemoryEngine: engine.NewMemoryEngine()}
	server, _ := newTestServerWithEngine(t, cfg, failing)

	args := map[string]interface{}{"name": "A", "x": 0, "y": 0}
	for i := 0; i < 2; i++ {
		payload, _ := callPayload(t, server, "geogebra_create_point", args)
		if payload["error"] != "no applet is connected to the bridge" {
			t.Errorf("Call %d: expected transport error, got %v", i, payload["error"])
		}
	}

	payload, isError := callPayload(t, server, "geogebra_create_point", args)
	if !isError || !strings.Contains(payload["error"].(string), "is open") {
		t.Errorf("Expected open circuit error, got %v", payload["error"])
	}
	if failing.calls != 2 {
		t.Errorf("Expected the open breaker to stop engine calls, got %d calls", failing.calls)
	}

	if got := server.breaker.State(); got != errors.CircuitBreakerOpen {
		t.Errorf("Expected breaker OPEN, got %s", got)
	}
}

func TestEngineRejectionDoesNotTripBreaker(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.Breaker.MaxFailures = 1
	server, _ := newTestServer(t, cfg)

	for i := 0; i < 3; i++ {
		payload, _ := callPayload(t, server, "geogebra_create_line",
			map[string]interface{}{"name": fmt.Sprintf("l%d", i), "point1": "P", "point2": "Q"})
		if !strings.Contains(payload["error"].(string), "Undefined variable") {
			t.Errorf("Expected engine refusal, got %v", payload["error"])
		}
	}

	if got := server.breaker.State(); got != errors.CircuitBreakerClosed {
		t.Errorf("Expected breaker CLOSED after refusals, got %s", got)
	}
}

func TestHandlePerformanceMetrics(t *testing.T) {
	server, _ := newTestServer(t, nil)
	callPayload(t, server, "geogebra_create_point", map[string]interface{}{"name": "A", "x": 1, "y": 1})

	response := server.handleMessage(context.Background(), &models.MCPMessage{
		JSONRPC: "2.0",
		ID:      "perf",
		Method:  "server/performance",
	})

	metrics, ok := response.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected metrics map, got %T", response.Result)
	}

	for _, key := range []string{"server_info", "tool_metrics", "engine_state", "circuit_breaker", "logging_stats", "memory_stats"} {
		if _, ok := metrics[key]; !ok {
			t.Errorf("Expected metrics key %s", key)
		}
	}

	toolMetrics := metrics["tool_metrics"].(map[string]interface{})
	if toolMetrics["total_invocations"] != int64(1) {
		t.Errorf("Expected 1 invocation, got %v", toolMetrics["total_invocations"])
	}

	state := metrics["engine_state"].(*engine.State)
	if state.ObjectCount != 1 {
		t.Errorf("Expected 1 object, got %d", state.ObjectCount)
	}
}
