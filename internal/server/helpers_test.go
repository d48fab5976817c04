package server

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"mcp-geogebra-service/internal/models"
	"mcp-geogebra-service/pkg/config"
	"mcp-geogebra-service/pkg/engine"
	"mcp-geogebra-service/pkg/logging"
)

// syncBuffer is a bytes.Buffer safe for concurrent log writes
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newTestServer creates a server on an initialized memory engine with logs
// captured in the returned buffer
func newTestServer(t testing.TB, cfg *config.Config) (*MCPServer, *syncBuffer) {
	t.Helper()
	return newTestServerWithEngine(t, cfg, nil)
}

func newTestServerWithEngine(t testing.TB, cfg *config.Config, eng engine.Engine) (*MCPServer, *syncBuffer) {
	t.Helper()

	logs := &syncBuffer{}
	if eng == nil {
		mem := engine.NewMemoryEngine()
		if err := mem.Initialize(context.Background()); err != nil {
			t.Fatalf("Failed to initialize memory engine: %v", err)
		}
		eng = mem
	}

	server, err := NewMCPServer(Options{
		Config:         cfg,
		Engine:         eng,
		LoggingManager: logging.NewLoggingManagerWithOutput(logs),
	})
	if err != nil {
		t.Fatalf("NewMCPServer() error = %v", err)
	}
	return server, logs
}

func toolsCall(id interface{}, name string, arguments map[string]interface{}) *models.MCPMessage {
	return &models.MCPMessage{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "tools/call",
		Params: models.MCPToolsCallParams{
			Name:      name,
			Arguments: arguments,
		},
	}
}

// callPayload runs a tools/call and decodes the envelope payload
func callPayload(t *testing.T, server *MCPServer, name string, arguments map[string]interface{}) (map[string]interface{}, bool) {
	t.Helper()

	response := server.handleMessage(context.Background(), toolsCall("call", name, arguments))
	if response == nil || response.Error != nil {
		t.Fatalf("Expected a tools/call result, got %+v", response)
	}
	result, ok := response.Result.(*models.MCPToolsCallResult)
	if !ok {
		t.Fatalf("Expected *MCPToolsCallResult, got %T", response.Result)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(result.Content[0].Text), &payload); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	return payload, result.IsError
}

// runSession feeds newline-delimited requests through Serve and returns the
// decoded responses in order
func runSession(t *testing.T, server *MCPServer, requests ...string) []map[string]interface{} {
	t.Helper()

	reader := strings.NewReader(strings.Join(requests, "\n") + "\n")
	writer := &bytes.Buffer{}

	if err := server.Serve(context.Background(), reader, writer); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	var responses []map[string]interface{}
	decoder := json.NewDecoder(writer)
	for decoder.More() {
		var response map[string]interface{}
		if err := decoder.Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		responses = append(responses, response)
	}
	return responses
}
