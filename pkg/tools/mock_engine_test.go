package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"mcp-geogebra-service/internal/models"
	"mcp-geogebra-service/pkg/engine"
	"mcp-geogebra-service/pkg/logging"
)

// recordingEngine is an engine.Engine that records every command it receives.
// Commands succeed unless reject or fail says otherwise.
type recordingEngine struct {
	*engine.MemoryEngine

	mu       sync.Mutex
	commands []string
	reject   func(command string) string
	fail     error
}

func newRecordingEngine(t testing.TB) *recordingEngine {
	t.Helper()
	mem := engine.NewMemoryEngine()
	if err := mem.Initialize(context.Background()); err != nil {
		t.Fatalf("Failed to initialize memory engine: %v", err)
	}
	return &recordingEngine{MemoryEngine: mem}
}

func (r *recordingEngine) EvalCommand(ctx context.Context, command string) (*engine.CommandResult, error) {
	r.mu.Lock()
	r.commands = append(r.commands, command)
	reject, fail := r.reject, r.fail
	r.mu.Unlock()

	if fail != nil {
		return nil, fail
	}
	if reject != nil {
		if msg := reject(command); msg != "" {
			return &engine.CommandResult{Success: false, Error: msg}, nil
		}
	}
	return &engine.CommandResult{Success: true, Result: command}, nil
}

func (r *recordingEngine) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.commands...)
}

func newTestLogger() *logging.StructuredLogger {
	manager := logging.NewLoggingManagerWithOutput(&bytes.Buffer{})
	manager.SetLogLevel(slog.LevelError.String())
	return manager.GetLogger("tools")
}

func newTestManager(t testing.TB) (*ToolManager, *recordingEngine) {
	t.Helper()
	eng := newRecordingEngine(t)
	tm, err := NewDefaultToolManager(eng, newTestLogger())
	if err != nil {
		t.Fatalf("NewDefaultToolManager failed: %v", err)
	}
	return tm, eng
}

// decodePayload returns the JSON payload carried by a tool result
func decodePayload(t testing.TB, result *models.MCPToolsCallResult) map[string]interface{} {
	t.Helper()
	if result == nil {
		t.Fatal("Expected a result, got nil")
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("Expected a single text content item, got %+v", result.Content)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(result.Content[0].Text), &payload); err != nil {
		t.Fatalf("Failed to decode payload %q: %v", result.Content[0].Text, err)
	}
	success, _ := payload["success"].(bool)
	if success == result.IsError {
		t.Fatalf("Expected isError to be the negation of success, got isError=%v payload=%v", result.IsError, payload)
	}
	return payload
}
