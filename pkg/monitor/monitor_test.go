package monitor

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"mcp-geogebra-service/pkg/logging"
)

func newTestMonitor(t *testing.T) *ConfigMonitor {
	t.Helper()

	manager := logging.NewLoggingManagerWithOutput(&bytes.Buffer{})
	manager.SetLogLevel(slog.LevelError.String())

	monitor, err := NewConfigMonitor(manager.GetLogger("config_monitor"))
	if err != nil {
		t.Fatalf("Failed to create config monitor: %v", err)
	}
	monitor.SetDebounceDelay(50 * time.Millisecond)
	t.Cleanup(func() { monitor.StopWatching() })
	return monitor
}

// setupEventCollection returns a callback that records events and forwards
// them to a buffered channel
func setupEventCollection(t *testing.T) (chan FileEvent, *sync.Mutex, *[]FileEvent, func(FileEvent)) {
	t.Helper()
	eventChan := make(chan FileEvent, 10)
	var mu sync.Mutex
	var events []FileEvent

	callback := func(event FileEvent) {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
		select {
		case eventChan <- event:
		default:
		}
	}

	return eventChan, &mu, &events, callback
}

func TestNewConfigMonitor(t *testing.T) {
	monitor, err := NewConfigMonitor(nil)
	if err != nil {
		t.Fatalf("Failed to create config monitor: %v", err)
	}
	defer monitor.StopWatching()

	if monitor.watcher == nil {
		t.Error("Expected watcher to be initialized")
	}
	if monitor.debounceDelay != 250*time.Millisecond {
		t.Errorf("Expected debounce delay to be 250ms, got %v", monitor.debounceDelay)
	}
	if monitor.logger == nil {
		t.Error("Expected default logger")
	}
}

func TestWatchFileErrors(t *testing.T) {
	monitor := newTestMonitor(t)

	err := monitor.WatchFile("/non/existent/path/config.yaml", func(FileEvent) {})
	if err == nil {
		t.Error("Expected error when watching file in non-existent directory")
	}
}

func TestStopWatchingTwice(t *testing.T) {
	monitor, err := NewConfigMonitor(nil)
	if err != nil {
		t.Fatalf("Failed to create config monitor: %v", err)
	}

	if err := monitor.StopWatching(); err != nil {
		t.Errorf("StopWatching failed: %v", err)
	}
	if err := monitor.StopWatching(); err != nil {
		t.Errorf("Second StopWatching call failed: %v", err)
	}
}

func TestConfigMonitorModify(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "geogebra-mcp.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	monitor := newTestMonitor(t)
	eventChan, _, _, callback := setupEventCollection(t)
	if err := monitor.WatchFile(path, callback); err != nil {
		t.Fatalf("WatchFile failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("Failed to modify config: %v", err)
	}

	select {
	case event := <-eventChan:
		if event.Type != EventModify && event.Type != EventCreate {
			t.Errorf("Expected modify event, got %s", event.Type)
		}
		if event.Path != path {
			t.Errorf("Expected path %s, got %s", path, event.Path)
		}
	case <-time.After(2 * time.Second):
		t.Error("Timeout waiting for modify event")
	}
}

func TestConfigMonitorIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "geogebra-mcp.yaml")

	monitor := newTestMonitor(t)
	_, mu, events, callback := setupEventCollection(t)
	if err := monitor.WatchFile(path, callback); err != nil {
		t.Fatalf("WatchFile failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	for _, name := range []string{"other.yaml", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(*events) != 0 {
		t.Errorf("Expected no events for sibling files, got %v", *events)
	}
}

func TestConfigMonitorDebouncing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "geogebra-mcp.yaml")

	monitor := newTestMonitor(t)
	monitor.SetDebounceDelay(200 * time.Millisecond)
	_, mu, events, callback := setupEventCollection(t)
	if err := monitor.WatchFile(path, callback); err != nil {
		t.Fatalf("WatchFile failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	for i := range 5 {
		content := []byte("server:\n  version: \"" + string(rune('0'+i)) + "\"\n")
		if err := os.WriteFile(path, content, 0o644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	time.Sleep(800 * time.Millisecond)

	mu.Lock()
	count := len(*events)
	mu.Unlock()

	if count >= 5 {
		t.Errorf("Expected fewer than 5 events due to debouncing, got %d", count)
	}
	if count == 0 {
		t.Error("Expected at least one event after debouncing")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want string
	}{
		{fsnotify.Create, EventCreate},
		{fsnotify.Write, EventModify},
		{fsnotify.Write | fsnotify.Chmod, EventModify},
		{fsnotify.Remove, EventDelete},
		{fsnotify.Rename, EventDelete},
		{fsnotify.Chmod, ""},
	}
	for _, tt := range tests {
		if got := classify(tt.op); got != tt.want {
			t.Errorf("classify(%v) = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestScheduleIgnoresUnwatchedFiles(t *testing.T) {
	monitor := newTestMonitor(t)
	monitor.schedule(fsnotify.Event{Name: "/tmp/unwatched.yaml", Op: fsnotify.Write})

	monitor.mutex.Lock()
	defer monitor.mutex.Unlock()
	if len(monitor.timers) != 0 {
		t.Error("Expected no timer for an unwatched file")
	}
}
