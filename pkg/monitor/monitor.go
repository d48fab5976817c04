// Package monitor watches the configuration file and reports changes after a
// short debounce.
package monitor

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mcp-geogebra-service/pkg/logging"
)

// Event types reported to callbacks
const (
	EventModify = "modify"
	EventCreate = "create"
	EventDelete = "delete"
)

// FileEvent describes a change to a watched file
type FileEvent struct {
	Type string
	Path string
}

// ConfigMonitor watches individual files for changes. Editors commonly
// replace files through rename, so the parent directory is watched and
// events are filtered by file name.
type ConfigMonitor struct {
	watcher       *fsnotify.Watcher
	debounceDelay time.Duration
	logger        *logging.StructuredLogger

	mutex     sync.Mutex
	callbacks map[string][]func(FileEvent)
	timers    map[string]*time.Timer
	started   bool
	closed    bool
}

// NewConfigMonitor creates a new config monitor
func NewConfigMonitor(logger *logging.StructuredLogger) (*ConfigMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if logger == nil {
		logger = logging.NewStructuredLogger("config_monitor")
	}

	return &ConfigMonitor{
		watcher:       watcher,
		debounceDelay: 250 * time.Millisecond,
		logger:        logger,
		callbacks:     make(map[string][]func(FileEvent)),
		timers:        make(map[string]*time.Timer),
	}, nil
}

// SetDebounceDelay overrides the delay between the last event and the callback
func (cm *ConfigMonitor) SetDebounceDelay(d time.Duration) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.debounceDelay = d
}

// WatchFile registers callback for changes to path
func (cm *ConfigMonitor) WatchFile(path string, callback func(FileEvent)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	if err := cm.watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", filepath.Dir(abs), err)
	}

	cm.mutex.Lock()
	cm.callbacks[abs] = append(cm.callbacks[abs], callback)
	start := !cm.started
	cm.started = true
	cm.mutex.Unlock()

	if start {
		go cm.monitorEvents()
	}

	cm.logger.WithContext("path", abs).Info("Started watching configuration file")
	return nil
}

// StopWatching stops the monitor. Pending debounced callbacks are dropped.
func (cm *ConfigMonitor) StopWatching() error {
	cm.mutex.Lock()
	if cm.closed {
		cm.mutex.Unlock()
		return nil
	}
	cm.closed = true
	for name, timer := range cm.timers {
		timer.Stop()
		delete(cm.timers, name)
	}
	cm.mutex.Unlock()

	return cm.watcher.Close()
}

func (cm *ConfigMonitor) monitorEvents() {
	for {
		select {
		case event, ok := <-cm.watcher.Events:
			if !ok {
				return
			}
			cm.schedule(event)

		case err, ok := <-cm.watcher.Errors:
			if !ok {
				return
			}
			cm.logger.WithContext("error", err.Error()).Warn("File watcher error")
		}
	}
}

// schedule debounces events per file
func (cm *ConfigMonitor) schedule(event fsnotify.Event) {
	name := filepath.Clean(event.Name)
	eventType := classify(event.Op)
	if eventType == "" {
		return
	}

	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.closed || len(cm.callbacks[name]) == 0 {
		return
	}

	if timer, exists := cm.timers[name]; exists {
		timer.Stop()
	}
	cm.timers[name] = time.AfterFunc(cm.debounceDelay, func() {
		cm.fire(FileEvent{Type: eventType, Path: name})
	})
}

func (cm *ConfigMonitor) fire(event FileEvent) {
	cm.mutex.Lock()
	if cm.closed {
		cm.mutex.Unlock()
		return
	}
	delete(cm.timers, event.Path)
	callbacks := append([]func(FileEvent){}, cm.callbacks[event.Path]...)
	cm.mutex.Unlock()

	cm.logger.WithContext("event", event.Type).WithContext("path", event.Path).Debug("Configuration file event")
	for _, callback := range callbacks {
		callback(event)
	}
}

func classify(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreate
	case op.Has(fsnotify.Write):
		return EventModify
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return EventDelete
	default:
		return ""
	}
}
