package logger

import (
	"fmt"
	"sync"

	"github.com/user/decodebridge/pkg/ports"
)

// Entry is one recorded log line.
type Entry struct {
	Level     ports.LogLevel
	Component string
	Message   string
}

// MemoryLogger records untranslated messages, for tests and summaries.
type MemoryLogger struct {
	component string
	store     *memoryStore
}

type memoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemory creates an empty MemoryLogger.
func NewMemory() *MemoryLogger {
	return &MemoryLogger{store: &memoryStore{}}
}

func (l *MemoryLogger) Debug(msg string, args ...interface{}) { l.add(ports.LevelDebug, msg, args) }
func (l *MemoryLogger) Info(msg string, args ...interface{}) { l.add(ports.LevelInfo, msg, args) }
func (l *MemoryLogger) Warn(msg string, args ...interface{}) { l.add(ports.LevelWarn, msg, args) }
func (l *MemoryLogger) Error(msg string, args ...interface{}) { l.add(ports.LevelError, msg, args) }

// WithComponent returns a logger sharing the same entry store.
func (l *MemoryLogger) WithComponent(component string) ports.Logger {
	return &MemoryLogger{component: component, store: l.store}
}

// Entries returns every entry at or above level.
func (l *MemoryLogger) Entries(level ports.LogLevel) []Entry {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	var out []Entry
	for _, e := range l.store.entries {
		if e.Level >= level {
			out = append(out, e)
		}
	}
	return out
}

func (l *MemoryLogger) add(level ports.LogLevel, msg string, args []interface{}) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	l.store.entries = append(l.store.entries, Entry{
		Level:     level,
		Component: l.component,
		Message:   fmt.Sprintf(msg, args...),
	})
}

var _ ports.Logger = (*MemoryLogger)(nil)
