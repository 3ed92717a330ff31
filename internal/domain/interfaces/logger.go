// Package interfaces defines core domain contracts.
//
//nolint:revive // Package name 'interfaces' is intentional for domain layer
package interfaces

import (
	"fmt"
	"strings"
	"sync"
)

// Logger is the structured logger engines write their running log through
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a structured log field
type Field struct {
	Key   string
	Value any
}

// F creates a new Field
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// NoOpLogger discards everything
type NoOpLogger struct{}

// Debug does nothing
func (n *NoOpLogger) Debug(_ string, _ ...Field) {}

// Info does nothing
func (n *NoOpLogger) Info(_ string, _ ...Field) {}

// Warn does nothing
func (n *NoOpLogger) Warn(_ string, _ ...Field) {}

// Error does nothing
func (n *NoOpLogger) Error(_ string, _ ...Field) {}

// MemoryLogger keeps log lines in memory; safe for concurrent use
type MemoryLogger struct {
	mu    sync.Mutex
	lines []string
}

// Debug records a debug line
func (m *MemoryLogger) Debug(msg string, fields ...Field) { m.record("DEBUG", msg, fields) }

// Info records an info line
func (m *MemoryLogger) Info(msg string, fields ...Field) { m.record("INFO", msg, fields) }

// Warn records a warning line
func (m *MemoryLogger) Warn(msg string, fields ...Field) { m.record("WARN", msg, fields) }

// Error records an error line
func (m *MemoryLogger) Error(msg string, fields ...Field) { m.record("ERROR", msg, fields) }

// Lines returns a snapshot of recorded lines
func (m *MemoryLogger) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}

// Count returns how many recorded lines contain substr
func (m *MemoryLogger) Count(substr string) int {
	n := 0
	for _, l := range m.Lines() {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}

func (m *MemoryLogger) record(level, msg string, fields []Field) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteString(": ")
	b.WriteString(msg)
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}

	m.mu.Lock()
	m.lines = append(m.lines, b.String())
	m.mu.Unlock()
}
