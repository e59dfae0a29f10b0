// Package proclog provides the per-process log sinks. Each process
// owns exactly one sink; every interpreter path writes through it, so
// log lines are serialized and flushed in order.
package proclog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSink writes one line per append to <dir>/<name>.txt. The file is
// opened once at construction, headed by the process name.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileSink creates (truncating) the log file for a process.
func NewFileSink(dir, name string) (*FileSink, error) {
	path := filepath.Join(dir, name+".txt")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create process log %s: %w", path, err)
	}
	if _, err := fmt.Fprintf(f, "Process: %s\n", name); err != nil {
		f.Close()
		return nil, fmt.Errorf("write process log header: %w", err)
	}
	return &FileSink{file: f}, nil
}

// Append writes one line and syncs it to disk.
func (s *FileSink) Append(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintln(s.file, line); err != nil {
		return err
	}
	return s.file.Sync()
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// MemorySink buffers log lines in memory. Used by tests.
type MemorySink struct {
	mu    sync.Mutex
	lines []string
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append records one line.
func (s *MemorySink) Append(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
	return nil
}

// Lines returns a copy of everything appended so far.
func (s *MemorySink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

// Close is a no-op for the in-memory sink.
func (s *MemorySink) Close() error {
	return nil
}
