// Package logging sends the process log to stderr and a daily file, and
// records log lines forwarded by the operator frontend.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Setup truncates the day's backend log in dir and tees the standard
// logger into it. The returned file must be closed on shutdown.
func Setup(dir string, now time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	path := filepath.Join(dir, fileName("backend", now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.LUTC)
	return f, nil
}

func fileName(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s.log", prefix, now.UTC().Format("2006-01-02"))
}

// FrontendEntry is one log line posted by the frontend.
type FrontendEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// FrontendSink appends frontend log lines to the day's frontend log.
type FrontendSink struct {
	mu   sync.Mutex
	path string
}

// NewFrontendSink creates the sink and truncates the day's frontend log.
func NewFrontendSink(dir string, now time.Time) (*FrontendSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	path := filepath.Join(dir, fileName("frontend", now))
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return nil, fmt.Errorf("failed to reset frontend log: %w", err)
	}
	return &FrontendSink{path: path}, nil
}

// Path returns the file the sink writes to.
func (s *FrontendSink) Path() string {
	return s.path
}

// Write appends e as "[timestamp] [FRONTEND] [level] message".
// oneLine escapes line breaks so a client cannot forge extra log entries.
var oneLine = strings.NewReplacer("\r", `\r`, "\n", `\n`)

func (s *FrontendSink) Write(e FrontendEntry) error {
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if e.Level == "" {
		e.Level = "INFO"
	}
	line := fmt.Sprintf("[%s] [FRONTEND] [%s] %s\n",
		oneLine.Replace(e.Timestamp), oneLine.Replace(strings.ToUpper(e.Level)), oneLine.Replace(e.Message))

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
