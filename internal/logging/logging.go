// Package logging provides the application's log service: a slog.Logger
// writing to stdout and optionally to an append-only file, with an explicit
// open/flush/close lifecycle.
package logging

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Config controls where and how logs are written.
type Config struct {
	Level         slog.Level
	Format        string        // "json" or "text"
	FilePath      string        // optional; empty logs to stdout only
	FlushInterval time.Duration // how often the file buffer is flushed; 0 disables
	Stdout        io.Writer     // defaults to os.Stdout
}

// Service owns the log sinks. Create it with Open and release it with Close.
type Service struct {
	mu        sync.Mutex
	file      *os.File
	buf       *bufio.Writer
	closed    bool
	closeOnce sync.Once

	logger *slog.Logger
	stop   chan struct{}
	done   chan struct{}
}

// Open creates the log service. When cfg.FilePath is set the file is opened
// for appending and written through a buffer that is flushed every
// cfg.FlushInterval and on Flush/Close.
func Open(cfg Config) (*Service, error) {
	s := &Service{}

	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	var w io.Writer = stdout

	if cfg.FilePath != "" {
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		s.file = f
		s.buf = bufio.NewWriterSize(f, 64*1024)
		w = io.MultiWriter(stdout, &lockedWriter{s: s})
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	s.logger = slog.New(h)

	if s.buf != nil && cfg.FlushInterval > 0 {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.flushLoop(cfg.FlushInterval)
	}

	return s, nil
}

// Discard returns a service whose logger drops everything. Used in tests.
func Discard() *Service {
	return &Service{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Logger returns the service's logger.
func (s *Service) Logger() *slog.Logger {
	return s.logger
}

// Flush writes buffered file output to disk.
func (s *Service) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf == nil || s.closed {
		return nil
	}
	return s.buf.Flush()
}

// Close stops the flush loop, flushes and closes the log file.
// Calling Close more than once is safe.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.stop != nil {
			close(s.stop)
			<-s.done
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		if s.buf == nil {
			return
		}
		if ferr := s.buf.Flush(); ferr != nil {
			err = fmt.Errorf("flush log file: %w", ferr)
		}
		if cerr := s.file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close log file: %w", cerr)
		}
	})
	return err
}

func (s *Service) flushLoop(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.Flush(); err != nil {
				fmt.Fprintf(os.Stderr, "rankwatch: log flush failed: %v\n", err)
			}
		}
	}
}

// lockedWriter serializes writes into the shared file buffer with Flush.
type lockedWriter struct {
	s *Service
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	if w.s.closed {
		return len(p), nil
	}
	return w.s.buf.Write(p)
}

// ParseLevel converts "debug", "info", "warn" or "error" to a slog.Level,
// defaulting to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
