// Package store holds the alert log backends.
package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"safesupport/internal/alertlog"
)

// maxLineBytes bounds a single alert log line when reading back.
const maxLineBytes = 1 << 20

// FileStore appends JSON lines to a single file. Every Append is one write
// on a file opened with O_APPEND, so concurrent appends from this process
// never interleave within a line and no lock is taken.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Append(_ context.Context, entry alertlog.Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode alert entry: %w", err)
	}
	line = append(line, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create alert log dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open alert log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("append alert log: %w", err)
	}
	return f.Close()
}

// Recent reads the last limit non-empty lines, then keeps the caller's
// entries newest first. Entries for userID older than that window are not
// returned even if fewer than limit match. A missing file is an empty log.
func (s *FileStore) Recent(_ context.Context, userID string, limit int) ([]alertlog.Entry, error) {
	if limit <= 0 {
		limit = alertlog.DefaultRecentLimit
	}
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []alertlog.Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open alert log: %w", err)
	}
	defer f.Close()

	// ring buffer of the last limit lines
	ring := make([]string, limit)
	n := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ring[n%limit] = line
		n++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read alert log: %w", err)
	}

	count := min(n, limit)
	window := make([]alertlog.Entry, 0, count)
	for i := n - count; i < n; i++ {
		window = append(window, alertlog.ParseLine(ring[i%limit]))
	}
	return alertlog.NewestFirstForUser(window, userID), nil
}
