package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"safesupport/internal/vault"
	"safesupport/pkg/platform/sentinel"
)

// FileStore keeps one <id>.json file per report in a single directory.
// Files are created exclusively and never rewritten.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Put writes rec as a new file. An existing file with the same id is a
// conflict.
func (s *FileStore) Put(_ context.Context, rec vault.Record) error {
	if rec.ID == "" || strings.ContainsAny(rec.ID, `/\`) {
		return fmt.Errorf("invalid report id %q", rec.ID)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating vault dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(s.dir, rec.ID+".json"), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing report file: %w", err)
	}
	return f.Close()
}

// Candidates yields every report whose file name starts with prefix, in file
// name order. A file that cannot be read or parsed yields its error and the
// sweep continues. A missing directory yields nothing.
func (s *FileStore) Candidates(ctx context.Context, prefix string) iter.Seq2[vault.Record, error] {
	return func(yield func(vault.Record, error) bool) {
		entries, err := os.ReadDir(s.dir)
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		if err != nil {
			yield(vault.Record{}, fmt.Errorf("listing vault dir: %w", err))
			return
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
				continue
			}
			names = append(names, e.Name())
		}
		sort.Strings(names)

		for _, name := range names {
			if ctx.Err() != nil {
				yield(vault.Record{}, ctx.Err())
				return
			}
			rec, err := readRecord(filepath.Join(s.dir, name))
			if !yield(rec, err) {
				return
			}
		}
	}
}

func readRecord(path string) (vault.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return vault.Record{}, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	var rec vault.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return vault.Record{}, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return rec, nil
}
