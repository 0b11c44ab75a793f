package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
)

// Files stores each document as <dir>/<id>.json.
type Files struct {
	mu  sync.RWMutex
	dir string
}

// OpenFiles creates dir if needed.
func OpenFiles(dir string) (*Files, error) {
	if dir == "" {
		dir = DefaultConfig().Path
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Files{dir: dir}, nil
}

// Dir returns the output directory.
func (s *Files) Dir() string {
	return s.dir
}

func (s *Files) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// Save writes doc atomically through a temporary file.
func (s *Files) Save(ctx context.Context, doc *invoice.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(doc.ID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := doc.WriteJSON(&buf); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing document: %w", err)
	}
	return nil
}

func (s *Files) Get(ctx context.Context, id string) (*invoice.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return readDocumentFile(path)
}

func readDocumentFile(path string) (*invoice.Document, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.TrimSuffix(filepath.Base(path), ".json"))
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return invoice.ReadDocument(f)
}

// List reads every document in the directory. Files that do not decode
// as documents are skipped.
func (s *Files) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading output directory: %w", err)
	}

	var all []Summary
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		doc, err := readDocumentFile(filepath.Join(s.dir, entry.Name()))
		if err != nil || doc.ID == "" {
			continue
		}
		all = append(all, Summarize(doc))
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].ProcessedAt.After(all[j].ProcessedAt)
	})

	if opts.Offset >= len(all) {
		return []Summary{}, nil
	}
	all = all[opts.Offset:]
	if n := opts.limit(); len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (s *Files) Close() error { return nil }
