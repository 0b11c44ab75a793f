// Package watch processes invoices dropped into an inbox directory.
//
// Files already in the inbox are processed at startup, then new files are
// picked up from filesystem events once they have stopped changing for the
// settle delay. Processed inputs are moved to the processed or failed
// directory so they are never picked up twice.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/thai-invoice-ocr/internal/logging"
	"github.com/ironsheep/thai-invoice-ocr/internal/raster"
)

// DefaultSettle is how long a file must stay unchanged before it is read.
const DefaultSettle = 2 * time.Second

// Processor handles one inbox file.
type Processor interface {
	Process(ctx context.Context, path string) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, path string) error

func (f ProcessorFunc) Process(ctx context.Context, path string) error {
	return f(ctx, path)
}

// Options configures a Watcher.
type Options struct {
	Inbox string

	// Processed and Failed receive inputs after processing. Empty leaves
	// them in the inbox; a file left in place is not retried until it
	// changes.
	Processed string
	Failed    string

	Settle time.Duration
	Log    *logrus.Entry
}

// Stats counts handled files.
type Stats struct {
	Processed int
	Failed    int
}

// Watcher feeds inbox files to a Processor one at a time.
type Watcher struct {
	opts Options
	proc Processor
	log  *logrus.Entry

	mu      sync.Mutex
	pending map[string]time.Time
	done    map[string]time.Time
	stats   Stats
}

// New returns a Watcher.
func New(opts Options, proc Processor) *Watcher {
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	return &Watcher{
		opts:    opts,
		proc:    proc,
		log:     logging.OrNop(opts.Log).WithField("inbox", opts.Inbox),
		pending: make(map[string]time.Time),
		done:    make(map[string]time.Time),
	}
}

// Stats returns the counts so far.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Run watches the inbox until ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	for _, dir := range []string{w.opts.Inbox, w.opts.Processed, w.opts.Failed} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.opts.Inbox); err != nil {
		return fmt.Errorf("watching %s: %w", w.opts.Inbox, err)
	}

	if err := w.ScanExisting(ctx); err != nil {
		return err
	}
	w.log.Info("Watching inbox")

	ticker := time.NewTicker(w.opts.Settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.WithFields(logrus.Fields{
				"processed": w.Stats().Processed,
				"failed":    w.Stats().Failed,
			}).Info("Watcher stopped")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if path, ok := w.candidate(ev); ok {
				w.mark(path, time.Now())
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			w.log.WithError(err).Warn("Watcher error")

		case now := <-ticker.C:
			for _, path := range w.due(now) {
				w.handle(ctx, path)
			}
		}
	}
}

// ScanExisting processes the supported files already in the inbox, in name
// order.
func (w *Watcher) ScanExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.opts.Inbox)
	if err != nil {
		return fmt.Errorf("reading inbox: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && accept(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil
		}
		w.handle(ctx, filepath.Join(w.opts.Inbox, name))
	}
	return nil
}

// candidate reports whether ev announces a file worth processing.
// Removals, renames away and permission changes are ignored, as are
// directories, hidden files and unsupported types.
func (w *Watcher) candidate(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return "", false
	}
	if !accept(filepath.Base(ev.Name)) {
		return "", false
	}
	info, err := os.Stat(ev.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return ev.Name, true
}

func accept(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return false
	}
	return raster.IsSupported(name)
}

func (w *Watcher) mark(path string, at time.Time) {
	w.mu.Lock()
	w.pending[path] = at
	w.mu.Unlock()
}

// due removes and returns the pending paths unchanged for the settle delay.
func (w *Watcher) due(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.opts.Settle {
			out = append(out, path)
			delete(w.pending, path)
		}
	}
	sort.Strings(out)
	return out
}

func (w *Watcher) handle(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	if mod, seen := w.done[path]; seen && !info.ModTime().After(mod) {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	log := w.log.WithField("file", filepath.Base(path))
	err = w.proc.Process(ctx, path)

	w.mu.Lock()
	if err != nil {
		w.stats.Failed++
	} else {
		w.stats.Processed++
	}
	w.done[path] = info.ModTime()
	w.mu.Unlock()

	dest := w.opts.Processed
	if err != nil {
		log.WithError(err).Warn("Invoice failed")
		dest = w.opts.Failed
	} else {
		log.Info("Invoice processed")
	}
	if dest == "" {
		return
	}
	if moveErr := move(path, dest); moveErr != nil {
		log.WithError(moveErr).Error("Failed to move input")
		return
	}
	w.mu.Lock()
	delete(w.done, path)
	w.mu.Unlock()
}

// move renames path into dir, adding a timestamp when the name is taken.
func move(path, dir string) error {
	target := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(target)
		target = fmt.Sprintf("%s-%s%s", strings.TrimSuffix(target, ext), time.Now().Format("20060102T150405.000"), ext)
	}
	return os.Rename(path, target)
}
