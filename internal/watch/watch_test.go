package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Processor that fails files named bad*.
type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) Process(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, filepath.Base(path))
	if strings.HasPrefix(filepath.Base(path), "bad") {
		return errors.New("no text recognized")
	}
	return nil
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func setupInbox(t *testing.T) Options {
	t.Helper()
	root := t.TempDir()
	inbox := filepath.Join(root, "inbox")
	require.NoError(t, os.MkdirAll(inbox, 0o755))
	return Options{
		Inbox:     inbox,
		Processed: filepath.Join(root, "processed"),
		Failed:    filepath.Join(root, "failed"),
		Settle:    50 * time.Millisecond,
	}
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	return path
}

func TestCandidate(t *testing.T) {
	opts := setupInbox(t)
	w := New(opts, &recorder{})

	invoicePath := writeFile(t, opts.Inbox, "invoice.png")
	pdfPath := writeFile(t, opts.Inbox, "scan.PDF")
	hidden := writeFile(t, opts.Inbox, ".invoice.png")
	notes := writeFile(t, opts.Inbox, "notes.txt")
	subdir := filepath.Join(opts.Inbox, "nested.png")
	require.NoError(t, os.MkdirAll(subdir, 0o755))

	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"create", fsnotify.Event{Name: invoicePath, Op: fsnotify.Create}, true},
		{"write", fsnotify.Event{Name: invoicePath, Op: fsnotify.Write}, true},
		{"pdf", fsnotify.Event{Name: pdfPath, Op: fsnotify.Create}, true},
		{"remove", fsnotify.Event{Name: invoicePath, Op: fsnotify.Remove}, false},
		{"rename", fsnotify.Event{Name: invoicePath, Op: fsnotify.Rename}, false},
		{"chmod", fsnotify.Event{Name: invoicePath, Op: fsnotify.Chmod}, false},
		{"hidden", fsnotify.Event{Name: hidden, Op: fsnotify.Create}, false},
		{"unsupported", fsnotify.Event{Name: notes, Op: fsnotify.Create}, false},
		{"directory", fsnotify.Event{Name: subdir, Op: fsnotify.Create}, false},
		{"gone", fsnotify.Event{Name: filepath.Join(opts.Inbox, "gone.png"), Op: fsnotify.Create}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := w.candidate(tt.ev)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, tt.ev.Name, path)
			}
		})
	}
}

func TestDue_WaitsForSettle(t *testing.T) {
	w := New(Options{Settle: time.Second}, &recorder{})
	start := time.Now()
	w.mark("/inbox/a.png", start)
	w.mark("/inbox/b.png", start.Add(500*time.Millisecond))

	assert.Empty(t, w.due(start.Add(900*time.Millisecond)))
	assert.Equal(t, []string{"/inbox/a.png"}, w.due(start.Add(time.Second)))

	// A later write restarts the delay.
	w.mark("/inbox/b.png", start.Add(1200*time.Millisecond))
	assert.Empty(t, w.due(start.Add(1600*time.Millisecond)))
	assert.Equal(t, []string{"/inbox/b.png"}, w.due(start.Add(2200*time.Millisecond)))
	assert.Empty(t, w.due(start.Add(time.Hour)))
}

func TestScanExisting_MovesInputs(t *testing.T) {
	opts := setupInbox(t)
	require.NoError(t, os.MkdirAll(opts.Processed, 0o755))
	require.NoError(t, os.MkdirAll(opts.Failed, 0o755))
	writeFile(t, opts.Inbox, "b.png")
	writeFile(t, opts.Inbox, "a.pdf")
	writeFile(t, opts.Inbox, "bad.jpg")
	writeFile(t, opts.Inbox, "readme.md")

	rec := &recorder{}
	w := New(opts, rec)
	require.NoError(t, w.ScanExisting(context.Background()))

	assert.Equal(t, []string{"a.pdf", "b.png", "bad.jpg"}, rec.seen())
	assert.Equal(t, Stats{Processed: 2, Failed: 1}, w.Stats())

	assert.FileExists(t, filepath.Join(opts.Processed, "a.pdf"))
	assert.FileExists(t, filepath.Join(opts.Processed, "b.png"))
	assert.FileExists(t, filepath.Join(opts.Failed, "bad.jpg"))
	assert.FileExists(t, filepath.Join(opts.Inbox, "readme.md"))
	assert.NoFileExists(t, filepath.Join(opts.Inbox, "a.pdf"))
}

func TestHandle_InPlaceNotRepeated(t *testing.T) {
	opts := setupInbox(t)
	opts.Processed, opts.Failed = "", ""
	path := writeFile(t, opts.Inbox, "invoice.png")

	rec := &recorder{}
	w := New(opts, rec)
	w.handle(context.Background(), path)
	w.handle(context.Background(), path)

	assert.Equal(t, []string{"invoice.png"}, rec.seen())
	assert.FileExists(t, path)

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	w.handle(context.Background(), path)
	assert.Len(t, rec.seen(), 2)
}

func TestMove_AvoidsOverwrite(t *testing.T) {
	opts := setupInbox(t)
	require.NoError(t, os.MkdirAll(opts.Processed, 0o755))
	writeFile(t, opts.Processed, "invoice.png")
	path := writeFile(t, opts.Inbox, "invoice.png")

	require.NoError(t, move(path, opts.Processed))

	entries, err := os.ReadDir(opts.Processed)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.NoFileExists(t, path)
}

func TestRun_PicksUpNewFiles(t *testing.T) {
	opts := setupInbox(t)
	writeFile(t, opts.Inbox, "existing.png")

	rec := &recorder{}
	w := New(opts, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(rec.seen()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	writeFile(t, opts.Inbox, "new.png")

	require.Eventually(t, func() bool {
		return len(rec.seen()) == 2
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"existing.png", "new.png"}, rec.seen())
	assert.FileExists(t, filepath.Join(opts.Processed, "new.png"))
}

func TestRun_MissingInboxParent(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, nil, 0o644))

	w := New(Options{Inbox: filepath.Join(f, "inbox")}, &recorder{})
	assert.Error(t, w.Run(context.Background()))
}
