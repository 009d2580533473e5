// Package inbox feeds files dropped into a directory through the intake
// pipeline.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kmrl/docintel/internal/core/domain"
	"github.com/kmrl/docintel/internal/core/ports"
)

const defaultDebounce = 500 * time.Millisecond

// Claimer takes ownership of a dropped file by moving it out of the inbox.
type Claimer interface {
	Claim(path string) (string, error)
}

type Options struct {
	// Debounce is how long a file must stay quiet before it is picked up.
	Debounce time.Duration
}

type Watcher struct {
	dir      string
	ingestor ports.DocumentIngestor
	claimer  Claimer
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
}

func New(dir string, ingestor ports.DocumentIngestor, claimer Claimer, opts Options) *Watcher {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		dir:      filepath.Clean(dir),
		ingestor: ingestor,
		claimer:  claimer,
		debounce: debounce,
		timers:   map[string]*time.Timer{},
	}
}

// Run watches the inbox until ctx is cancelled. Files already present when it
// starts are processed too. In-flight files finish before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create inbox dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch inbox %s: %w", w.dir, err)
	}
	slog.InfoContext(ctx, "inbox_watch_started", "dir", w.dir)

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.schedule(ctx, filepath.Join(w.dir, entry.Name()))
		}
	}

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			w.wg.Wait()
			slog.Info("inbox_watch_stopped", "dir", w.dir)
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				w.schedule(ctx, event.Name)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				w.cancel(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "inbox_watch_error", "error", err)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	if skipName(filepath.Base(path)) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if previous, ok := w.timers[path]; ok && previous.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.timers[path] == timer {
			delete(w.timers, path)
		}
		w.mu.Unlock()
		w.handleFile(context.WithoutCancel(ctx), path)
	})
	w.timers[path] = timer
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[path]; ok && timer.Stop() {
		w.wg.Done()
		delete(w.timers, path)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.timers {
		if timer.Stop() {
			w.wg.Done()
		}
		delete(w.timers, path)
	}
}

// handleFile claims one dropped file and runs it through the pipeline. Files
// with an unsupported extension stay in the inbox.
func (w *Watcher) handleFile(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	name := filepath.Base(path)
	mimeType, ok := domain.MimeTypeForFilename(name)
	if !ok {
		slog.WarnContext(ctx, "inbox_file_skipped", "filename", name, "reason", "unsupported extension")
		return
	}

	claimed, err := w.claimer.Claim(path)
	if err != nil {
		slog.WarnContext(ctx, "inbox_claim_failed", "filename", name, "error", err)
		return
	}

	record, err := w.ingestor.Process(ctx, domain.UploadedFile{
		TempPath:     claimed,
		OriginalName: name,
		MimeType:     mimeType,
		SizeBytes:    info.Size(),
	})
	if err != nil {
		slog.WarnContext(ctx, "inbox_file_failed", "filename", name, "error_code", domain.ErrorCode(err), "error", err)
		return
	}
	slog.InfoContext(ctx, "inbox_file_processed", "filename", name, "document_id", record.ID, "status", record.Status)
}

// skipName ignores hidden files and partial downloads.
func skipName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(name, ".") ||
		strings.HasPrefix(name, "~") ||
		strings.HasSuffix(lower, ".part") ||
		strings.HasSuffix(lower, ".crdownload") ||
		strings.HasSuffix(lower, ".tmp")
}
