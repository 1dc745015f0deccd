package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/legaltts/legaltts/internal/document"
	"github.com/legaltts/legaltts/internal/queue"
)

// settleDelay is how long a file must go without writes before it is
// queued.
const settleDelay = time.Second

// submitter queues a document for narration.
type submitter interface {
	Submit(path string, priority queue.Priority) (string, error)
}

// inbox queues documents written to a directory once they stop changing.
type inbox struct {
	dir     string
	target  submitter
	exclude []string
	settle  time.Duration
	logger  *log.Logger

	pending map[string]time.Time
	// queued holds the modification time each path was queued with.
	queued map[string]time.Time
}

func newInbox(dir string, target submitter, exclude ...string) (*inbox, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("unable to watch %s: %w", dir, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	in := &inbox{
		dir:     abs,
		target:  target,
		settle:  settleDelay,
		logger:  log.WithPrefix("watch"),
		pending: make(map[string]time.Time),
		queued:  make(map[string]time.Time),
	}
	for _, e := range exclude {
		if e == "" {
			continue
		}
		if a, err := filepath.Abs(e); err == nil {
			in.exclude = append(in.exclude, a)
		}
	}
	return in, nil
}

// accepts reports whether path is a document the inbox should narrate.
func (in *inbox) accepts(path string) bool {
	if !document.Supported(path) || strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	for _, e := range in.exclude {
		if path == e || strings.HasPrefix(path, e+string(filepath.Separator)) {
			return false
		}
	}
	return true
}

func (in *inbox) note(path string, now time.Time) {
	if in.accepts(path) {
		in.pending[path] = now
	}
}

// flush queues pending files that have settled. Files that were queued
// before with the same modification time are skipped.
func (in *inbox) flush(now time.Time) {
	for path, last := range in.pending {
		if now.Sub(last) < in.settle {
			continue
		}
		delete(in.pending, path)

		st, err := os.Stat(path)
		if err != nil || st.IsDir() {
			continue
		}
		if mod, ok := in.queued[path]; ok && mod.Equal(st.ModTime()) {
			continue
		}

		id, err := in.target.Submit(path, queue.PriorityNormal)
		if err != nil {
			if errors.Is(err, queue.ErrDuplicateJob) {
				continue
			}
			in.logger.Error("Could not queue document", "path", path, "err", err)
			continue
		}
		in.queued[path] = st.ModTime()
		in.logger.Info("Queued document", "path", filepath.Base(path), "id", id)
	}
}

// scan notes documents already in the directory.
func (in *inbox) scan(now time.Time) error {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", in.dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			in.note(filepath.Join(in.dir, e.Name()), now.Add(-in.settle))
		}
	}
	return nil
}

// Run watches the directory until ctx is done.
func (in *inbox) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close() //nolint:errcheck

	if err := w.Add(in.dir); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}
	if err := in.scan(time.Now()); err != nil {
		return err
	}
	in.logger.Info("Watching for documents", "dir", in.dir)

	ticker := time.NewTicker(in.settle / 2)
	defer ticker.Stop()
	in.flush(time.Now())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				in.note(ev.Name, time.Now())
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				delete(in.pending, ev.Name)
				delete(in.queued, ev.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			in.logger.Warn("Watcher error", "err", err)
		case now := <-ticker.C:
			in.flush(now)
		}
	}
}
