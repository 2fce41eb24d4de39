package content

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
)

// settleDelay gives producers time to finish writing a file before the item
// is announced; uploads arrive over the network and land in several writes.
const settleDelay = 500 * time.Millisecond

// Watcher observes the watched folder and announces arrivals and removals.
// Events are debounced per file so a multi-write upload produces one
// notification.
type Watcher struct {
	store  *Store
	logger *slog.Logger

	// OnItem is called with each settled new or rewritten file
	OnItem func(item v1alpha1.ContentItem)
	// OnRemove is called when a file disappears from the folder
	OnRemove func(name string)

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a watcher over the given store
func NewWatcher(store *Store, logger *slog.Logger) *Watcher {
	return &Watcher{
		store:   store,
		logger:  logger,
		pending: make(map[string]*time.Timer),
	}
}

// Run watches until the context is canceled
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(w.store.Dir()); err != nil {
		return err
	}
	w.logger.Info("monitoring folder", "path", w.store.Dir())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") {
		return
	}

	switch {
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		w.scheduleAnnounce(name)
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		w.cancelAnnounce(name)
		if w.OnRemove != nil {
			w.OnRemove(name)
		}
	}
}

// scheduleAnnounce (re)arms the settle timer for a file; the last write wins
func (w *Watcher) scheduleAnnounce(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[name]; ok {
		timer.Stop()
	}
	w.pending[name] = time.AfterFunc(settleDelay, func() {
		w.announce(name)
	})
}

func (w *Watcher) cancelAnnounce(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[name]; ok {
		timer.Stop()
		delete(w.pending, name)
	}
}

func (w *Watcher) announce(name string) {
	w.mu.Lock()
	delete(w.pending, name)
	w.mu.Unlock()

	item, err := w.store.Stat(name)
	if err != nil {
		w.logger.Warn("new file vanished before announcement", "name", name, "error", err)
		return
	}
	item.Source = v1alpha1.SourceUpload
	w.logger.Info("new file detected", "name", name, "kind", item.Kind, "size", item.Size)
	if w.OnItem != nil {
		w.OnItem(*item)
	}
}
