package soundpack

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher flushes a resolver's memo whenever a watched directory changes
type Watcher struct {
	watcher  *fsnotify.Watcher
	resolver *Resolver
	wg       sync.WaitGroup
	flushed  chan struct{}
}

// Watch starts watching dirs. Directories that do not exist are skipped.
func (r *Resolver) Watch(dirs []string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		resolver: r,
		flushed:  make(chan struct{}, 1),
	}

	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			slog.Debug("not watching soundpack directory", "dir", dir, "error", err)
			continue
		}
		slog.Debug("watching soundpack directory", "dir", dir)
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			slog.Debug("soundpack changed, flushing memo", "path", event.Name, "op", event.Op.String())
			w.resolver.Flush()
			select {
			case w.flushed <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("soundpack watcher error", "error", err)
		}
	}
}

// Flushed signals after each flush. Only the latest signal is kept.
func (w *Watcher) Flushed() <-chan struct{} {
	return w.flushed
}

// Close stops watching
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
