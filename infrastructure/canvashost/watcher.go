package canvashost

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadWatcher reloads the canvas when the backing file changes on disk,
// so edits made outside the process become visible without a restart.
type reloadWatcher struct {
	canvas   *Canvas
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration
	done     chan struct{}
}

// Watch starts watching the canvas file for external modifications.
// Events are debounced because editors often emit several writes per save.
func (c *Canvas) Watch() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory: renames (our own atomic writes included)
	// drop file-level watches on some platforms.
	if err := fsw.Add(filepath.Dir(c.path)); err != nil {
		fsw.Close()
		return err
	}

	w := &reloadWatcher{
		canvas:   c,
		watcher:  fsw,
		logger:   c.logger,
		debounce: 200 * time.Millisecond,
		done:     make(chan struct{}),
	}
	c.watcher = w

	go w.run()
	c.logger.Info("Watching canvas file for changes", zap.String("path", c.path))
	return nil
}

func (w *reloadWatcher) run() {
	var timer *time.Timer
	target := filepath.Clean(w.canvas.path)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Our own atomic saves arrive as rename events; reloading on
			// those would replace the entities live handles point at.
			if w.canvas.consumeSelfWrite() {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Canvas watcher error", zap.Error(err))

		case <-w.done:
			return
		}
	}
}

func (w *reloadWatcher) reload() {
	if err := w.canvas.load(); err != nil {
		w.logger.Error("Canvas reload failed", zap.Error(err))
		return
	}
	w.logger.Info("Canvas reloaded from disk", zap.String("path", w.canvas.path))
	w.canvas.RequestFrame()
}

func (w *reloadWatcher) stop() {
	close(w.done)
	w.watcher.Close()
}
