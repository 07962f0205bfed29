package http

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 200 * time.Millisecond

// ModelWatcher calls onChange when the model file is rewritten by another
// process, such as the train_model command. It watches the parent directory
// because the store replaces the file by rename.
type ModelWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func()
	logger   *zap.Logger
}

func NewModelWatcher(path string, onChange func(), logger *zap.Logger) (*ModelWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}
	return &ModelWatcher{path: abs, watcher: watcher, onChange: onChange, logger: logger}, nil
}

// Run blocks until ctx is cancelled or the watcher is closed. Bursts of
// events for the model file collapse into a single onChange call.
func (w *ModelWatcher) Run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(reloadDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.logger.Info("model file changed, reloading", zap.String("path", w.path))
			w.onChange()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("model watcher error", zap.Error(err))
		}
	}
}

func (w *ModelWatcher) Close() error {
	return w.watcher.Close()
}
