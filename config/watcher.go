package config

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/pathfinder/logging"
)

// Watcher hot-reloads Config from a watched JSON file, exposing a Config()
// channel of freshly validated configs. It only ever sends a config that
// passed Validate(); a bad edit is logged and skipped, the previous config
// stays in effect.
type Watcher struct {
	path     string
	configCh chan *Config
	fsWatch  *fsnotify.Watcher
	cancel   context.CancelFunc
	logger   logging.Logger
}

// NewWatcher starts watching path for writes and pushes a freshly loaded
// Config to Config() after each debounced change. If path is empty, the
// watcher is a no-op and its Config() channel never fires.
func NewWatcher(ctx context.Context, path string, logger logging.Logger) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		configCh: make(chan *Config),
		logger:   logger,
	}
	if path == "" {
		return w, nil
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "config: creating fsnotify watcher")
	}
	if err := fsWatch.Add(path); err != nil {
		fsWatch.Close()
		return nil, errors.Wrapf(err, "config: watching %s", path)
	}
	w.fsWatch = fsWatch

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	utils.PanicCapturingGo(func() {
		w.run(watchCtx)
	})
	return w, nil
}

func (w *Watcher) run(ctx context.Context) {
	const debounce = 50 * time.Millisecond
	var pending *time.Timer
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsWatch.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(debounce, func() { w.reload(ctx) })
		case err, ok := <-w.fsWatch.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("config watcher error", "err", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warnw("config reload failed, keeping previous config", "err", err)
		return
	}
	select {
	case w.configCh <- cfg:
	case <-ctx.Done():
	}
}

// Config returns the channel of freshly validated configs.
func (w *Watcher) Config() <-chan *Config {
	return w.configCh
}

// Close stops the watcher.
func (w *Watcher) Close(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}
	if w.fsWatch != nil {
		return w.fsWatch.Close()
	}
	return nil
}
