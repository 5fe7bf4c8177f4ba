package submission

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/recipebook/recipebook/errors"
	"github.com/recipebook/recipebook/logger"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 300 * time.Millisecond

// ownWriteGrace is how long events are ignored after MarkOwnWrite.
const ownWriteGrace = 250 * time.Millisecond

// ChangeFunc receives the freshly parsed file after each settled edit.
type ChangeFunc func(ctx context.Context, f File) error

// Watcher reloads an ingredient file whenever it changes on disk.
//
// The parent directory is watched rather than the file, so editors that
// save by renaming a temporary file over the original keep being followed.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.SugaredLogger

	mu          sync.Mutex
	ignoreUntil time.Time
}

// NewWatcher starts watching path. A debounce of zero uses DefaultDebounce.
func NewWatcher(path string, debounce time.Duration, log *zap.SugaredLogger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", path)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", filepath.Dir(abs))
	}

	return &Watcher{
		path:     abs,
		watcher:  fw,
		debounce: debounce,
		logger:   logger.OrNop(log).With(logger.FieldComponent, "watcher", logger.FieldPath, abs),
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// MarkOwnWrite suppresses the events caused by a write the caller is about
// to make, such as rewriting the file after applying it.
func (w *Watcher) MarkOwnWrite() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ignoreUntil = time.Now().Add(ownWriteGrace)
}

func (w *Watcher) isOwnWrite() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return time.Now().Before(w.ignoreUntil)
}

// Run delivers changes to onChange until ctx is done or the watcher is
// closed. Parse errors and onChange errors are logged and watching goes on.
func (w *Watcher) Run(ctx context.Context, onChange ChangeFunc) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if w.isOwnWrite() {
				w.logger.Debugw("Ignoring own write", "op", event.Op.String())
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			f, err := Load(w.path)
			if err != nil {
				w.logger.Warnw("Ignoring unreadable ingredient file", logger.FieldError, err)
				continue
			}
			w.logger.Debugw("Ingredient file changed", logger.FieldRows, len(f.Ingredients))
			if err := onChange(ctx, f); err != nil {
				w.logger.Errorw("Failed to handle ingredient file change", logger.FieldError, err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnw("Watcher error", logger.FieldError, err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
