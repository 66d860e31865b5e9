package folderqueue

import (
	"context"
	"strings"

	"jfrhub/pkg/logger"

	"github.com/fsnotify/fsnotify"
)

// Watcher signals when new message files land in the queue directory, letting
// the consumer react faster than its polling interval.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	notify    chan struct{}
	done      chan struct{}
}

// NewWatcher starts watching the queue directory for new message files
func NewWatcher(q *Queue) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(q.Dir()); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		notify:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Notify retrieves the channel that receives a signal whenever a message
// arrives. The channel is coalescing: bursts collapse into a single signal.
func (w *Watcher) Notify() <-chan struct{} {
	return w.notify
}

// Close stops the watcher
func (w *Watcher) Close() error {
	err := w.fsWatcher.Close()
	<-w.done
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	ctx := context.Background()
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			// Publish renames the temp file into place, so Create and Rename
			// both mean a new message.
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if strings.HasPrefix(baseName(event.Name), ".") {
				continue
			}
			select {
			case w.notify <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logger.WarnCtx(ctx, "queue watcher error: %v", err)
		}
	}
}

func baseName(path string) string {
	if idx := strings.LastIndexAny(path, "/\\"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
