// Package watch reports changes to a chronologic database.
//
// SQLite in WAL mode appends writes to the -wal file next to the database,
// so the watcher listens on the directory and reacts to writes on either
// file. Bursts of writes collapse into one notification per debounce
// period.
package watch

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher emits on Changes whenever the database was written to.
type Watcher struct {
	Path    string
	Changes <-chan struct{}

	changes  chan struct{}
	done     chan struct{}
	debounce time.Duration
	files    map[string]bool
	watcher  *fsnotify.Watcher
	log      *zap.Logger
}

// New creates a watcher for the database at path. A zero debounce uses
// 100ms.
func New(path string, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	// events carry the resolved directory
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		abs = filepath.Join(dir, filepath.Base(abs))
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	ch := make(chan struct{}, 1)
	return &Watcher{
		Path:     abs,
		Changes:  ch,
		changes:  ch,
		done:     make(chan struct{}),
		debounce: debounce,
		files:    map[string]bool{abs: true, abs + "-wal": true},
		watcher:  fw,
		log:      log,
	}, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.Path)); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	var last time.Time
	pending := false
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				if pending {
					w.emit()
				}
				return
			}
			if !w.files[event.Name] {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				pending, last = true, time.Now()
			}

		case <-ticker.C:
			if pending && time.Since(last) >= w.debounce {
				w.emit()
				pending = false
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Debug("watch error", zap.Error(err))
		}
	}
}

// emit never blocks: one queued notification already covers later writes.
func (w *Watcher) emit() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}
