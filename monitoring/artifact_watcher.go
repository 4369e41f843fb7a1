package monitoring

import (
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"loanwise/logger"
)

// ArtifactWatcher reports when the model or schema files change on disk after
// the engine was built. It never reloads anything; a restart picks up the new
// artifacts.
type ArtifactWatcher struct {
	watcher *fsnotify.Watcher
	log     logger.ILogger
	files   map[string]bool
	changed atomic.Bool
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewArtifactWatcher starts watching paths. The parent directories are
// watched so editors that replace files by rename are still noticed.
func NewArtifactWatcher(log logger.ILogger, paths ...string) (*ArtifactWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &ArtifactWatcher{
		watcher: fw,
		log:     log,
		files:   make(map[string]bool, len(paths)),
		done:    make(chan struct{}),
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, err
		}
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *ArtifactWatcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("artifact watcher error", logger.Error(err))
		}
	}
}

func (w *ArtifactWatcher) handle(event fsnotify.Event) {
	abs, err := filepath.Abs(event.Name)
	if err != nil || !w.files[abs] {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	w.changed.Store(true)
	w.log.Warning("artifact changed on disk; restart to load it",
		logger.String("path", abs),
		logger.String("op", event.Op.String()),
	)
}

// Changed reports whether any watched artifact changed since start. Safe on a
// nil watcher.
func (w *ArtifactWatcher) Changed() bool {
	if w == nil {
		return false
	}
	return w.changed.Load()
}

func (w *ArtifactWatcher) Close() error {
	if w == nil {
		return nil
	}
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
