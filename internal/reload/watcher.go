package reload

import (
	"log"

	"github.com/fsnotify/fsnotify"
)

// Watcher triggers a soft reload whenever a watched path changes, the
// --reload-on-change flag's mechanism (spec.md §6, supplemented from the original's
// StatReloader/fsnotify-based reloader). Grounded on watcher.XyWatcher,
// narrowed to the one event the arbiter cares about: "something changed,
// reload."
type Watcher struct {
	fs *fsnotify.Watcher
}

// NewWatcher watches every path in paths (files or directories) and calls
// onChange once for every write, create, rename, or remove event on any of
// them; events are not debounced.
func NewWatcher(paths []string, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if err := fw.Add(p); err != nil {
			fw.Close()
			return nil, err
		}
	}

	w := &Watcher{fs: fw}
	go w.run(onChange)
	return w, nil
}

func (w *Watcher) run(onChange func()) {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				onChange()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("reload watcher error: %v", err)
		}
	}
}

func (w *Watcher) Close() error {
	return w.fs.Close()
}
