package jit

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// SourceWatch watches a directory of LIR source files and invalidates the
// matching Engine cache entry whenever one changes on disk, so a long-lived
// embedding process recompiles a cell the next
// time it's called instead of serving stale machine code. Grounded on
// fsnotify's own documented usage pattern (a goroutine draining Events/
// Errors channels from a single *fsnotify.Watcher) — nothing in the
// retrieval pack exercises this dependency directly, so the watcher loop
// here follows fsnotify's own package-doc example rather than a pack file.
type SourceWatch struct {
	watcher *fsnotify.Watcher
	engine  *Engine
	// nameForFile maps a watched file's cleaned path (filepath.Clean) to
	// the cell name it declares, since one file may declare several cells
	// or a cell's file may not share its name exactly.
	nameForFile map[string][]string
	done        chan struct{}
}

// NewSourceWatch creates a watcher over dir, invalidating cells in engine
// whenever a file changes. nameForFile maps a watched source file's path to
// the cell name(s) it declares — supplied by the caller (the CLI's loader
// already knows which cells came from which file).
func NewSourceWatch(engine *Engine, dir string, nameForFile map[string][]string) (*SourceWatch, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	sw := &SourceWatch{
		watcher:     w,
		engine:      engine,
		nameForFile: nameForFile,
		done:        make(chan struct{}),
	}
	go sw.loop()
	return sw, nil
}

func (sw *SourceWatch) loop() {
	for {
		select {
		case ev, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			sw.invalidate(ev.Name)
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.engine.cfg.Logger.Printf("source watch error: %v", err)
		case <-sw.done:
			return
		}
	}
}

func (sw *SourceWatch) invalidate(path string) {
	names, ok := sw.nameForFile[filepath.Clean(path)]
	if !ok {
		return
	}
	for _, name := range names {
		if sw.engine.Invalidate(name) {
			sw.engine.cfg.Logger.Printf("invalidated %q (source changed: %s)", name, path)
		}
	}
}

// Close stops the watcher goroutine and releases the underlying fsnotify
// handle.
func (sw *SourceWatch) Close() error {
	close(sw.done)
	return sw.watcher.Close()
}
