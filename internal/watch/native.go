// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/zenoreload/zeno/internal/filter"
)

// nativeBackend wraps fsnotify, attaching one subscription per directory
// discovered at construction time. Per-directory subscription errors are
// logged and the directory is dropped; the watcher stays alive
// (spec.md §4.2's failure semantics).
type nativeBackend struct {
	fsw    *fsnotify.Watcher
	filt   *filter.Filter
	logger *log.Logger
}

func newNativeBackend(dirs []string, filt *filter.Filter, logger *log.Logger) (*nativeBackend, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	b := &nativeBackend{fsw: fsw, filt: filt, logger: logger}

	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			logger.Warn("watch: dropping directory after subscription error", "dir", dir, "error", err)
		}
	}

	return b, nil
}

func (b *nativeBackend) run(ctx context.Context, emit func(path string, kind Kind)) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-b.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: fsnotify event channel closed")
			}

			// Newly created directories are opportunistically attached so
			// recursive watches extend past the initial walk, per the
			// best-effort extension documented on Watcher.
			if evt.Has(fsnotify.Create) {
				if info, statErr := os.Stat(evt.Name); statErr == nil && info.IsDir() {
					if !b.filt.IsExcludedDir(evt.Name) {
						if addErr := b.fsw.Add(evt.Name); addErr != nil {
							b.logger.Warn("watch: failed to attach new directory", "dir", evt.Name, "error", addErr)
						}
					}
					continue
				}
			}

			emit(evt.Name, kindOf(evt.Op))

		case err, ok := <-b.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: fsnotify error channel closed")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			b.logger.Warn("watch: fsnotify error", "error", err)
		}
	}
}

func (b *nativeBackend) close() error {
	return b.fsw.Close()
}

func kindOf(op fsnotify.Op) Kind {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return Removed
	case op.Has(fsnotify.Create):
		return Created
	default:
		return Modified
	}
}
