// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/zenoreload/zeno/internal/filter"
)

// OnEvent is called once per accepted filesystem change. It must return
// quickly; Watcher does not buffer beyond the backend's own event queue.
type OnEvent func(ChangeEvent)

// backend is the selectable notification source: fsnotify (native) or a
// polling scanner. Both emit the same ChangeEvent shape, per spec.md §4.2.
type backend interface {
	// run blocks until ctx is cancelled or a fatal error occurs, invoking
	// emit for every raw (unfiltered) change it observes.
	run(ctx context.Context, emit func(path string, kind Kind)) error
	// close releases backend resources. Idempotent.
	close() error
}

// Watcher walks a project tree once, attaches a notification backend to
// every non-excluded directory, and forwards PathFilter-accepted events.
//
// Directories discovered after the initial walk are not dynamically
// attached in v1 (spec.md §4.2's documented limitation), except that the
// native fsnotify backend opportunistically attaches newly created
// directories as a best-effort extension, matching the convenience the
// teacher's own fsnotify-based watcher provides.
type Watcher struct {
	root    string
	filt    *filter.Filter
	logger  *log.Logger
	backend backend

	mu      sync.Mutex
	stopped bool
}

// New builds a Watcher rooted at root. poll selects the polling backend
// over native OS notifications; pollInterval is only consulted when poll
// is true.
func New(root string, filt *filter.Filter, logger *log.Logger, poll bool, pollInterval time.Duration) (*Watcher, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("watch: root %q: %w", root, err)
	}

	w := &Watcher{root: root, filt: filt, logger: logger}

	dirs, err := collectDirs(root, filt)
	if err != nil {
		return nil, fmt.Errorf("watch: walk %q: %w", root, err)
	}

	if poll {
		w.backend = newPollBackend(dirs, pollInterval, filt)
	} else {
		b, err := newNativeBackend(dirs, filt, logger)
		if err != nil {
			return nil, fmt.Errorf("watch: %w", err)
		}
		w.backend = b
	}

	return w, nil
}

// Run blocks, forwarding PathFilter-accepted events to onEvent, until ctx
// is cancelled or the backend reports a fatal error.
func (w *Watcher) Run(ctx context.Context, onEvent OnEvent) error {
	return w.backend.run(ctx, func(path string, kind Kind) {
		if !w.filt.ShouldWatch(path) {
			return
		}
		onEvent(ChangeEvent{Path: path, Kind: kind})
	})
}

// Stop cancels all underlying subscriptions and releases OS resources.
// Idempotent.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	return w.backend.close()
}

// collectDirs walks root once with filepath.WalkDir (depth-first, in
// lexical order), collecting every directory PathFilter does not exclude
// and skipping the subtrees of excluded ones. The walk order does not
// affect the resulting set.
func collectDirs(root string, filt *filter.Filter) ([]string, error) {
	var dirs []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && filt.IsExcludedDir(path) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}
