// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/zenoreload/zeno/internal/filter"
)

// pollBackend scans the directory tree on a fixed interval, diffing
// modification times against a prior snapshot. It produces the same
// ChangeEvent shape as nativeBackend so Watcher can treat both
// uniformly (spec.md §4.2). No ecosystem library in the retrieved pack
// implements a polling filesystem watcher, so this is built on the
// standard library only — see DESIGN.md.
type pollBackend struct {
	roots    []string
	interval time.Duration
	filt     *filter.Filter
	snapshot map[string]time.Time
}

func newPollBackend(roots []string, interval time.Duration, filt *filter.Filter) *pollBackend {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &pollBackend{roots: roots, interval: interval, filt: filt, snapshot: map[string]time.Time{}}
}

func (b *pollBackend) run(ctx context.Context, emit func(path string, kind Kind)) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	// Seed the baseline snapshot without emitting: every file that exists
	// before the watcher starts is not a "change".
	b.scan(func(string, Kind) {})

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			b.scan(emit)
		}
	}
}

func (b *pollBackend) scan(emit func(path string, kind Kind)) {
	current := map[string]time.Time{}

	for _, root := range b.roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(root, entry.Name())
			info, err := entry.Info()
			if err != nil {
				continue
			}
			current[path] = info.ModTime()
		}
	}

	for path, mtime := range current {
		prev, existed := b.snapshot[path]
		if !existed {
			emit(path, Created)
		} else if !prev.Equal(mtime) {
			emit(path, Modified)
		}
	}
	for path := range b.snapshot {
		if _, stillExists := current[path]; !stillExists {
			emit(path, Removed)
		}
	}

	b.snapshot = current
}

func (b *pollBackend) close() error {
	return nil
}
