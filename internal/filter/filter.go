// SPDX-License-Identifier: MPL-2.0

// Package filter implements the pure include/exclude predicate applied to
// every filesystem path Zeno considers watching. It holds no state and
// performs no I/O; see spec.md §4.1.
package filter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zenoreload/zeno/internal/config"
)

// Filter evaluates Config's include/exclude rules against paths rooted at
// a fixed project root. Constructing a Filter compiles the exclude_regex
// list once; Filter itself is immutable and safe for concurrent use.
type Filter struct {
	root         string
	tmpDir       string
	includeExt   map[string]struct{}
	excludeFile  map[string]struct{}
	includeFile  map[string]struct{}
	excludeRegex []*regexp.Regexp
	excludeDir   []string
	includeDir   []string
}

// New compiles a Filter from cfg. An invalid exclude_regex entry is a
// configuration error surfaced at startup, not a per-event failure.
func New(cfg *config.Config) (*Filter, error) {
	f := &Filter{
		root:        cfg.Root,
		tmpDir:      cfg.TmpDir,
		includeExt:  toSet(cfg.Build.IncludeExt),
		excludeFile: toSet(cfg.Build.ExcludeFile),
		includeFile: toSet(cfg.Build.IncludeFile),
		excludeDir:  cfg.Build.ExcludeDir,
		includeDir:  cfg.Build.IncludeDir,
	}

	for _, pattern := range cfg.Build.ExcludeRegex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("filter: invalid exclude_regex %q: %w", pattern, err)
		}
		f.excludeRegex = append(f.excludeRegex, re)
	}

	return f, nil
}

// ShouldWatch applies the file rules from spec.md §4.1 to an absolute
// path. The rules are evaluated in order; the first negative decides.
func (f *Filter) ShouldWatch(path string) bool {
	rel := f.relative(path)
	base := filepath.Base(path)
	ext := strings.TrimPrefix(filepath.Ext(path), ".")

	if len(f.includeExt) > 0 {
		if _, ok := f.includeExt[ext]; !ok {
			return false
		}
	}

	if _, ok := f.excludeFile[base]; ok {
		return false
	}

	if len(f.includeFile) > 0 {
		if _, ok := f.includeFile[base]; !ok {
			return false
		}
	}

	normalized := filepath.ToSlash(rel)
	for _, re := range f.excludeRegex {
		if re.MatchString(normalized) {
			return false
		}
	}

	return true
}

// IsExcludedDir applies the directory rules from spec.md §4.1 used for
// recursion pruning while walking / attaching watch subscriptions.
func (f *Filter) IsExcludedDir(dirPath string) bool {
	rel := filepath.ToSlash(f.relative(dirPath))

	if rel == filepath.ToSlash(f.tmpDir) {
		return true
	}

	for _, prefix := range f.excludeDir {
		if hasPathPrefix(rel, filepath.ToSlash(prefix)) {
			return true
		}
	}

	if len(f.includeDir) > 0 {
		included := false
		for _, prefix := range f.includeDir {
			if hasPathPrefix(rel, filepath.ToSlash(prefix)) {
				included = true
				break
			}
		}
		if !included {
			return true
		}
	}

	return false
}

func (f *Filter) relative(path string) string {
	rel, err := filepath.Rel(f.root, path)
	if err != nil {
		return path
	}
	return rel
}

// hasPathPrefix reports whether rel starts with prefix at a path-segment
// boundary (so "src2" does not match prefix "src").
func hasPathPrefix(rel, prefix string) bool {
	if prefix == "" {
		return false
	}
	if rel == prefix {
		return true
	}
	return strings.HasPrefix(rel, prefix+"/")
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
