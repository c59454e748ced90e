// SPDX-License-Identifier: MPL-2.0

package config

import (
	"path/filepath"
	"strings"
)

// DerivedPaths are the filesystem locations computed once from Config and
// threaded through Builder, Supervisor, and Engine for the lifetime of a
// run. They are recomputed, never mutated.
type DerivedPaths struct {
	BinPath      string
	TmpPath      string
	BuildLogPath string
	StagingPath  string
	BackupPath   string
}

// Derive computes DerivedPaths from cfg, per spec.md §6.
func Derive(cfg *Config) DerivedPaths {
	bin := cfg.Build.Bin
	if !filepath.IsAbs(bin) {
		bin = filepath.Join(cfg.Root, bin)
	}

	tmpPath := filepath.Join(cfg.Root, cfg.TmpDir)

	return DerivedPaths{
		BinPath:      bin,
		TmpPath:      tmpPath,
		BuildLogPath: filepath.Join(tmpPath, cfg.Build.Log),
		StagingPath:  AddSuffixBeforeExt(bin, "_new"),
		BackupPath:   bin + ".backup",
	}
}

// AddSuffixBeforeExt inserts suffix before the file extension, e.g.
// "./tmp/main.exe" + "_new" -> "./tmp/main_new.exe", or appends it when
// the path has no extension: "./tmp/main" -> "./tmp/main_new". Exported
// so Builder can derive the same staging reference in the raw (pre-Root-
// join) string domain that Config.Build.Cmd itself is written in.
func AddSuffixBeforeExt(path, suffix string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return path + suffix
	}
	return strings.TrimSuffix(path, ext) + suffix + ext
}
