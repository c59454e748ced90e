// SPDX-License-Identifier: MPL-2.0

// Package config loads and validates the zeno.yml project configuration.
//
// Config is an immutable value constructed once at startup by Load and
// shared read-only with every downstream collaborator (filter, watch,
// build, supervisor, engine).
package config

import (
	"time"
)

// Config is the fully resolved, validated project configuration.
type Config struct {
	Root   string `yaml:"root"`
	TmpDir string `yaml:"tmp_dir"`
	Build  Build  `yaml:"build"`
	Log    Log    `yaml:"log"`
	Proxy  Proxy  `yaml:"proxy"`
	Screen Screen `yaml:"screen"`
	Misc   Misc   `yaml:"misc"`
}

// Build holds everything related to invoking the user's build command and
// deciding which filesystem events should trigger a rebuild.
type Build struct {
	Cmd              string   `yaml:"cmd"`
	Bin              string   `yaml:"bin"`
	Log              string   `yaml:"log"`
	IncludeExt       []string `yaml:"include_ext"`
	ExcludeDir       []string `yaml:"exclude_dir"`
	IncludeDir       []string `yaml:"include_dir"`
	ExcludeFile      []string `yaml:"exclude_file"`
	IncludeFile      []string `yaml:"include_file"`
	ExcludeRegex     []string `yaml:"exclude_regex"`
	PreCmd           []string `yaml:"pre_cmd"`
	PostCmd          []string `yaml:"post_cmd"`
	Args             []string `yaml:"args"`
	DelayMS          int      `yaml:"delay"`
	KillDelayMS      int      `yaml:"kill_delay"`
	StopOnError      bool     `yaml:"stop_on_error"`
	ExcludeUnchanged bool     `yaml:"exclude_unchanged"`
	FollowSymlink    bool     `yaml:"follow_symlink"`
	Poll             bool     `yaml:"poll"`
	PollIntervalMS   int      `yaml:"poll_interval"`
}

// Log controls how Zeno's own engine log lines (not the child process's
// stdout/stderr passthrough) are emitted.
type Log struct {
	AddTime  bool `yaml:"add_time"`
	MainOnly bool `yaml:"main_only"`
	Silent   bool `yaml:"silent"`
}

// Proxy is parsed but never wired to a listener; see Non-goals.
type Proxy struct {
	Enabled   bool `yaml:"enabled"`
	ProxyPort int  `yaml:"proxy_port"`
	AppPort   int  `yaml:"app_port"`
}

// Screen controls the terminal-clear behaviour around a rebuild.
type Screen struct {
	ClearOnRebuild bool `yaml:"clear_on_rebuild"`
	KeepScroll     bool `yaml:"keep_scroll"`
}

// Misc holds options that don't belong to any other section.
type Misc struct {
	CleanOnExit bool `yaml:"clean_on_exit"`
}

// Delay returns build.delay as a time.Duration.
func (b Build) Delay() time.Duration {
	return time.Duration(b.DelayMS) * time.Millisecond
}

// KillDelay returns build.kill_delay as a time.Duration.
func (b Build) KillDelay() time.Duration {
	return time.Duration(b.KillDelayMS) * time.Millisecond
}

// PollInterval returns build.poll_interval as a time.Duration.
func (b Build) PollInterval() time.Duration {
	return time.Duration(b.PollIntervalMS) * time.Millisecond
}

// Default returns the documented default configuration (spec.md §6).
func Default() *Config {
	return &Config{
		Root:   ".",
		TmpDir: "tmp",
		Build: Build{
			Cmd:              "dart compile exe lib/main.dart -o ./tmp/main_new.exe",
			Bin:              "./tmp/main.exe",
			Log:              "build-errors.log",
			IncludeExt:       []string{"dart"},
			ExcludeDir:       []string{},
			IncludeDir:       []string{},
			ExcludeFile:      []string{},
			IncludeFile:      []string{},
			ExcludeRegex:     []string{},
			PreCmd:           []string{},
			PostCmd:          []string{},
			Args:             []string{},
			DelayMS:          1500,
			KillDelayMS:      1500,
			StopOnError:      false,
			PollIntervalMS:   500,
			ExcludeUnchanged: true,
		},
		Log: Log{
			AddTime:  false,
			MainOnly: false,
			Silent:   false,
		},
		Proxy: Proxy{
			Enabled:   false,
			ProxyPort: 8090,
			AppPort:   8080,
		},
		Screen: Screen{
			ClearOnRebuild: false,
			KeepScroll:     true,
		},
		Misc: Misc{
			CleanOnExit: false,
		},
	}
}
