// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"

	"github.com/zenoreload/zeno/internal/config"
	"github.com/zenoreload/zeno/internal/engine"
	"github.com/zenoreload/zeno/internal/filter"
)

// buildEngine is the composition root for `zeno run`: it loads and
// validates the project configuration, wires the logger from the
// config's log section, and constructs the Engine with its collaborators.
func buildEngine(dir, explicitConfigPath string) (*engine.Engine, *config.Config, error) {
	cfg, err := config.Load(dir, explicitConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.Log)

	f, err := filter.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("build filter: %w", err)
	}

	paths := config.Derive(cfg)

	e, err := engine.New(cfg, paths, f, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build engine: %w", err)
	}

	return e, cfg, nil
}

// newLogger configures the engine-wide logger from Config.Log, per
// spec.md §7: add_time toggles timestamps, silent discards everything,
// main_only raises the floor to InfoLevel so only the reload narrative
// (not per-file-event bookkeeping) is shown.
func newLogger(lc config.Log) *charmlog.Logger {
	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: lc.AddTime,
	})

	switch {
	case lc.Silent:
		logger.SetLevel(charmlog.FatalLevel + 1)
	case lc.MainOnly:
		logger.SetLevel(charmlog.InfoLevel)
	case verbose:
		logger.SetLevel(charmlog.DebugLevel)
	}

	return logger
}
