// SPDX-License-Identifier: MPL-2.0

// Package engine is the top-level coordinator: it owns the reload state
// machine, the debounce timer, and the pending-change set, and drives
// Watcher, Builder, and Supervisor per spec.md §4.5.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/zenoreload/zeno/internal/build"
	"github.com/zenoreload/zeno/internal/config"
	"github.com/zenoreload/zeno/internal/filter"
	"github.com/zenoreload/zeno/internal/supervisor"
	"github.com/zenoreload/zeno/internal/watch"
)

// ErrWatcher wraps a fatal error surfaced by the watcher's run loop.
var ErrWatcher = errors.New("engine: watcher failed")

// ErrAlreadyRunning signals a second Start call on a running Engine.
var ErrAlreadyRunning = errors.New("engine: already running")

// Engine mutates its own state (running, reloading, pending,
// debounceTimer) only from the single actor goroutine started by Start,
// realising spec.md §5's "cooperative, event-driven, single logical
// thread" requirement as a Go channel-actor: every external trigger
// (a watcher event, the debounce timer firing) is posted as a closure
// onto actions and runs serialised with every other one.
type Engine struct {
	cfg    *config.Config
	paths  config.DerivedPaths
	logger *log.Logger

	builder    *build.Builder
	supervisor *supervisor.Supervisor
	watcher    *watch.Watcher

	actions chan func()
	quit    chan struct{}
	wg      sync.WaitGroup
	stopped sync.Once

	running       bool
	reloading     bool
	pending       map[string]struct{}
	debounceTimer *time.Timer

	watchCancel context.CancelFunc
}

// New wires an Engine from its collaborators. cfg and paths must already
// be validated/derived (config.Load, config.Derive).
func New(cfg *config.Config, paths config.DerivedPaths, filt *filter.Filter, logger *log.Logger) (*Engine, error) {
	w, err := watch.New(cfg.Root, filt, logger, cfg.Build.Poll, cfg.Build.PollInterval())
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	b := build.New(cfg.Root, cfg.Build.Cmd, cfg.Build.Bin, paths.BuildLogPath, logger)
	s := supervisor.New(paths.BinPath, cfg.Build.Args, cfg.Root, cfg.Build.KillDelay(), logger)

	return &Engine{
		cfg:        cfg,
		paths:      paths,
		logger:     logger,
		builder:    b,
		supervisor: s,
		watcher:    w,
		actions:    make(chan func(), 64),
		quit:       make(chan struct{}),
		pending:    make(map[string]struct{}),
	}, nil
}

// Start runs the spec.md §4.5 start sequence: create tmp_path, run
// pre_cmd, build the initial binary, run post_cmd, spawn the initial
// child, then subscribe to the watcher and begin processing events.
func (e *Engine) Start(ctx context.Context) error {
	if e.running {
		return ErrAlreadyRunning
	}
	e.running = true

	e.wg.Add(1)
	go e.actorLoop()

	if err := os.MkdirAll(e.paths.TmpPath, 0o755); err != nil {
		return fmt.Errorf("engine: create tmp_path: %w", err)
	}

	e.runCmdList(ctx, "pre_cmd", e.cfg.Build.PreCmd)

	if _, err := e.builder.BuildInitial(ctx); err != nil {
		e.logger.Error("engine: initial build failed, no child spawned", "error", err)
		return nil
	}

	e.runCmdList(ctx, "post_cmd", e.cfg.Build.PostCmd)

	if err := e.supervisor.StartInitial(); err != nil {
		e.logger.Error("engine: initial spawn failed", "error", err)
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	e.watchCancel = cancel
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.watcher.Run(watchCtx, e.onFileChanged); err != nil {
			e.logger.Warn("engine: watcher stopped", "error", fmt.Errorf("%w: %w", ErrWatcher, err))
		}
	}()

	return nil
}

// onFileChanged is the watcher callback. It posts onto the actor loop so
// state mutation stays serialised even though the watcher invokes this
// from its own goroutine.
func (e *Engine) onFileChanged(ev watch.ChangeEvent) {
	e.post(func() { e.handleFileChanged(ev) })
}

func (e *Engine) handleFileChanged(ev watch.ChangeEvent) {
	if !e.running || e.reloading {
		return
	}

	e.pending[ev.Path] = struct{}{}

	if e.debounceTimer != nil {
		e.debounceTimer.Stop()
	}
	e.debounceTimer = time.AfterFunc(e.cfg.Build.Delay(), func() {
		e.post(e.reloadCycle)
	})
}

// post enqueues fn on the actor loop. It is safe to call from any
// goroutine, including from within the actor loop itself.
func (e *Engine) post(fn func()) {
	select {
	case e.actions <- fn:
	case <-e.quit:
	}
}

func (e *Engine) actorLoop() {
	defer e.wg.Done()
	for {
		select {
		case fn := <-e.actions:
			fn()
		case <-e.quit:
			return
		}
	}
}

// reloadCycle runs the spec.md §4.5 reload sequence. It must only ever
// run on the actor goroutine.
func (e *Engine) reloadCycle() {
	if len(e.pending) == 0 || e.reloading {
		return
	}

	changes := e.drainPending()
	cycleID := ulid.Make().String()
	cycleLogger := e.logger.With("cycle", cycleID)

	if e.cfg.Screen.ClearOnRebuild {
		clearScreen(e.cfg.Screen.KeepScroll)
	}

	e.reloading = true
	defer func() { e.reloading = false }()

	t0 := time.Now()
	cycleLogger.Info("engine: reload cycle starting", "changed", len(changes))

	ctx := context.Background()
	e.runCmdListWithLogger(ctx, cycleLogger, "pre_cmd", e.cfg.Build.PreCmd)

	result, err := e.builder.Rebuild(ctx)
	if err != nil {
		if e.cfg.Build.StopOnError {
			cycleLogger.Warn("engine: build failed, stop-on-error: leaving current process running", "stderr", result.Stderr)
		} else {
			cycleLogger.Warn("engine: build failed, skipping reload", "stderr", result.Stderr)
		}
		return
	}

	e.runCmdListWithLogger(ctx, cycleLogger, "post_cmd", e.cfg.Build.PostCmd)

	if !e.supervisor.SwapAndRestart(e.paths.StagingPath, e.paths.BackupPath) {
		cycleLogger.Warn("engine: swap failed")
		return
	}

	cycleLogger.Info("engine: reload cycle complete", "elapsed", time.Since(t0))
}

func (e *Engine) drainPending() []string {
	changes := make([]string, 0, len(e.pending))
	for p := range e.pending {
		changes = append(changes, p)
	}
	e.pending = make(map[string]struct{})
	return changes
}

// clearScreen emits the ANSI clear sequence spec.md §4.5 documents:
// ESC[2J alone preserves scrollback, ESC[2J ESC[H also homes the cursor
// when keep_scroll is false.
func clearScreen(keepScroll bool) {
	if keepScroll {
		fmt.Fprint(os.Stdout, "\x1b[2J")
		return
	}
	fmt.Fprint(os.Stdout, "\x1b[2J\x1b[H")
}

// runCmdList runs each entry in cmds sequentially with e.logger.
func (e *Engine) runCmdList(ctx context.Context, label string, cmds []string) {
	e.runCmdListWithLogger(ctx, e.logger, label, cmds)
}

func (e *Engine) runCmdListWithLogger(ctx context.Context, logger *log.Logger, label string, cmds []string) {
	for _, c := range cmds {
		if err := runShellCmd(ctx, e.cfg.Root, c); err != nil {
			logger.Warn(fmt.Sprintf("engine: %s failed", label), "cmd", c, "error", err)
		}
	}
}

func runShellCmd(ctx context.Context, dir, cmdStr string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", cmdStr)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Stop runs the spec.md §4.5 stop sequence. Idempotent.
func (e *Engine) Stop() {
	e.stopped.Do(func() {
		if !e.running {
			return
		}

		// Cancel the debounce timer and clear running on the actor
		// goroutine, since both are otherwise only ever touched there.
		done := make(chan struct{})
		e.post(func() {
			if e.debounceTimer != nil {
				e.debounceTimer.Stop()
			}
			e.running = false
			close(done)
		})
		<-done

		if e.watchCancel != nil {
			e.watchCancel()
		}
		if err := e.watcher.Stop(); err != nil {
			e.logger.Warn("engine: watcher stop failed", "error", err)
		}

		e.supervisor.Stop()

		if e.cfg.Misc.CleanOnExit {
			if err := os.RemoveAll(e.paths.TmpPath); err != nil {
				e.logger.Warn("engine: clean_on_exit failed", "error", err)
			}
		}

		close(e.quit)
		e.wg.Wait()
	})
}
