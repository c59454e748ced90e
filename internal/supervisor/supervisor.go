// SPDX-License-Identifier: MPL-2.0

// Package supervisor owns the single long-lived child process Zeno runs
// the user's application as, including graceful-to-forceful termination
// and the binary swap-and-restart protocol. See spec.md §4.3.
package supervisor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sourcegraph/conc/panics"
)

// ErrProcessSpawn wraps a missing binary or failed spawn syscall.
var ErrProcessSpawn = errors.New("supervisor: process spawn failed")

// ErrSwapIO wraps a copy/delete/rename failure during swapAndRestart.
var ErrSwapIO = errors.New("supervisor: swap io failed")

// child is the opaque handle to a spawned OS process plus the exit
// observation it owns.
type child struct {
	cmd     *exec.Cmd
	exited  chan struct{}
	running bool
}

// Supervisor owns at most one child at a time. The Engine is its sole
// caller and serialises every mutating call, so Supervisor itself holds
// only a mutex for isRunning reads racing the exit observer.
type Supervisor struct {
	bin       string
	args      []string
	workDir   string
	killDelay time.Duration
	logger    *log.Logger

	mu      sync.Mutex
	current *child
}

// New constructs a Supervisor. bin is the live binary path (spec.md §3's
// "live binary" — mutated in place across reloads, so Supervisor always
// re-reads it from disk at spawn time rather than caching its bytes).
func New(bin string, args []string, workDir string, killDelay time.Duration, logger *log.Logger) *Supervisor {
	return &Supervisor{bin: bin, args: args, workDir: workDir, killDelay: killDelay, logger: logger}
}

// StartInitial spawns the live binary. If a child already exists it is
// stopped first.
func (s *Supervisor) StartInitial() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawnLocked()
}

// spawnLocked must be called with mu held.
func (s *Supervisor) spawnLocked() error {
	if s.current != nil {
		s.stopLocked()
	}

	if _, err := os.Stat(s.bin); err != nil {
		return fmt.Errorf("%w: binary %q: %w", ErrProcessSpawn, s.bin, err)
	}

	cmd := exec.Command(s.bin, s.args...)
	cmd.Dir = s.workDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrProcessSpawn, err)
	}

	c := &child{cmd: cmd, exited: make(chan struct{}), running: true}
	s.current = c
	s.watchExit(c)
	return nil
}

// watchExit runs the exit observer on a tracked goroutine. Panics inside
// the observer (e.g. from a misbehaving logger) are recovered so the exit
// notification is never silently lost.
func (s *Supervisor) watchExit(c *child) {
	go func() {
		var catcher panics.Catcher
		catcher.Try(func() {
			err := c.cmd.Wait()

			s.mu.Lock()
			c.running = false
			close(c.exited)
			s.mu.Unlock()

			logExit(s.logger, err)
		})
		if recovered := catcher.Recovered(); recovered != nil {
			s.logger.Warn("supervisor: recovered panic in exit observer", "panic", recovered.Value)
		}
	}()
}

// logExit logs the child's exit per spec.md §4.3: 0, -15 (SIGTERM), -9
// (SIGKILL) are normal and logged quietly; anything else is a warning.
func logExit(logger *log.Logger, err error) {
	code := exitCode(err)
	switch code {
	case 0, -15, -9:
		logger.Debug("supervisor: child exited", "code", code)
	default:
		logger.Warn("supervisor: child exited unexpectedly", "code", code)
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return -int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	return -1
}

// IsRunning reflects the latest observed state of the current child.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.running
}

// Stop terminates the current child, if any. Not a failure mode: errors
// are logged and swallowed.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// stopLocked must be called with mu held. It always clears the child slot,
// even if termination itself errors.
func (s *Supervisor) stopLocked() {
	defer func() { s.current = nil }()

	if s.current == nil {
		return
	}
	s.terminateLocked(s.current)
}

// terminateLocked runs the §4.3 termination protocol: arm a kill_delay
// timer, send SIGTERM, await exit, escalate to SIGKILL if the timer fires
// first. Must be called with mu held; releases mu while awaiting exit.
func (s *Supervisor) terminateLocked(c *child) {
	if !c.running {
		return
	}

	if err := terminateSignal(c.cmd.Process); err != nil {
		s.logger.Warn("supervisor: terminate signal failed", "error", err)
	}

	timer := time.NewTimer(s.killDelay)
	defer timer.Stop()

	exited := c.exited
	s.mu.Unlock()
	defer s.mu.Lock()

	select {
	case <-exited:
		return
	case <-timer.C:
		if err := c.cmd.Process.Kill(); err != nil {
			s.logger.Warn("supervisor: kill failed", "error", err)
		}
		<-exited
	}
}

// SwapAndRestart is the critical path of a reload cycle: terminate the
// current child, back up the live binary, promote the staging binary,
// delete the staging binary, schedule a delayed backup deletion, and
// spawn the new child. Returns false on failure. Without a child or a
// staging binary it returns before touching the current child; once the
// child has been terminated, a failed file swap or spawn is followed by
// one more attempt to spawn whatever binary is at the live path, so the
// user keeps a supervised child when that binary can run.
func (s *Supervisor) SwapAndRestart(stagingPath, backupPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		s.logger.Warn("supervisor: swap requested with no running child")
		return false
	}

	if _, err := os.Stat(stagingPath); err != nil {
		s.logDirContents(stagingPath)
		s.logger.Warn("supervisor: staging binary missing", "path", stagingPath, "error", err)
		return false
	}

	s.terminateLocked(s.current)

	if err := s.swapFiles(stagingPath, backupPath); err != nil {
		s.logger.Warn("supervisor: swap failed, attempting recovery", "error", err)
		if spawnErr := s.spawnLocked(); spawnErr != nil {
			s.logger.Warn("supervisor: recovery spawn failed", "error", spawnErr)
		}
		return false
	}

	scheduleBackupDeletion(backupPath, s.logger)

	if err := s.spawnLocked(); err != nil {
		s.logger.Warn("supervisor: spawn after swap failed, attempting recovery", "error", err)
		if spawnErr := s.spawnLocked(); spawnErr != nil {
			s.logger.Warn("supervisor: recovery spawn failed", "error", spawnErr)
		}
		return false
	}

	return true
}

// swapFiles performs, in order: backup live -> copy staging over live ->
// delete staging. Ordering is mandatory per spec.md §5.
func (s *Supervisor) swapFiles(stagingPath, backupPath string) error {
	if _, err := os.Stat(s.bin); err == nil {
		if err := copyFile(s.bin, backupPath); err != nil {
			return fmt.Errorf("%w: backup live binary: %w", ErrSwapIO, err)
		}
	}

	if err := copyFile(stagingPath, s.bin); err != nil {
		return fmt.Errorf("%w: promote staging binary: %w", ErrSwapIO, err)
	}

	if err := os.Remove(stagingPath); err != nil {
		return fmt.Errorf("%w: delete staging binary: %w", ErrSwapIO, err)
	}

	return nil
}

// scheduleBackupDeletion fires a one-shot task 30 seconds later to remove
// the backup binary. Failure is tolerated; the cycle never blocks on it.
func scheduleBackupDeletion(backupPath string, logger *log.Logger) {
	time.AfterFunc(30*time.Second, func() {
		var catcher panics.Catcher
		catcher.Try(func() {
			if err := os.Remove(backupPath); err != nil && !os.IsNotExist(err) {
				logger.Warn("supervisor: failed to delete backup binary", "path", backupPath, "error", err)
			}
		})
		if recovered := catcher.Recovered(); recovered != nil {
			logger.Warn("supervisor: recovered panic deleting backup binary", "panic", recovered.Value)
		}
	})
}

func (s *Supervisor) logDirContents(path string) {
	entries, err := os.ReadDir(dirOf(path))
	if err != nil {
		s.logger.Debug("supervisor: cannot list staging directory", "error", err)
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	s.logger.Debug("supervisor: staging directory contents", "dir", dirOf(path), "entries", names)
}
