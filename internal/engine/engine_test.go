// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/zenoreload/zeno/internal/config"
	"github.com/zenoreload/zeno/internal/filter"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func requirePOSIX(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script fixtures require a POSIX shell")
	}
}

// newTestEngine wires an Engine whose build command writes a fixed
// "binary" shell script into place, so a reload cycle can run end to end
// without a real compiler.
func newTestEngine(t *testing.T, dir string) (*Engine, *config.Config, config.DerivedPaths) {
	t.Helper()
	requirePOSIX(t)

	cfg := config.Default()
	cfg.Root = dir
	cfg.TmpDir = "tmp"
	cfg.Build.Bin = filepath.Join("tmp", "app.sh")
	cfg.Build.Cmd = "sh -c 'printf \"#!/bin/sh\\nexit 0\\n\" > " + filepath.Join(dir, "tmp", "app.sh") + " && chmod +x " + filepath.Join(dir, "tmp", "app.sh") + "'"
	cfg.Build.IncludeExt = []string{"txt"}
	cfg.Build.DelayMS = 30
	cfg.Build.KillDelayMS = 500

	paths := config.Derive(cfg)

	f, err := filter.New(cfg)
	require.NoError(t, err)

	e, err := New(cfg, paths, f, testLogger())
	require.NoError(t, err)

	return e, cfg, paths
}

func TestEngine_StartSpawnsInitialChild(t *testing.T) {
	dir := t.TempDir()
	e, _, _ := newTestEngine(t, dir)

	require.NoError(t, e.Start(context.Background()))
	require.Eventually(t, func() bool { return e.supervisor.IsRunning() }, time.Second, 10*time.Millisecond)

	e.Stop()
	require.False(t, e.supervisor.IsRunning())
}

func TestEngine_FileChangeTriggersReload(t *testing.T) {
	dir := t.TempDir()
	e, _, paths := newTestEngine(t, dir)

	require.NoError(t, e.Start(context.Background()))
	require.Eventually(t, func() bool { return e.supervisor.IsRunning() }, time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.txt"), []byte("x"), 0o644))

	// A reload cycle backs up the live binary before promoting the
	// rebuilt staging binary over it; its appearance is observable proof
	// that Builder.Rebuild and Supervisor.SwapAndRestart both ran.
	require.Eventually(t, func() bool {
		_, err := os.Stat(paths.BackupPath)
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)

	e.Stop()
}

func TestEngine_DoubleStartRejected(t *testing.T) {
	dir := t.TempDir()
	e, _, _ := newTestEngine(t, dir)

	require.NoError(t, e.Start(context.Background()))
	require.ErrorIs(t, e.Start(context.Background()), ErrAlreadyRunning)
	e.Stop()
}

func TestEngine_StopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	e, _, _ := newTestEngine(t, dir)

	require.NoError(t, e.Start(context.Background()))
	e.Stop()
	e.Stop() // must not panic or block
}

func TestEngine_InitialBuildFailureLeavesRunningWithoutChild(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Root = dir
	cfg.Build.Cmd = "sh -c 'exit 1'"
	cfg.Build.Bin = filepath.Join("tmp", "app.sh")
	paths := config.Derive(cfg)
	f, err := filter.New(cfg)
	require.NoError(t, err)

	e2, err := New(cfg, paths, f, testLogger())
	require.NoError(t, err)

	require.NoError(t, e2.Start(context.Background()))
	require.True(t, e2.running)
	require.False(t, e2.supervisor.IsRunning())
	e2.Stop()
}
