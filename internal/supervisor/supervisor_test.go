// SPDX-License-Identifier: MPL-2.0

package supervisor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// writeScript writes an executable shell script at path whose body
// follows a #!/bin/sh line.
func writeScript(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
}

func requirePOSIX(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script fixtures require a POSIX shell")
	}
}

func TestStartInitial_SpawnsAndTracksExit(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()
	bin := filepath.Join(dir, "app.sh")
	writeScript(t, bin, "exit 0\n")

	s := New(bin, nil, dir, 200*time.Millisecond, testLogger())
	require.NoError(t, s.StartInitial())

	require.Eventually(t, func() bool { return !s.IsRunning() }, 2*time.Second, 10*time.Millisecond)
}

func TestStartInitial_MissingBinaryErrors(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "missing"), nil, dir, time.Second, testLogger())
	err := s.StartInitial()
	require.Error(t, err)
	assert.False(t, s.IsRunning())
}

func TestStop_GracefulExitWithinKillDelay(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()
	bin := filepath.Join(dir, "app.sh")
	writeScript(t, bin, "trap 'exit 0' TERM\nwhile :; do sleep 0.05; done\n")

	s := New(bin, nil, dir, 2*time.Second, testLogger())
	require.NoError(t, s.StartInitial())
	require.Eventually(t, func() bool { return s.IsRunning() }, time.Second, 10*time.Millisecond)

	start := time.Now()
	s.Stop()
	assert.Less(t, time.Since(start), time.Second, "graceful exit should not wait out the kill_delay")
	assert.False(t, s.IsRunning())
}

func TestStop_EscalatesToKillAfterDelay(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()
	bin := filepath.Join(dir, "app.sh")
	writeScript(t, bin, "trap '' TERM\nwhile :; do sleep 0.05; done\n")

	s := New(bin, nil, dir, 150*time.Millisecond, testLogger())
	require.NoError(t, s.StartInitial())
	require.Eventually(t, func() bool { return s.IsRunning() }, time.Second, 10*time.Millisecond)

	start := time.Now()
	s.Stop()
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
	assert.False(t, s.IsRunning())
}

func TestSwapAndRestart_PromotesStagingAndBacksUpLive(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()
	bin := filepath.Join(dir, "app.sh")
	staging := filepath.Join(dir, "app_new.sh")
	backup := filepath.Join(dir, "app.sh.backup")

	writeScript(t, bin, "echo old\nexit 0\n")
	writeScript(t, staging, "echo new\nexit 0\n")

	s := New(bin, nil, dir, 500*time.Millisecond, testLogger())
	require.NoError(t, s.StartInitial())

	ok := s.SwapAndRestart(staging, backup)
	require.True(t, ok)

	_, err := os.Stat(staging)
	assert.True(t, os.IsNotExist(err), "staging binary should be deleted after promotion")

	data, err := os.ReadFile(bin)
	require.NoError(t, err)
	assert.Contains(t, string(data), "echo new")

	backupData, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Contains(t, string(backupData), "echo old")

	require.Eventually(t, func() bool { return s.IsRunning() }, time.Second, 10*time.Millisecond)
	s.Stop()
}

func TestSwapAndRestart_MissingStagingFailsWithoutMutatingLive(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()
	bin := filepath.Join(dir, "app.sh")
	writeScript(t, bin, "exit 0\n")

	s := New(bin, nil, dir, 500*time.Millisecond, testLogger())
	require.NoError(t, s.StartInitial())

	ok := s.SwapAndRestart(filepath.Join(dir, "does_not_exist"), filepath.Join(dir, "app.sh.backup"))
	assert.False(t, ok)

	data, err := os.ReadFile(bin)
	require.NoError(t, err)
	assert.Contains(t, string(data), "exit 0")
}

func TestCopyFile_PreservesContent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o755))

	require.NoError(t, copyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, -1, exitCode(fmt.Errorf("not an exit error")))
}
