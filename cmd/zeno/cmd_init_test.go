// SPDX-License-Identifier: MPL-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInit_CreatesZenoYml(t *testing.T) {
	dir := t.TempDir()
	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWD) })

	require.NoError(t, runInit(initCmd, nil))

	_, statErr := os.Stat(filepath.Join(dir, "zeno.yml"))
	assert.NoError(t, statErr)
}

func TestRunInit_AbortsOnDeclinedOverwrite(t *testing.T) {
	dir := t.TempDir()
	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWD) })

	require.NoError(t, runInit(initCmd, nil))
	data, err := os.ReadFile(filepath.Join(dir, "zeno.yml"))
	require.NoError(t, err)

	// Stdin closed immediately: confirmOverwrite reads EOF, which
	// strings.TrimSpace/ToLower treats as "", not "y" -> declined.
	oldStdin := os.Stdin
	r, w, pipeErr := os.Pipe()
	require.NoError(t, pipeErr)
	require.NoError(t, w.Close())
	os.Stdin = r
	t.Cleanup(func() { os.Stdin = oldStdin })

	require.NoError(t, runInit(initCmd, nil))

	after, err := os.ReadFile(filepath.Join(dir, "zeno.yml"))
	require.NoError(t, err)
	assert.Equal(t, data, after)
}
