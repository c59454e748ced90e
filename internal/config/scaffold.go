// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// scaffoldHeader is prepended to the generated zeno.yml, in the teacher's
// own convention of a short banner comment above the marshalled defaults.
const scaffoldHeader = `# Zeno configuration file.
# This file configures the hot-reload supervisor.
# See https://github.com/zenoreload/zeno for documentation.

`

// Scaffold writes the documented default configuration to <dir>/zeno.yml.
// If the file already exists, overwrite must be true or Scaffold returns
// ErrExists without touching the file — the caller (zeno init) is
// responsible for prompting the user.
func Scaffold(dir string, overwrite bool) (string, error) {
	path := filepath.Join(dir, "zeno.yml")

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return path, ErrExists
		}
	}

	data, err := Serialize(Default())
	if err != nil {
		return "", fmt.Errorf("config: marshal default config: %w", err)
	}

	out := append([]byte(scaffoldHeader), data...)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return "", fmt.Errorf("config: write %s: %w", path, err)
	}
	return path, nil
}
