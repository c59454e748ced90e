// SPDX-License-Identifier: MPL-2.0

// Package build invokes the user's build command, either for the initial
// build (verbatim) or for a rebuild (rewritten to emit to the staging
// path). See spec.md §4.4.
package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/shell"

	"github.com/zenoreload/zeno/internal/config"
)

// ErrBuildFailed wraps a non-zero build exit or spawn failure.
var ErrBuildFailed = errors.New("build: command failed")

// Result is the outcome of one build invocation.
type Result struct {
	Success bool
	Stderr  string
}

// Builder runs Config.Build.Cmd in Config.Root, rewriting it for staged
// output on rebuilds.
type Builder struct {
	root     string
	cmd      string
	rawBin   string
	buildLog string
	logger   *log.Logger
}

// New constructs a Builder. cmd is Config.Build.Cmd, rawBin is
// Config.Build.Bin exactly as written in the config (relative or
// absolute, never joined against root) — Rebuild's string substitution
// must match the literal bin reference embedded in cmd, not the
// derived absolute path Supervisor uses for filesystem operations.
// buildLog is the derived BuildLogPath.
func New(root, cmd, rawBin, buildLog string, logger *log.Logger) *Builder {
	return &Builder{root: root, cmd: cmd, rawBin: rawBin, buildLog: buildLog, logger: logger}
}

// BuildInitial runs the build command verbatim.
func (b *Builder) BuildInitial(ctx context.Context) (Result, error) {
	return b.run(ctx, b.cmd)
}

// Rebuild runs the build command with every occurrence of the raw bin
// reference replaced by the raw staging reference, so the rebuilt
// artifact lands beside (not on top of) the currently running binary.
// Both sides of the substitution stay in cmd's own string domain —
// Config.Build.Cmd embeds Config.Build.Bin literally, which is often
// root-relative, so rewriting against the derived absolute bin path
// would never match and silently no-op. The raw staging reference
// resolves (once the command runs with cmd.Dir set to root) to the
// same absolute file Supervisor's DerivedPaths.StagingPath names.
func (b *Builder) Rebuild(ctx context.Context) (Result, error) {
	rawStaging := config.AddSuffixBeforeExt(b.rawBin, "_new")
	staged := strings.ReplaceAll(b.cmd, b.rawBin, rawStaging)
	return b.run(ctx, staged)
}

// run tokenises cmdStr with a shell-aware word splitter (mvdan.cc/sh/v3's
// shell.Fields, which understands quoting and escapes, unlike naive
// strings.Fields — this is the "implementer MAY upgrade" path spec.md
// §4.4 documents) and runs the resulting argv in Config.Root.
func (b *Builder) run(ctx context.Context, cmdStr string) (Result, error) {
	fields, err := shell.Fields(cmdStr, nil)
	if err != nil {
		return Result{}, fmt.Errorf("%w: tokenise %q: %w", ErrBuildFailed, cmdStr, err)
	}
	if len(fields) == 0 {
		return Result{}, fmt.Errorf("%w: empty build command", ErrBuildFailed)
	}

	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	cmd.Dir = b.root

	var stderr bytes.Buffer
	cmd.Stdout = os.Stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		if logErr := b.appendBuildLog(stderr.String()); logErr != nil {
			b.logger.Warn("build: failed to write build log", "error", logErr)
		}
		return Result{Success: false, Stderr: stderr.String()}, fmt.Errorf("%w: %w", ErrBuildFailed, runErr)
	}

	return Result{Success: true}, nil
}

// appendBuildLog appends an ISO-8601 timestamped line to the build log,
// creating parent directories as needed. A write failure here is only
// warned about by the caller (run), never fatal — see spec.md §7.
func (b *Builder) appendBuildLog(stderrText string) error {
	if err := os.MkdirAll(filepath.Dir(b.buildLog), 0o755); err != nil {
		return fmt.Errorf("build: create log dir: %w", err)
	}

	f, err := os.OpenFile(b.buildLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("build: open log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s\n", time.Now().Format(time.RFC3339), stderrText)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("build: write log: %w", err)
	}
	return nil
}
