// SPDX-License-Identifier: MPL-2.0

package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch, build, and supervise the project binary",
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	e, _, err := buildEngine(".", cfgFile)
	if err != nil {
		return &exitError{code: exSoftware, err: err}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := e.Start(ctx); err != nil {
		return &exitError{code: exSoftware, err: err}
	}

	<-ctx.Done()
	e.Stop()

	return nil
}
