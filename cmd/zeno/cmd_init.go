// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zenoreload/zeno/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new zeno.yml in the current directory",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	path, err := config.Scaffold(".", false)
	if errors.Is(err, config.ErrExists) {
		if !confirmOverwrite() {
			fmt.Println(subtitleStyle.Render("Aborted: zeno.yml was left unchanged."))
			return nil
		}
		path, err = config.Scaffold(".", true)
	}
	if err != nil {
		return &exitError{code: exSoftware, err: fmt.Errorf("scaffold zeno.yml: %w", err)}
	}

	fmt.Println(successStyle.Render("Created ") + path)
	fmt.Println(subtitleStyle.Render("Next: edit zeno.yml, then run `zeno run`."))
	return nil
}

func confirmOverwrite() bool {
	fmt.Print(warningStyle.Render("zeno.yml already exists. Overwrite? [y/N] "))
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
