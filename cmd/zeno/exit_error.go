// SPDX-License-Identifier: MPL-2.0

package main

import "fmt"

// exitError signals a non-zero exit code without forcing os.Exit inside
// RunE handlers, so cobra's own error printing still runs.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitError) Unwrap() error {
	return e.err
}
