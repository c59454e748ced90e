// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package supervisor

import (
	"os"
	"syscall"
)

// terminateSignal sends SIGTERM, the graceful half of the §4.3 escalation.
func terminateSignal(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
