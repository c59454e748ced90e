// SPDX-License-Identifier: MPL-2.0

//go:build windows

package supervisor

import "os"

// terminateSignal has no graceful equivalent on windows: os.Process only
// supports os.Kill there, so the kill_delay escalation collapses to an
// immediate kill on this platform.
func terminateSignal(p *os.Process) error {
	return p.Kill()
}
