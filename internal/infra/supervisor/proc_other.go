//go:build !unix

package supervisor

import (
	"syscall"
	"time"
)

func sysProcAttr() *syscall.SysProcAttr {
	return nil
}

// pidAlive cannot be implemented with signal 0 here; report dead so the
// supervisor falls back to spawning a fresh process.
func pidAlive(pid int) bool {
	return false
}

func terminatePID(pid int, grace time.Duration) {}
