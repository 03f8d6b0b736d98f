//go:build unix

package supervisor

import (
	"syscall"
	"time"
)

// sysProcAttr detaches the child into its own session: the managed flutter
// run process is meant to outlive the invocation that spawned it, so it must
// not share the CLI's process group or controlling terminal.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

// pidAlive reports whether a process with the given pid exists. Signal 0
// performs the permission and existence checks without delivering anything.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}

// terminatePID sends SIGTERM, waits out the grace period, then SIGKILLs
// whatever is left. SIGKILL delivery is asynchronous like any signal, so
// the pid is polled afterwards as well; callers check liveness right after
// this returns and must not see a process that is already dying.
func terminatePID(pid int, grace time.Duration) {
	if pid <= 0 {
		return
	}
	_ = syscall.Kill(pid, syscall.SIGTERM)
	if waitGone(pid, grace) {
		return
	}
	_ = syscall.Kill(pid, syscall.SIGKILL)
	waitGone(pid, grace)
}

// waitGone polls pid liveness until it disappears or the deadline passes.
func waitGone(pid int, grace time.Duration) bool {
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !pidAlive(pid) {
			return true
		}
		time.Sleep(25 * time.Millisecond)
	}
	return !pidAlive(pid)
}
